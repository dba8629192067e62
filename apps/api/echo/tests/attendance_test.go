package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core/attendance"
	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/tests"
)

func TestAttendanceAPI_Session(t *testing.T) {
	e := setup(t)
	tess := testutil.CreateUser(t, e.usrRepo, "Tess", "tess", "tess@lms.test", "S3cure!pass", []string{user.RoleInstructor}, true)
	other := testutil.CreateUser(t, e.usrRepo, "Otto", "otto", "otto@lms.test", "S3cure!pass", []string{user.RoleInstructor}, true)
	amy := testutil.CreateUser(t, e.usrRepo, "Amy", "amy", "amy@lms.test", "S3cure!pass", []string{user.RoleStudent}, true)
	ben := testutil.CreateUser(t, e.usrRepo, "Ben", "ben", "ben@lms.test", "S3cure!pass", []string{user.RoleStudent}, true)

	b := testutil.CreateBatch(t, e.batchRepo, "english-a1", "2024-01-01", "2024-03-31")
	testutil.Enroll(t, e.batchRepo, b, amy, ben)
	testutil.AddInstructor(t, e.batchRepo, b, tess)
	tok := getToken(t, tess)

	e.run(t, []httpTest{
		{
			name:     "guest",
			method:   http.MethodPost,
			path:     "/v1/attendance/batches/english-a1/sessions",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "student",
			method:   http.MethodPost,
			path:     "/v1/attendance/batches/english-a1/sessions",
			body:     []byte(`{"date":"2024-01-02"}`),
			token:    getToken(t, amy),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "You are not allowed to manage attendance."}),
		},
		{
			name:     "instructor of another batch",
			method:   http.MethodPost,
			path:     "/v1/attendance/batches/english-a1/sessions",
			body:     []byte(`{"date":"2024-01-02"}`),
			token:    getToken(t, other),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "You do not have access to this batch."}),
		},
		{
			name:     "date outside of the batch",
			method:   http.MethodPost,
			path:     "/v1/attendance/batches/english-a1/sessions",
			body:     []byte(`{"date":"2024-05-02"}`),
			token:    tok,
			wantCode: http.StatusBadRequest,
		},
	})

	var sess attendance.Session
	t.Run("create session", func(t *testing.T) {
		rec := e.do(httpTest{
			method: http.MethodPost,
			path:   "/v1/attendance/batches/english-a1/sessions",
			body:   []byte(`{"date":"2024-01-02"}`),
			token:  tok,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &sess)
		assert.Equal(t, "2024-01-02", sess.SessionDate.String())
		require.Len(t, sess.Records, 2)
		for _, r := range sess.Records {
			assert.Equal(t, attendance.StatusAbsent, r.Status)
		}
	})

	t.Run("same day returns the same session", func(t *testing.T) {
		rec := e.do(httpTest{
			method: http.MethodPost,
			path:   "/v1/attendance/batches/english-a1/sessions",
			body:   []byte(`{"date":"2024-01-02"}`),
			token:  tok,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var again attendance.Session
		decode(t, rec, &again)
		assert.Equal(t, sess.Name, again.Name)
	})

	require.NotEmpty(t, sess.Records)
	record := sess.Records[0].Name
	e.run(t, []httpTest{
		{
			name:     "excused without reason",
			method:   http.MethodPut,
			path:     "/v1/attendance/records/" + record,
			body:     []byte(`{"status":"Excused"}`),
			token:    tok,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "Excuse reason is required when marking a student as Excused."}),
		},
		{
			name:   "present",
			method: http.MethodPut,
			path:   "/v1/attendance/records/" + record,
			body:   []byte(`{"status":"Present"}`),
			token:  tok,
		},
		{
			name:   "submit",
			method: http.MethodPost,
			path:   "/v1/attendance/sessions/" + sess.Name + "/submit",
			token:  tok,
		},
		{
			name:     "locked once submitted",
			method:   http.MethodPut,
			path:     "/v1/attendance/records/" + record,
			body:     []byte(`{"status":"Late"}`),
			token:    tok,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "You cannot edit a submitted attendance session. Please reopen it first."}),
		},
		{
			name:     "instructors cannot reopen",
			method:   http.MethodPost,
			path:     "/v1/attendance/sessions/" + sess.Name + "/reopen",
			token:    tok,
			wantCode: http.StatusForbidden,
		},
	})
}

func TestAttendanceAPI_Batches(t *testing.T) {
	e := setup(t)
	tess := testutil.CreateUser(t, e.usrRepo, "Tess", "tess", "tess@lms.test", "S3cure!pass", []string{user.RoleInstructor}, true)
	b := testutil.CreateBatch(t, e.batchRepo, "english-a1", "2024-01-01", "")
	testutil.CreateBatch(t, e.batchRepo, "english-b1", "2024-01-01", "")
	testutil.AddInstructor(t, e.batchRepo, b, tess)

	rec := e.do(httpTest{path: "/v1/attendance/batches", token: getToken(t, tess)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var batches []struct {
		Name string `json:"name"`
	}
	decode(t, rec, &batches)
	if assert.Len(t, batches, 1) {
		assert.Equal(t, "english-a1", batches[0].Name)
	}
}
