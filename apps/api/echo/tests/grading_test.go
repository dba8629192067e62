package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/grading"
	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/tests"
)

func TestGradingAPI(t *testing.T) {
	e := setup(t)
	tess := testutil.CreateUser(t, e.usrRepo, "Tess", "tess", "tess@lms.test", "S3cure!pass", []string{user.RoleInstructor}, true)
	other := testutil.CreateUser(t, e.usrRepo, "Otto", "otto", "otto@lms.test", "S3cure!pass", []string{user.RoleInstructor}, true)
	amy := testutil.CreateUser(t, e.usrRepo, "Amy", "amy", "amy@lms.test", "S3cure!pass", []string{user.RoleStudent}, true)

	b := testutil.CreateBatch(t, e.batchRepo, "english-a1", "2024-01-01", "2024-03-31")
	testutil.Enroll(t, e.batchRepo, b, amy)
	testutil.AddInstructor(t, e.batchRepo, b, tess)
	tok := getToken(t, tess)

	e.run(t, []httpTest{
		{
			name:     "batches",
			path:     "/v1/grading/batches",
			token:    tok,
			wantData: marchallList(t, b.Summary()),
		},
		{
			name:     "students",
			path:     "/v1/grading/batches/english-a1/students",
			token:    tok,
			wantData: []byte(`[{"student":"` + amy.ID + `","student_name":"Amy"}]`),
		},
		{
			name:     "not an instructor of the batch",
			method:   http.MethodPost,
			path:     "/v1/grading/batches/english-a1/sheet",
			token:    getToken(t, other),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "You are not allowed to manage grades for batch english-a1."}),
		},
	})

	var sheet grading.Sheet
	t.Run("create sheet", func(t *testing.T) {
		rec := e.do(httpTest{method: http.MethodPost, path: "/v1/grading/batches/english-a1/sheet", token: tok})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &sheet)
		assert.Equal(t, core.DocDraft, sheet.DocStatus)
		require.Len(t, sheet.Records, 1)
		assert.Equal(t, amy.ID, sheet.Records[0].Student)
		assert.Nil(t, sheet.Records[0].Exam)
	})

	grades := func(exam float64) []byte {
		r := sheet.Records[0]
		r.Attendance, r.Participation, r.Assignments = testutil.Float(10), testutil.Float(9), testutil.Float(8.5)
		r.Speaking, r.Writing, r.CommunicativeCompetence = testutil.Float(7), testutil.Float(12.333), testutil.Float(9)
		r.FinalOral, r.Exam = testutil.Float(8), testutil.Float(exam)
		return marchallObj(t, grading.SheetUpdate{Records: []grading.Record{r}})
	}

	e.run(t, []httpTest{
		{
			name:     "submit incomplete",
			method:   http.MethodPost,
			path:     "/v1/grading/sheets/" + sheet.Name + "/submit",
			token:    tok,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "Please enter Attendance for Amy before submitting."}),
		},
		{
			name:     "exam over the limit",
			method:   http.MethodPut,
			path:     "/v1/grading/sheets/" + sheet.Name,
			body:     grades(26),
			token:    tok,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "Exam for Amy must be between 0 and 25."}),
		},
	})

	t.Run("save and submit", func(t *testing.T) {
		rec := e.do(httpTest{method: http.MethodPut, path: "/v1/grading/sheets/" + sheet.Name, body: grades(20), token: tok})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var saved grading.Sheet
		decode(t, rec, &saved)
		require.Len(t, saved.Records, 1)
		assert.Equal(t, 12.33, *saved.Records[0].Writing)
		assert.Equal(t, 83.83, saved.Records[0].Total)

		rec = e.do(httpTest{method: http.MethodPost, path: "/v1/grading/sheets/" + sheet.Name + "/submit", token: tok})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = e.do(httpTest{method: http.MethodPut, path: "/v1/grading/sheets/" + sheet.Name, body: grades(21), token: tok})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
