package tests

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/masomo-lms/apps/api/echo"
	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/services/email"
	"github.com/trezcool/masomo-lms/tests"
)

func TestUserAPI_Login(t *testing.T) {
	e := setup(t)
	testutil.CreateUser(t, e.usrRepo, "Amy", "amy", "amy@lms.test", "S3cure!pass", []string{user.RoleStudent}, true)
	testutil.CreateUser(t, e.usrRepo, "Ben", "ben", "ben@lms.test", "S3cure!pass", []string{user.RoleStudent}, false)

	e.run(t, []httpTest{
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username":"this field is required","password":"this field is required"}`),
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     []byte(`{"username":"amy","password":"nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "inactive user",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     []byte(`{"username":"ben","password":"S3cure!pass"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	t.Run("success with email", func(t *testing.T) {
		rec := e.do(httpTest{
			method: http.MethodPost,
			path:   "/v1/users/login",
			body:   []byte(`{"username":"AMY@lms.test","password":"S3cure!pass"}`),
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var res LoginResponse
		decode(t, rec, &res)
		assert.NotEmpty(t, res.Token)

		me := e.do(httpTest{path: "/v1/users/me", token: res.Token})
		assert.Equal(t, http.StatusOK, me.Code)
		assert.Contains(t, me.Body.String(), `"username":"amy"`)
	})
}

func TestUserAPI_Me(t *testing.T) {
	e := setup(t)
	amy := testutil.CreateUser(t, e.usrRepo, "Amy", "amy", "amy@lms.test", "S3cure!pass", []string{user.RoleStudent}, true)

	e.run(t, []httpTest{
		{
			name:     "no token",
			path:     "/v1/users/me",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "valid token",
			path:     "/v1/users/me",
			token:    getToken(t, amy),
			wantData: marchallObj(t, amy),
		},
	})
}

func TestUserAPI_Query(t *testing.T) {
	e := setup(t)
	admin := testutil.CreateUser(t, e.usrRepo, "Root", "root", "root@lms.test", "S3cure!pass", []string{user.RoleAdministrator}, true)
	amy := testutil.CreateUser(t, e.usrRepo, "Amy", "amy", "amy@lms.test", "S3cure!pass", []string{user.RoleStudent}, true)

	e.run(t, []httpTest{
		{
			name:     "student forbidden",
			path:     "/v1/users",
			token:    getToken(t, amy),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "admin lists everyone",
			path:     "/v1/users",
			token:    getToken(t, admin),
			wantData: marchallList(t, admin, amy),
		},
		{
			name:     "student sees themselves",
			path:     "/v1/users/" + amy.ID,
			token:    getToken(t, amy),
			wantData: marchallObj(t, amy),
		},
		{
			name:     "student cannot see others",
			path:     "/v1/users/" + admin.ID,
			token:    getToken(t, amy),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name:     "admin cannot delete themselves",
			method:   http.MethodDelete,
			path:     "/v1/users/" + admin.ID,
			token:    getToken(t, admin),
			wantCode: http.StatusForbidden,
		},
	})
}

func TestUserAPI_PasswordReset(t *testing.T) {
	e := setup(t)
	testutil.CreateUser(t, e.usrRepo, "Amy", "amy", "amy@lms.test", "S3cure!pass", []string{user.RoleStudent}, true)

	for _, addr := range []string{"amy@lms.test", "nobody@lms.test"} {
		rec := e.do(httpTest{
			method: http.MethodPost,
			path:   "/v1/users/password-reset",
			body:   []byte(`{"email":"` + addr + `"}`),
		})
		if rec.Code != http.StatusOK {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	}

	msgs := emailsvc.Outbox.Messages()
	if assert.Len(t, msgs, 1) {
		assert.Equal(t, "Password Reset", msgs[0].Subject)
		assert.True(t, strings.Contains(msgs[0].To[0].Address, "amy@lms.test"))
		assert.True(t, strings.Contains(msgs[0].TextContent, "/password-reset/"), msgs[0].TextContent)
		assert.True(t, strings.Contains(msgs[0].HTMLContent, "Reset my password"), msgs[0].HTMLContent)
	}
}

func TestUserAPI_Update(t *testing.T) {
	e := setup(t)
	admin := testutil.CreateUser(t, e.usrRepo, "Root", "root", "root@lms.test", "S3cure!pass", []string{user.RoleAdministrator}, true)
	manager := testutil.CreateUser(t, e.usrRepo, "Sam", "sam", "sam@lms.test", "S3cure!pass", []string{user.RoleSystemManager}, true)
	amy := testutil.CreateUser(t, e.usrRepo, "Amy", "amy", "amy@lms.test", "S3cure!pass", []string{user.RoleStudent}, true)

	e.run(t, []httpTest{
		{
			name:     "student cannot change own roles",
			method:   http.MethodPut,
			path:     "/v1/users/" + amy.ID,
			body:     []byte(`{"roles":["Administrator"]}`),
			token:    getToken(t, amy),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "student cannot update others",
			method:   http.MethodPut,
			path:     "/v1/users/" + admin.ID,
			body:     []byte(`{"name":"Hacked"}`),
			token:    getToken(t, amy),
			wantCode: http.StatusNotFound,
		},
		{
			name:     "cannot grant a role above own",
			method:   http.MethodPut,
			path:     "/v1/users/" + amy.ID,
			body:     []byte(`{"roles":["Administrator"]}`),
			token:    getToken(t, manager),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"roles":"not enough rights to set these roles"}`),
		},
		{
			name:     "username taken",
			method:   http.MethodPut,
			path:     "/v1/users/" + amy.ID,
			body:     []byte(`{"username":"root"}`),
			token:    getToken(t, admin),
			wantCode: http.StatusBadRequest,
		},
	})

	t.Run("student renames themselves", func(t *testing.T) {
		rec := e.do(httpTest{
			method: http.MethodPut,
			path:   "/v1/users/" + amy.ID,
			body:   []byte(`{"name":"  Amy B. "}`),
			token:  getToken(t, amy),
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got user.User
		decode(t, rec, &got)
		assert.Equal(t, "Amy B.", got.Name)
		assert.Equal(t, "amy", got.Username)
	})

	t.Run("admin deactivates a student", func(t *testing.T) {
		rec := e.do(httpTest{
			method: http.MethodPut,
			path:   "/v1/users/" + amy.ID,
			body:   []byte(`{"is_active":false,"roles":["LMS Student","Placement Test Taker"]}`),
			token:  getToken(t, admin),
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		stored, err := e.usrRepo.GetUser(context.Background(), user.GetFilter{ID: amy.ID})
		require.NoError(t, err)
		assert.False(t, stored.IsActive)
		assert.ElementsMatch(t, []string{user.RoleStudent, user.RolePlacementTestTaker}, stored.Roles)
	})
}

func TestUserAPI_DestroyMultiple(t *testing.T) {
	e := setup(t)
	admin := testutil.CreateUser(t, e.usrRepo, "Root", "root", "root@lms.test", "S3cure!pass", []string{user.RoleAdministrator}, true)
	amy := testutil.CreateUser(t, e.usrRepo, "Amy", "amy", "amy@lms.test", "S3cure!pass", []string{user.RoleStudent}, true)
	ben := testutil.CreateUser(t, e.usrRepo, "Ben", "ben", "ben@lms.test", "S3cure!pass", []string{user.RoleStudent}, true)

	e.run(t, []httpTest{
		{
			name:     "student forbidden",
			method:   http.MethodDelete,
			path:     "/v1/users?id=" + ben.ID,
			token:    getToken(t, amy),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "admin cannot delete themselves",
			method:   http.MethodDelete,
			path:     "/v1/users?id=" + amy.ID + "&id=" + admin.ID,
			token:    getToken(t, admin),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "no ids",
			method:   http.MethodDelete,
			path:     "/v1/users",
			token:    getToken(t, admin),
			wantCode: http.StatusNoContent,
		},
		{
			name:     "admin deletes students",
			method:   http.MethodDelete,
			path:     "/v1/users?id=" + amy.ID + "&id=" + ben.ID,
			token:    getToken(t, admin),
			wantCode: http.StatusNoContent,
		},
		{
			name:     "only admin left",
			path:     "/v1/users",
			token:    getToken(t, admin),
			wantData: marchallList(t, admin),
		},
	})
}
