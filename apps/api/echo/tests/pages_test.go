package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-lms/core/site"
	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/tests"
)

func TestPagesAPI(t *testing.T) {
	e := setup(t)
	admin := testutil.CreateUser(t, e.usrRepo, "Root", "root", "root@lms.test", "S3cure!pass", []string{user.RoleAdministrator}, true)
	amy := testutil.CreateUser(t, e.usrRepo, "Amy", "amy", "amy@lms.test", "S3cure!pass", []string{user.RoleStudent}, true)

	e.run(t, []httpTest{
		{
			name:     "default about",
			path:     "/v1/pages/about",
			wantData: []byte(`{"page_title":"About Us","company_introduction":null,"is_disabled":false}`),
		},
	})

	t.Run("default contact", func(t *testing.T) {
		rec := e.do(httpTest{path: "/v1/pages/contact"})
		assert.Equal(t, http.StatusOK, rec.Code)
		var c site.Contact
		decode(t, rec, &c)
		assert.Equal(t, "Contact Us", c.Heading)
	})

	t.Run("placement landing", func(t *testing.T) {
		rec := e.do(httpTest{path: "/v1/pages/placement-test"})
		assert.Equal(t, http.StatusOK, rec.Code)
		var landing site.PlacementLanding
		decode(t, rec, &landing)
		assert.Equal(t, "Placement Test", landing.Title)
		assert.Len(t, landing.Levels, 3)
	})

	e.run(t, []httpTest{
		{
			name:     "student cannot edit",
			method:   http.MethodPut,
			path:     "/v1/pages/about",
			body:     []byte(`{"page_title":"Hacked"}`),
			token:    getToken(t, amy),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "admin edits contact",
			method:   http.MethodPut,
			path:     "/v1/pages/contact",
			body:     []byte(`{"heading":"  Reach us ","city":"Kinshasa"}`),
			token:    getToken(t, admin),
			wantData: marchallObj(t, site.Contact{Heading: "Reach us", City: "Kinshasa"}),
		},
		{
			name:     "admin disables about",
			method:   http.MethodPut,
			path:     "/v1/pages/about",
			body:     []byte(`{"is_disabled":true}`),
			token:    getToken(t, admin),
			wantData: []byte(`{"page_title":"About Us","company_introduction":null,"is_disabled":true}`),
		},
	})

	t.Run("disabled about", func(t *testing.T) {
		rec := e.do(httpTest{path: "/v1/pages/about"})
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "page not found"})}, rec)
		assert.Equal(t, site.DisabledPageLocation, rec.Header().Get("Location"))

		a, err := e.siteRepo.GetAbout(context.Background())
		assert.NoError(t, err)
		assert.True(t, a.IsDisabled)
	})
}

func TestRedirects(t *testing.T) {
	e := setup(t)

	tests := []struct {
		path     string
		wantCode int
		wantLoc  string
	}{
		{"/courses", http.StatusFound, "/lms/courses"},
		{"/courses/english-101", http.StatusFound, "/lms/courses"},
		{"/batches/english-a1?tab=students", http.StatusFound, "/lms/batches"},
		{"/update-profile/", http.StatusFound, "/edit-profile"},
		{"/statistics", http.StatusFound, "/lms/statistics"},
		{"/unknown", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := e.do(httpTest{path: tt.path})
			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if loc := rec.Header().Get("Location"); loc != tt.wantLoc {
				t.Errorf("failed! location = %q; want %q", loc, tt.wantLoc)
			}
		})
	}
}
