package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core/quiz"
	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/tests"
)

func TestQuizAPI(t *testing.T) {
	e := setup(t)
	amy := testutil.CreateUser(t, e.usrRepo, "Amy", "amy", "amy@lms.test", "S3cure!pass", []string{user.RoleStudent}, true)
	mod := testutil.CreateUser(t, e.usrRepo, "Mo", "mo", "mo@lms.test", "S3cure!pass", []string{user.RoleModerator}, true)
	creator := testutil.CreateUser(t, e.usrRepo, "Cy", "cy", "cy@lms.test", "S3cure!pass", []string{user.RoleCourseCreator}, true)

	from := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Minute)
	_, err := e.quizRepo.CreateQuiz(context.Background(), quiz.Quiz{Name: "final-exam", Title: "Final Exam", AvailableFrom: &from})
	require.NoError(t, err)
	upcoming := "This quiz will be available on " + from.Format("Jan 2, 2006 15:04")

	t.Run("guest sees upcoming", func(t *testing.T) {
		rec := e.do(httpTest{path: "/v1/quizzes/final-exam/availability"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var av quiz.Availability
		decode(t, rec, &av)
		assert.Equal(t, quiz.StatusUpcoming, av.Status)
		if assert.NotNil(t, av.Message) {
			assert.Equal(t, upcoming, *av.Message)
		}
		assert.False(t, av.CanView)
		assert.False(t, av.CanStart)
	})

	e.run(t, []httpTest{
		{
			name:     "unknown quiz",
			path:     "/v1/quizzes/nope/availability",
			wantCode: http.StatusNotFound,
		},
		{
			name:     "student cannot start yet",
			method:   http.MethodPost,
			path:     "/v1/quizzes/final-exam/start",
			token:    getToken(t, amy),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: upcoming}),
		},
		{
			name:   "moderator can start",
			method: http.MethodPost,
			path:   "/v1/quizzes/final-exam/start",
			token:  getToken(t, mod),
		},
		{
			name:     "student cannot create",
			method:   http.MethodPost,
			path:     "/v1/quizzes",
			body:     []byte(`{"name":"mid-term","title":"Mid Term"}`),
			token:    getToken(t, amy),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "You are not allowed to manage quizzes."}),
		},
		{
			name:     "invalid window",
			method:   http.MethodPost,
			path:     "/v1/quizzes",
			body:     []byte(`{"name":"mid-term","title":"Mid Term","available_from":"2024-02-01T00:00:00Z","available_until":"2024-01-01T00:00:00Z"}`),
			token:    getToken(t, creator),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"available_until":"must be after available_from"}`),
		},
		{
			name:     "course creator creates",
			method:   http.MethodPost,
			path:     "/v1/quizzes",
			body:     []byte(`{"name":"mid-term","title":"Mid Term"}`),
			token:    getToken(t, creator),
			wantCode: http.StatusCreated,
			wantData: []byte(`{"name":"mid-term","title":"Mid Term","available_from":null,"available_until":null}`),
		},
	})

	t.Run("open quiz", func(t *testing.T) {
		rec := e.do(httpTest{path: "/v1/quizzes/mid-term/availability", token: getToken(t, amy)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var av quiz.Availability
		decode(t, rec, &av)
		assert.Equal(t, quiz.StatusOpen, av.Status)
		assert.Nil(t, av.Message)
		assert.True(t, av.CanStart)
	})
}
