package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/masomo-lms/apps/api/echo"
	"github.com/trezcool/masomo-lms/core/placement"
	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/tests"
)

type placementFixture struct {
	env
	test   placement.Test
	q1, q2 placement.Question
}

func setupPlacement(t *testing.T, opts ...func(*Options)) placementFixture {
	f := placementFixture{env: setup(t, opts...)}
	f.q1 = testutil.CreateQuestion(t, f.placeRepo, "2 + 2 = ?", placement.SingleAnswer, []string{"4", "5"}, 0)
	f.q2 = testutil.CreateQuestion(t, f.placeRepo, "Capital of DRC?", placement.SingleAnswer, []string{"Lubumbashi", "Kinshasa"}, 1)
	f.test = testutil.CreateTest(t, f.placeRepo, "PT-001", 30, 50, f.q1, f.q2)
	return f
}

func TestPlacementAPI_GuestFlow(t *testing.T) {
	f := setupPlacement(t)

	f.run(t, []httpTest{
		{
			name:     "list active tests",
			path:     "/v1/placement/tests",
			wantData: marchallList(t, f.test.Summary()),
		},
		{
			name:     "unknown test",
			path:     "/v1/placement/tests/PT-404",
			wantCode: http.StatusNotFound,
		},
		{
			name:     "invalid participant",
			method:   http.MethodPost,
			path:     "/v1/placement/submissions",
			body:     []byte(`{"test_id":"PT-001","full_name":"Amy Mbuyi","date_of_birth":"2001-02-03","phone":"+243800000000"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"this field is required"}`),
		},
	})

	t.Run("test data hides correct options", func(t *testing.T) {
		rec := f.do(httpTest{path: "/v1/placement/tests/PT-001"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "is_correct")

		var data placement.TestData
		decode(t, rec, &data)
		if assert.Len(t, data.Questions, 2) {
			assert.Equal(t, f.q1.Name, data.Questions[0].Name)
			assert.Equal(t, f.q2.Name, data.Questions[1].Name)
		}
	})

	var sub SubmissionResponse
	t.Run("start", func(t *testing.T) {
		rec := f.do(httpTest{
			method: http.MethodPost,
			path:   "/v1/placement/submissions",
			body: []byte(`{"test_id":"PT-001","full_name":"Amy Mbuyi","date_of_birth":"2001-02-03",` +
				`"email":"AMY@lms.test","phone":"+243800000000"}`),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &sub)
		assert.NotEmpty(t, sub.Submission)
	})

	t.Run("result before submitting", func(t *testing.T) {
		rec := f.do(httpTest{path: "/v1/placement/submissions/" + sub.Submission + "/result"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("submit answers", func(t *testing.T) {
		body := fmt.Sprintf(`{"answers":[{"question":%q,"selected_options":[0]},{"question":%q,"selected_options":[0]}]}`, f.q1.Name, f.q2.Name)
		rec := f.do(httpTest{
			method: http.MethodPost,
			path:   "/v1/placement/submissions/" + sub.Submission + "/answers",
			body:   []byte(body),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res placement.Result
		decode(t, rec, &res)
		assert.Equal(t, 2, res.TotalQuestions)
		assert.Equal(t, 1, res.CorrectAnswers)
		assert.Equal(t, 50.0, res.Score)
		assert.True(t, res.Passed)
		if assert.Len(t, res.IncorrectAnswers, 1) {
			assert.Equal(t, f.q2.Name, res.IncorrectAnswers[0].Question.Name)
			assert.Equal(t, []int{0}, res.IncorrectAnswers[0].UserAnswer)
		}
	})

	t.Run("submit twice", func(t *testing.T) {
		rec := f.do(httpTest{
			method: http.MethodPost,
			path:   "/v1/placement/submissions/" + sub.Submission + "/answers",
			body:   []byte(`{"answers":[]}`),
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("result", func(t *testing.T) {
		rec := f.do(httpTest{path: "/v1/placement/submissions/" + sub.Submission + "/result"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res placement.Result
		decode(t, rec, &res)
		assert.Equal(t, 50.0, res.Score)
		assert.Equal(t, 50.0, res.PassingScore)
	})
}

func TestPlacementAPI_Manage(t *testing.T) {
	f := setupPlacement(t)
	amy := testutil.CreateUser(t, f.usrRepo, "Amy", "amy", "amy@lms.test", "S3cure!pass", []string{user.RoleStudent}, true)
	manager := testutil.CreateUser(t, f.usrRepo, "Meg", "meg", "meg@lms.test", "S3cure!pass", []string{user.RolePlacementTestManager}, true)

	f.run(t, []httpTest{
		{
			name:     "guest",
			path:     "/v1/placement/manage/tests",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "student",
			path:     "/v1/placement/manage/tests",
			token:    getToken(t, amy),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "manager",
			path:     "/v1/placement/manage/tests",
			token:    getToken(t, manager),
			wantData: marchallList(t, f.test),
		},
		{
			name:     "question with a single option",
			method:   http.MethodPost,
			path:     "/v1/placement/manage/questions",
			token:    getToken(t, manager),
			body:     []byte(`{"question":"Pick one","question_type":"Single Answer","options":[{"option_text":"only","is_correct":true}]}`),
			wantCode: http.StatusBadRequest,
		},
	})

	t.Run("test detail", func(t *testing.T) {
		rec := f.do(httpTest{path: "/v1/placement/manage/tests/PT-001", token: getToken(t, manager)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var detail struct {
			Questions []placement.Question `json:"questions"`
		}
		decode(t, rec, &detail)
		if assert.Len(t, detail.Questions, 2) {
			assert.True(t, detail.Questions[0].Options[0].IsCorrect)
		}
	})
}

func TestPlacementAPI_RateLimit(t *testing.T) {
	f := setupPlacement(t, func(o *Options) {
		o.GuestRateLimit = 1
		o.GuestRateBurst = 2
	})

	f.run(t, []httpTest{
		{name: "first", path: "/v1/placement/tests"},
		{name: "second", path: "/v1/placement/tests"},
		{
			name:     "third",
			path:     "/v1/placement/tests",
			wantCode: http.StatusTooManyRequests,
			wantData: marchallObj(t, httpErr{Error: "too many requests, please slow down"}),
		},
	})
}

func TestPlacementAPI_RateLimitForwardedFor(t *testing.T) {
	guestRequest := func(e env, remoteAddr, forwardedFor string) int {
		req, rec := newAuthRequest(http.MethodGet, "/v1/placement/tests", "")
		req.RemoteAddr = remoteAddr
		req.Header.Set("X-Forwarded-For", forwardedFor)
		req.Header.Set("X-Real-IP", forwardedFor)
		e.app.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("spoofed header is ignored", func(t *testing.T) {
		f := setupPlacement(t, func(o *Options) {
			o.GuestRateLimit = 0.01
			o.GuestRateBurst = 1
		})
		limited := 0
		for i := 0; i < 20; i++ {
			if guestRequest(f.env, "203.0.113.7:5000", fmt.Sprintf("198.51.100.%d", i+1)) == http.StatusTooManyRequests {
				limited++
			}
		}
		if limited != 19 {
			t.Errorf("failed! limited = %d; want 19", limited)
		}
	})

	t.Run("trusted proxy forwards client IPs", func(t *testing.T) {
		f := setupPlacement(t, func(o *Options) {
			o.GuestRateLimit = 0.01
			o.GuestRateBurst = 1
			o.TrustedProxies = []string{"10.0.0.0/8"}
		})
		assert.Equal(t, http.StatusOK, guestRequest(f.env, "10.1.2.3:5000", "198.51.100.1"))
		assert.Equal(t, http.StatusOK, guestRequest(f.env, "10.1.2.3:5000", "198.51.100.2"))
		assert.Equal(t, http.StatusTooManyRequests, guestRequest(f.env, "10.1.2.3:5000", "198.51.100.1"))
	})
}
