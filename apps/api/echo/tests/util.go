package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/masomo-lms/apps/api/echo"
	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/attendance"
	"github.com/trezcool/masomo-lms/core/batch"
	"github.com/trezcool/masomo-lms/core/grading"
	"github.com/trezcool/masomo-lms/core/placement"
	"github.com/trezcool/masomo-lms/core/quiz"
	"github.com/trezcool/masomo-lms/core/site"
	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/services/email"
	"github.com/trezcool/masomo-lms/services/logger"
	"github.com/trezcool/masomo-lms/storage/cache"
	"github.com/trezcool/masomo-lms/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

// env is a server backed by fresh in-memory repositories.
type env struct {
	app        Server
	usrRepo    user.Repository
	batchRepo  batch.Repository
	placeRepo  placement.Repository
	quizRepo   quiz.Repository
	siteRepo   site.Repository
	gradingSvc *grading.Service
}

func setup(t *testing.T, opts ...func(*Options)) env {
	db := inmemdb.Open()
	e := env{
		usrRepo:   inmemdb.NewUserRepository(db),
		batchRepo: inmemdb.NewBatchRepository(db),
		placeRepo: inmemdb.NewPlacementRepository(db),
		quizRepo:  inmemdb.NewQuizRepository(db),
		siteRepo:  inmemdb.NewSiteRepository(db),
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	emailsvc.Outbox.Reset()
	mailSvc := emailsvc.NewConsoleServiceMock()
	nop := logsvc.NewNop()

	usrSvc := user.NewServiceMock(e.usrRepo, mailSvc)
	batchSvc, err := batch.NewService(e.batchRepo, usrSvc)
	require.NoError(t, err)
	attendanceSvc, err := attendance.NewService(inmemdb.NewAttendanceRepository(db), batchSvc)
	require.NoError(t, err)
	e.gradingSvc, err = grading.NewService(inmemdb.NewGradingRepository(db), batchSvc)
	require.NoError(t, err)
	placementSvc, err := placement.NewService(e.placeRepo, &cache.Nop{}, mailSvc, nop, mail.Address{Address: "office@lms.test"})
	require.NoError(t, err)
	quizSvc, err := quiz.NewService(e.quizRepo)
	require.NoError(t, err)
	siteSvc, err := site.NewService(e.siteRepo)
	require.NoError(t, err)

	o := &Options{
		DisableReqLogs: true,
		Logger:         nop,
		Validate:       validate,
		Translator:     translator,
		UserSvc:        usrSvc,
		BatchSvc:       batchSvc,
		AttendanceSvc:  attendanceSvc,
		GradingSvc:     e.gradingSvc,
		PlacementSvc:   placementSvc,
		QuizSvc:        quizSvc,
		SiteSvc:        siteSvc,
	}
	for _, opt := range opts {
		opt(o)
	}
	e.app = NewServer(o, nil)
	return e
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func (e env) do(tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	e.app.ServeHTTP(rec, req)
	return rec
}

// run executes the table, checking codes (200 when not set) and data (when set).
func (e env) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantCode == 0 {
				tt.wantCode = http.StatusOK
			}
			rec := e.do(tt)
			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	if _, ok := j2.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
