package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/attendance"
	"github.com/trezcool/masomo-lms/core/batch"
	"github.com/trezcool/masomo-lms/core/grading"
	"github.com/trezcool/masomo-lms/core/placement"
	"github.com/trezcool/masomo-lms/core/quiz"
	"github.com/trezcool/masomo-lms/core/site"
	"github.com/trezcool/masomo-lms/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator

		// guest endpoints throttling, per client IP
		GuestRateLimit float64
		GuestRateBurst int
		// X-Forwarded-For is only honoured from these IPs or CIDRs
		TrustedProxies []string

		UserSvc       user.Service
		BatchSvc      *batch.Service
		AttendanceSvc *attendance.Service
		GradingSvc    *grading.Service
		PlacementSvc  *placement.Service
		QuizSvc       *quiz.Service
		SiteSvc       *site.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

// NewServer builds the API. signalShutdown is called when a handler fails with a shutdown error.
func NewServer(opts *Options, signalShutdown func()) Server {
	if signalShutdown == nil {
		signalShutdown = func() {}
	}
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup(signalShutdown)
	return s
}

func (s *server) setup(signalShutdown func()) {
	debug := core.Conf.Debug

	s.app.HideBanner = true
	s.app.IPExtractor = ipExtractor(s.opts.TrustedProxies)
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Pre(redirectMiddleware())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, signalShutdown)
	s.app.Debug = debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	auth := authMiddleware(s.opts.UserSvc)
	optAuth := optionalAuthMiddleware(s.opts.UserSvc)
	guestLimit := newIPRateLimiter(s.opts.GuestRateLimit, s.opts.GuestRateBurst).middleware()

	registerUserAPI(v1, auth, s.opts.UserSvc, s.opts.Validate)
	registerBatchAPI(v1, auth, s.opts.BatchSvc, s.opts.Validate)
	registerAttendanceAPI(v1, auth, s.opts.AttendanceSvc)
	registerGradingAPI(v1, auth, s.opts.GradingSvc)
	registerPlacementAPI(v1, auth, guestLimit, s.opts.PlacementSvc, s.opts.Validate)
	registerQuizAPI(v1, auth, optAuth, s.opts.QuizSvc, s.opts.Validate)
	registerPagesAPI(v1, auth, s.opts.SiteSvc)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+core.Conf.AppName+" LMS API!")
}
