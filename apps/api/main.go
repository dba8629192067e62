package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/masomo-lms/apps/api/echo"
	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/attendance"
	"github.com/trezcool/masomo-lms/core/batch"
	"github.com/trezcool/masomo-lms/core/grading"
	"github.com/trezcool/masomo-lms/core/placement"
	"github.com/trezcool/masomo-lms/core/quiz"
	"github.com/trezcool/masomo-lms/core/site"
	"github.com/trezcool/masomo-lms/core/user"
	emailsvc "github.com/trezcool/masomo-lms/services/email"
	logsvc "github.com/trezcool/masomo-lms/services/logger"
	"github.com/trezcool/masomo-lms/storage/cache"
	"github.com/trezcool/masomo-lms/storage/database"
	inmemdb "github.com/trezcool/masomo-lms/storage/database/inmem"
	sqlxrepos "github.com/trezcool/masomo-lms/storage/database/sqlx"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	// set up loggers
	logger, err := logsvc.New(logsvc.API, conf)
	if err != nil {
		return fmt.Errorf("setting up logger: %w", err)
	}
	defer logger.Sync()

	dbLogger, err := logsvc.New(logsvc.DB, conf)
	if err != nil {
		return fmt.Errorf("setting up db logger: %w", err)
	}
	defer dbLogger.Sync()

	jobsLogger, err := logsvc.New(logsvc.JOBS, conf)
	if err != nil {
		return fmt.Errorf("setting up jobs logger: %w", err)
	}
	defer jobsLogger.Sync()

	// set up storage
	repos, closeDB, err := setUpStorage(conf, dbLogger)
	if err != nil {
		logger.Fatal("setting up storage", err)
	}
	defer closeDB()

	var caches placement.Cache = &cache.Nop{}
	if conf.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(conf.Redis)
		if err != nil {
			logger.Fatal("setting up redis cache", err)
		}
		defer func() { _ = rc.Close() }()
		caches = rc
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrSvc, err := user.NewService(repos.users, mailSvc)
	if err != nil {
		return err
	}
	batchSvc, err := batch.NewService(repos.batches, usrSvc)
	if err != nil {
		return err
	}
	attendanceSvc, err := attendance.NewService(repos.attendance, batchSvc)
	if err != nil {
		return err
	}
	gradingSvc, err := grading.NewService(repos.grading, batchSvc)
	if err != nil {
		return err
	}
	placementSvc, err := placement.NewService(
		repos.placement, caches, mailSvc, jobsLogger, core.Addresses(conf.Placement.ResultRecipients...)...,
	)
	if err != nil {
		return err
	}
	quizSvc, err := quiz.NewService(repos.quizzes)
	if err != nil {
		return err
	}
	siteSvc, err := site.NewService(repos.site)
	if err != nil {
		return err
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Background Jobs

	jobsCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()
	go expireSubmissions(jobsCtx, placementSvc, conf.Placement.ExpiryInterval, jobsLogger)

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(
		&echoapi.Options{
			Address:        conf.Server.Host,
			DisableReqLogs: conf.Server.DisableRequestLogs,
			Logger:         logger,
			Validate:       validate,
			Translator:     translator,
			GuestRateLimit: conf.Server.GuestRateLimit,
			GuestRateBurst: conf.Server.GuestRateBurst,
			TrustedProxies: conf.Server.TrustedProxies,
			UserSvc:        usrSvc,
			BatchSvc:       batchSvc,
			AttendanceSvc:  attendanceSvc,
			GradingSvc:     gradingSvc,
			PlacementSvc:   placementSvc,
			QuizSvc:        quizSvc,
			SiteSvc:        siteSvc,
		},
		func() { shutdown <- syscall.SIGTERM },
	)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API listening on " + conf.Server.Host)
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		stopJobs()

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}
	return nil
}

type repositories struct {
	users      user.Repository
	batches    batch.Repository
	attendance attendance.Repository
	grading    grading.Repository
	placement  placement.Repository
	quizzes    quiz.Repository
	site       site.Repository
}

// setUpStorage opens and migrates the postgres database, or uses the in-memory storage when configured.
func setUpStorage(conf *core.Config, dbLogger core.Logger) (repositories, func(), error) {
	if conf.Database.InMemory {
		dbLogger.Warn("using in-memory storage, data will be lost on shutdown")
		db := inmemdb.Open()
		return repositories{
			users:      inmemdb.NewUserRepository(db),
			batches:    inmemdb.NewBatchRepository(db),
			attendance: inmemdb.NewAttendanceRepository(db),
			grading:    inmemdb.NewGradingRepository(db),
			placement:  inmemdb.NewPlacementRepository(db),
			quizzes:    inmemdb.NewQuizRepository(db),
			site:       inmemdb.NewSiteRepository(db),
		}, func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	db, err := setUpDB(ctx, conf)
	if err != nil {
		return repositories{}, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			dbLogger.Error("failed to close database", err)
		}
	}
	return repositories{
		users:      sqlxrepos.NewUserRepository(db),
		batches:    sqlxrepos.NewBatchRepository(db),
		attendance: sqlxrepos.NewAttendanceRepository(db),
		grading:    sqlxrepos.NewGradingRepository(db),
		placement:  sqlxrepos.NewPlacementRepository(db),
		quizzes:    sqlxrepos.NewQuizRepository(db),
		site:       sqlxrepos.NewSiteRepository(db),
	}, closeDB, nil
}

func setUpDB(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err = database.Migrate(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
