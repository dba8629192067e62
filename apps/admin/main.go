package main

import (
	"context"
	"os"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/placement"
	emailsvc "github.com/trezcool/masomo-lms/services/email"
	logsvc "github.com/trezcool/masomo-lms/services/logger"
	"github.com/trezcool/masomo-lms/storage/cache"
	"github.com/trezcool/masomo-lms/storage/database"
	inmemdb "github.com/trezcool/masomo-lms/storage/database/inmem"
	sqlxrepos "github.com/trezcool/masomo-lms/storage/database/sqlx"
)

func main() {
	conf := core.Conf

	logger, err := logsvc.New(logsvc.ADMIN, conf)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cli := commandLine{out: os.Stdout}
	var placementRepo placement.Repository

	// set up storage
	if conf.Database.InMemory {
		db := inmemdb.Open()
		cli.usrRepo = inmemdb.NewUserRepository(db)
		placementRepo = inmemdb.NewPlacementRepository(db)
	} else {
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal("opening database", err)
		}
		defer func() { _ = db.Close() }()
		if err := database.Ping(context.Background(), db); err != nil {
			logger.Fatal("pinging database", err)
		}
		cli.db = db.DB
		cli.usrRepo = sqlxrepos.NewUserRepository(db)
		placementRepo = sqlxrepos.NewPlacementRepository(db)
	}

	// imports must invalidate the tests cached by the API
	var caches placement.Cache = &cache.Nop{}
	if conf.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(conf.Redis)
		if err != nil {
			logger.Fatal("setting up redis cache", err)
		}
		defer func() { _ = rc.Close() }()
		caches = rc
	}

	cli.placementSvc, err = placement.NewService(placementRepo, caches, emailsvc.NewConsoleService(logger), logger)
	if err != nil {
		logger.Fatal("setting up placement service", err)
	}

	if err := cli.run(context.Background(), os.Args[1:]); err != nil {
		logger.Error("admin command failed", err)
		logger.Sync()
		os.Exit(1)
	}
}
