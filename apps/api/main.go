package main

import (
	"context"
	"expvar"
	"log"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on http.DefaultServeMux
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/apps/api/echo"
	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/announcement"
	"github.com/trezcool/masomo-console/core/directory"
	"github.com/trezcool/masomo-console/core/user"
	"github.com/trezcool/masomo-console/services/email"
	"github.com/trezcool/masomo-console/services/logger"
	"github.com/trezcool/masomo-console/storage/database"
	"github.com/trezcool/masomo-console/storage/database/inmem"
	"github.com/trezcool/masomo-console/storage/database/sqlx"
)

const shutdownTimeout = 10 * time.Second

func main() {
	std := log.New(os.Stderr, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, core.Conf)
	defer logger.Close()

	if err := run(logger); err != nil {
		logger.Error("api stopped", err)
		logger.Close()
		os.Exit(1)
	}
}

func run(logger *logsvc.RollbarLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// set up repos
	var (
		usrRepo user.Repository
		memRepo directory.Repository
		annRepo announcement.Repository
	)
	if core.Conf.Database.Enabled() {
		db, err := setUpDB(ctx)
		if err != nil {
			return errors.Wrap(err, "setting up database")
		}
		defer db.Close()
		usrRepo = sqlxdb.NewUserRepository(db)
		memRepo = sqlxdb.NewMemberRepository(db)
		annRepo = sqlxdb.NewAnnouncementRepository(db)
	} else {
		db := inmemdb.Open()
		if core.Conf.Server.SeedMockData {
			if err := inmemdb.Seed(db, core.Conf); err != nil {
				return errors.Wrap(err, "seeding mock data")
			}
		}
		usrRepo = inmemdb.NewUserRepository(db)
		memRepo = inmemdb.NewMemberRepository(db)
		annRepo = inmemdb.NewAnnouncementRepository(db)
	}

	// set up services
	var mailSvc interface {
		core.EmailService
		Wait()
	}
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService(core.Conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(core.Conf, logger)
	}
	defer mailSvc.Wait() // flush pending emails
	usrSvc := user.NewService(usrRepo)
	memSvc := directory.NewService(memRepo)
	annSvc := announcement.NewService(annRepo, memSvc, mailSvc)

	// start debug server
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	if core.Conf.Server.DebugHost != "" {
		expvar.NewString("build").Set(core.Conf.Build)
		expvar.NewString("env").Set(core.Conf.Env)
		go func() {
			if err := http.ListenAndServe(core.Conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				logger.Error("debug server closed", err)
			}
		}()
	}

	// start API server
	app := echoapi.NewServer(&echoapi.Options{
		Address:         core.Conf.Server.Address(),
		Logger:          logger,
		SignalShutdown:  stop,
		UserSvc:         usrSvc,
		MemberSvc:       memSvc,
		AnnouncementSvc: annSvc,
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("api listening on " + core.Conf.Server.Address())
		serverErrors <- app.Start()
	}()

	select {
	case err := <-serverErrors:
		return errors.Wrap(err, "server error")
	case <-ctx.Done():
		logger.Info("shutting down...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.Stop(sctx); err != nil {
			return errors.Wrap(err, "graceful shutdown")
		}
	}
	return nil
}

// setUpDB creates the database when missing, opens it and applies pending migrations.
func setUpDB(ctx context.Context) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(ctx, core.Conf.Database); err != nil {
		return nil, err
	}
	db, err := database.Open(ctx, core.Conf.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db.DB, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
