// Package daemon wires the database, services, web server and background
// jobs and runs them until shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/spark-admin/spark-admin/internal/auth"
	"github.com/spark-admin/spark-admin/internal/config"
	"github.com/spark-admin/spark-admin/internal/db/controller/activity"
	roledb "github.com/spark-admin/spark-admin/internal/db/controller/role"
	"github.com/spark-admin/spark-admin/internal/db/dsn"
	"github.com/spark-admin/spark-admin/internal/db/open"
	"github.com/spark-admin/spark-admin/internal/permission"
	"github.com/spark-admin/spark-admin/internal/registry"
	"github.com/spark-admin/spark-admin/internal/web"
	"github.com/spark-admin/spark-admin/internal/web/handler"
	"github.com/spark-admin/spark-admin/internal/web/session"
)

const sessionTable = "sessions"

// ErrNilConfig is returned by New without a config.
var ErrNilConfig = errors.New("config is nil")

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	db         *gorm.DB
	deps       handler.Deps
	webService *web.Service
	cron       *cron.Cron
	storage    fiber.Storage
}

// New opens and migrates the database, seeds it on first start and builds
// the web service.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	db, err := open.Database(cfg.DB, cfg.Log.SQL)
	if err != nil {
		return nil, err
	}

	if err = open.Migrate(db); err != nil {
		return nil, err
	}

	deps := NewDeps(cfg, db)

	if err = Seed(ctx, cfg, deps); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	storage, err := newSessionStorage(cfg.DB, db)
	if err != nil {
		return nil, fmt.Errorf("session storage: %w", err)
	}

	session.Init(storage)

	webService, err := web.New(deps, nil)
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		cfg:        cfg,
		db:         db,
		deps:       deps,
		webService: webService,
		storage:    storage,
	}

	if d.cron, err = newScheduler(cfg.Audit, deps.Activity, storage); err != nil {
		return nil, err
	}

	return d, nil
}

// NewDeps builds the services shared by the web handlers.
func NewDeps(cfg *config.Config, db *gorm.DB) handler.Deps {
	sink := activity.New(db)

	return handler.Deps{
		Cfg:      cfg,
		DB:       db,
		Auth:     auth.NewService(db),
		Users:    auth.NewLocalProvider(db, sink),
		Registry: registry.New(roledb.New(db), sink, permission.Default()),
		Activity: sink,
	}
}

// newSessionStorage returns the fiber session storage of the engine.
// mysql and postgres use the gofiber storage drivers, sqlite keeps its
// sessions in a table of the application database.
func newSessionStorage(cfg config.DB, db *gorm.DB) (fiber.Storage, error) {
	switch cfg.GormEngine {
	case config.EngineMySQL:
		return sessionmysql.New(sessionmysql.Config{
			ConnectionURI: dsn.MySQL(cfg),
			Table:         sessionTable,
		}), nil
	case config.EnginePostgres:
		return sessionpostgres.New(sessionpostgres.Config{
			ConnectionURI: dsn.Postgres(cfg),
			Table:         sessionTable,
		}), nil
	default:
		return session.NewGormStorage(db)
	}
}

// Run serves http and runs the scheduled jobs until ctx is done or the
// server fails.
func (d *Daemon) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	addr := fmt.Sprintf(":%d", d.cfg.Webserver.Port)

	g.Go(func() error {
		return d.webService.Start(addr)
	})

	g.Go(func() error {
		return d.webService.WaitShutdown(gctx)
	})

	d.cron.Start()

	g.Go(func() error {
		<-gctx.Done()

		// wait for running jobs
		<-d.cron.Stop().Done()

		return nil
	})

	err := g.Wait()

	if closeErr := d.storage.Close(); closeErr != nil {
		log.Error().Err(closeErr).Msg("failed to close session storage")
	}

	if sqlDB, dbErr := d.db.DB(); dbErr == nil {
		_ = sqlDB.Close()
	}

	return err
}

// FastShutDown stops the web server without the checkalive grace period.
func (d *Daemon) FastShutDown() {
	d.webService.FastShutDown()
}
