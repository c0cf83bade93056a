// Package open connects gorm to the configured database engine.
package open

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/spark-admin/spark-admin/internal/config"
	"github.com/spark-admin/spark-admin/internal/db/dsn"
	"github.com/spark-admin/spark-admin/internal/db/models"
	"github.com/spark-admin/spark-admin/internal/logger"
	gormlog "github.com/spark-admin/spark-admin/internal/logger/adapter/gorm"
)

// ErrUnknownEngine is returned for a GormEngine other than mysql, postgres or sqlite.
var ErrUnknownEngine = errors.New("unknown gorm engine")

// Dialector returns the gorm driver for the configured engine.
func Dialector(cfg config.DB) (gorm.Dialector, error) {
	switch cfg.GormEngine {
	case config.EngineMySQL:
		return gormmysql.Open(dsn.MySQL(cfg)), nil
	case config.EnginePostgres:
		return gormpostgres.Open(dsn.Postgres(cfg)), nil
	case config.EngineSQLite:
		return sqlite.Open(dsn.SQLite(cfg)), nil
	default:
		return nil, errors.Wrapf(ErrUnknownEngine, "%q", cfg.GormEngine)
	}
}

// Database opens the database, applies the pool settings and logs queries
// through zerolog.
func Database(cfg config.DB, sqlLog logger.SQL) (*gorm.DB, error) {
	if cfg.GormEngine == config.EngineSQLite {
		if err := sqliteDir(cfg.Name); err != nil {
			return nil, err
		}
	}

	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlog.New(sqlLog),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect %s database", cfg.GormEngine)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sql.DB")
	}

	switch {
	case cfg.GormEngine == config.EngineSQLite:
		// sqlite has a single writer and :memory: is per connection
		sqlDB.SetMaxOpenConns(1)

		if err = db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, errors.Wrap(err, "failed to enable sqlite foreign keys")
		}
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	log.Info().Str("engine", cfg.GormEngine).Str("database", cfg.Name).Msg("database connected")

	return db, nil
}

// Migrate creates or updates the tables of all models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.ActivityLog{},
	); err != nil {
		return errors.Wrap(err, "failed to migrate database")
	}

	return nil
}

func sqliteDir(name string) error {
	if name == "" || strings.HasPrefix(name, ":memory:") || strings.HasPrefix(name, "file:") {
		return nil
	}

	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0o750); err != nil { //nolint:mnd
		return errors.Wrapf(err, "can't create database directory %s", dir)
	}

	return nil
}
