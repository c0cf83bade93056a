// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spark-admin/spark-admin/internal/config"
)

// Create builds the Data Source Name for the configured engine.
func Create(db config.DB) string {
	switch db.GormEngine {
	case config.EnginePostgres:
		return Postgres(db)
	case config.EngineSQLite:
		return SQLite(db)
	default:
		return MySQL(db)
	}
}

// MySQL builds a go-sql-driver DSN. parseTime is always set, gorm needs it
// for time.Time columns.
func MySQL(db config.DB) string {
	extras := "parseTime=true"
	if db.Extras != "" {
		extras = db.Extras
		if !strings.Contains(extras, "parseTime") {
			extras += "&parseTime=true"
		}
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		db.User,
		db.Password,
		db.Host,
		db.Port,
		db.Name,
		extras,
	)
}

// Postgres builds a postgres URL DSN.
func Postgres(db config.DB) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(db.User, db.Password),
		Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:     "/" + db.Name,
		RawQuery: db.Extras,
	}

	return u.String()
}

// SQLite returns the database file, with extras as query parameters.
func SQLite(db config.DB) string {
	if db.Extras == "" {
		return db.Name
	}

	return db.Name + "?" + db.Extras
}
