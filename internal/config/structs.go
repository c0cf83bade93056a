package config

import (
	"time"

	"github.com/spark-admin/spark-admin/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Audit     Audit
	Admin     Admin
}

// Webserver implement webserver settings.
type Webserver struct {
	BrowseStatic   bool    // enable static file browsing (for development purposes only)
	CleanPath      bool    // use clean path middleware to allow multi slash requests
	DisableRecover bool    // disable recover middleware
	Port           int     // listening port for the webserver
	ShutDownTime   int     // wait time for shutdown in seconds
	URL            string  // base url for the webserver
	Session        Session // session settings
}

// Audit configures the activity log.
type Audit struct {
	RetentionDays int    // prune entries older than this, 0 keeps everything
	PruneSchedule string // cron schedule of the prune job
}

// Admin is the bootstrap administrator created on first start.
type Admin struct {
	Username string
	Password string
	Email    string
}
