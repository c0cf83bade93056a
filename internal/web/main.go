// Package web wires the fiber application: templates, static files,
// middleware and all page handlers.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/spark-admin/spark-admin/internal/auth"
	accesslog "github.com/spark-admin/spark-admin/internal/logger/adapter/fiber"
	"github.com/spark-admin/spark-admin/internal/web/handler"
	"github.com/spark-admin/spark-admin/internal/web/handler/admin/activity"
	"github.com/spark-admin/spark-admin/internal/web/handler/admin/role"
	"github.com/spark-admin/spark-admin/internal/web/handler/admin/user"
	"github.com/spark-admin/spark-admin/internal/web/handler/dashboard"
	"github.com/spark-admin/spark-admin/internal/web/handler/login"
	"github.com/spark-admin/spark-admin/internal/web/handler/logout"
	authmw "github.com/spark-admin/spark-admin/internal/web/middleware/auth"
	"github.com/spark-admin/spark-admin/internal/web/navigation"
)

const (
	// CheckAlivePath answers load balancer health checks.
	CheckAlivePath = "/checkalive"
	// MetricsPath serves the prometheus metrics.
	MetricsPath = "/metrics"

	// LocalsMenu is the fiber locals key of the menu visible to the user.
	LocalsMenu = "Menu"
	// LocalsAppTitle is the fiber locals key of the application title.
	LocalsAppTitle = "AppTitle"

	readBufferSize = 8192
)

// ErrNilDeps is returned by New when mandatory dependencies are missing.
var ErrNilDeps = errors.New("web: config, db and services are required")

// Service represents the web service.
type Service struct {
	App          *fiber.App
	deps         handler.Deps
	fastShutDown bool
	alive        atomic.Bool
}

// New creates the web service and registers all routes. views replaces
// the html template engine when not nil.
func New(deps handler.Deps, views fiber.Views) (*Service, error) {
	if !deps.Valid() || deps.Auth == nil || deps.Users == nil || deps.Registry == nil || deps.Activity == nil {
		return nil, ErrNilDeps
	}

	cfg := deps.Cfg

	if views == nil {
		views = newTemplateEngine(cfg.DevMode)
	}

	app := fiber.New(fiber.Config{
		ReadBufferSize:        readBufferSize,
		AppName:               cfg.Title,
		CaseSensitive:         true,
		Prefork:               false,
		Immutable:             true,
		PassLocalsToViews:     true,
		DisableStartupMessage: true,
		Views:                 views,
	})

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New(recover.Config{EnableStackTrace: cfg.DevMode}))
	}

	app.Use(accesslog.New(accesslog.Config{
		Config:   cfg.Log,
		SkipURIs: []string{CheckAlivePath, MetricsPath},
	}))

	if cfg.Webserver.CleanPath {
		app.Use(cleanPath)
	}

	// serve embedded static files
	app.Use("/static",
		filesystem.New(
			filesystem.Config{
				Root:       http.FS(embeddedStaticFiles),
				PathPrefix: "static",
				Browse:     cfg.Webserver.BrowseStatic,
			},
		),
	)

	s := &Service{App: app, deps: deps}
	s.alive.Store(true)

	app.Get(CheckAlivePath, s.checkAlive)
	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	app.Use(authmw.Middleware)
	app.Use(auth.AddPermissionsToLocals(deps.Auth))
	app.Use(func(c *fiber.Ctx) error {
		has, _ := c.Locals("hasPermission").(func(string) bool)
		if has == nil {
			has = func(string) bool { return false }
		}

		c.Locals(LocalsMenu, navigation.VisibleMenu(has))
		c.Locals(LocalsAppTitle, cfg.Title)

		return c.Next()
	})

	services := []handler.Service{
		&login.Handler,
		&logout.Handler,
		&dashboard.Handler,
		&role.Handler,
		&user.Handler,
		&activity.Handler,
	}

	for _, h := range services {
		if err := h.Init(app, deps); err != nil {
			return nil, fmt.Errorf("init handler %T: %w", h, err)
		}
	}

	// redirect root to dashboard
	app.Get(handler.RootPath, func(c *fiber.Ctx) error {
		return c.Redirect(dashboard.Path)
	})

	return s, nil
}

func newTemplateEngine(devMode bool) *html.Engine {
	templateEngine := html.NewFileSystem(templateFS(), ".gohtml")

	// in dev mode, use local filesystem for templates
	if devMode {
		templateEngine = html.New("./internal/web/templates", ".gohtml")
		templateEngine.ShouldReload = true

		log.Warn().Msg("dev mode enabled: using local filesystem for templates")
	}

	templateEngine.AddFunc("add", func(a, b int) int {
		return a + b
	})
	templateEngine.AddFunc("sub", func(a, b int) int {
		return a - b
	})
	templateEngine.AddFunc("contains", func(list []string, s string) bool {
		for _, v := range list {
			if v == s {
				return true
			}
		}

		return false
	})
	templateEngine.AddFunc("datetime", func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	})

	return templateEngine
}

// cleanPath redirects requests with duplicate slashes or dot segments to
// their clean path.
func cleanPath(c *fiber.Ctx) error {
	p := c.Path()

	cleaned := path.Clean(p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}

	if cleaned == p {
		return c.Next()
	}

	if q := string(c.Request().URI().QueryString()); q != "" {
		cleaned += "?" + q
	}

	return c.Redirect(cleaned, fiber.StatusMovedPermanently)
}

// checkAlive returns 503 during graceful shutdown or when the database is
// unreachable.
func (s *Service) checkAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.Status(fiber.StatusServiceUnavailable).SendString("shutting down")
	}

	sqlDB, err := s.deps.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Context())
	}

	if err != nil {
		log.Error().Err(err).Msg("checkalive: database ping failed")

		return c.Status(fiber.StatusServiceUnavailable).SendString("database unavailable")
	}

	return c.SendString("OK")
}

// Start listens on addr until the server is shut down.
func (s *Service) Start(addr string) error {
	log.Info().Str("addr", addr).Msg("http server listening")

	if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("fiber listen: %w", err)
	}

	return nil
}

// WaitShutdown blocks until ctx is done and then stops the server. Unless
// fast shutdown is set, checkalive fails for ShutDownTime seconds first so
// load balancers can take the instance out of rotation.
func (s *Service) WaitShutdown(ctx context.Context) error {
	<-ctx.Done()
	log.Info().Msg("shutdown requested")

	if !s.fastShutDown && s.deps.Cfg.Webserver.ShutDownTime > 0 {
		log.Info().Msgf(
			"graceful shutdown: return 503 for %d seconds to let the LB remove this instance from active targets",
			s.deps.Cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.deps.Cfg.Webserver.ShutDownTime) * time.Second)
	}

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		return fmt.Errorf("fiber shutdown: %w", err)
	}

	log.Info().Msg("http server was stopped ... good bye...")

	return nil
}

// FastShutDown skips the checkalive grace period on shutdown.
func (s *Service) FastShutDown() {
	s.fastShutDown = true
}
