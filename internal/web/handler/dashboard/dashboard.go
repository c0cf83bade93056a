// Package dashboard provides the dashboard handler with registry counters
// and the latest activity.
package dashboard

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/spark-admin/spark-admin/internal/auth"
	"github.com/spark-admin/spark-admin/internal/db/controller/activity"
	"github.com/spark-admin/spark-admin/internal/db/models"
	"github.com/spark-admin/spark-admin/internal/permission"
	"github.com/spark-admin/spark-admin/internal/registry"
	"github.com/spark-admin/spark-admin/internal/web/handler"
	"github.com/spark-admin/spark-admin/internal/web/navigation"
)

const (
	// Path is the path to the dashboard page.
	Path = handler.RootPath + "dashboard"

	// TemplateName is the name of the dashboard template.
	TemplateName = "dashboard/dashboard"

	// RecentActivity is the number of activity entries shown.
	RecentActivity = 10
)

// Data represents the complete dashboard data.
type Data struct {
	Roles       int
	ActiveRoles int
	DefaultRole *models.Role
	Users       int64
	Activities  int64
	Recent      []models.ActivityLog
}

// Service is the dashboard handler service.
type Service struct {
	handler.Service
	registry *registry.Registry
	users    *auth.LocalProvider
	activity *activity.Sink
}

// Handler is the dashboard handler.
var Handler = Service{}

// Init initializes the dashboard handler.
func (s *Service) Init(app *fiber.App, deps handler.Deps) error {
	if app == nil || !deps.Valid() || deps.Registry == nil || deps.Users == nil || deps.Activity == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.registry = deps.Registry
	s.users = deps.Users
	s.activity = deps.Activity

	// register routes with permission checks
	app.Get(Path,
		auth.RequirePermission(deps.Auth, permission.ViewDashboard),
		s.Get,
	)

	return nil
}

// Get handles the dashboard page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	nav := navigation.NewContext("Dashboard", navigation.SectionDashboard, "dashboard").
		AddBreadcrumb("Home", Path, false).
		AddBreadcrumb("Dashboard", Path, true)

	data, err := s.load(c)
	if err != nil {
		log.Error().Err(err).Msg("failed to load dashboard")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateName, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load dashboard",
		}, handler.BaseLayout)
	}

	return c.Render(TemplateName, fiber.Map{
		"Navigation": nav,
		"Data":       data,
	}, handler.BaseLayout)
}

func (s *Service) load(c *fiber.Ctx) (Data, error) {
	var data Data

	roles, err := s.registry.List(c.Context())
	if err != nil {
		return data, err
	}

	data.Roles = len(roles)

	for i := range roles {
		if roles[i].IsActive {
			data.ActiveRoles++
		}

		if roles[i].IsDefault {
			data.DefaultRole = &roles[i]
		}
	}

	if data.Users, err = s.users.CountUsers(c.Context()); err != nil {
		return data, err
	}

	page, err := s.activity.List(c.Context(), activity.Filter{PageSize: RecentActivity})
	if err != nil {
		return data, err
	}

	data.Activities = page.Total
	data.Recent = page.Entries

	return data, nil
}
