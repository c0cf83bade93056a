// Package activity provides the activity log page.
package activity

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/spark-admin/spark-admin/internal/auth"
	activitydb "github.com/spark-admin/spark-admin/internal/db/controller/activity"
	"github.com/spark-admin/spark-admin/internal/permission"
	"github.com/spark-admin/spark-admin/internal/web/handler"
	"github.com/spark-admin/spark-admin/internal/web/handler/dashboard"
	"github.com/spark-admin/spark-admin/internal/web/navigation"
)

const (
	// Path is the activity log page.
	Path = handler.RootPath + "admin/activity"

	// TemplateName is the activity log template.
	TemplateName = "admin/activity/list"
)

// Service is the activity log handler.
type Service struct {
	handler.Service
	sink *activitydb.Sink
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps handler.Deps) error {
	if app == nil || !deps.Valid() || deps.Activity == nil || deps.Auth == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.sink = deps.Activity

	app.Get(Path, auth.RequirePermission(deps.Auth, permission.ViewActivityLogs), s.List)

	return nil
}

// List shows one page of the activity log, optionally filtered by action.
func (s *Service) List(c *fiber.Ctx) error {
	nav := navigation.NewContext("Activity Log", navigation.SectionAdmin, "activity").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Activity Log", Path, true)

	filter := activitydb.Filter{
		Action:   c.Query("action"),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("pageSize", activitydb.DefaultPageSize),
	}

	page, err := s.sink.List(c.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to load activity log")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateName, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load activity log",
		}, handler.BaseLayout)
	}

	actions, err := s.sink.Actions(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to load activity actions")
	}

	return c.Render(TemplateName, fiber.Map{
		"Navigation": nav,
		"Page":       page,
		"Actions":    actions,
		"Action":     filter.Action,
		"TotalPages": page.Pages(),
		"HasPrev":    page.Page > 1,
		"HasNext":    page.Page < page.Pages(),
		"PrevPage":   page.Page - 1,
		"NextPage":   page.Page + 1,
	}, handler.BaseLayout)
}
