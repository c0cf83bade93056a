// Package role provides the admin pages of the role registry.
package role

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/spark-admin/spark-admin/internal/auth"
	"github.com/spark-admin/spark-admin/internal/db/models"
	"github.com/spark-admin/spark-admin/internal/permission"
	"github.com/spark-admin/spark-admin/internal/registry"
	"github.com/spark-admin/spark-admin/internal/web/handler"
	"github.com/spark-admin/spark-admin/internal/web/handler/dashboard"
	"github.com/spark-admin/spark-admin/internal/web/navigation"
)

const (
	// Path is the base path for role management.
	Path = handler.RootPath + "admin/role"
	// MatrixPath is the path of the permission matrix.
	MatrixPath = Path + "/matrix"

	// TemplateList is the template for listing roles.
	TemplateList = "admin/role/list"
	// TemplateForm is the template for creating/updating a role.
	TemplateForm = "admin/role/form"
	// TemplateMatrix is the template of the permission matrix.
	TemplateMatrix = "admin/role/matrix"

	// NavEntityRole is the navigation entity key used for roles in the admin area.
	NavEntityRole = "role"
	// NavEntityMatrix is the navigation entity key of the permission matrix.
	NavEntityMatrix = "matrix"

	// TitleRoles is the page title for the roles list.
	TitleRoles = "Roles"
	// TitleNewRole is the page title for creating a new role.
	TitleNewRole = "New Role"
	// TitleEditRole is the page title for editing an existing role.
	TitleEditRole = "Edit Role"
	// TitleMatrix is the page title of the permission matrix.
	TitleMatrix = "Permission Matrix"

	// ErrMsgInvalidID is shown when the id parameter is not a positive number.
	ErrMsgInvalidID = "Invalid id"
	// ErrMsgInvalidForm is shown when the submitted form can not be parsed.
	ErrMsgInvalidForm = "Invalid form data"
	// ErrMsgLoadRoles is shown when the roles can not be loaded.
	ErrMsgLoadRoles = "Failed to load roles"
)

// Service provides the role admin pages.
type Service struct {
	handler.Service
	db       *gorm.DB
	registry *registry.Registry
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps handler.Deps) error {
	if app == nil || !deps.Valid() || deps.Registry == nil || deps.Auth == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = deps.DB
	s.registry = deps.Registry

	guard := auth.RequirePermission(deps.Auth, permission.ManageRoles)

	app.Get(Path, guard, s.List)
	app.Get(Path+"/new", guard, s.New)
	app.Post(Path, guard, s.Create)
	app.Get(MatrixPath, guard, s.Matrix)
	app.Get(Path+"/:id/edit", guard, s.Edit)
	app.Post(Path+"/:id", guard, s.Update)
	app.Post(Path+"/:id/delete", guard, s.Delete)
	app.Post(Path+"/:id/toggle", guard, s.Toggle)
	app.Post(Path+"/:id/default", guard, s.MakeDefault)

	return nil
}

func listNav() *navigation.Context {
	return navigation.NewContext(TitleRoles, navigation.SectionAdmin, NavEntityRole).
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb(TitleRoles, Path, true)
}

func formNav(title, url string) *navigation.Context {
	return navigation.NewContext(title, navigation.SectionAdmin, NavEntityRole).
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb(TitleRoles, Path, false).
		AddBreadcrumb(title, url, true)
}

// List shows all roles with the number of users holding each role.
func (s *Service) List(c *fiber.Ctx) error {
	return s.renderList(c, fiber.StatusOK, c.Query("error"))
}

func (s *Service) renderList(c *fiber.Ctx, status int, errMsg string) error {
	nav := listNav()

	roles, err := s.registry.List(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("list roles failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      ErrMsgLoadRoles,
		}, handler.BaseLayout)
	}

	counts, err := s.userCounts()
	if err != nil {
		log.Error().Err(err).Msg("count role users failed")
	}

	return c.Status(status).Render(TemplateList, fiber.Map{
		"Navigation": nav,
		"Roles":      roles,
		"UserCounts": counts,
		"Success":    c.Query("success"),
		"Error":      errMsg,
	}, handler.BaseLayout)
}

// userCounts returns the number of users per role id.
func (s *Service) userCounts() (map[uint]int64, error) {
	var rows []struct {
		RoleID uint
		Count  int64
	}

	err := s.db.Model(&models.User{}).
		Select("role_id, count(*) AS count").
		Where("role_id IS NOT NULL").
		Group("role_id").
		Scan(&rows).Error
	if err != nil {
		return map[uint]int64{}, err
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.RoleID] = row.Count
	}

	return counts, nil
}

// New shows the creation form.
func (s *Service) New(c *fiber.Ctx) error {
	return s.renderForm(c, fiber.StatusOK, nil, Form{IsActive: true, HierarchyLevel: registry.DefaultHierarchyLevel}, "")
}

// Create creates a new role.
func (s *Service) Create(c *fiber.Ctx) error {
	var form Form

	if err := c.BodyParser(&form); err != nil {
		return s.renderForm(c, fiber.StatusBadRequest, nil, form, ErrMsgInvalidForm)
	}

	role, err := s.registry.Create(c.Context(), form.Input(), handler.Actor(c))
	if err != nil && !registry.IsAuditWarning(err) {
		return s.renderForm(c, handler.Status(err), nil, form, handler.Message(err))
	}

	return handler.Redirect(c, Path, fmt.Sprintf("Role %q created", role.Name), "")
}

// Edit shows the edit form of a role.
func (s *Service) Edit(c *fiber.Ctx) error {
	id, err := handler.ParamID(c)
	if err != nil {
		return s.renderList(c, fiber.StatusBadRequest, ErrMsgInvalidID)
	}

	role, err := s.registry.Get(c.Context(), id)
	if err != nil {
		return s.renderList(c, handler.Status(err), handler.Message(err))
	}

	return s.renderForm(c, fiber.StatusOK, role, formFromRole(role), "")
}

// Update saves the edit form of a role.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.ParamID(c)
	if err != nil {
		return s.renderList(c, fiber.StatusBadRequest, ErrMsgInvalidID)
	}

	var form Form

	current, err := s.registry.Get(c.Context(), id)
	if err != nil {
		return s.renderList(c, handler.Status(err), handler.Message(err))
	}

	if err = c.BodyParser(&form); err != nil {
		return s.renderForm(c, fiber.StatusBadRequest, current, form, ErrMsgInvalidForm)
	}

	role, err := s.registry.Update(c.Context(), id, form.Input(), handler.Actor(c))
	if err != nil && !registry.IsAuditWarning(err) {
		if errors.Is(err, registry.ErrNotFound) {
			return s.renderList(c, fiber.StatusNotFound, handler.Message(err))
		}

		return s.renderForm(c, handler.Status(err), current, form, handler.Message(err))
	}

	return handler.Redirect(c, Path, fmt.Sprintf("Role %q saved", role.Name), "")
}

// Delete removes a role. Roles still assigned to users are kept and the
// list shows why.
func (s *Service) Delete(c *fiber.Ctx) error {
	return s.act(c, "deleted", func(id uint) error {
		return s.registry.Delete(c.Context(), id, handler.Actor(c))
	})
}

// Toggle activates an inactive role and deactivates an active one.
func (s *Service) Toggle(c *fiber.Ctx) error {
	return s.act(c, "updated", func(id uint) error {
		role, err := s.registry.Get(c.Context(), id)
		if err != nil {
			return err
		}

		return s.registry.SetActive(c.Context(), id, !role.IsActive, handler.Actor(c))
	})
}

// MakeDefault makes a role the default role of new users.
func (s *Service) MakeDefault(c *fiber.Ctx) error {
	return s.act(c, "set as default", func(id uint) error {
		return s.registry.SetDefault(c.Context(), id, handler.Actor(c))
	})
}

// act runs a role action from the list page. Conflicts and validation
// errors redirect back to the list with the message.
func (s *Service) act(c *fiber.Ctx, done string, fn func(id uint) error) error {
	id, err := handler.ParamID(c)
	if err != nil {
		return s.renderList(c, fiber.StatusBadRequest, ErrMsgInvalidID)
	}

	err = fn(id)

	switch status := handler.Status(err); status {
	case fiber.StatusOK:
		if err != nil {
			log.Warn().Err(err).Uint("role_id", id).Msg("role action without audit record")
		}

		return handler.Redirect(c, Path, fmt.Sprintf("Role %d %s", id, done), "")
	case fiber.StatusConflict, fiber.StatusUnprocessableEntity:
		return handler.Redirect(c, Path, "", handler.Message(err))
	default:
		return s.renderList(c, status, handler.Message(err))
	}
}

// Matrix shows the permission matrix of all roles.
func (s *Service) Matrix(c *fiber.Ctx) error {
	nav := navigation.NewContext(TitleMatrix, navigation.SectionAdmin, NavEntityMatrix).
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb(TitleRoles, Path, false).
		AddBreadcrumb(TitleMatrix, MatrixPath, true)

	matrix, err := s.registry.PermissionMatrix(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("permission matrix failed")

		return c.Status(handler.Status(err)).Render(TemplateMatrix, fiber.Map{
			"Navigation": nav,
			"Error":      handler.Message(err),
		}, handler.BaseLayout)
	}

	return c.Render(TemplateMatrix, fiber.Map{
		"Navigation": nav,
		"Matrix":     matrix,
	}, handler.BaseLayout)
}

func (s *Service) renderForm(c *fiber.Ctx, status int, role *models.Role, form Form, errMsg string) error {
	var (
		nav    = formNav(TitleNewRole, Path+"/new")
		action = Path
	)

	if role != nil {
		nav = formNav(TitleEditRole, fmt.Sprintf("%s/%d/edit", Path, role.ID))
		action = fmt.Sprintf("%s/%d", Path, role.ID)
	}

	return c.Status(status).Render(TemplateForm, fiber.Map{
		"Navigation": nav,
		"Role":       role,
		"IsCreate":   role == nil,
		"Form":       form,
		"Selected":   form.Selected(),
		"Categories": s.registry.Catalog().Categories(),
		"Action":     action,
		"Error":      errMsg,
	}, handler.BaseLayout)
}
