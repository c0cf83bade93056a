// Package user provides the admin pages for user accounts and their role.
package user

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/spark-admin/spark-admin/internal/auth"
	"github.com/spark-admin/spark-admin/internal/db/models"
	"github.com/spark-admin/spark-admin/internal/permission"
	"github.com/spark-admin/spark-admin/internal/registry"
	"github.com/spark-admin/spark-admin/internal/web/handler"
	"github.com/spark-admin/spark-admin/internal/web/handler/dashboard"
	"github.com/spark-admin/spark-admin/internal/web/navigation"
)

const (
	// Path is the base path for user management.
	Path = handler.RootPath + "admin/user"

	// TemplateList is the template for listing users.
	TemplateList = "admin/user/list"
	// TemplateForm is the template for creating a user.
	TemplateForm = "admin/user/form"

	// DefaultPageSize for pagination.
	DefaultPageSize = 25
	// MaxPageSize clamps the page size upper bound.
	MaxPageSize = 100
)

// CreateForm is the submitted new user form. RoleID 0 selects the default role.
type CreateForm struct {
	Username  string `form:"username"  validate:"required,min=3,max=100"`
	Email     string `form:"email"     validate:"required,email,max=255"`
	FirstName string `form:"firstname" validate:"max=100"`
	LastName  string `form:"lastname"  validate:"max=100"`
	Password  string `form:"password"  validate:"required,min=8"`
	RoleID    uint   `form:"role_id"`
}

// Service provides the user admin pages.
type Service struct {
	handler.Service
	users     *auth.LocalProvider
	registry  *registry.Registry
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps handler.Deps) error {
	if app == nil || !deps.Valid() || deps.Users == nil || deps.Registry == nil || deps.Auth == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.users = deps.Users
	s.registry = deps.Registry
	s.validator = validator.New()

	manage := auth.RequirePermission(deps.Auth, permission.ManageUsers)

	app.Get(Path, manage, s.List)
	app.Get(Path+"/new", manage, s.New)
	app.Post(Path, manage, s.Create)
	app.Post(Path+"/:id/active", manage, s.SetActive)
	app.Post(Path+"/:id/role",
		auth.RequirePermission(deps.Auth, permission.AssignRoles),
		s.AssignRole,
	)

	return nil
}

func listNav() *navigation.Context {
	return navigation.NewContext("Users", navigation.SectionAdmin, "user").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Users", Path, true)
}

// List shows users with simple pagination and an active filter.
func (s *Service) List(c *fiber.Ctx) error {
	nav := listNav()

	page := max(c.QueryInt("page", 1), 1)

	pageSize := c.QueryInt("pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	var active *bool

	if v := c.Query("active"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			active = &b
		}
	}

	users, total, err := s.users.ListUsers(active, pageSize, (page-1)*pageSize)
	if err != nil {
		log.Error().Err(err).Msg("query users failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load users",
		}, handler.BaseLayout)
	}

	roles, err := s.registry.List(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to load roles")
	}

	totalPages := max(int((total+int64(pageSize)-1)/int64(pageSize)), 1)
	current, _ := handler.CurrentUser(c)

	return c.Render(TemplateList, fiber.Map{
		"Navigation":    nav,
		"Users":         users,
		"Roles":         roles,
		"CurrentUserID": current.ID,
		"Active":        c.Query("active"),
		"Page":          page,
		"PageSize":      pageSize,
		"TotalItems":    total,
		"TotalPages":    totalPages,
		"HasPrev":       page > 1,
		"HasNext":       page < totalPages,
		"PrevPage":      page - 1,
		"NextPage":      page + 1,
		"Success":       c.Query("success"),
		"Error":         c.Query("error"),
	}, handler.BaseLayout)
}

// New shows the creation form.
func (s *Service) New(c *fiber.Ctx) error {
	return s.renderForm(c, fiber.StatusOK, CreateForm{}, "")
}

// Create creates a new local user. Without a chosen role the user gets the
// default role.
func (s *Service) Create(c *fiber.Ctx) error {
	var in CreateForm

	if err := c.BodyParser(&in); err != nil {
		return s.renderForm(c, fiber.StatusBadRequest, in, "Invalid form data")
	}

	if err := s.validator.Struct(in); err != nil {
		return s.renderForm(c, fiber.StatusBadRequest, in, "Please correct the highlighted errors")
	}

	newUser := auth.NewUser{
		Username:  in.Username,
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}

	if in.RoleID > 0 {
		newUser.RoleID = &in.RoleID
	}

	user, err := s.users.CreateUser(c.Context(), newUser, handler.Actor(c))

	switch {
	case err == nil:
		return handler.Redirect(c, Path, fmt.Sprintf("User %q created", user.Username), "")
	case errors.Is(err, auth.ErrUserNameOrEmailExists):
		return s.renderForm(c, fiber.StatusConflict, in, err.Error())
	case errors.Is(err, auth.ErrRoleNotFound), errors.Is(err, auth.ErrRoleInactive):
		return s.renderForm(c, fiber.StatusUnprocessableEntity, in, err.Error())
	default:
		log.Error().Err(err).Msg("create user failed")
		return s.renderForm(c, fiber.StatusInternalServerError, in, "Failed to create user")
	}
}

// AssignRole sets the role of a user. role_id 0 removes the role.
func (s *Service) AssignRole(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return handler.Redirect(c, Path, "", "Invalid id")
	}

	roleID, err := strconv.ParseUint(c.FormValue("role_id", "0"), 10, 0)
	if err != nil {
		return handler.Redirect(c, Path, "", "Invalid role")
	}

	if roleID == 0 {
		err = s.users.UnassignRole(c.Context(), id, handler.Actor(c))
	} else {
		err = s.users.AssignRole(c.Context(), id, uint(roleID), handler.Actor(c))
	}

	switch {
	case err == nil:
		return handler.Redirect(c, Path, "Role assignment saved", "")
	case errors.Is(err, auth.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      err.Error(),
		}, handler.BaseLayout)
	case errors.Is(err, auth.ErrRoleNotFound), errors.Is(err, auth.ErrRoleInactive):
		return handler.Redirect(c, Path, "", err.Error())
	default:
		log.Error().Err(err).Uint64("user_id", id).Msg("role assignment failed")
		return handler.Redirect(c, Path, "", "Failed to save role assignment")
	}
}

// SetActive activates or deactivates an account. Users can not deactivate
// themselves.
func (s *Service) SetActive(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return handler.Redirect(c, Path, "", "Invalid id")
	}

	active := c.FormValue("active") == "true"

	if current, ok := handler.CurrentUser(c); ok && current.ID == id && !active {
		return handler.Redirect(c, Path, "", "You cannot deactivate your own account")
	}

	if active {
		err = s.users.ActivateUser(id)
	} else {
		err = s.users.DeactivateUser(id)
	}

	if err != nil {
		log.Error().Err(err).Uint64("user_id", id).Msg("update user status failed")
		return handler.Redirect(c, Path, "", "Failed to update user")
	}

	return handler.Redirect(c, Path, "User updated", "")
}

func (s *Service) renderForm(c *fiber.Ctx, status int, in CreateForm, errMsg string) error {
	nav := navigation.NewContext("New User", navigation.SectionAdmin, "user").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Users", Path, false).
		AddBreadcrumb("New", Path+"/new", true)

	roles, err := s.registry.List(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to load roles")
	}

	active := make([]models.Role, 0, len(roles))

	for _, r := range roles {
		if r.IsActive {
			active = append(active, r)
		}
	}

	return c.Status(status).Render(TemplateForm, fiber.Map{
		"Navigation": nav,
		"Form":       in,
		"Roles":      active,
		"Error":      errMsg,
	}, handler.BaseLayout)
}
