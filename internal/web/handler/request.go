package handler

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spark-admin/spark-admin/internal/db/models"
	"github.com/spark-admin/spark-admin/internal/registry"
)

// ErrInvalidID is returned by ParamID for a missing or non numeric id.
var ErrInvalidID = errors.New("invalid id")

// CurrentUser returns the logged in user stored by the auth middleware.
func CurrentUser(c *fiber.Ctx) (models.User, bool) {
	user, ok := c.Locals(LocalsCurrentUser).(models.User)

	return user, ok && user.ID > 0
}

// Actor returns the registry actor of the request.
func Actor(c *fiber.Ctx) registry.Actor {
	user, ok := CurrentUser(c)
	if !ok {
		return registry.Actor{}
	}

	return registry.Actor{ID: user.ID, Username: user.Username}
}

// ParamID parses the :id route parameter.
func ParamID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 0)
	if err != nil || id == 0 {
		return 0, ErrInvalidID
	}

	return uint(id), nil
}

// Redirect redirects to path with a success or error notice in the query.
func Redirect(c *fiber.Ctx, path, success, failure string) error {
	q := url.Values{}

	if success != "" {
		q.Set("success", success)
	}

	if failure != "" {
		q.Set("error", failure)
	}

	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	return c.Redirect(path, fiber.StatusSeeOther)
}

// Status maps a registry error to the HTTP status of the response.
func Status(err error) int {
	switch {
	case err == nil, registry.IsAuditWarning(err):
		return fiber.StatusOK
	case errors.Is(err, registry.ErrValidation):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, registry.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, registry.ErrConflict):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// Message is the notice shown to the user for a registry error. Storage
// failures get a generic text, their details are logged.
func Message(err error) string {
	if Status(err) == fiber.StatusInternalServerError {
		return "Something went wrong, please try again later"
	}

	return err.Error()
}
