package login

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/spark-admin/spark-admin/internal/auth"
	"github.com/spark-admin/spark-admin/internal/config"
	"github.com/spark-admin/spark-admin/internal/db/models"
	"github.com/spark-admin/spark-admin/internal/web/handler"
	"github.com/spark-admin/spark-admin/internal/web/session"
)

const (
	// Path is the path to the login page.
	Path = "/login"

	// TemplateName is the name of the login template.
	TemplateName = "login"

	// RedirectPath is where a successful login lands.
	RedirectPath = "/dashboard"
)

// Form is the submitted login form.
type Form struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// Service is the login handler service.
type Service struct {
	handler.Service
	cfg   *config.Config
	users *auth.LocalProvider
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, deps handler.Deps) error {
	if app == nil || !deps.Valid() || deps.Users == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = deps.Cfg
	s.users = deps.Users

	// register routes
	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Post(handler.RouterRootPath, s.Post)
	})

	return nil
}

// Get handles the login page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "", nil)
}

// Post handles the login form submission.
func (s *Service) Post(c *fiber.Ctx) error {
	var form Form

	if err := c.BodyParser(&form); err != nil {
		return s.render(c, fiber.StatusBadRequest, "", ErrInvalidFormData)
	}

	form.Username = strings.TrimSpace(form.Username)
	if form.Username == "" || form.Password == "" {
		return s.render(c, fiber.StatusBadRequest, form.Username, ErrInvalidFormData)
	}

	user, err := s.authenticate(form.Username, form.Password)
	if err != nil {
		status := fiber.StatusUnauthorized
		if errors.Is(err, ErrInternalServerError) {
			status = fiber.StatusInternalServerError
		}

		return s.render(c, status, form.Username, err)
	}

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate session ID")
		return s.render(c, fiber.StatusInternalServerError, form.Username, ErrInternalServerError)
	}

	userSession := &session.Data{
		User: *user,
	}

	if err = userSession.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")
		return s.render(c, fiber.StatusInternalServerError, form.Username, ErrInternalServerError)
	}

	// set login cookie
	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   !s.cfg.DevMode,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	log.Info().Uint64("user_id", user.ID).Str("username", user.Username).Msg("user logged in")

	return c.Redirect(RedirectPath)
}

// authenticate maps provider errors to the errors shown on the login page.
// Unknown users and wrong passwords are not told apart.
func (s *Service) authenticate(username, password string) (*models.User, error) {
	user, err := s.users.Authenticate(username, password)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrInvalidPassword):
		log.Warn().Str("username", username).Msg("failed login")
		return nil, ErrInvalidCredentials
	case errors.Is(err, auth.ErrUserAccountDisabled):
		log.Warn().Str("username", username).Msg("login of disabled account")
		return nil, ErrAccountDisabled
	default:
		log.Error().Err(err).Str("username", username).Msg("login failed")
		return nil, ErrInternalServerError
	}
}

func (s *Service) render(c *fiber.Ctx, status int, username string, err error) error {
	data := fiber.Map{
		"Title":    s.cfg.Title,
		"Username": username,
	}

	if err != nil {
		data["Error"] = err.Error()
	}

	return c.Status(status).Render(TemplateName, data)
}
