package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	accesslog "github.com/spark-admin/spark-admin/internal/logger/adapter/fiber"
	"github.com/spark-admin/spark-admin/internal/web/handler"
	"github.com/spark-admin/spark-admin/internal/web/handler/dashboard"
	"github.com/spark-admin/spark-admin/internal/web/handler/login"
	"github.com/spark-admin/spark-admin/internal/web/handler/logout"
	"github.com/spark-admin/spark-admin/internal/web/session"
)

// PublicPrefixes are served without a session.
var PublicPrefixes = []string{"/static", "/checkalive", "/metrics"}

// Middleware is a Fiber middleware that checks for user authentication.
func Middleware(c *fiber.Ctx) error {
	var (
		isLoginPage   = IsLoginPage(c)
		sessDataValid bool
	)

	originalURL := strings.ToLower(c.OriginalURL())
	for _, prefix := range PublicPrefixes {
		if strings.HasPrefix(originalURL, prefix) {
			return c.Next()
		}
	}

	// Allow logout page without authentication
	if IsLogoutPage(c) {
		return c.Next()
	}

	// get session cookie
	loginCookie := c.Cookies(session.CookieName)

	// if no session cookie, redirect to login page
	if loginCookie == "" {
		if isLoginPage {
			return c.Next()
		}

		return c.Redirect(login.Path)
	}

	// check session validity
	sessData := new(session.Data)
	if err := sessData.Read(loginCookie); err != nil {
		// If we're already on the login page, don't redirect (would cause loop)
		if isLoginPage {
			return c.Next()
		}

		return c.Redirect(login.Path)
	}

	// valid data in session
	if sessData.User.ID > 0 {
		sessDataValid = true
		// Add the current user to locals for handlers, templates and the access log
		c.Locals(handler.LocalsCurrentUser, sessData.User)
		c.Locals(accesslog.LocalsUsername, sessData.User.Username)
	}

	if sessDataValid && isLoginPage {
		return c.Redirect(dashboard.Path)
	}

	if !sessDataValid {
		return c.Redirect(login.Path)
	}

	return c.Next()
}

// IsLoginPage checks if the current request is for the login page.
func IsLoginPage(c *fiber.Ctx) bool {
	originalURL := strings.ToLower(c.OriginalURL())
	return strings.HasPrefix(originalURL, login.Path)
}

// IsLogoutPage checks if the current request is for the logout page.
func IsLogoutPage(c *fiber.Ctx) bool {
	originalURL := strings.ToLower(c.OriginalURL())
	return strings.HasPrefix(originalURL, logout.Path)
}
