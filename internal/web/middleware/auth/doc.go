// Package auth provides authentication middleware for the web application.
//
// The middleware validates the session cookie and redirects anonymous
// requests to the login page. For authenticated requests it stores the
// session user in fiber.Locals, where handlers read the acting user and
// the access log picks up the username.
//
// Static files, /checkalive, /metrics and the login and logout pages are
// served without a session.
//
// Usage:
//
//	app.Use(authmiddleware.Middleware)
package auth
