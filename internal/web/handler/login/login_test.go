package login_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spark-admin/spark-admin/internal/web/handler"
	"github.com/spark-admin/spark-admin/internal/web/handler/login"
	"github.com/spark-admin/spark-admin/internal/web/session"
	"github.com/spark-admin/spark-admin/internal/web/webtest"
)

func setup(t *testing.T) *webtest.Env {
	t.Helper()

	env := webtest.New(t)
	require.NoError(t, login.Handler.Init(env.App, env.Deps))

	env.User(t, "bob", "s3cr3t", nil)

	return env
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}

	return nil
}

func TestInitNilDeps(t *testing.T) {
	var s login.Service
	assert.Error(t, s.Init(fiber.New(), handler.Deps{}))
}

func TestGet(t *testing.T) {
	env := setup(t)

	resp := env.Get(t, login.Path, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, login.TemplateName, webtest.Body(t, resp))
}

func TestPostSuccess(t *testing.T) {
	tests := []struct {
		name       string
		devMode    bool
		wantSecure bool
	}{
		{name: "secure cookie", devMode: false, wantSecure: true},
		{name: "dev mode disables secure", devMode: true, wantSecure: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setup(t)
			env.Deps.Cfg.DevMode = tt.devMode

			resp := env.PostForm(t, login.Path, url.Values{"username": {"bob"}, "password": {"s3cr3t"}}, nil)

			assert.Equal(t, fiber.StatusFound, resp.StatusCode)
			assert.Equal(t, login.RedirectPath, resp.Header.Get(fiber.HeaderLocation))

			cookie := sessionCookie(resp)
			require.NotNil(t, cookie)
			assert.NotEmpty(t, cookie.Value)
			assert.True(t, cookie.HttpOnly)
			assert.Equal(t, tt.wantSecure, strings.Contains(strings.ToLower(resp.Header.Get(fiber.HeaderSetCookie)), "secure"))

			var data session.Data
			require.NoError(t, data.Read(cookie.Value))
			assert.Equal(t, "bob", data.User.Username)
		})
	}
}

func TestPostErrors(t *testing.T) {
	tests := []struct {
		name       string
		form       url.Values
		wantStatus int
		wantError  error
	}{
		{
			name:       "wrong password",
			form:       url.Values{"username": {"bob"}, "password": {"wrong"}},
			wantStatus: fiber.StatusUnauthorized,
			wantError:  login.ErrInvalidCredentials,
		},
		{
			name:       "unknown user",
			form:       url.Values{"username": {"mallory"}, "password": {"s3cr3t"}},
			wantStatus: fiber.StatusUnauthorized,
			wantError:  login.ErrInvalidCredentials,
		},
		{
			name:       "empty password",
			form:       url.Values{"username": {"bob"}},
			wantStatus: fiber.StatusBadRequest,
			wantError:  login.ErrInvalidFormData,
		},
		{
			name:       "blank username",
			form:       url.Values{"username": {"   "}, "password": {"s3cr3t"}},
			wantStatus: fiber.StatusBadRequest,
			wantError:  login.ErrInvalidFormData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setup(t)

			resp := env.PostForm(t, login.Path, tt.form, nil)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Contains(t, webtest.Body(t, resp), tt.wantError.Error())
			assert.Nil(t, sessionCookie(resp))
		})
	}
}

func TestPostDisabledAccount(t *testing.T) {
	env := setup(t)

	user, err := env.Deps.Users.GetUserByUsername("bob")
	require.NoError(t, err)
	require.NoError(t, env.Deps.Users.DeactivateUser(user.ID))

	resp := env.PostForm(t, login.Path, url.Values{"username": {"bob"}, "password": {"s3cr3t"}}, nil)

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, webtest.Body(t, resp), login.ErrAccountDisabled.Error())
}
