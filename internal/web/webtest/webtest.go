// Package webtest holds the fixtures shared by the web handler tests.
package webtest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/spark-admin/spark-admin/internal/auth"
	"github.com/spark-admin/spark-admin/internal/config"
	"github.com/spark-admin/spark-admin/internal/db/controller/activity"
	roledb "github.com/spark-admin/spark-admin/internal/db/controller/role"
	"github.com/spark-admin/spark-admin/internal/db/models"
	"github.com/spark-admin/spark-admin/internal/permission"
	"github.com/spark-admin/spark-admin/internal/registry"
	"github.com/spark-admin/spark-admin/internal/web/handler"
	"github.com/spark-admin/spark-admin/internal/web/session"
)

// Views is a minimal fiber views engine. It writes the template name and
// the "Error" and "Success" values, if any, so tests can assert on them.
type Views struct{}

// Load implements fiber.Views.
func (Views) Load() error { return nil }

// Render implements fiber.Views.
func (Views) Render(w io.Writer, name string, data any, _ ...string) error {
	_, _ = io.WriteString(w, name)

	if m, ok := data.(fiber.Map); ok {
		for _, key := range []string{"Error", "Success"} {
			if v, exists := m[key]; exists && v != nil && v != "" {
				_, _ = fmt.Fprintf(w, "\n%s: %v", key, v)
			}
		}
	}

	return nil
}

// Storage is an in-memory fiber.Storage.
type Storage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ fiber.Storage = (*Storage)(nil)

// Get implements fiber.Storage.
func (s *Storage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.data[key]
	out := make([]byte, len(v))
	copy(out, v)

	return out, nil
}

// Set implements fiber.Storage.
func (s *Storage) Set(key string, val []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string][]byte)
	}

	buf := make([]byte, len(val))
	copy(buf, val)
	s.data[key] = buf

	return nil
}

// Delete implements fiber.Storage.
func (s *Storage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)

	return nil
}

// Reset implements fiber.Storage.
func (s *Storage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string][]byte)

	return nil
}

// Close implements fiber.Storage.
func (s *Storage) Close() error { return nil }

// Env is a test web environment backed by an in-memory SQLite database.
type Env struct {
	App  *fiber.App
	DB   *gorm.DB
	Deps handler.Deps
}

// New creates the environment and a fresh session store.
func New(t *testing.T) *Env {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Role{}, &models.User{}, &models.ActivityLog{}))

	session.Init(&Storage{})

	sink := activity.New(db)

	return &Env{
		App: fiber.New(fiber.Config{Views: Views{}}),
		DB:  db,
		Deps: handler.Deps{
			Cfg: &config.Config{
				Title: "SPARK Admin",
				Webserver: config.Webserver{
					URL:     "http://localhost",
					Port:    3000,
					Session: config.Session{ExpiryTime: time.Minute},
				},
			},
			DB:       db,
			Auth:     auth.NewService(db),
			Users:    auth.NewLocalProvider(db, sink),
			Registry: registry.New(roledb.New(db), sink, permission.Default()),
			Activity: sink,
		},
	}
}

// Role creates a role through the registry.
func (e *Env) Role(t *testing.T, in registry.Input) *models.Role {
	t.Helper()

	role, err := e.Deps.Registry.Create(context.Background(), in, registry.System)
	require.NoError(t, err)

	return role
}

// User creates an active user with the given role.
func (e *Env) User(t *testing.T, username, password string, roleID *uint) *models.User {
	t.Helper()

	user, err := e.Deps.Users.CreateUser(context.Background(), auth.NewUser{
		Username: username,
		Email:    username + "@spark.example.edu",
		Password: password,
		RoleID:   roleID,
	}, registry.System)
	require.NoError(t, err)

	return user
}

// Login writes a session for user and returns its cookie.
func (e *Env) Login(t *testing.T, user *models.User) *http.Cookie {
	t.Helper()

	id, err := session.GenerateSessionID()
	require.NoError(t, err)

	data := &session.Data{User: *user}
	require.NoError(t, data.Write(id, time.Minute))

	return &http.Cookie{Name: session.CookieName, Value: id}
}

// Do runs req against the app.
func (e *Env) Do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()

	resp, err := e.App.Test(req, -1)
	require.NoError(t, err)

	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

// Get performs a GET request, with cookie when not nil.
func (e *Env) Get(t *testing.T, target string, cookie *http.Cookie) *http.Response {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodGet, target, nil)

	if cookie != nil {
		req.AddCookie(cookie)
	}

	return e.Do(t, req)
}

// PostForm performs a form POST request, with cookie when not nil.
func (e *Env) PostForm(t *testing.T, target string, form url.Values, cookie *http.Cookie) *http.Response {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	if cookie != nil {
		req.AddCookie(cookie)
	}

	return e.Do(t, req)
}

// Body reads the response body.
func Body(t *testing.T, resp *http.Response) string {
	t.Helper()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return string(b)
}
