package user_test

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spark-admin/spark-admin/internal/db/models"
	"github.com/spark-admin/spark-admin/internal/permission"
	"github.com/spark-admin/spark-admin/internal/registry"
	"github.com/spark-admin/spark-admin/internal/web/handler/admin/user"
	authmw "github.com/spark-admin/spark-admin/internal/web/middleware/auth"
	"github.com/spark-admin/spark-admin/internal/web/webtest"
)

type fixture struct {
	*webtest.Env
	admin   *models.User
	cookie  *http.Cookie
	student *models.Role
	retired *models.Role
}

func setup(t *testing.T) *fixture {
	t.Helper()

	env := webtest.New(t)
	env.App.Use(authmw.Middleware)
	require.NoError(t, user.Handler.Init(env.App, env.Deps))

	super := env.Role(t, registry.Input{Name: "Super Admin", Permissions: permission.Default().Keys(), HierarchyLevel: 1, IsActive: true})
	student := env.Role(t, registry.Input{Name: "Student", IsActive: true, IsDefault: true})
	retired := env.Role(t, registry.Input{Name: "Retired", IsActive: false})

	admin := env.User(t, "admin", "secret", &super.ID)

	return &fixture{Env: env, admin: admin, cookie: env.Login(t, admin), student: student, retired: retired}
}

func (f *fixture) user(t *testing.T, username string) *models.User {
	t.Helper()

	u, err := f.Deps.Users.GetUserByID(f.byName(t, username))
	require.NoError(t, err)

	return u
}

func (f *fixture) byName(t *testing.T, username string) uint64 {
	t.Helper()

	u, err := f.Deps.Users.GetUserByUsername(username)
	require.NoError(t, err)

	return u.ID
}

func query(t *testing.T, resp *http.Response, key string) string {
	t.Helper()

	loc, err := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	require.NoError(t, err)

	return loc.Query().Get(key)
}

func TestList(t *testing.T) {
	f := setup(t)

	resp := f.Get(t, user.Path+"?active=true&page=0&pageSize=1000", f.cookie)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(webtest.Body(t, resp), user.TemplateList))
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name       string
		form       url.Values
		wantStatus int
		wantRole   string
		wantError  string
	}{
		{
			name:       "default role",
			form:       url.Values{"username": {"alice"}, "email": {"alice@spark.example.edu"}, "password": {"longenough"}},
			wantStatus: fiber.StatusSeeOther,
			wantRole:   "Student",
		},
		{
			name: "chosen role",
			form: url.Values{
				"username": {"bob"}, "email": {"bob@spark.example.edu"}, "password": {"longenough"}, "role_id": {"1"},
			},
			wantStatus: fiber.StatusSeeOther,
			wantRole:   "Super Admin",
		},
		{
			name: "inactive role",
			form: url.Values{
				"username": {"carol"}, "email": {"carol@spark.example.edu"}, "password": {"longenough"}, "role_id": {"3"},
			},
			wantStatus: fiber.StatusUnprocessableEntity,
			wantError:  "role is inactive",
		},
		{
			name:       "duplicate",
			form:       url.Values{"username": {"admin"}, "email": {"x@spark.example.edu"}, "password": {"longenough"}},
			wantStatus: fiber.StatusConflict,
			wantError:  "already exists",
		},
		{
			name:       "invalid email",
			form:       url.Values{"username": {"dave"}, "email": {"nope"}, "password": {"longenough"}},
			wantStatus: fiber.StatusBadRequest,
			wantError:  "Please correct the highlighted errors",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)

			resp := f.PostForm(t, user.Path, tt.form, f.cookie)
			require.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantError != "" {
				assert.Contains(t, webtest.Body(t, resp), tt.wantError)
				return
			}

			created := f.user(t, tt.form.Get("username"))
			require.NotNil(t, created.Role)
			assert.Equal(t, tt.wantRole, created.Role.Name)
		})
	}
}

func TestAssignRole(t *testing.T) {
	f := setup(t)

	alice := f.Env.User(t, "alice", "longenough", nil)
	target := fmt.Sprintf("%s/%d/role", user.Path, alice.ID)

	resp := f.PostForm(t, target, url.Values{"role_id": {fmt.Sprint(f.retired.ID)}}, f.cookie)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "role is inactive", query(t, resp, "error"))

	resp = f.PostForm(t, target, url.Values{"role_id": {"999"}}, f.cookie)
	assert.Equal(t, "role not found", query(t, resp, "error"))

	resp = f.PostForm(t, target, url.Values{"role_id": {"0"}}, f.cookie)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.NotEmpty(t, query(t, resp, "success"))
	assert.Nil(t, f.user(t, "alice").RoleID)

	resp = f.PostForm(t, target, url.Values{"role_id": {fmt.Sprint(f.student.ID)}}, f.cookie)
	assert.NotEmpty(t, query(t, resp, "success"))
	assert.Equal(t, "Student", f.user(t, "alice").Role.Name)

	resp = f.PostForm(t, user.Path+"/999/role", url.Values{"role_id": {"0"}}, f.cookie)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSetActive(t *testing.T) {
	f := setup(t)

	alice := f.Env.User(t, "alice", "longenough", nil)

	resp := f.PostForm(t, fmt.Sprintf("%s/%d/active", user.Path, alice.ID), url.Values{"active": {"false"}}, f.cookie)
	assert.NotEmpty(t, query(t, resp, "success"))
	assert.False(t, f.user(t, "alice").Active)

	resp = f.PostForm(t, fmt.Sprintf("%s/%d/active", user.Path, f.admin.ID), url.Values{"active": {"false"}}, f.cookie)
	assert.Equal(t, "You cannot deactivate your own account", query(t, resp, "error"))
	assert.True(t, f.user(t, "admin").Active)
}

func TestAssignRoleNeedsPermission(t *testing.T) {
	f := setup(t)

	// the default role grants nothing
	alice := f.Env.User(t, "alice", "longenough", nil)
	cookie := f.Login(t, alice)

	resp := f.PostForm(t, fmt.Sprintf("%s/%d/role", user.Path, alice.ID), url.Values{"role_id": {"1"}}, cookie)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Student", f.user(t, "alice").Role.Name)
}
