package auth_test

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/spark-admin/spark-admin/internal/auth"
	"github.com/spark-admin/spark-admin/internal/db/controller/activity"
	"github.com/spark-admin/spark-admin/internal/db/models"
	"github.com/spark-admin/spark-admin/internal/permission"
	"github.com/spark-admin/spark-admin/internal/registry"
)

var admin = registry.Actor{ID: 1, Username: "admin"}

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.Role{}, &models.User{}, &models.ActivityLog{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func createRole(t *testing.T, db *gorm.DB, name string, active, isDefault bool, perms ...string) *models.Role {
	t.Helper()

	role := &models.Role{
		Name:           name,
		Permissions:    perms,
		HierarchyLevel: 10,
		IsActive:       active,
		IsDefault:      isDefault,
	}
	require.NoError(t, db.Create(role).Error)

	return role
}

func createUser(t *testing.T, p *auth.LocalProvider, username string, roleID *uint) *models.User {
	t.Helper()

	user, err := p.CreateUser(context.Background(), auth.NewUser{
		Username: username,
		Email:    username + "@spark.example.edu",
		Password: "secret-" + username,
		RoleID:   roleID,
	}, admin)
	require.NoError(t, err)

	return user
}

func TestCreateUserRoles(t *testing.T) {
	db := setupTestDB(t)
	p := auth.NewLocalProvider(db, activity.New(db))

	student := createRole(t, db, "Student", true, true, permission.ViewDashboard)
	staff := createRole(t, db, "Staff", true, false, permission.ViewDashboard, permission.ManageEvents)
	retired := createRole(t, db, "Retired", false, false)

	t.Run("default role when none chosen", func(t *testing.T) {
		user := createUser(t, p, "alice", nil)
		require.NotNil(t, user.RoleID)
		assert.Equal(t, student.ID, *user.RoleID)
	})

	t.Run("chosen role", func(t *testing.T) {
		user := createUser(t, p, "bob", &staff.ID)
		require.NotNil(t, user.RoleID)
		assert.Equal(t, staff.ID, *user.RoleID)
	})

	t.Run("inactive chosen role", func(t *testing.T) {
		_, err := p.CreateUser(context.Background(), auth.NewUser{
			Username: "carol", Email: "carol@spark.example.edu", Password: "x", RoleID: &retired.ID,
		}, admin)
		assert.ErrorIs(t, err, auth.ErrRoleInactive)
	})

	t.Run("missing chosen role", func(t *testing.T) {
		missing := uint(999)
		_, err := p.CreateUser(context.Background(), auth.NewUser{
			Username: "dave", Email: "dave@spark.example.edu", Password: "x", RoleID: &missing,
		}, admin)
		assert.ErrorIs(t, err, auth.ErrRoleNotFound)
	})

	t.Run("duplicate username or email", func(t *testing.T) {
		_, err := p.CreateUser(context.Background(), auth.NewUser{
			Username: "alice", Email: "other@spark.example.edu", Password: "x",
		}, admin)
		assert.ErrorIs(t, err, auth.ErrUserNameOrEmailExists)

		_, err = p.CreateUser(context.Background(), auth.NewUser{
			Username: "alice2", Email: "alice@spark.example.edu", Password: "x",
		}, admin)
		assert.ErrorIs(t, err, auth.ErrUserNameOrEmailExists)
	})

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	var created int64
	require.NoError(t, db.Model(&models.ActivityLog{}).Where("action = ?", auth.ActionUserCreated).Count(&created).Error)
	assert.Equal(t, int64(2), created)
}

func TestCreateUserInactiveDefault(t *testing.T) {
	db := setupTestDB(t)
	p := auth.NewLocalProvider(db, nil)

	createRole(t, db, "Student", false, true)

	user := createUser(t, p, "alice", nil)
	assert.Nil(t, user.RoleID)
}

func TestCreateUserNoDefault(t *testing.T) {
	db := setupTestDB(t)
	p := auth.NewLocalProvider(db, nil)

	user := createUser(t, p, "alice", nil)
	assert.Nil(t, user.RoleID)
}

func TestAssignRole(t *testing.T) {
	db := setupTestDB(t)
	p := auth.NewLocalProvider(db, activity.New(db))
	ctx := context.Background()

	staff := createRole(t, db, "Staff", true, false)
	retired := createRole(t, db, "Retired", false, false)
	user := createUser(t, p, "alice", nil)

	tests := []struct {
		name    string
		userID  uint64
		roleID  uint
		wantErr error
	}{
		{name: "active role", userID: user.ID, roleID: staff.ID},
		{name: "inactive role", userID: user.ID, roleID: retired.ID, wantErr: auth.ErrRoleInactive},
		{name: "missing role", userID: user.ID, roleID: 999, wantErr: auth.ErrRoleNotFound},
		{name: "missing user", userID: 999, roleID: staff.ID, wantErr: auth.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.AssignRole(ctx, tt.userID, tt.roleID, admin)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
		})
	}

	got, err := p.GetUserByID(user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Role)
	assert.Equal(t, "Staff", got.Role.Name)

	require.NoError(t, p.UnassignRole(ctx, user.ID, admin))

	got, err = p.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RoleID)
	assert.Nil(t, got.Role)

	assert.ErrorIs(t, p.UnassignRole(ctx, 999, admin), auth.ErrUserNotFound)

	var actions []string
	require.NoError(t, db.Model(&models.ActivityLog{}).Order("id").Pluck("action", &actions).Error)
	assert.Equal(t, []string{auth.ActionUserCreated, auth.ActionUserRoleAssigned, auth.ActionUserRoleUnassigned}, actions)
}

func TestAuthenticate(t *testing.T) {
	db := setupTestDB(t)
	p := auth.NewLocalProvider(db, nil)

	user := createUser(t, p, "alice", nil)

	got, err := p.Authenticate("alice", "secret-alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = p.Authenticate("alice", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidPassword)

	_, err = p.Authenticate("nobody", "secret")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	require.NoError(t, p.DeactivateUser(user.ID))

	_, err = p.Authenticate("alice", "secret-alice")
	assert.ErrorIs(t, err, auth.ErrUserAccountDisabled)

	require.NoError(t, p.ActivateUser(user.ID))

	_, err = p.Authenticate("alice", "secret-alice")
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	db := setupTestDB(t)
	p := auth.NewLocalProvider(db, nil)

	user := createUser(t, p, "alice", nil)

	assert.ErrorIs(t, p.ChangePassword(user.ID, "wrong", "new-secret"), auth.ErrInvalidOldPassword)
	require.NoError(t, p.ChangePassword(user.ID, "secret-alice", "new-secret"))

	_, err := p.Authenticate("alice", "new-secret")
	assert.NoError(t, err)
}

func TestListUsers(t *testing.T) {
	db := setupTestDB(t)
	p := auth.NewLocalProvider(db, nil)

	for _, name := range []string{"carol", "alice", "bob"} {
		createUser(t, p, name, nil)
	}

	bob, err := p.GetUserByUsername("bob")
	require.NoError(t, err)
	require.NoError(t, p.DeactivateUser(bob.ID))

	users, total, err := p.ListUsers(nil, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, users, 3)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "carol", users[2].Username)

	active := true

	users, total, err = p.ListUsers(&active, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, users, 1)
	assert.Equal(t, "carol", users[0].Username)
}

func TestPermissions(t *testing.T) {
	db := setupTestDB(t)
	p := auth.NewLocalProvider(db, nil)
	s := auth.NewService(db)

	staff := createRole(t, db, "Staff", true, false, permission.ViewDashboard, permission.ManageEvents)
	retired := createRole(t, db, "Retired", true, false, permission.ManageRoles)

	withRole := createUser(t, p, "alice", &staff.ID)
	inactiveRole := createUser(t, p, "bob", &retired.ID)
	noRole := createUser(t, p, "carol", nil)

	// deactivated after assignment, the role grants nothing anymore
	require.NoError(t, db.Model(retired).Update("is_active", false).Error)

	tests := []struct {
		name   string
		userID uint64
		want   []string
	}{
		{name: "active role", userID: withRole.ID, want: []string{permission.ViewDashboard, permission.ManageEvents}},
		{name: "inactive role", userID: inactiveRole.ID, want: []string{}},
		{name: "no role", userID: noRole.ID, want: []string{}},
		{name: "unknown user", userID: 999, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.GetUserPermissions(tt.userID)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, got)
		})
	}

	ok, err := s.HasPermission(withRole.ID, permission.ManageEvents)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HasPermission(inactiveRole.ID, permission.ManageRoles)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.HasAnyPermission(withRole.ID, []string{permission.ManageRoles, permission.ViewDashboard})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HasAllPermissions(withRole.ID, []string{permission.ManageRoles, permission.ViewDashboard})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.HasAllPermissions(noRole.ID, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	role, err := s.GetUserRole(withRole.ID)
	require.NoError(t, err)
	assert.Equal(t, staff.ID, role.ID)

	_, err = s.GetUserRole(999)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	// a disabled account grants nothing either
	require.NoError(t, p.DeactivateUser(withRole.ID))

	got, err := s.GetUserPermissions(withRole.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}
