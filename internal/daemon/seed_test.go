package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/spark-admin/spark-admin/internal/config"
	"github.com/spark-admin/spark-admin/internal/db/open"
	"github.com/spark-admin/spark-admin/internal/permission"
	"github.com/spark-admin/spark-admin/internal/registry"
	"github.com/spark-admin/spark-admin/internal/web/handler"
)

func newTestDeps(t *testing.T) (*config.Config, handler.Deps) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, open.Migrate(db))

	cfg := &config.Config{Admin: config.Admin{Username: "admin", Password: "change-me-now", Email: "admin@spark.example.edu"}}

	return cfg, NewDeps(cfg, db)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	cfg, deps := newTestDeps(t)

	require.NoError(t, Seed(ctx, cfg, deps))

	roles, err := deps.Registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 2)

	assert.Equal(t, SuperAdminRole, roles[0].Name)
	assert.Equal(t, 1, roles[0].HierarchyLevel)
	assert.ElementsMatch(t, permission.Default().Keys(), []string(roles[0].Permissions))
	assert.False(t, roles[0].IsDefault)

	assert.Equal(t, StudentRole, roles[1].Name)
	assert.True(t, roles[1].IsDefault)
	assert.Empty(t, roles[1].Permissions)

	admin, err := deps.Users.Authenticate("admin", "change-me-now")
	require.NoError(t, err)

	ok, err := deps.Auth.HasPermission(admin.ID, permission.ManageRoles)
	require.NoError(t, err)
	assert.True(t, ok)

	// second start changes nothing
	require.NoError(t, Seed(ctx, cfg, deps))

	roles, err = deps.Registry.List(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 2)

	count, err := deps.Users.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestSeedWithoutAdmin(t *testing.T) {
	ctx := context.Background()
	cfg, deps := newTestDeps(t)
	cfg.Admin.Username = ""

	require.NoError(t, Seed(ctx, cfg, deps))

	count, err := deps.Users.CountUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSeedMissingAdminRole(t *testing.T) {
	ctx := context.Background()
	cfg, deps := newTestDeps(t)

	_, err := deps.Registry.Create(ctx, registry.Input{Name: "Lecturer", IsActive: true}, registry.System)
	require.NoError(t, err)

	assert.ErrorIs(t, Seed(ctx, cfg, deps), ErrNoAdminRole)
}

func TestNewScheduler(t *testing.T) {
	_, deps := newTestDeps(t)

	c, err := newScheduler(config.Audit{RetentionDays: 30, PruneSchedule: "@daily"}, deps.Activity, nil)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	c, err = newScheduler(config.Audit{}, deps.Activity, nil)
	require.NoError(t, err)
	assert.Empty(t, c.Entries())

	_, err = newScheduler(config.Audit{RetentionDays: 1, PruneSchedule: "not a schedule"}, deps.Activity, nil)
	assert.Error(t, err)
}

func TestPruneActivity(t *testing.T) {
	ctx := context.Background()
	_, deps := newTestDeps(t)

	require.NoError(t, deps.Activity.Record(ctx, "role_created", "test", 0, 1))

	// a negative age moves the cutoff into the future
	pruneActivity(ctx, deps.Activity, -time.Hour)

	count, err := deps.Activity.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
