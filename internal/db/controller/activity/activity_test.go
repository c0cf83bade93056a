package activity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/spark-admin/spark-admin/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.ActivityLog{}), "failed to migrate test database")

	return db
}

// fixedClock returns a sink whose clock can be moved by the test.
func fixedClock(s *Sink, start time.Time) *time.Time {
	now := start
	s.now = func() time.Time { return now }

	return &now
}

func TestNilDB(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	assert.ErrorIs(t, s.Record(ctx, "a", "b", 1, 2), ErrDBNil)

	_, err := s.List(ctx, Filter{})
	assert.ErrorIs(t, err, ErrDBNil)

	_, err = s.Actions(ctx)
	assert.ErrorIs(t, err, ErrDBNil)

	_, err = s.Count(ctx)
	assert.ErrorIs(t, err, ErrDBNil)

	_, err = s.Prune(ctx, time.Hour)
	assert.ErrorIs(t, err, ErrDBNil)
}

func TestRecord(t *testing.T) {
	db := setupTestDB(t)
	s := New(db)

	require.NoError(t, s.Record(context.Background(), "role_created", `Created role "Reviewer" (id 4)`, 1, 4))

	var entries []models.ActivityLog
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 1)

	assert.Equal(t, "role_created", entries[0].Action)
	assert.Equal(t, `Created role "Reviewer" (id 4)`, entries[0].Description)
	assert.Equal(t, uint64(1), entries[0].ActorID)
	assert.Equal(t, uint64(4), entries[0].TargetID)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestList(t *testing.T) {
	db := setupTestDB(t)
	s := New(db)
	ctx := context.Background()

	now := fixedClock(s, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	for i := range 7 {
		action := "role_updated"
		if i%2 == 0 {
			action = "role_created"
		}

		*now = now.Add(time.Minute)

		require.NoError(t, s.Record(ctx, action, fmt.Sprintf("entry %d", i), 1, uint64(i)))
	}

	testCases := []struct {
		name          string
		filter        Filter
		expectedTotal int64
		expectedPage  int
		expectedSize  int
		expectedFirst string
		expectedLen   int
	}{
		{
			name:          "defaults",
			filter:        Filter{},
			expectedTotal: 7,
			expectedPage:  1,
			expectedSize:  DefaultPageSize,
			expectedFirst: "entry 6",
			expectedLen:   7,
		},
		{
			name:          "second page",
			filter:        Filter{Page: 2, PageSize: 3},
			expectedTotal: 7,
			expectedPage:  2,
			expectedSize:  3,
			expectedFirst: "entry 3",
			expectedLen:   3,
		},
		{
			name:          "action filter",
			filter:        Filter{Action: "role_updated"},
			expectedTotal: 3,
			expectedPage:  1,
			expectedSize:  DefaultPageSize,
			expectedFirst: "entry 5",
			expectedLen:   3,
		},
		{
			name:          "page size capped",
			filter:        Filter{PageSize: MaxPageSize + 1},
			expectedTotal: 7,
			expectedPage:  1,
			expectedSize:  MaxPageSize,
			expectedFirst: "entry 6",
			expectedLen:   7,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			page, err := s.List(ctx, tc.filter)
			require.NoError(t, err)

			assert.Equal(t, tc.expectedTotal, page.Total)
			assert.Equal(t, tc.expectedPage, page.Page)
			assert.Equal(t, tc.expectedSize, page.PageSize)
			require.Len(t, page.Entries, tc.expectedLen)
			assert.Equal(t, tc.expectedFirst, page.Entries[0].Description)
		})
	}
}

func TestPages(t *testing.T) {
	assert.Equal(t, 1, Page{Total: 0, PageSize: 10}.Pages())
	assert.Equal(t, 1, Page{Total: 10, PageSize: 10}.Pages())
	assert.Equal(t, 2, Page{Total: 11, PageSize: 10}.Pages())
	assert.Equal(t, 1, Page{Total: 11}.Pages())
}

func TestActionsAndCount(t *testing.T) {
	db := setupTestDB(t)
	s := New(db)
	ctx := context.Background()

	for _, action := range []string{"role_updated", "role_created", "role_updated"} {
		require.NoError(t, s.Record(ctx, action, "", 0, 0))
	}

	actions, err := s.Actions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"role_created", "role_updated"}, actions)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestPrune(t *testing.T) {
	db := setupTestDB(t)
	s := New(db)
	ctx := context.Background()

	now := fixedClock(s, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, s.Record(ctx, "old", "", 0, 0))

	*now = now.Add(48 * time.Hour)
	require.NoError(t, s.Record(ctx, "new", "", 0, 0))

	removed, err := s.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	actions, err := s.Actions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, actions)
}
