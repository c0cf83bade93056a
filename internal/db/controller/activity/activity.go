// Package activity stores and queries the activity log (audit trail).
package activity

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/spark-admin/spark-admin/internal/db/models"
)

const (
	actionQueryPattern    = "action = ?"
	createdAtQueryPattern = "created_at < ?"

	// DefaultPageSize is used when a filter carries no page size.
	DefaultPageSize = 50
	// MaxPageSize caps the page size of List.
	MaxPageSize = 500
)

// ErrDBNil is returned when the database connection is nil.
var ErrDBNil = errors.New("database connection is nil")

// Filter selects a page of activity log entries.
type Filter struct {
	// Action limits results to one action, empty means all.
	Action string
	// Page is 1-based.
	Page     int
	PageSize int
}

// Page is one page of activity log entries, newest first.
type Page struct {
	Entries  []models.ActivityLog
	Total    int64
	Page     int
	PageSize int
}

// Pages returns the number of pages available for the filter.
func (p Page) Pages() int {
	if p.PageSize <= 0 || p.Total == 0 {
		return 1
	}

	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// Sink writes and reads activity log rows.
type Sink struct {
	db  *gorm.DB
	now func() time.Time
}

// New creates an activity sink.
func New(db *gorm.DB) *Sink {
	return &Sink{db: db, now: time.Now}
}

// Record writes one activity log entry.
func (s *Sink) Record(ctx context.Context, action, description string, actorID, targetID uint64) error {
	if s.db == nil {
		return ErrDBNil
	}

	entry := &models.ActivityLog{
		Action:      action,
		Description: description,
		ActorID:     actorID,
		TargetID:    targetID,
		CreatedAt:   s.now(),
	}

	return s.db.WithContext(ctx).Create(entry).Error
}

// List returns one page of entries matching f, newest first.
func (s *Sink) List(ctx context.Context, f Filter) (*Page, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	if f.Page < 1 {
		f.Page = 1
	}

	switch {
	case f.PageSize <= 0:
		f.PageSize = DefaultPageSize
	case f.PageSize > MaxPageSize:
		f.PageSize = MaxPageSize
	}

	query := s.db.WithContext(ctx).Model(&models.ActivityLog{})
	if f.Action != "" {
		query = query.Where(actionQueryPattern, f.Action)
	}

	// new session so that Count and Find start from the same conditions
	query = query.Session(&gorm.Session{})

	page := &Page{Page: f.Page, PageSize: f.PageSize}

	if err := query.Count(&page.Total).Error; err != nil {
		return nil, err
	}

	err := query.Order("created_at DESC").Order("id DESC").
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&page.Entries).Error
	if err != nil {
		return nil, err
	}

	return page, nil
}

// Actions returns the distinct actions present in the log, sorted.
func (s *Sink) Actions(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var actions []string

	err := s.db.WithContext(ctx).Model(&models.ActivityLog{}).
		Distinct("action").
		Order("action ASC").
		Pluck("action", &actions).Error
	if err != nil {
		return nil, err
	}

	return actions, nil
}

// Count returns the total number of entries.
func (s *Sink) Count(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, ErrDBNil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ActivityLog{}).Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

// Prune deletes entries older than maxAge and returns how many were removed.
func (s *Sink) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	if s.db == nil {
		return 0, ErrDBNil
	}

	result := s.db.WithContext(ctx).Where(createdAtQueryPattern, s.now().Add(-maxAge)).Delete(&models.ActivityLog{})
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}
