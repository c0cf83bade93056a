package session

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is one stored session.
type Record struct {
	ID        string `gorm:"primaryKey;size:64"`
	Value     []byte
	ExpiresAt int64 `gorm:"index"` // unix seconds, 0 never expires
}

// TableName of the session records.
func (Record) TableName() string { return "sessions" }

// GormStorage is a fiber.Storage on the application database. It serves
// engines without a dedicated fiber storage driver, e.g. sqlite.
type GormStorage struct {
	db  *gorm.DB
	now func() time.Time
}

var _ fiber.Storage = (*GormStorage)(nil)

// NewGormStorage migrates the session table and returns the storage.
func NewGormStorage(db *gorm.DB) (*GormStorage, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}

	return &GormStorage{db: db, now: time.Now}, nil
}

// Get returns the value of key, nil when missing or expired.
func (s *GormStorage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}

	var r Record

	err := s.db.Where("id = ?", key).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	if r.ExpiresAt != 0 && r.ExpiresAt <= s.now().Unix() {
		return nil, nil
	}

	return r.Value, nil
}

// Set stores val for key. A zero exp never expires.
func (s *GormStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}

	r := Record{ID: key, Value: val}
	if exp > 0 {
		r.ExpiresAt = s.now().Add(exp).Unix()
	}

	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at"}),
	}).Create(&r).Error
}

// Delete removes key.
func (s *GormStorage) Delete(key string) error {
	if key == "" {
		return nil
	}

	return s.db.Where("id = ?", key).Delete(&Record{}).Error
}

// Reset removes all sessions.
func (s *GormStorage) Reset() error {
	return s.db.Where("1 = 1").Delete(&Record{}).Error
}

// Close is a no-op, the database is owned by the caller.
func (s *GormStorage) Close() error { return nil }

// GC removes expired sessions and returns how many were removed.
func (s *GormStorage) GC() (int64, error) {
	result := s.db.Where("expires_at <> 0 AND expires_at <= ?", s.now().Unix()).Delete(&Record{})

	return result.RowsAffected, result.Error
}
