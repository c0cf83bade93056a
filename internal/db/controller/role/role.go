// Package role provides the gorm backed role store of the registry.
package role

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/spark-admin/spark-admin/internal/db/models"
	"github.com/spark-admin/spark-admin/internal/registry"
)

const (
	idQueryPattern     = "id = ?"
	idNotQueryPattern  = "id <> ?"
	roleIDQueryPattern = "role_id = ?"

	// defaultLockKey is the postgres advisory lock taken by transactions that
	// move the default flag.
	defaultLockKey = 0x5350524b
)

// ErrDBNil is returned when the database connection is nil.
var ErrDBNil = errors.New("database connection is nil")

// Store implements registry.Store on top of gorm.
type Store struct {
	db *gorm.DB
	// inTx is set on stores handed out by Transaction; reads then lock rows.
	inTx bool
}

var _ registry.Store = (*Store)(nil)

// New creates a role store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// FindRoleByID returns role id. Inside a transaction the row stays locked
// until commit.
func (s *Store) FindRoleByID(ctx context.Context, id uint) (*models.Role, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var role models.Role

	query := s.db.WithContext(ctx)
	if s.inTx {
		query = query.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}

	result := query.Where(idQueryPattern, id).First(&role)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, registry.ErrNotFound
		}

		return nil, result.Error
	}

	return &role, nil
}

// ListRoles returns all roles ordered by hierarchy level, then name.
func (s *Store) ListRoles(ctx context.Context) ([]models.Role, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var roles []models.Role

	result := s.db.WithContext(ctx).Order("hierarchy_level ASC").Order("name ASC").Order("id ASC").Find(&roles)
	if result.Error != nil {
		return nil, result.Error
	}

	return roles, nil
}

// CountUsersForRole returns the number of users referencing role id.
func (s *Store) CountUsersForRole(ctx context.Context, id uint) (int64, error) {
	if s.db == nil {
		return 0, ErrDBNil
	}

	var count int64

	result := s.db.WithContext(ctx).Model(&models.User{}).Where(roleIDQueryPattern, id).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}

// InsertRole inserts role and sets its ID.
func (s *Store) InsertRole(ctx context.Context, role *models.Role) error {
	if s.db == nil {
		return ErrDBNil
	}

	return s.db.WithContext(ctx).Create(role).Error
}

// UpdateRole writes every column of role.
func (s *Store) UpdateRole(ctx context.Context, role *models.Role) error {
	if s.db == nil {
		return ErrDBNil
	}

	return s.db.WithContext(ctx).Save(role).Error
}

// DeleteRole deletes role id.
func (s *Store) DeleteRole(ctx context.Context, id uint) error {
	if s.db == nil {
		return ErrDBNil
	}

	result := s.db.WithContext(ctx).Delete(&models.Role{}, id)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return registry.ErrNotFound
	}

	return nil
}

// ClearDefaultExcept unsets the default flag on every role but id.
//
// Inside a transaction all role rows are locked in id order first, and on
// postgres an advisory lock is taken, so concurrent default changes queue up
// instead of both committing a default role.
func (s *Store) ClearDefaultExcept(ctx context.Context, id uint) error {
	if s.db == nil {
		return ErrDBNil
	}

	db := s.db.WithContext(ctx)

	if s.inTx {
		if db.Dialector.Name() == "postgres" {
			if err := db.Exec("SELECT pg_advisory_xact_lock(?)", defaultLockKey).Error; err != nil {
				return err
			}
		}

		var ids []uint

		err := db.Model(&models.Role{}).
			Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
			Order("id ASC").
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
	}

	// No is_default filter: every other row is written and therefore locked.
	return db.Model(&models.Role{}).Where(idNotQueryPattern, id).Update("is_default", false).Error
}

// Transaction runs fn inside a database transaction. The store passed to fn
// locks the rows it reads.
func (s *Store) Transaction(ctx context.Context, fn func(tx registry.Store) error) error {
	if s.db == nil {
		return ErrDBNil
	}

	if s.inTx {
		return fn(s)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	})
}
