package registry

import (
	"context"

	"github.com/spark-admin/spark-admin/internal/db/models"
)

// Store is the persistence contract of the registry.
//
// FindRoleByID returns an error matching ErrNotFound for unknown ids.
// ListRoles orders by hierarchy level, then name. Inside Transaction the
// store passed to fn must lock rows read by FindRoleByID until commit.
type Store interface {
	FindRoleByID(ctx context.Context, id uint) (*models.Role, error)
	ListRoles(ctx context.Context) ([]models.Role, error)
	CountUsersForRole(ctx context.Context, id uint) (int64, error)
	InsertRole(ctx context.Context, role *models.Role) error
	UpdateRole(ctx context.Context, role *models.Role) error
	DeleteRole(ctx context.Context, id uint) error
	// ClearDefaultExcept unsets the default flag of every role but id. Inside
	// Transaction it first locks every role row in id order, so callers that
	// move the default flag call it before any other role read.
	ClearDefaultExcept(ctx context.Context, id uint) error
	// Transaction runs fn atomically. A non-nil error from fn rolls back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// AuditSink records a human readable description of a mutating action.
type AuditSink interface {
	Record(ctx context.Context, action, description string, actorID, targetID uint64) error
}

// Actor identifies the authenticated principal performing an operation.
type Actor struct {
	ID       uint64
	Username string
}

// System is the actor used for bootstrap and scheduled operations.
var System = Actor{ID: 0, Username: "system"}
