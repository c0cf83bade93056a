package models

import (
	"slices"
	"time"
)

// PermissionSet is the set of permission keys granted by a role.
// It is persisted as a JSON array; order carries no meaning.
type PermissionSet []string

// Contains reports whether the set grants the given permission key.
func (p PermissionSet) Contains(key string) bool {
	return slices.Contains(p, key)
}

// Role represents a role in the role-based access control (RBAC) system.
// A role bundles a set of permission keys and is assigned to at most one
// user account per user. At most one role in the registry is the default
// role handed to new users.
type Role struct {
	// ID is the unique identifier for the role.
	ID uint `gorm:"primaryKey"`
	// Name is the display name of the role (e.g., "Event Coordinator").
	Name string `gorm:"size:100;not null"`
	// Description provides a human-readable description of the role's purpose.
	Description string `gorm:"size:255"`
	// Permissions holds the granted permission keys.
	Permissions PermissionSet `gorm:"serializer:json;type:text"`
	// HierarchyLevel ranks roles by authority, lower is higher. Advisory only.
	HierarchyLevel int `gorm:"not null;default:10"`
	// IsActive controls whether the role may be assigned to users.
	IsActive bool `gorm:"not null"`
	// IsDefault marks the role assigned to new users without an explicit role.
	IsDefault bool `gorm:"not null;default:false;index"`
	// CreatedBy is the ID of the user that created the role (0 for the system).
	CreatedBy uint64
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "roles"
}
