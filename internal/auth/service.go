package auth

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/spark-admin/spark-admin/internal/db/models"
)

// Service provides authorization functionality.
type Service struct {
	db *gorm.DB
}

// NewService creates a new auth service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// HasPermission checks if a user has a specific permission.
// This works by checking if the user's role grants the permission key.
// Inactive roles and disabled accounts grant nothing.
func (s *Service) HasPermission(userID uint64, permission string) (bool, error) {
	granted, err := s.GetUserPermissions(userID)
	if err != nil {
		return false, err
	}

	return models.PermissionSet(granted).Contains(permission), nil
}

// HasAnyPermission checks if a user has at least one of the given permissions.
func (s *Service) HasAnyPermission(userID uint64, permissions []string) (bool, error) {
	if len(permissions) == 0 {
		return false, nil
	}

	granted, err := s.GetUserPermissions(userID)
	if err != nil {
		return false, err
	}

	for _, perm := range permissions {
		if models.PermissionSet(granted).Contains(perm) {
			return true, nil
		}
	}

	return false, nil
}

// HasAllPermissions checks if a user has all of the given permissions.
func (s *Service) HasAllPermissions(userID uint64, permissions []string) (bool, error) {
	if len(permissions) == 0 {
		return true, nil
	}

	granted, err := s.GetUserPermissions(userID)
	if err != nil {
		return false, err
	}

	for _, perm := range permissions {
		if !models.PermissionSet(granted).Contains(perm) {
			return false, nil
		}
	}

	return true, nil
}

// GetUserPermissions retrieves all permissions granted to a user by its role.
// Unknown users, users without role and users with an inactive role get an
// empty list.
func (s *Service) GetUserPermissions(userID uint64) ([]string, error) {
	var user models.User

	err := s.db.Preload("Role").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []string{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get user permissions: %w", err)
	}

	if !user.Active || user.Role == nil || !user.Role.IsActive {
		return []string{}, nil
	}

	result := make([]string, len(user.Role.Permissions))
	copy(result, user.Role.Permissions)

	return result, nil
}

// GetUserRole returns the role of a user, nil if the user has none.
func (s *Service) GetUserRole(userID uint64) (*models.Role, error) {
	var user models.User

	err := s.db.Preload("Role").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get user role: %w", err)
	}

	return user.Role, nil
}
