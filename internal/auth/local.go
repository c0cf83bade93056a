package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/spark-admin/spark-admin/internal/db/models"
	"github.com/spark-admin/spark-admin/internal/registry"
)

// Audit actions written by the local provider.
const (
	ActionUserCreated        = "user_created"
	ActionUserRoleAssigned   = "user_role_assigned"
	ActionUserRoleUnassigned = "user_role_unassigned"
)

// LocalProvider handles local database authentication and role assignment.
type LocalProvider struct {
	db    *gorm.DB
	audit registry.AuditSink
}

// NewUser holds the fields of a new local user. A nil RoleID selects the
// default role, if there is one.
type NewUser struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	RoleID    *uint
}

const (
	whereID = "id = ?"

	isDefaultQueryPattern = "is_default = ?"
)

// NewLocalProvider creates a new local authentication provider.
// audit may be nil.
func NewLocalProvider(db *gorm.DB, audit registry.AuditSink) *LocalProvider {
	return &LocalProvider{
		db:    db,
		audit: audit,
	}
}

// Authenticate authenticates a user against the local database.
func (p *LocalProvider) Authenticate(username, password string) (*models.User, error) {
	var user models.User

	// Find user by username
	err := p.db.Where("username = ?", username).First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	// Check if user is active
	if !user.Active {
		return nil, ErrUserAccountDisabled
	}

	// Verify password
	if !user.VerifyPassword(password) {
		return nil, ErrInvalidPassword
	}

	// stamp the login
	p.db.Model(&user).Update("updated_at", time.Now())

	return &user, nil
}

// CreateUser creates a new active local user.
func (p *LocalProvider) CreateUser(ctx context.Context, in NewUser, actor registry.Actor) (*models.User, error) {
	user := models.User{
		Active:    true,
		Username:  strings.TrimSpace(in.Username),
		Email:     strings.TrimSpace(in.Email),
		Password:  models.HashPassword(in.Password),
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Check if user already exists
		var existing int64

		err := tx.Model(&models.User{}).
			Where("username = ? OR email = ?", user.Username, user.Email).
			Count(&existing).Error
		if err != nil {
			return fmt.Errorf("failed to check existing user: %w", err)
		}

		if existing > 0 {
			return ErrUserNameOrEmailExists
		}

		role, err := p.roleForNewUser(tx, in.RoleID)
		if err != nil {
			return err
		}

		if role != nil {
			user.RoleID = &role.ID
		}

		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Uint64("user_id", user.ID).Str("username", user.Username).Msg("user created")

	p.record(ctx, ActionUserCreated, fmt.Sprintf("Created user %q (id %d)", user.Username, user.ID), actor, user.ID)

	return &user, nil
}

// roleForNewUser locks and returns the role a new user gets. An inactive
// default role is skipped, an inactive chosen role is rejected.
func (p *LocalProvider) roleForNewUser(tx *gorm.DB, roleID *uint) (*models.Role, error) {
	var role models.Role

	query := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})

	if roleID == nil {
		err := query.Where(isDefaultQueryPattern, true).First(&role).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		if err != nil {
			return nil, fmt.Errorf("failed to get default role: %w", err)
		}

		if !role.IsActive {
			log.Warn().Uint("role_id", role.ID).Msg("default role is inactive, creating user without role")
			return nil, nil
		}
	} else {
		err := query.Where(whereID, *roleID).First(&role).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}

		if err != nil {
			return nil, fmt.Errorf("failed to get role: %w", err)
		}
	}

	if !role.IsActive {
		return nil, ErrRoleInactive
	}

	return &role, nil
}

// AssignRole assigns an active role to a user. The role row stays locked
// until the assignment is committed.
func (p *LocalProvider) AssignRole(ctx context.Context, userID uint64, roleID uint, actor registry.Actor) error {
	var (
		user models.User
		role models.Role
	)

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
			Where(whereID, roleID).First(&role).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoleNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to get role: %w", err)
		}

		if !role.IsActive {
			return ErrRoleInactive
		}

		err = tx.Where(whereID, userID).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}

		return tx.Model(&user).Update("role_id", role.ID).Error
	})
	if err != nil {
		return err
	}

	log.Info().Uint64("user_id", userID).Uint("role_id", roleID).Str("actor", actor.Username).Msg("role assigned")

	p.record(ctx, ActionUserRoleAssigned,
		fmt.Sprintf("Assigned role %q to user %q", role.Name, user.Username), actor, userID)

	return nil
}

// UnassignRole removes the role of a user.
func (p *LocalProvider) UnassignRole(ctx context.Context, userID uint64, actor registry.Actor) error {
	result := p.db.WithContext(ctx).Model(&models.User{}).
		Where(whereID, userID).
		Update("role_id", nil)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	log.Info().Uint64("user_id", userID).Str("actor", actor.Username).Msg("role unassigned")

	p.record(ctx, ActionUserRoleUnassigned, fmt.Sprintf("Removed role of user id %d", userID), actor, userID)

	return nil
}

// ChangePassword changes a user's password.
func (p *LocalProvider) ChangePassword(userID uint64, oldPassword, newPassword string) error {
	var user models.User
	if err := p.db.Where(whereID, userID).First(&user).Error; err != nil {
		return fmt.Errorf("user not found: %w", err)
	}

	// Verify old password
	if !user.VerifyPassword(oldPassword) {
		return ErrInvalidOldPassword
	}

	// Hash new password
	hashedPassword := models.HashPassword(newPassword)

	// Update password
	return p.db.Model(&models.User{}).
		Where(whereID, userID).
		Update("password", hashedPassword).Error
}

// ActivateUser activates a user account.
func (p *LocalProvider) ActivateUser(userID uint64) error {
	return p.db.Model(&models.User{}).
		Where(whereID, userID).
		Update("active", true).Error
}

// DeactivateUser deactivates a user account.
func (p *LocalProvider) DeactivateUser(userID uint64) error {
	return p.db.Model(&models.User{}).
		Where(whereID, userID).
		Update("active", false).Error
}

// GetUserByID retrieves a user by ID together with its role.
func (p *LocalProvider) GetUserByID(userID uint64) (*models.User, error) {
	var user models.User

	err := p.db.Preload("Role").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, err
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (p *LocalProvider) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := p.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

// ListUsers lists users ordered by username, with their roles.
// An active filter of nil lists all users.
func (p *LocalProvider) ListUsers(active *bool, limit, offset int) ([]models.User, int64, error) {
	var users []models.User

	var total int64

	query := p.db.Model(&models.User{})

	if active != nil {
		query = query.Where("active = ?", *active)
	}

	query = query.Session(&gorm.Session{})

	// Get total count
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Get paginated results
	if err := query.Preload("Role").Order("username ASC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// CountUsers returns the number of user accounts.
func (p *LocalProvider) CountUsers(ctx context.Context) (int64, error) {
	var count int64

	if err := p.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}

	return count, nil
}

func (p *LocalProvider) record(ctx context.Context, action, description string, actor registry.Actor, targetID uint64) {
	if p.audit == nil {
		return
	}

	if err := p.audit.Record(ctx, action, description, actor.ID, targetID); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("failed to write audit record")
	}
}
