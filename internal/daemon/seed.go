package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/spark-admin/spark-admin/internal/auth"
	"github.com/spark-admin/spark-admin/internal/config"
	"github.com/spark-admin/spark-admin/internal/db/models"
	"github.com/spark-admin/spark-admin/internal/registry"
	"github.com/spark-admin/spark-admin/internal/web/handler"
)

const (
	// SuperAdminRole holds every permission.
	SuperAdminRole = "Super Admin"
	// StudentRole is the default role of new users.
	StudentRole = "Student"
)

// ErrNoAdminRole is returned when users must be seeded but the super admin
// role is missing.
var ErrNoAdminRole = errors.New("super admin role not found")

// Seed creates the built-in roles when there are none and the bootstrap
// admin when there are no users. Audit warnings are logged and ignored.
func Seed(ctx context.Context, cfg *config.Config, deps handler.Deps) error {
	roles, err := deps.Registry.List(ctx)
	if err != nil {
		return err
	}

	if len(roles) == 0 {
		if roles, err = seedRoles(ctx, deps.Registry); err != nil {
			return err
		}
	}

	users, err := deps.Users.CountUsers(ctx)
	if err != nil {
		return err
	}

	if users > 0 || cfg.Admin.Username == "" {
		return nil
	}

	var admin *models.Role

	for i := range roles {
		if roles[i].Name == SuperAdminRole {
			admin = &roles[i]
			break
		}
	}

	if admin == nil {
		return ErrNoAdminRole
	}

	user, err := deps.Users.CreateUser(ctx, auth.NewUser{
		Username:  cfg.Admin.Username,
		Email:     cfg.Admin.Email,
		Password:  cfg.Admin.Password,
		FirstName: "System",
		LastName:  "Administrator",
		RoleID:    &admin.ID,
	}, registry.System)
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	log.Warn().Str("username", user.Username).Msg("bootstrap admin created, change its password")

	return nil
}

func seedRoles(ctx context.Context, r *registry.Registry) ([]models.Role, error) {
	builtin := []registry.Input{
		{
			Name:           SuperAdminRole,
			Description:    "Full access to every administrative function",
			Permissions:    r.Catalog().Keys(),
			HierarchyLevel: 1,
			IsActive:       true,
		},
		{
			Name:           StudentRole,
			Description:    "Default role for newly registered students",
			HierarchyLevel: 100,
			IsActive:       true,
			IsDefault:      true,
		},
	}

	roles := make([]models.Role, 0, len(builtin))

	for _, in := range builtin {
		role, err := r.Create(ctx, in, registry.System)
		if err != nil && !registry.IsAuditWarning(err) {
			return nil, fmt.Errorf("create role %q: %w", in.Name, err)
		}

		log.Info().Uint("role_id", role.ID).Str("name", role.Name).Msg("built-in role created")

		roles = append(roles, *role)
	}

	return roles, nil
}
