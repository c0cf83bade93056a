package registry

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/spark-admin/spark-admin/internal/db/models"
	"github.com/spark-admin/spark-admin/internal/permission"
)

// Audit actions written by the registry.
const (
	ActionRoleCreated       = "role_created"
	ActionRoleUpdated       = "role_updated"
	ActionRoleDeleted       = "role_deleted"
	ActionRoleStatusChanged = "role_status_changed"
	ActionRoleDefaultSet    = "role_default_set"
)

// Registry manages roles and enforces the default and deletion invariants.
type Registry struct {
	store    Store
	audit    AuditSink
	catalog  *permission.Catalog
	validate *validator.Validate
}

// New creates a registry. A nil audit sink disables auditing and a nil
// catalog selects permission.Default.
func New(store Store, audit AuditSink, catalog *permission.Catalog) *Registry {
	if store == nil {
		panic("registry store cannot be nil")
	}

	if catalog == nil {
		catalog = permission.Default()
	}

	return &Registry{
		store:    store,
		audit:    audit,
		catalog:  catalog,
		validate: newValidator(catalog),
	}
}

// Catalog returns the permission catalog used for validation.
func (r *Registry) Catalog() *permission.Catalog {
	return r.catalog
}

// Create validates in and persists a new role. When in.IsDefault is set, the
// previous default role loses its flag in the same transaction.
func (r *Registry) Create(ctx context.Context, in Input, actor Actor) (*models.Role, error) {
	in, err := r.prepare(in)
	if err != nil {
		observe(opCreate, err)
		return nil, err
	}

	role := &models.Role{
		Name:           in.Name,
		Description:    in.Description,
		Permissions:    in.Permissions,
		HierarchyLevel: in.HierarchyLevel,
		IsActive:       in.IsActive,
		IsDefault:      in.IsDefault,
		CreatedBy:      actor.ID,
	}

	err = r.store.Transaction(ctx, func(tx Store) error {
		if role.IsDefault {
			if errTx := tx.ClearDefaultExcept(ctx, 0); errTx != nil {
				return errTx
			}
		}

		return tx.InsertRole(ctx, role)
	})
	if err != nil {
		return nil, r.fail(opCreate, err, "create role")
	}

	log.Info().Uint("role_id", role.ID).Str("role", role.Name).Bool("default", role.IsDefault).
		Str("actor", actor.Username).Msg("role created")

	err = r.record(ctx, ActionRoleCreated,
		fmt.Sprintf("Created role %q (id %d)", role.Name, role.ID), actor, role.ID)
	observe(opCreate, err)

	return role, err
}

// Update replaces the editable fields of role id. Default status is only
// ever moved to another role: passing IsDefault false for the current
// default role keeps it default.
func (r *Registry) Update(ctx context.Context, id uint, in Input, actor Actor) (*models.Role, error) {
	in, err := r.prepare(in)
	if err != nil {
		observe(opUpdate, err)
		return nil, err
	}

	var role *models.Role

	err = r.store.Transaction(ctx, func(tx Store) error {
		if in.IsDefault {
			if errTx := tx.ClearDefaultExcept(ctx, id); errTx != nil {
				return errTx
			}
		}

		var errTx error

		role, errTx = tx.FindRoleByID(ctx, id)
		if errTx != nil {
			return errTx
		}

		role.Name = in.Name
		role.Description = in.Description
		role.Permissions = in.Permissions
		role.HierarchyLevel = in.HierarchyLevel
		role.IsActive = in.IsActive
		role.IsDefault = role.IsDefault || in.IsDefault

		return tx.UpdateRole(ctx, role)
	})
	if err != nil {
		return nil, r.fail(opUpdate, err, "update role")
	}

	log.Info().Uint("role_id", role.ID).Str("role", role.Name).Str("actor", actor.Username).Msg("role updated")

	err = r.record(ctx, ActionRoleUpdated,
		fmt.Sprintf("Updated role %q (id %d)", role.Name, role.ID), actor, role.ID)
	observe(opUpdate, err)

	return role, err
}

// Delete removes role id. It fails with ErrConflict while users reference it.
func (r *Registry) Delete(ctx context.Context, id uint, actor Actor) error {
	var role *models.Role

	err := r.store.Transaction(ctx, func(tx Store) error {
		var errTx error

		role, errTx = tx.FindRoleByID(ctx, id)
		if errTx != nil {
			return errTx
		}

		users, errTx := tx.CountUsersForRole(ctx, id)
		if errTx != nil {
			return errTx
		}

		if users > 0 {
			return errors.Wrapf(ErrConflict, "role in use by %d user(s)", users)
		}

		return tx.DeleteRole(ctx, id)
	})
	if err != nil {
		return r.fail(opDelete, err, "delete role")
	}

	log.Info().Uint("role_id", id).Str("role", role.Name).Str("actor", actor.Username).Msg("role deleted")

	err = r.record(ctx, ActionRoleDeleted,
		fmt.Sprintf("Deleted role %q (id %d)", role.Name, id), actor, id)
	observe(opDelete, err)

	return err
}

// SetActive sets the active flag of role id. Users already holding the
// role keep it.
func (r *Registry) SetActive(ctx context.Context, id uint, active bool, actor Actor) error {
	var role *models.Role

	err := r.store.Transaction(ctx, func(tx Store) error {
		var errTx error

		role, errTx = tx.FindRoleByID(ctx, id)
		if errTx != nil {
			return errTx
		}

		role.IsActive = active

		return tx.UpdateRole(ctx, role)
	})
	if err != nil {
		return r.fail(opSetActive, err, "set role status")
	}

	verb := "Deactivated"
	if active {
		verb = "Activated"
	}

	log.Info().Uint("role_id", id).Bool("active", active).Str("actor", actor.Username).Msg("role status changed")

	err = r.record(ctx, ActionRoleStatusChanged,
		fmt.Sprintf("%s role %q (id %d)", verb, role.Name, id), actor, id)
	observe(opSetActive, err)

	return err
}

// SetDefault makes role id the default role and clears the flag on every
// other role in the same transaction.
func (r *Registry) SetDefault(ctx context.Context, id uint, actor Actor) error {
	var role *models.Role

	err := r.store.Transaction(ctx, func(tx Store) error {
		if errTx := tx.ClearDefaultExcept(ctx, id); errTx != nil {
			return errTx
		}

		var errTx error

		role, errTx = tx.FindRoleByID(ctx, id)
		if errTx != nil {
			return errTx
		}

		role.IsDefault = true

		return tx.UpdateRole(ctx, role)
	})
	if err != nil {
		return r.fail(opSetDefault, err, "set default role")
	}

	log.Info().Uint("role_id", id).Str("role", role.Name).Str("actor", actor.Username).Msg("default role set")

	err = r.record(ctx, ActionRoleDefaultSet,
		fmt.Sprintf("Set role %q (id %d) as default", role.Name, id), actor, id)
	observe(opSetDefault, err)

	return err
}

// Get returns role id.
func (r *Registry) Get(ctx context.Context, id uint) (*models.Role, error) {
	role, err := r.store.FindRoleByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}

	return role, nil
}

// List returns a fresh snapshot of all roles ordered by hierarchy level,
// then name.
func (r *Registry) List(ctx context.Context) ([]models.Role, error) {
	roles, err := r.store.ListRoles(ctx)
	if err != nil {
		return nil, classify(err)
	}

	return roles, nil
}

func (r *Registry) fail(op string, err error, what string) error {
	err = classify(err)
	observe(op, err)

	if errors.Is(err, ErrStorage) {
		log.Error().Err(err).Str("operation", op).Msg("failed to " + what)
	}

	return err
}

// record writes the audit entry. It never undoes the mutation; a failed
// write is logged and returned as audit warning.
func (r *Registry) record(ctx context.Context, action, description string, actor Actor, targetID uint) error {
	if r.audit == nil {
		return nil
	}

	if err := r.audit.Record(ctx, action, description, actor.ID, uint64(targetID)); err != nil {
		log.Warn().Err(err).Str("action", action).Uint("target_id", targetID).Msg("failed to write audit record")

		return fmt.Errorf("%w: %s: %w", ErrAuditWarning, action, err)
	}

	return nil
}
