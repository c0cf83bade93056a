package role

import (
	"github.com/spark-admin/spark-admin/internal/db/models"
	"github.com/spark-admin/spark-admin/internal/registry"
)

// Form is the submitted role form. Checkboxes post the value "true".
type Form struct {
	Name           string   `form:"name"`
	Description    string   `form:"description"`
	Permissions    []string `form:"permissions"`
	HierarchyLevel int      `form:"hierarchy_level"`
	IsActive       bool     `form:"is_active"`
	IsDefault      bool     `form:"is_default"`
}

// Input converts the form to registry input.
func (f Form) Input() registry.Input {
	return registry.Input{
		Name:           f.Name,
		Description:    f.Description,
		Permissions:    f.Permissions,
		HierarchyLevel: f.HierarchyLevel,
		IsActive:       f.IsActive,
		IsDefault:      f.IsDefault,
	}
}

// formFromRole fills the form with the current values of role.
func formFromRole(role *models.Role) Form {
	return Form{
		Name:           role.Name,
		Description:    role.Description,
		Permissions:    role.Permissions,
		HierarchyLevel: role.HierarchyLevel,
		IsActive:       role.IsActive,
		IsDefault:      role.IsDefault,
	}
}

// Selected returns the granted permissions as a set for the checkboxes.
func (f Form) Selected() map[string]bool {
	selected := make(map[string]bool, len(f.Permissions))
	for _, key := range f.Permissions {
		selected[key] = true
	}

	return selected
}
