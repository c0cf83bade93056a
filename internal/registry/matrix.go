package registry

import (
	"cmp"
	"context"
	"slices"

	"github.com/spark-admin/spark-admin/internal/db/models"
)

// Matrix is a grid of catalog permissions (rows) against roles (columns).
type Matrix struct {
	// Roles are the columns, ordered by name.
	Roles []models.Role
	// Rows holds one row per catalog key in catalog order.
	Rows []MatrixRow
}

// MatrixRow is one permission key of the catalog. Granted[i] tells whether
// Roles[i] of the matrix grants the key.
type MatrixRow struct {
	Category string
	Key      string
	Label    string
	Granted  []bool
}

// Has reports whether the role with roleID grants key. Unknown keys and
// roles report false.
func (m Matrix) Has(key string, roleID uint) bool {
	col := slices.IndexFunc(m.Roles, func(r models.Role) bool { return r.ID == roleID })
	if col < 0 {
		return false
	}

	for _, row := range m.Rows {
		if row.Key == key {
			return row.Granted[col]
		}
	}

	return false
}

// PermissionMatrix builds the permission matrix of all roles. Without roles
// the matrix is empty.
func (r *Registry) PermissionMatrix(ctx context.Context) (Matrix, error) {
	roles, err := r.List(ctx)
	if err != nil {
		return Matrix{}, err
	}

	if len(roles) == 0 {
		return Matrix{}, nil
	}

	slices.SortStableFunc(roles, func(a, b models.Role) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})

	m := Matrix{Roles: roles}

	for _, category := range r.catalog.Categories() {
		for _, entry := range category.Permissions {
			row := MatrixRow{
				Category: category.Name,
				Key:      entry.Key,
				Label:    entry.Label,
				Granted:  make([]bool, len(roles)),
			}

			for i := range roles {
				row.Granted[i] = roles[i].Permissions.Contains(entry.Key)
			}

			m.Rows = append(m.Rows, row)
		}
	}

	return m, nil
}
