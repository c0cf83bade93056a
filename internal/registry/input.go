package registry

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/spark-admin/spark-admin/internal/permission"
)

const (
	// DefaultHierarchyLevel is used when Input.HierarchyLevel is zero.
	DefaultHierarchyLevel = 10
	// MaxHierarchyLevel is the largest accepted hierarchy level.
	MaxHierarchyLevel = 100

	tagPermission = "permission"
)

// Input carries the editable fields of a role for Create and Update.
type Input struct {
	Name           string   `validate:"required,max=100"`
	Description    string   `validate:"max=255"`
	Permissions    []string `validate:"dive,permission"`
	HierarchyLevel int      `validate:"min=1,max=100"`
	IsActive       bool
	IsDefault      bool
}

func newValidator(catalog *permission.Catalog) *validator.Validate {
	v := validator.New()

	// registration only fails for empty tags or nil funcs
	_ = v.RegisterValidation(tagPermission, func(fl validator.FieldLevel) bool {
		return catalog.Contains(fl.Field().String())
	})

	return v
}

// prepare trims and defaults the input, validates it and normalizes the
// permission set to catalog order without duplicates.
func (r *Registry) prepare(in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	if in.HierarchyLevel == 0 {
		in.HierarchyLevel = DefaultHierarchyLevel
	}

	if err := r.validate.Struct(in); err != nil {
		return in, validationError(err)
	}

	in.Permissions = r.catalog.Normalize(in.Permissions)

	return in, nil
}

func validationError(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return errors.Wrap(ErrValidation, err.Error())
	}

	msgs := make([]string, 0, len(fieldErrors))

	for _, fe := range fieldErrors {
		switch {
		case fe.Tag() == tagPermission:
			msgs = append(msgs, fmt.Sprintf("unknown permission key %q", fe.Value()))
		case fe.Field() == "Name" && fe.Tag() == "required":
			msgs = append(msgs, "role name cannot be empty")
		case fe.Field() == "HierarchyLevel":
			msgs = append(msgs, fmt.Sprintf("hierarchy level must be between 1 and %d", MaxHierarchyLevel))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is too long (max %s)", strings.ToLower(fe.Field()), fe.Param()))
		}
	}

	return errors.Wrap(ErrValidation, strings.Join(msgs, "; "))
}
