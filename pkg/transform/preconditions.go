package transform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/chazu/inherit/pkg/ast"
)

var validate = validator.New()

// declaration is the validated view of a class before lowering.
type declaration struct {
	Name    string         `validate:"required"`
	Layout  ast.LayoutKind `validate:"eq=named"`
	Primary *ast.Block     `validate:"required"`
	Fields  []string       `validate:"unique,dive,required,ne=self,ne=prototype,ne=this,ne=_"`
}

// checkDeclaration verifies the preconditions that do not need the
// registry. Violations map onto the error taxonomy.
func checkDeclaration(class *ast.Class) error {
	decl := declaration{
		Name:    class.Name,
		Layout:  class.Layout.Kind,
		Primary: class.Primary,
		Fields:  class.FieldNames(),
	}

	err := validate.Struct(decl)
	if err == nil {
		return nil
	}
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return fmt.Errorf("validating class %s: %w", class.Name, err)
	}
	// Report the first violation; they are ordered by field.
	ve := valErrs[0]
	switch {
	case ve.StructField() == "Name":
		return ast.NewClassError(ast.ErrMalformedInput, class, "class name is required")
	case ve.StructField() == "Layout":
		return ast.NewClassError(ast.ErrUnsupportedLayout, class,
			"%s layout, only named fields can be lowered", class.Layout.Kind)
	case ve.StructField() == "Primary":
		return ast.NewClassError(ast.ErrMissingPrimaryImpl, class,
			"impl %s { ... } block is required", class.Name)
	case ve.Tag() == "unique":
		return ast.NewClassError(ast.ErrUnsupportedLayout, class, "duplicate field name")
	case strings.HasPrefix(ve.StructField(), "Fields"):
		return ast.NewClassError(ast.ErrUnsupportedLayout, class,
			"field %q %s", ve.Value(), formatValidationError(ve))
	}
	return ast.NewClassError(ast.ErrMalformedInput, class, "%s: %s", ve.Field(), formatValidationError(ve))
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "is required"
	case "eq":
		return fmt.Sprintf("must equal %s", ve.Param())
	case "ne":
		return "is reserved"
	case "unique":
		return "must be unique"
	default:
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}
