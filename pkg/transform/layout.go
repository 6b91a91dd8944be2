package transform

import (
	"github.com/chazu/inherit/pkg/ast"
)

// augmentLayout adds the prototype slot for a derived class, then the
// self-referential dispatch pointer and the immovability marker.
func augmentLayout(class *ast.Class) {
	fields := make([]ast.Field, 0, len(class.Layout.Fields)+3)
	if class.Parent != nil {
		fields = append(fields, ast.Field{
			Name:      ast.PrototypeField,
			Type:      "*" + class.Parent.Type(),
			Synthetic: true,
		})
	}
	fields = append(fields, class.Layout.Fields...)
	fields = append(fields,
		ast.Field{Name: ast.SelfField, Type: dispatchType(class), Synthetic: true},
		ast.Field{Name: ast.PinField, Type: ast.PinType, Synthetic: true},
	)
	class.Layout.Fields = fields
}
