package transform

import (
	"sort"
	"strings"

	"github.com/chazu/inherit/pkg/ast"
)

// resolveMethodSet makes every method name unique on the class type.
// An explicit operation shadows forwarders of the same Go type; duplicate
// forwarders collapse to the first. Anything else is a conflict.
func resolveMethodSet(class *ast.Class) error {
	byName := map[string][]*ast.Operation{}
	var order []string
	for _, op := range class.Methods() {
		if _, seen := byName[op.Name]; !seen {
			order = append(order, op.Name)
		}
		byName[op.Name] = append(byName[op.Name], op)
	}

	reserved := map[string]bool{ast.SelfField: true, ast.PrototypeField: true}
	for _, f := range class.Layout.Fields {
		reserved[f.Name] = true
	}

	for _, name := range order {
		ops := byName[name]
		if reserved[name] {
			return ast.NewClassError(ast.ErrConflictingOperation, class,
				"method %s has the same name as a field", name)
		}

		var winner *ast.Operation
		var explicit []string
		for _, op := range ops {
			if !op.Forward {
				explicit = append(explicit, op.SignatureSource())
				if winner == nil || winner.Forward {
					winner = op
				}
			} else if winner == nil {
				winner = op
			}
		}
		if len(explicit) > 1 {
			sort.Strings(explicit)
			return ast.NewClassError(ast.ErrConflictingOperation, class,
				"%s is declared more than once: %s", name, strings.Join(explicit, "; "))
		}

		for _, op := range ops {
			if op == winner {
				op.Shadowed = false
				continue
			}
			if op.TypeKey() != winner.TypeKey() {
				return ast.NewClassError(ast.ErrConflictingOperation, class,
					"%s does not match inherited %s", winner.SignatureSource(), op.SignatureSource())
			}
			op.Shadowed = true
		}
	}
	return nil
}
