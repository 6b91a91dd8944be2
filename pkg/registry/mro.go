package registry

import (
	"context"
	"strings"

	"github.com/chazu/inherit/pkg/ast"
)

// GetParent looks up the parent of class. A missing entry is an
// ErrUnresolvedParent naming both classes.
func (r *Registry) GetParent(ctx context.Context, class *ast.Class) (*ast.Class, error) {
	if class.Parent == nil {
		return nil, nil
	}
	if class.Parent.Name == class.Name {
		ce := ast.NewClassError(ast.ErrInheritanceCycle, class, "class extends itself")
		ce.Parent = class.Parent.Name
		return nil, ce
	}
	parent, ok, err := r.Lookup(ctx, class.Parent.Name)
	if err != nil {
		return nil, err
	}
	if !ok {
		ce := ast.NewClassError(ast.ErrUnresolvedParent, class,
			"parent %s must be registered before %s", class.Parent.Name, class.Name)
		ce.Parent = class.Parent.Name
		return nil, ce
	}
	return parent, nil
}

// AncestorChain returns the ancestors of class, nearest first, ending at
// the first class without a parent. A root class has an empty chain.
// A parent reference that leads back into the chain is an
// ErrInheritanceCycle.
func (r *Registry) AncestorChain(ctx context.Context, class *ast.Class) ([]*ast.Class, error) {
	seen := map[string]bool{class.Name: true}
	path := []string{class.Name}

	var chain []*ast.Class
	current := class
	for current.Parent != nil {
		if seen[current.Parent.Name] {
			ce := ast.NewClassError(ast.ErrInheritanceCycle, class,
				"%s -> %s", strings.Join(path, " -> "), current.Parent.Name)
			ce.Parent = current.Parent.Name
			return nil, ce
		}
		parent, err := r.GetParent(ctx, current)
		if err != nil {
			return nil, err
		}
		seen[parent.Name] = true
		path = append(path, parent.Name)
		chain = append(chain, parent)
		current = parent
	}
	return chain, nil
}
