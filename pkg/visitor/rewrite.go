package visitor

import (
	"fmt"
	goast "go/ast"
	"sort"

	"github.com/chazu/inherit/pkg/ast"
)

// Symbolic names usable inside operation bodies.
const (
	This     = "this"
	Self     = "self"
	SelfMut  = "self_mut"
	Super    = "super"
	SuperMut = "super_mut"
)

// Symbols lists every symbolic name.
var Symbols = []string{This, Self, SelfMut, Super, SuperMut}

// Rewriter replaces symbolic names with receiver expressions:
//
//	this              -> <receiver>
//	self, self_mut    -> <receiver>.self
//	super, super_mut  -> <receiver>.prototype
//
// Go has no read-only dereference, so the _mut spellings lower to the
// same selector as their plain forms.
type Rewriter struct {
	// Receiver is the method receiver name. Empty for static operations,
	// where any symbolic name is an error.
	Receiver string
	// HasParent allows super and super_mut.
	HasParent bool

	problems map[string]bool
}

// VisitExpr implements Visitor.
func (r *Rewriter) VisitExpr(expr goast.Expr) goast.Expr {
	id, ok := expr.(*goast.Ident)
	if !ok {
		return nil
	}
	switch id.Name {
	case This:
		return r.receiver(id)
	case Self, SelfMut:
		return r.field(id, ast.SelfField)
	case Super, SuperMut:
		if !r.HasParent {
			r.problem(id.Name + " used in a class without a parent")
			return nil
		}
		return r.field(id, ast.PrototypeField)
	}
	return nil
}

func (r *Rewriter) receiver(id *goast.Ident) goast.Expr {
	if r.Receiver == "" {
		r.problem(id.Name + " used in a static operation")
		return nil
	}
	return &goast.Ident{NamePos: id.NamePos, Name: r.Receiver}
}

func (r *Rewriter) field(id *goast.Ident, name string) goast.Expr {
	recv := r.receiver(id)
	if recv == nil {
		return nil
	}
	return &goast.SelectorExpr{X: recv, Sel: goast.NewIdent(name)}
}

func (r *Rewriter) problem(msg string) {
	if r.problems == nil {
		r.problems = map[string]bool{}
	}
	r.problems[msg] = true
}

// Problems returns the invalid symbolic references seen by the last
// rewrite, sorted.
func (r *Rewriter) Problems() []string {
	out := make([]string, 0, len(r.problems))
	for p := range r.problems {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// RewriteOperation rewrites the body of op in place.
func (r *Rewriter) RewriteOperation(op *ast.Operation) error {
	if op.Func.Body == nil {
		return nil
	}
	r.problems = nil
	Walk(r, op.Func.Body)
	if len(r.problems) > 0 {
		return fmt.Errorf("operation %s: %v", op.Name, r.Problems())
	}
	return nil
}

// Count reports how often each of names is referenced as a bare
// identifier under node.
func Count(node goast.Node, names ...string) map[string]int {
	want := map[string]bool{}
	for _, n := range names {
		want[n] = true
	}
	counts := map[string]int{}
	Walk(VisitorFunc(func(e goast.Expr) goast.Expr {
		if id, ok := e.(*goast.Ident); ok && want[id.Name] {
			counts[id.Name]++
		}
		return nil
	}), node)
	return counts
}
