// Package visitor walks and rewrites Go statement and expression trees.
//
// Walk covers every statement and expression kind of go/ast explicitly.
// Declaring positions (names bound by :=, selector field names, struct
// literal keys, labels) are never offered to the visitor, and type
// expressions are left alone. A node kind the switch does not know is
// still descended into through astutil.Apply, so nothing is dropped.
package visitor

import (
	goast "go/ast"
	"go/token"

	"golang.org/x/tools/go/ast/astutil"
)

// Visitor rewrites expressions. VisitExpr is called before the children
// of an expression are visited. A non-nil result replaces the expression
// and its children are not visited.
type Visitor interface {
	VisitExpr(expr goast.Expr) goast.Expr
}

// VisitorFunc adapts a function to the Visitor interface.
type VisitorFunc func(goast.Expr) goast.Expr

// VisitExpr calls f(expr).
func (f VisitorFunc) VisitExpr(expr goast.Expr) goast.Expr {
	return f(expr)
}

// Walk visits node in place and returns it, or its replacement when node
// is itself a replaced expression.
func Walk(v Visitor, node goast.Node) goast.Node {
	w := &walker{v: v}
	switch n := node.(type) {
	case nil:
		return nil
	case goast.Expr:
		return w.expr(n)
	case goast.Stmt:
		w.stmt(n)
	case *goast.FuncDecl:
		w.block(n.Body)
	case goast.Decl:
		w.decl(n)
	default:
		w.apply(n)
	}
	return node
}

type walker struct {
	v Visitor
}

func (w *walker) exprs(list []goast.Expr) {
	for i, e := range list {
		list[i] = w.expr(e)
	}
}

func (w *walker) expr(e goast.Expr) goast.Expr {
	if e == nil {
		return nil
	}
	if r := w.v.VisitExpr(e); r != nil {
		return r
	}

	switch e := e.(type) {
	case *goast.BadExpr, *goast.Ident, *goast.BasicLit, *goast.Ellipsis:
		// leaves
	case *goast.FuncLit:
		w.block(e.Body)
	case *goast.CompositeLit:
		w.elements(e.Type, e.Elts)
	case *goast.ParenExpr:
		e.X = w.expr(e.X)
	case *goast.SelectorExpr:
		e.X = w.expr(e.X)
	case *goast.IndexExpr:
		e.X = w.expr(e.X)
		e.Index = w.expr(e.Index)
	case *goast.IndexListExpr:
		e.X = w.expr(e.X)
		w.exprs(e.Indices)
	case *goast.SliceExpr:
		e.X = w.expr(e.X)
		e.Low = w.expr(e.Low)
		e.High = w.expr(e.High)
		e.Max = w.expr(e.Max)
	case *goast.TypeAssertExpr:
		e.X = w.expr(e.X)
	case *goast.CallExpr:
		e.Fun = w.expr(e.Fun)
		w.exprs(e.Args)
	case *goast.StarExpr:
		e.X = w.expr(e.X)
	case *goast.UnaryExpr:
		e.X = w.expr(e.X)
	case *goast.BinaryExpr:
		e.X = w.expr(e.X)
		e.Y = w.expr(e.Y)
	case *goast.KeyValueExpr:
		e.Key = w.expr(e.Key)
		e.Value = w.expr(e.Value)
	case *goast.ArrayType, *goast.StructType, *goast.FuncType,
		*goast.InterfaceType, *goast.MapType, *goast.ChanType:
		// type expressions
	default:
		w.apply(e)
	}
	return e
}

// elements visits the elements of a composite literal of type typ. Keys
// of map and array literals are expressions. A bare identifier key of any
// other literal may name a struct field and is kept.
func (w *walker) elements(typ goast.Expr, elts []goast.Expr) {
	keyed, keyType, elemType := literalTypes(typ)
	for i, elt := range elts {
		kv, ok := elt.(*goast.KeyValueExpr)
		if !ok {
			elts[i] = w.elided(elt, elemType)
			continue
		}
		if _, isIdent := kv.Key.(*goast.Ident); keyed || !isIdent {
			kv.Key = w.elided(kv.Key, keyType)
		}
		kv.Value = w.elided(kv.Value, elemType)
	}
}

// elided visits e. A nested literal with its type elided takes typ.
func (w *walker) elided(e, typ goast.Expr) goast.Expr {
	if lit, ok := e.(*goast.CompositeLit); ok && lit.Type == nil {
		w.elements(typ, lit.Elts)
		return lit
	}
	return w.expr(e)
}

// literalTypes reports whether a literal of type typ has expression keys,
// and the key and element types its elided literals take.
func literalTypes(typ goast.Expr) (keyed bool, key, elem goast.Expr) {
	if star, ok := typ.(*goast.StarExpr); ok {
		typ = star.X
	}
	switch t := typ.(type) {
	case *goast.MapType:
		return true, t.Key, t.Value
	case *goast.ArrayType:
		return true, nil, t.Elt
	}
	return false, nil, nil
}

func (w *walker) block(b *goast.BlockStmt) {
	if b == nil {
		return
	}
	for _, s := range b.List {
		w.stmt(s)
	}
}

func (w *walker) stmt(s goast.Stmt) {
	switch s := s.(type) {
	case nil, *goast.BadStmt, *goast.EmptyStmt, *goast.BranchStmt:
		// leaves
	case *goast.DeclStmt:
		w.decl(s.Decl)
	case *goast.LabeledStmt:
		w.stmt(s.Stmt)
	case *goast.ExprStmt:
		s.X = w.expr(s.X)
	case *goast.SendStmt:
		s.Chan = w.expr(s.Chan)
		s.Value = w.expr(s.Value)
	case *goast.IncDecStmt:
		s.X = w.expr(s.X)
	case *goast.AssignStmt:
		if s.Tok != token.DEFINE {
			w.exprs(s.Lhs)
		}
		w.exprs(s.Rhs)
	case *goast.GoStmt:
		w.call(s.Call)
	case *goast.DeferStmt:
		w.call(s.Call)
	case *goast.ReturnStmt:
		w.exprs(s.Results)
	case *goast.BlockStmt:
		w.block(s)
	case *goast.IfStmt:
		w.stmt(s.Init)
		s.Cond = w.expr(s.Cond)
		w.block(s.Body)
		w.stmt(s.Else)
	case *goast.CaseClause:
		w.exprs(s.List)
		for _, b := range s.Body {
			w.stmt(b)
		}
	case *goast.SwitchStmt:
		w.stmt(s.Init)
		s.Tag = w.expr(s.Tag)
		w.block(s.Body)
	case *goast.TypeSwitchStmt:
		w.stmt(s.Init)
		w.stmt(s.Assign)
		// case lists of a type switch hold types
		for _, c := range s.Body.List {
			for _, b := range c.(*goast.CaseClause).Body {
				w.stmt(b)
			}
		}
	case *goast.CommClause:
		w.stmt(s.Comm)
		for _, b := range s.Body {
			w.stmt(b)
		}
	case *goast.SelectStmt:
		w.block(s.Body)
	case *goast.ForStmt:
		w.stmt(s.Init)
		s.Cond = w.expr(s.Cond)
		w.stmt(s.Post)
		w.block(s.Body)
	case *goast.RangeStmt:
		if s.Tok != token.DEFINE {
			s.Key = w.expr(s.Key)
			s.Value = w.expr(s.Value)
		}
		s.X = w.expr(s.X)
		w.block(s.Body)
	default:
		w.apply(s)
	}
}

// call visits a go/defer call. The call itself is never replaced.
func (w *walker) call(c *goast.CallExpr) {
	c.Fun = w.expr(c.Fun)
	w.exprs(c.Args)
}

func (w *walker) decl(d goast.Decl) {
	gen, ok := d.(*goast.GenDecl)
	if !ok {
		w.apply(d)
		return
	}
	for _, spec := range gen.Specs {
		if vs, ok := spec.(*goast.ValueSpec); ok {
			w.exprs(vs.Values)
		}
	}
}

// apply descends into a node kind the walker has no case for.
func (w *walker) apply(n goast.Node) {
	astutil.Apply(n, func(c *astutil.Cursor) bool {
		e, ok := c.Node().(goast.Expr)
		if !ok || c.Node() == n {
			return true
		}
		if r := w.v.VisitExpr(e); r != nil {
			c.Replace(r)
			return false
		}
		return true
	}, nil)
}
