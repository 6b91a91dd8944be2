package transform

import (
	"go/token"
	"unicode"

	"github.com/dave/jennifer/jen"

	"github.com/chazu/inherit/pkg/ast"
)

// ConstructorName returns the name of a class's constructor.
func ConstructorName(class string) string {
	return "New" + class
}

type ctorParam struct {
	name string
	typ  string
}

// synthesizeConstructor builds
//
//	func NewC(<parent params>, <own fields>) *C {
//		prototype := NewP(<parent params>)
//		this := &C{prototype: prototype, <own fields>}
//		this.self = this
//		this.prototype.self = this
//		...
//		return this
//	}
//
// with one self assignment per depth of the ancestor chain.
func synthesizeConstructor(class, parent *ast.Class, depth int) *ast.Operation {
	own := map[string]bool{}
	var ownParams []ctorParam
	for _, f := range class.Layout.Fields {
		if f.Synthetic {
			continue
		}
		own[f.Name] = true
		ownParams = append(ownParams, ctorParam{name: f.Name, typ: f.Type})
	}

	var parentParams []ctorParam
	if parent != nil && parent.Constructor != nil {
		parentParams = inheritedParams(parent.Constructor, own)
	}

	var params []jen.Code
	for _, p := range append(append([]ctorParam{}, parentParams...), ownParams...) {
		params = append(params, jen.Id(p.name).Id(p.typ))
	}

	const this = "this"
	var body []jen.Code
	var lit []jen.Code
	if parent != nil {
		var args []jen.Code
		for _, p := range parentParams {
			args = append(args, jen.Id(p.name))
		}
		callee := parent.Name
		if parent.Constructor != nil {
			callee = parent.Constructor.Name
		}
		body = append(body, jen.Id(ast.PrototypeField).Op(":=").Id(callee+class.Parent.TypeArgs).Call(args...))
		lit = append(lit, jen.Id(ast.PrototypeField).Op(":").Id(ast.PrototypeField))
	}
	for _, p := range ownParams {
		lit = append(lit, jen.Id(p.name).Op(":").Id(p.name))
	}
	body = append(body, jen.Id(this).Op(":=").Op("&").Id(class.TypeExpr()).Values(lit...))

	for d := 0; d <= depth; d++ {
		target := jen.Id(this)
		for i := 0; i < d; i++ {
			target = target.Dot(ast.PrototypeField)
		}
		body = append(body, target.Dot(ast.SelfField).Op("=").Id(this))
	}
	body = append(body, jen.Return(jen.Id(this)))

	fn := jen.Func().Id(ConstructorName(class.Name) + class.TypeParams).
		Params(params...).
		Op("*").Id(class.TypeExpr()).
		Block(body...)
	return ast.MustParseOperation(render(fn))
}

// inheritedParams lists the parent constructor's parameters, renaming
// any that collide with one of the class's own fields.
func inheritedParams(ctor *ast.Operation, own map[string]bool) []ctorParam {
	var out []ctorParam
	taken := map[string]bool{}
	for name := range own {
		taken[name] = true
	}
	for _, field := range ctor.Func.Type.Params.List {
		typ := ctor.TypeSource(field.Type)
		for _, id := range field.Names {
			name := id.Name
			for taken[name] {
				name = "parent" + upperFirst(name)
			}
			taken[name] = true
			out = append(out, ctorParam{name: name, typ: typ})
		}
	}
	return out
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// StaticName returns the package-level function name of a static
// operation: the class name followed by the operation name.
func StaticName(class *ast.Class, op *ast.Operation) string {
	name := class.Name + upperFirst(op.Name)
	if !token.IsExported(op.Name) {
		r := []rune(name)
		r[0] = unicode.ToLower(r[0])
		name = string(r)
	}
	return name
}
