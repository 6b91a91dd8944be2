package transform

import (
	"bytes"
	"fmt"
	goast "go/ast"

	"github.com/dave/jennifer/jen"

	"github.com/chazu/inherit/pkg/ast"
)

// Forwarder synthesizes an operation with the signature of op whose body
// delegates to the embedded parent instance:
//
//	func Op(a int, rest ...string) (int, error) {
//		return recv.prototype.Op(a, rest...)
//	}
//
// Unnamed and blank parameters get generated names.
func Forwarder(op *ast.Operation, recv string) *ast.Operation {
	params, args := forwardParams(op)

	call := jen.Id(recv).Dot(ast.PrototypeField).Dot(op.Name).Call(args...)
	var body jen.Code = call
	if op.Func.Type.Results != nil && len(op.Func.Type.Results.List) > 0 {
		body = jen.Return(call)
	}

	fn := jen.Func().Id(op.Name).Params(params...)
	if results := fieldList(op, op.Func.Type.Results); len(results) > 0 {
		fn = fn.Params(results...)
	}
	fn = fn.Block(body)

	fwd := ast.MustParseOperation(render(fn))
	fwd.Forward = true
	return fwd
}

// forwardParams returns the parameter declarations of op and the matching
// call arguments.
func forwardParams(op *ast.Operation) (params, args []jen.Code) {
	if op.Func.Type.Params == nil {
		return nil, nil
	}
	n := 0
	for _, field := range op.Func.Type.Params.List {
		typ := op.TypeSource(field.Type)
		_, variadic := field.Type.(*goast.Ellipsis)

		names := field.Names
		if len(names) == 0 {
			names = []*goast.Ident{nil}
		}
		for _, id := range names {
			name := fmt.Sprintf("p%d", n)
			if id != nil && id.Name != "_" {
				name = id.Name
			}
			n++
			params = append(params, jen.Id(name).Id(typ))
			if variadic {
				args = append(args, jen.Id(name).Op("..."))
			} else {
				args = append(args, jen.Id(name))
			}
		}
	}
	return params, args
}

// fieldList renders a parameter or result list with its names, if any.
func fieldList(op *ast.Operation, fl *goast.FieldList) []jen.Code {
	if fl == nil {
		return nil
	}
	var out []jen.Code
	for _, field := range fl.List {
		typ := op.TypeSource(field.Type)
		if len(field.Names) == 0 {
			out = append(out, jen.Id(typ))
			continue
		}
		for _, id := range field.Names {
			out = append(out, jen.Id(id.Name).Id(typ))
		}
	}
	return out
}

// render formats a single synthesized declaration.
func render(code *jen.Statement) string {
	var buf bytes.Buffer
	if err := code.Render(&buf); err != nil {
		panic(fmt.Sprintf("rendering synthesized code: %v", err))
	}
	return buf.String()
}
