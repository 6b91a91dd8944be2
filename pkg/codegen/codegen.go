// Package codegen generates Go code from lowered class descriptors.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"go/parser"
	"go/token"
	"strings"

	"github.com/dave/jennifer/jen"
	"golang.org/x/tools/go/ast/astutil"
	"golang.org/x/tools/imports"

	"github.com/chazu/inherit/pkg/ast"
	"github.com/chazu/inherit/pkg/transform"
)

// Header is the first line of every generated file.
const Header = "Code generated by inherit. DO NOT EDIT."

// SupportFilename is the name of the per-package companion file.
const SupportFilename = "inherit_support.go"

// DefaultPackage is used for classes without a package clause.
const DefaultPackage = "main"

// Result contains the generated code and any warnings.
type Result struct {
	Filename string
	Package  string
	Code     string
	Warnings []string
}

// Filename returns the output file name for a class.
func Filename(class string) string {
	return strings.ToLower(class) + "_class.go"
}

// Generate produces the Go source of a lowered class. The class must have
// passed through the transformation pipeline.
func Generate(class *ast.Class) (*Result, error) {
	if class.State < ast.StateConstructorSynthesized {
		return nil, fmt.Errorf("class %s: cannot generate code in state %s", class.Name, class.State)
	}
	g := &generator{
		class: class,
		recv:  class.Receiver,
		pkg:   class.Package,
	}
	if g.recv == "" {
		g.recv = transform.DefaultReceiver
	}
	if g.pkg == "" {
		g.pkg = DefaultPackage
	}
	return g.generate()
}

type generator struct {
	class    *ast.Class
	recv     string
	pkg      string
	warnings []string
}

func (g *generator) generate() (*Result, error) {
	c := g.class
	f := jen.NewFile(g.pkg)
	f.HeaderComment(Header)
	if c.Location.File != "" {
		f.HeaderComment("Source: " + c.Location.File)
	}

	g.generateInterface(f)
	f.Line()
	g.generateStruct(f)
	f.Line()
	f.Add(verbatim(c.Constructor.Source()))
	f.Line()

	// Primary block: native operations as methods, static operations as
	// package-level functions.
	for _, op := range c.Primary.Operations {
		if op.Static {
			f.Add(g.staticFunc(op))
		} else {
			f.Add(g.method(op))
		}
		f.Line()
	}

	for _, level := range c.Levels {
		g.generateGroup(f, level.Interface, level.Operations)
	}
	for _, name := range c.CapabilityNames() {
		block := c.Capabilities[name]
		g.generateGroup(f, block.Name, block.Operations)
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("class %s: rendering: %w", c.Name, err)
	}
	filename := Filename(c.Name)
	code, err := fixImports(filename, buf.Bytes(), c.Imports)
	if err != nil {
		return nil, fmt.Errorf("class %s: %w", c.Name, err)
	}
	return &Result{
		Filename: filename,
		Package:  g.pkg,
		Code:     string(code),
		Warnings: g.warnings,
	}, nil
}

func (g *generator) generateInterface(f *jen.File) {
	d := g.class.Dispatch
	var items []jen.Code
	if d.Extends != "" {
		items = append(items, jen.Id(d.Extends))
	}
	for _, op := range d.Operations {
		items = append(items, jen.Id(op.Name).Add(verbatim(signatureTail(op))))
	}
	f.Commentf("%s is the dispatch interface of %s.", d.Name, g.class.Name)
	f.Type().Id(d.Name + g.class.TypeParams).Interface(items...)
}

func (g *generator) generateStruct(f *jen.File) {
	var fields []jen.Code
	for _, field := range g.class.Layout.Fields {
		fields = append(fields, jen.Id(field.Name).Id(field.Type))
	}
	f.Type().Id(g.class.Name + g.class.TypeParams).Struct(fields...)
}

// generateGroup emits the methods implementing one interface, preceded by
// a compile-time assertion that the class satisfies it.
func (g *generator) generateGroup(f *jen.File, iface string, ops []*ast.Operation) {
	if g.class.IsGeneric() {
		g.warnings = append(g.warnings, fmt.Sprintf("no assertion for %s on generic class %s", iface, g.class.Name))
	} else {
		f.Var().Id("_").Id(iface).Op("=").Parens(jen.Op("*").Id(g.class.Name)).Call(jen.Nil())
		f.Line()
	}
	for _, op := range ops {
		if op.Shadowed {
			continue
		}
		f.Add(g.method(op))
		f.Line()
	}
}

func (g *generator) method(op *ast.Operation) *jen.Statement {
	return jen.Func().
		Params(jen.Id(g.recv).Op("*").Id(g.class.TypeExpr())).
		Id(op.Name).
		Add(verbatim(signatureTail(op))).
		Add(verbatim(op.BodySource()))
}

func (g *generator) staticFunc(op *ast.Operation) *jen.Statement {
	return jen.Func().
		Id(transform.StaticName(g.class, op)).
		Add(verbatim(g.class.TypeParams + signatureTail(op))).
		Add(verbatim(op.BodySource()))
}

// verbatim inserts Go source printed by go/printer. Operation signatures,
// bodies and the synthesized constructor are parsed declarations with no
// jennifer form, so they are carried as text and reformatted by
// fixImports.
func verbatim(src string) *jen.Statement {
	return jen.Op(src)
}

// signatureTail returns the parameter and result part of an operation's
// signature: "(n int) error" for "func Op(n int) error".
func signatureTail(op *ast.Operation) string {
	return strings.TrimPrefix(op.SignatureSource(), "func "+op.Name)
}

// fixImports adds the class file's imports, then lets goimports drop the
// unused ones and add missing standard library imports.
func fixImports(filename string, src []byte, imps []ast.Import) ([]byte, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parsing generated code: %w", err)
	}
	for _, imp := range imps {
		astutil.AddNamedImport(fset, file, imp.Name, imp.Path)
	}
	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		return nil, fmt.Errorf("formatting generated code: %w", err)
	}
	out, err := imports.Process(filename, buf.Bytes(), &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return nil, fmt.Errorf("fixing imports: %w", err)
	}
	return out, nil
}
