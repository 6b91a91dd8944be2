package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	goast "go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"strings"
	"unicode"
)

// Operation is one method of a class: a Go function declaration without a
// receiver. The receiver is attached when the class is emitted.
type Operation struct {
	Name     string
	Native   bool // kept in the primary block, excluded from dispatch
	Static   bool // emitted as a package-level function
	Forward  bool // synthesized delegation to the prototype
	Shadowed bool // satisfied by another method of the same name

	Func *goast.FuncDecl

	fset     *token.FileSet
	comments []*goast.CommentGroup
}

// operationJSON is the serialized form. Source is Go text and is parsed
// back into a FuncDecl on decode.
type operationJSON struct {
	Name     string `json:"name"`
	Native   bool   `json:"native,omitempty"`
	Static   bool   `json:"static,omitempty"`
	Forward  bool   `json:"forward,omitempty"`
	Shadowed bool   `json:"shadowed,omitempty"`
	Source   string `json:"source"`
}

// ParseOperation parses a single receiver-less function declaration.
// A declaration without a body yields a signature-only operation.
// filename, line and col place diagnostics at the original declaration.
func ParseOperation(filename, src string, line, col int) (*Operation, error) {
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	// Pad so positions reported by go/parser match the class file.
	var b strings.Builder
	b.WriteString("package p;")
	b.WriteString(strings.Repeat("\n", line-1))
	b.WriteString(strings.Repeat(" ", col-1))
	b.WriteString(src)

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, b.String(), parser.ParseComments)
	if err != nil {
		return nil, err
	}
	if len(file.Decls) != 1 {
		return nil, fmt.Errorf("%s:%d:%d: expected exactly one function declaration", filename, line, col)
	}
	fn, ok := file.Decls[0].(*goast.FuncDecl)
	if !ok {
		return nil, fmt.Errorf("%s:%d:%d: expected a function declaration", filename, line, col)
	}
	if fn.Recv != nil {
		return nil, fmt.Errorf("%s:%d:%d: operation %s must not declare a receiver", filename, line, col, fn.Name.Name)
	}
	return &Operation{
		Name:     fn.Name.Name,
		Func:     fn,
		fset:     fset,
		comments: file.Comments,
	}, nil
}

// MustParseOperation is like ParseOperation but panics on error. It is
// meant for synthesized source that is known to be valid.
func MustParseOperation(src string) *Operation {
	op, err := ParseOperation("", src, 1, 1)
	if err != nil {
		panic(fmt.Sprintf("synthesized operation does not parse: %v\n%s", err, src))
	}
	return op
}

// FileSet returns the file set the operation's positions belong to.
func (o *Operation) FileSet() *token.FileSet {
	if o.fset == nil {
		o.fset = token.NewFileSet()
	}
	return o.fset
}

// Source prints the operation as Go source, comments included.
func (o *Operation) Source() string {
	return o.print(&printer.CommentedNode{Node: o.Func, Comments: o.comments})
}

// SignatureSource prints "func Name(params) results" without the body.
func (o *Operation) SignatureSource() string {
	return o.print(&goast.FuncDecl{Name: o.Func.Name, Type: o.Func.Type})
}

// BodySource prints the body block, braces included. It returns "" for a
// signature-only operation.
func (o *Operation) BodySource() string {
	if o.Func.Body == nil {
		return ""
	}
	return o.print(&printer.CommentedNode{Node: o.Func.Body, Comments: o.comments})
}

// TypeSource prints a type expression that belongs to this operation.
func (o *Operation) TypeSource(expr goast.Expr) string {
	return o.print(expr)
}

// SignatureKey is the whitespace-free signature text used to match an
// override against the operation it replaces.
func (o *Operation) SignatureKey() string {
	return NormalizeSignature(o.SignatureSource())
}

// TypeKey is like SignatureKey but ignores parameter and result names, so
// it identifies the Go method type.
func (o *Operation) TypeKey() string {
	ft := &goast.FuncType{
		Params:  unnamed(o.Func.Type.Params),
		Results: unnamed(o.Func.Type.Results),
	}
	return NormalizeSignature(o.Name + o.print(ft))
}

// SignatureOnly returns a copy of the operation without a body, as listed
// in a dispatch interface.
func (o *Operation) SignatureOnly() *Operation {
	return &Operation{
		Name: o.Name,
		Func: &goast.FuncDecl{Name: o.Func.Name, Type: o.Func.Type},
		fset: o.fset,
	}
}

// Clone returns an independent copy of the operation.
func (o *Operation) Clone() *Operation {
	op, err := ParseOperation("", o.Source(), 1, 1)
	if err != nil {
		panic(fmt.Sprintf("printed operation does not re-parse: %v", err))
	}
	op.Native, op.Static, op.Forward, op.Shadowed = o.Native, o.Static, o.Forward, o.Shadowed
	return op
}

func (o *Operation) print(node any) string {
	var buf bytes.Buffer
	cfg := printer.Config{Mode: printer.UseSpaces | printer.TabIndent, Tabwidth: 8}
	if err := cfg.Fprint(&buf, o.FileSet(), node); err != nil {
		return fmt.Sprintf("/* unprintable: %v */", err)
	}
	return buf.String()
}

// MarshalJSON implements json.Marshaler.
func (o *Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal(operationJSON{
		Name:     o.Name,
		Native:   o.Native,
		Static:   o.Static,
		Forward:  o.Forward,
		Shadowed: o.Shadowed,
		Source:   o.Source(),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Operation) UnmarshalJSON(data []byte) error {
	var raw operationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseOperation("", raw.Source, 1, 1)
	if err != nil {
		return fmt.Errorf("operation %s: %w", raw.Name, err)
	}
	*o = *parsed
	o.Native, o.Static, o.Forward, o.Shadowed = raw.Native, raw.Static, raw.Forward, raw.Shadowed
	return nil
}

// NormalizeSignature removes all whitespace from a signature string.
func NormalizeSignature(sig string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, sig)
}

func unnamed(fl *goast.FieldList) *goast.FieldList {
	if fl == nil {
		return nil
	}
	out := &goast.FieldList{}
	for _, f := range fl.List {
		n := len(f.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			out.List = append(out.List, &goast.Field{Type: f.Type})
		}
	}
	return out
}

// typeParamNames extracts the names from a type parameter list such as
// "[K comparable, V any]".
func typeParamNames(params string) []string {
	if params == "" {
		return nil
	}
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", "package p\ntype _"+params+" struct{}", 0)
	if err != nil || len(file.Decls) == 0 {
		return nil
	}
	gen, ok := file.Decls[0].(*goast.GenDecl)
	if !ok || len(gen.Specs) == 0 {
		return nil
	}
	spec := gen.Specs[0].(*goast.TypeSpec)
	if spec.TypeParams == nil {
		return nil
	}
	var names []string
	for _, f := range spec.TypeParams.List {
		for _, n := range f.Names {
			names = append(names, n.Name)
		}
	}
	return names
}
