package codegen_test

import (
	"context"
	goast "go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/inherit/pkg/ast"
	"github.com/chazu/inherit/pkg/codegen"
	classparser "github.com/chazu/inherit/pkg/parser"
	"github.com/chazu/inherit/pkg/registry"
	"github.com/chazu/inherit/pkg/transform"
)

// lowerDir parses the named class files of a testdata directory, parents
// first, and lowers them.
func lowerDir(t *testing.T, dir string, files []string, opts ...transform.Option) []*ast.Class {
	t.Helper()
	p := transform.New(registry.New(nil), opts...)
	var classes []*ast.Class
	for _, name := range files {
		class, err := classparser.ParseFile(filepath.Join("..", "..", "testdata", dir, name))
		if err != nil {
			t.Fatalf("ParseFile(%s) error = %v", name, err)
		}
		if err := p.Process(context.Background(), class); err != nil {
			t.Fatalf("Process(%s) error = %v", class.Name, err)
		}
		classes = append(classes, class)
	}
	return classes
}

func generate(t *testing.T, class *ast.Class) *codegen.Result {
	t.Helper()
	res, err := codegen.Generate(class)
	if err != nil {
		t.Fatalf("Generate(%s) error = %v", class.Name, err)
	}
	return res
}

// typeCheck parses the generated files as one package and runs the type
// checker over them.
func typeCheck(t *testing.T, results ...*codegen.Result) {
	t.Helper()
	fset := token.NewFileSet()
	var files []*goast.File
	for _, res := range results {
		f, err := parser.ParseFile(fset, res.Filename, res.Code, 0)
		if err != nil {
			t.Fatalf("generated %s does not parse: %v\n%s", res.Filename, err, res.Code)
		}
		files = append(files, f)
	}
	conf := types.Config{Importer: importer.ForCompiler(fset, "source", nil)}
	if _, err := conf.Check(results[0].Package, fset, files, nil); err != nil {
		for _, res := range results {
			t.Logf("%s:\n%s", res.Filename, res.Code)
		}
		t.Fatalf("generated package does not type-check: %v", err)
	}
}

func TestGeneratedPackagesTypeCheck(t *testing.T) {
	tests := []struct {
		dir   string
		files []string
	}{
		{"shapes", []string{"shape.class", "rectangle.class", "square.class"}},
		{"vehicles", []string{"vehicle.class", "land_vehicle.class", "car.class"}},
	}
	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			var results []*codegen.Result
			for _, class := range lowerDir(t, tt.dir, tt.files) {
				res := generate(t, class)
				if res.Package != tt.dir {
					t.Errorf("expected package %s, got %s", tt.dir, res.Package)
				}
				if !strings.HasPrefix(res.Code, "// "+codegen.Header) {
					t.Errorf("%s lacks the generated-code header", res.Filename)
				}
				results = append(results, res)
			}
			support, err := codegen.GenerateSupport(tt.dir)
			if err != nil {
				t.Fatalf("GenerateSupport() error = %v", err)
			}
			typeCheck(t, append(results, support)...)
		})
	}
}

func TestGeneratedShapes(t *testing.T) {
	classes := lowerDir(t, "shapes", []string{"shape.class", "rectangle.class", "square.class"})
	shape, rect, square := generate(t, classes[0]), generate(t, classes[1]), generate(t, classes[2])

	tests := []struct {
		name string
		res  *codegen.Result
		want []string
	}{
		{"shape", shape, []string{
			"Source: ../../testdata/shapes/shape.class",
			"type ShapeDispatch interface {",
			"var _ ShapeDispatch = (*Shape)(nil)",
			"var _ fmt.Stringer = (*Shape)(nil)",
			"func (this *Shape) Name() string {",
			"return fmt.Sprintf(\"%s of size %g\", this.label, this.self.CalSize())",
		}},
		{"rectangle", rect, []string{
			"import \"fmt\"",
			"\tShapeDispatch\n",
			"var _ RectangleDispatch = (*Rectangle)(nil)",
			"func (this *Rectangle) Describe() string {\n\treturn this.prototype.Describe()\n}",
			"func (this *Rectangle) String() string {\n\treturn this.prototype.String()\n}",
		}},
		{"square", square, []string{
			"func SquareWith(n float64) *Square {",
			"this.prototype.prototype.self = this",
			"this.prototype.SetWidth(n)",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, want := range tt.want {
				if !strings.Contains(tt.res.Code, want) {
					t.Errorf("expected %q in\n%s", want, tt.res.Code)
				}
			}
		})
	}

	if strings.Contains(shape.Code, "func (this *Shape) With") || strings.Contains(square.Code, "func (this *Square) With") {
		t.Error("static operation emitted as a method")
	}
	if rect.Filename != "rectangle_class.go" {
		t.Errorf("unexpected filename %s", rect.Filename)
	}
}

func TestGenerateReceiver(t *testing.T) {
	classes := lowerDir(t, "shapes", []string{"shape.class"}, transform.WithReceiver("s"))
	res := generate(t, classes[0])
	for _, want := range []string{"func (s *Shape) CalSize() float64", "s.self.CalSize()", "return s.label"} {
		if !strings.Contains(res.Code, want) {
			t.Errorf("expected %q in\n%s", want, res.Code)
		}
	}
}

func TestGenerateGeneric(t *testing.T) {
	src := "package box\n\nstruct Box[T any] {\n\tvalue: T,\n}\n\nimpl Box[T] {\n\tfunc Get() T {\n\t\treturn this.value\n\t}\n}\n"
	class, errs := classparser.ParseClass("box.class", []byte(src))
	if len(errs) > 0 {
		t.Fatalf("ParseClass() errors = %v", errs)
	}
	if err := transform.New(registry.New(nil)).Process(context.Background(), class); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	res := generate(t, class)

	if strings.Contains(res.Code, "var _ ") {
		t.Errorf("generic class should carry no assertions:\n%s", res.Code)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("expected one warning, got %v", res.Warnings)
	}
	for _, want := range []string{"type Box[T any] struct {", "func (this *Box[T]) Get() T {", "type BoxDispatch[T any] interface {"} {
		if !strings.Contains(res.Code, want) {
			t.Errorf("expected %q in\n%s", want, res.Code)
		}
	}

	support, err := codegen.GenerateSupport("box")
	if err != nil {
		t.Fatalf("GenerateSupport() error = %v", err)
	}
	typeCheck(t, res, support)
}

func TestGenerateInheritedImports(t *testing.T) {
	srcs := []string{
		"package text\n\nimport str \"strings\"\n\nstruct Doc {\n\tb: *str.Builder,\n}\n\nimpl Doc {\n\tfunc Build() *str.Builder {\n\t\treturn this.b\n\t}\n}\n",
		"package text\n\nextends Doc;\n\nstruct Page {\n\tn: int,\n}\n\nimpl Page {}\n",
	}
	p := transform.New(registry.New(nil))
	var results []*codegen.Result
	for i, src := range srcs {
		class, errs := classparser.ParseClass("text.class", []byte(src))
		if len(errs) > 0 {
			t.Fatalf("ParseClass(%d) errors = %v", i, errs)
		}
		if err := p.Process(context.Background(), class); err != nil {
			t.Fatalf("Process(%s) error = %v", class.Name, err)
		}
		results = append(results, generate(t, class))
	}

	page := results[1].Code
	for _, want := range []string{
		"str \"strings\"",
		"func (this *Page) Build() *str.Builder {",
		"func NewPage(b *str.Builder, n int) *Page {",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("expected %q in\n%s", want, page)
		}
	}

	support, err := codegen.GenerateSupport("text")
	if err != nil {
		t.Fatalf("GenerateSupport() error = %v", err)
	}
	typeCheck(t, append(results, support)...)
}

func TestGenerateRequiresLowering(t *testing.T) {
	class, errs := classparser.ParseClass("s.class", []byte("struct S {}\nimpl S {}\n"))
	if len(errs) > 0 {
		t.Fatalf("ParseClass() errors = %v", errs)
	}
	if _, err := codegen.Generate(class); err == nil {
		t.Error("expected an error for a class that was not lowered")
	}
}

func TestGenerateSupport(t *testing.T) {
	tests := []struct {
		pkg  string
		want string
	}{
		{"shapes", "package shapes"},
		{"", "package " + codegen.DefaultPackage},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			res, err := codegen.GenerateSupport(tt.pkg)
			if err != nil {
				t.Fatalf("GenerateSupport() error = %v", err)
			}
			if res.Filename != codegen.SupportFilename {
				t.Errorf("unexpected filename %s", res.Filename)
			}
			for _, want := range []string{tt.want, "type noCopy struct{}", "func (*noCopy) Lock()", "func asMut[T any](h *T) *T {"} {
				if !strings.Contains(res.Code, want) {
					t.Errorf("expected %q in\n%s", want, res.Code)
				}
			}
		})
	}
}
