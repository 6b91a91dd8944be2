package visitor

import (
	goast "go/ast"
	"strings"
	"testing"

	"github.com/chazu/inherit/pkg/ast"
)

func rewriteBody(t *testing.T, r *Rewriter, body string) (string, error) {
	t.Helper()
	op, err := ast.ParseOperation("test.class", "func Op() {\n"+body+"\n}", 1, 1)
	if err != nil {
		t.Fatalf("ParseOperation() error = %v", err)
	}
	err = r.RewriteOperation(op)
	return ast.NormalizeSignature(op.BodySource()), err
}

func TestRewriteSymbols(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"this", "_ = this.width", "_=this.width"},
		{"self call", "self.Area()", "this.self.Area()"},
		{"self_mut call", "self_mut.Grow(2)", "this.self.Grow(2)"},
		{"super call", "return super.Area()", "returnthis.prototype.Area()"},
		{"super_mut call", "super_mut.SetWidth(n)", "this.prototype.SetWidth(n)"},
		{"binary", "x := self.Area() * super.Area()", "x:=this.self.Area()*this.prototype.Area()"},
		{"call argument", "use(this, self)", "use(this,this.self)"},
		{"closure", "f := func() int { return self.Area() }", "f:=func()int{returnthis.self.Area()}"},
		{"if and for", "if self.Ok() { for i := 0; i < super.N(); i++ {} }", "ifthis.self.Ok(){fori:=0;i<this.prototype.N();i++{}}"},
		{"range", "for _, v := range self.Items() { _ = v }", "for_,v:=rangethis.self.Items(){_=v}"},
		{"switch", "switch self.Kind() { case super.Kind(): }", "switchthis.self.Kind(){casethis.prototype.Kind():}"},
		{"index and slice", "_ = self.Items()[0:super.N()]", "_=this.self.Items()[0:this.prototype.N()]"},
		{"composite literal", "_ = []any{self, super}", "_=[]any{this.self,this.prototype}"},
		{"defer and go", "defer super.Close()\ngo self.Run()", "deferthis.prototype.Close()gothis.self.Run()"},
		{"select send", "select { case ch <- self: }", "select{casech<-this.self:}"},
		{"unary and star", "p := &super; _ = *p", "p:=&this.prototype_=*p"},
		{"type assertion", "_ = any(self).(fmt.Stringer)", "_=any(this.self).(fmt.Stringer)"},
		{"var decl", "var s = self", "vars=this.self"},
		{"labeled", "outer:\nfor { _ = self; break outer }", "outer:for{_=this.selfbreakouter}"},
		{"map literal keys", "_ = map[any]bool{self: true, super: false}", "_=map[any]bool{this.self:true,this.prototype:false}"},
		{"elided map literal", "_ = []map[any]int{{self: 1}}", "_=[]map[any]int{{this.self:1}}"},
		{"nested map value", "_ = map[string]map[any]int{\"a\": {super: 1}}", "{\"a\":{this.prototype:1}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rewriteBody(t, &Rewriter{Receiver: "this", HasParent: true}, tt.body)
			if err != nil {
				t.Fatalf("RewriteOperation() error = %v", err)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("expected %q in %q", tt.want, got)
			}
		})
	}
}

func TestRewriteLeavesOtherNamesAlone(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"field selector", "_ = obj.self", "_=obj.self"},
		{"struct key", "_ = T{self: 1}", "_=T{self:1}"},
		{"elided struct key", "_ = []T{{self: 1}}", "_=[]T{{self:1}}"},
		{"pointer elided struct key", "_ = map[string]*T{\"a\": {self: 1}}", "{\"a\":{self:1}}"},
		{"short var decl", "self := 1\n_ = self", "self:=1"},
		{"unknown identifier", "_ = width", "_=width"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rewriteBody(t, &Rewriter{Receiver: "this", HasParent: true}, tt.body)
			if err != nil {
				t.Fatalf("RewriteOperation() error = %v", err)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("expected %q in %q", tt.want, got)
			}
		})
	}
}

func TestRewriteReceiverName(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"selectors", "return this.x + self.X() + super.X()", "returnc.x+c.self.X()+c.prototype.X()"},
		{"map key", "return map[*A]bool{this: true}", "returnmap[*A]bool{c:true}"},
		{"pointer map key", "return &map[*A]int{this: 1}", "return&map[*A]int{c:1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rewriteBody(t, &Rewriter{Receiver: "c", HasParent: true}, tt.body)
			if err != nil {
				t.Fatalf("RewriteOperation() error = %v", err)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("expected %q in %q", tt.want, got)
			}
		})
	}
}

func TestRewriteProblems(t *testing.T) {
	tests := []struct {
		name string
		r    *Rewriter
		body string
		want string
	}{
		{"super without parent", &Rewriter{Receiver: "this"}, "super.X()", "super used in a class without a parent"},
		{"super_mut without parent", &Rewriter{Receiver: "this"}, "super_mut.X()", "super_mut used in a class without a parent"},
		{"this in static", &Rewriter{}, "_ = this", "this used in a static operation"},
		{"self in static", &Rewriter{HasParent: true}, "self.X()", "self used in a static operation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rewriteBody(t, tt.r, tt.body)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %v", tt.want, err)
			}
		})
	}

	t.Run("problems reset between operations", func(t *testing.T) {
		r := &Rewriter{}
		rewriteBody(t, r, "_ = this")
		if _, err := rewriteBody(t, r, "_ = 1"); err != nil {
			t.Errorf("stale problem reported: %v", err)
		}
	})
}

func TestCount(t *testing.T) {
	op := ast.MustParseOperation("func Op() {\n\tself.A()\n\tsuper.B(self)\n\t_ = this\n}")
	counts := Count(op.Func.Body, Symbols...)
	want := map[string]int{This: 1, Self: 2, Super: 1}
	for name, n := range want {
		if counts[name] != n {
			t.Errorf("Count(%s) = %d, want %d", name, counts[name], n)
		}
	}
	if counts[SuperMut] != 0 {
		t.Errorf("Count(super_mut) = %d, want 0", counts[SuperMut])
	}
}

func TestWalkUnknownNodeKinds(t *testing.T) {
	// A bare FieldList has no case in the walker and goes through
	// astutil.Apply; identifiers in it are still offered.
	op := ast.MustParseOperation("func Op(a self) {}")
	var seen []string
	Walk(VisitorFunc(func(e goast.Expr) goast.Expr {
		if id, ok := e.(*goast.Ident); ok {
			seen = append(seen, id.Name)
		}
		return nil
	}), op.Func.Type.Params)
	if strings.Join(seen, ",") != "a,self" {
		t.Errorf("expected a,self, got %v", seen)
	}
}
