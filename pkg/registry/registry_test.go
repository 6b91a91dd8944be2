package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/chazu/inherit/pkg/ast"
)

// class builds a minimal registered-looking descriptor.
func class(name, parent string) *ast.Class {
	c := &ast.Class{
		Name:    name,
		Package: "shapes",
		Layout:  ast.Layout{Kind: ast.LayoutNamed, Fields: []ast.Field{{Name: "size", Type: "int"}}},
		Primary: &ast.Block{Name: name, Operations: []*ast.Operation{
			ast.MustParseOperation("func Size() int {\n\treturn this.size\n}"),
		}},
	}
	if parent != "" {
		c.Parent = &ast.ParentRef{Name: parent}
	}
	return c
}

// testStores runs f against a memory store and a SQLite store.
func testStores(t *testing.T, f func(t *testing.T, r *Registry)) {
	t.Helper()
	t.Run("memory", func(t *testing.T) {
		r := New(NewMemoryStore())
		t.Cleanup(func() { r.Close() })
		f(t, r)
	})
	t.Run("sqlite", func(t *testing.T) {
		store, err := OpenSQLite(&SQLiteConfig{Path: filepath.Join(t.TempDir(), "registry.db")})
		if err != nil {
			t.Fatalf("OpenSQLite() error = %v", err)
		}
		r := New(store)
		t.Cleanup(func() { r.Close() })
		f(t, r)
	})
}

func TestRegisterLookup(t *testing.T) {
	testStores(t, func(t *testing.T, r *Registry) {
		ctx := context.Background()
		if err := r.Register(ctx, class("Shape", "")); err != nil {
			t.Fatalf("Register() error = %v", err)
		}

		got, ok, err := r.Lookup(ctx, "Shape")
		if err != nil || !ok {
			t.Fatalf("Lookup() = %v, %v, want found", ok, err)
		}
		if got.Name != "Shape" || got.State != ast.StateRegistered {
			t.Errorf("expected registered Shape, got %s in state %s", got.Name, got.State)
		}
		if len(got.Primary.Operations) != 1 || got.Primary.Operations[0].Name != "Size" {
			t.Errorf("operations not preserved: %+v", got.Primary.Operations)
		}

		if _, ok, err := r.Lookup(ctx, "Missing"); ok || err != nil {
			t.Errorf("Lookup(Missing) = %v, %v, want not found", ok, err)
		}
	})
}

func TestLookupReturnsCopies(t *testing.T) {
	testStores(t, func(t *testing.T, r *Registry) {
		ctx := context.Background()
		if err := r.Register(ctx, class("Shape", "")); err != nil {
			t.Fatalf("Register() error = %v", err)
		}

		first, _, _ := r.Lookup(ctx, "Shape")
		first.Layout.Fields[0].Name = "mutated"
		first.Primary.Operations = nil

		second, _, _ := r.Lookup(ctx, "Shape")
		if second.Layout.Fields[0].Name != "size" {
			t.Errorf("mutation leaked into registry: %q", second.Layout.Fields[0].Name)
		}
		if len(second.Primary.Operations) != 1 {
			t.Errorf("mutation leaked into registry: %d operations", len(second.Primary.Operations))
		}
	})
}

func TestRegisterOverwrites(t *testing.T) {
	testStores(t, func(t *testing.T, r *Registry) {
		ctx := context.Background()
		r.Register(ctx, class("Shape", ""))
		replacement := class("Shape", "")
		replacement.Layout.Fields[0].Type = "float64"
		if err := r.Register(ctx, replacement); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		got, _, _ := r.Lookup(ctx, "Shape")
		if got.Layout.Fields[0].Type != "float64" {
			t.Errorf("expected last write to win, got %s", got.Layout.Fields[0].Type)
		}
		names, err := r.Names(ctx)
		if err != nil {
			t.Fatalf("Names() error = %v", err)
		}
		if len(names) != 1 {
			t.Errorf("expected one entry, got %v", names)
		}
	})
}

func TestConcurrentAccess(t *testing.T) {
	testStores(t, func(t *testing.T, r *Registry) {
		ctx := context.Background()
		var wg sync.WaitGroup
		errs := make(chan error, 40)
		for i := 0; i < 20; i++ {
			wg.Add(2)
			name := fmt.Sprintf("Class%d", i)
			go func() {
				defer wg.Done()
				errs <- r.Register(ctx, class(name, ""))
			}()
			go func() {
				defer wg.Done()
				_, _, err := r.Lookup(ctx, name)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Errorf("concurrent access error = %v", err)
			}
		}
		names, _ := r.Names(ctx)
		if len(names) != 20 {
			t.Errorf("expected 20 classes, got %d", len(names))
		}
	})
}

func TestAncestorChain(t *testing.T) {
	testStores(t, func(t *testing.T, r *Registry) {
		ctx := context.Background()
		for _, c := range []*ast.Class{class("Vehicle", ""), class("LandVehicle", "Vehicle"), class("Car", "LandVehicle")} {
			if err := r.Register(ctx, c); err != nil {
				t.Fatalf("Register(%s) error = %v", c.Name, err)
			}
		}

		tests := []struct {
			name string
			want []string
		}{
			{"Vehicle", nil},
			{"LandVehicle", []string{"Vehicle"}},
			{"Car", []string{"LandVehicle", "Vehicle"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				c, _, _ := r.Lookup(ctx, tt.name)
				chain, err := r.AncestorChain(ctx, c)
				if err != nil {
					t.Fatalf("AncestorChain() error = %v", err)
				}
				var got []string
				for _, a := range chain {
					got = append(got, a.Name)
				}
				if fmt.Sprint(got) != fmt.Sprint(tt.want) {
					t.Errorf("expected chain %v, got %v", tt.want, got)
				}
			})
		}
	})
}

func TestGetParentUnresolved(t *testing.T) {
	r := New(nil)
	_, err := r.GetParent(context.Background(), class("Phantom", "Ghost"))
	if !errors.Is(err, ast.ErrUnresolvedParent) {
		t.Fatalf("expected ErrUnresolvedParent, got %v", err)
	}
	var ce *ast.ClassError
	if !errors.As(err, &ce) || ce.Class != "Phantom" || ce.Parent != "Ghost" {
		t.Errorf("expected error naming Phantom and Ghost, got %v", err)
	}
}

func TestAncestorChainCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("self", func(t *testing.T) {
		r := New(nil)
		_, err := r.AncestorChain(ctx, class("Loop", "Loop"))
		if !errors.Is(err, ast.ErrInheritanceCycle) {
			t.Errorf("expected ErrInheritanceCycle, got %v", err)
		}
	})

	t.Run("mutual", func(t *testing.T) {
		r := New(nil)
		// Entries are stored as-is, so a cycle can be planted directly.
		r.Register(ctx, class("A", "B"))
		r.Register(ctx, class("B", "A"))
		a, _, _ := r.Lookup(ctx, "A")
		_, err := r.AncestorChain(ctx, a)
		if !errors.Is(err, ast.ErrInheritanceCycle) {
			t.Errorf("expected ErrInheritanceCycle, got %v", err)
		}
	})
}

func TestSQLiteUnits(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registry.db")

	named, err := OpenSQLite(&SQLiteConfig{Path: path, Unit: "build-1"})
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	scratch, err := OpenSQLite(&SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}

	New(named).Register(ctx, class("Shape", ""))
	if _, ok, _ := New(scratch).Lookup(ctx, "Shape"); ok {
		t.Error("unit isolation broken: scratch unit sees build-1 entries")
	}
	New(scratch).Register(ctx, class("Temp", ""))
	if err := scratch.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := named.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := named.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	// A named unit persists across opens.
	reopened, err := OpenSQLite(&SQLiteConfig{Path: path, Unit: "build-1"})
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer reopened.Close()
	if _, ok, _ := New(reopened).Lookup(ctx, "Shape"); !ok {
		t.Error("expected Shape to persist in unit build-1")
	}

	var rows int
	if err := reopened.db.QueryRow("SELECT COUNT(*) FROM classes").Scan(&rows); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if rows != 1 {
		t.Errorf("expected the ephemeral unit to be dropped, %d rows remain", rows)
	}
}
