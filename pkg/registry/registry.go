// Package registry stores finished class descriptors so that later classes
// can resolve their parents.
//
// The registry holds serialized values. Every Lookup decodes a fresh copy,
// so no caller can observe another caller's mutations.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/chazu/inherit/pkg/ast"
)

// Registry maps class names to serialized descriptors.
type Registry struct {
	store  Store
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a registry over store. A nil store means a fresh
// MemoryStore.
func New(store Store, opts ...Option) *Registry {
	if store == nil {
		store = NewMemoryStore()
	}
	r := &Registry{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register serializes class and stores it under its name, marking it
// Registered. An existing entry is overwritten.
func (r *Registry) Register(ctx context.Context, class *ast.Class) error {
	prev := class.State
	class.State = ast.StateRegistered
	data, err := ast.Marshal(class)
	if err != nil {
		class.State = prev
		return err
	}
	if err := r.store.Put(ctx, class.Name, data); err != nil {
		class.State = prev
		return fmt.Errorf("registering class %s: %w", class.Name, err)
	}
	r.logger.Debug("class registered", slog.String("class", class.Name), slog.Int("bytes", len(data)))
	return nil
}

// Lookup returns an independent copy of the named descriptor.
func (r *Registry) Lookup(ctx context.Context, name string) (*ast.Class, bool, error) {
	data, ok, err := r.store.Get(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("looking up class %s: %w", name, err)
	}
	if !ok {
		r.logger.Debug("registry miss", slog.String("class", name))
		return nil, false, nil
	}
	class, err := ast.ParseBytes(data)
	if err != nil {
		return nil, false, fmt.Errorf("decoding class %s: %w", name, err)
	}
	return class, true, nil
}

// Names returns every registered class name, sorted.
func (r *Registry) Names(ctx context.Context) ([]string, error) {
	names, err := r.store.Names(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Close closes the underlying store.
func (r *Registry) Close() error {
	return r.store.Close()
}
