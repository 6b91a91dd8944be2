// Package transform lowers a parsed class descriptor into the shape the
// code generator emits: a dispatch interface chained to the parent's,
// per-level implementations with forwarders, merged capability
// implementations, an augmented layout and a constructor.
//
// Each class passes through the states of ast.State in order and is
// registered only when every step succeeded.
package transform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chazu/inherit/pkg/ast"
	"github.com/chazu/inherit/pkg/registry"
	"github.com/chazu/inherit/pkg/visitor"
)

// DefaultReceiver is the receiver name of emitted methods.
const DefaultReceiver = visitor.This

// Pipeline processes class declarations against one registry.
type Pipeline struct {
	registry *registry.Registry
	logger   *slog.Logger
	receiver string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithReceiver sets the receiver name used in emitted methods.
func WithReceiver(name string) Option {
	return func(p *Pipeline) {
		if name != "" {
			p.receiver = name
		}
	}
}

// New creates a pipeline that resolves parents in reg and registers
// finished classes there.
func New(reg *registry.Registry, opts ...Option) *Pipeline {
	p := &Pipeline{
		registry: reg,
		logger:   slog.Default(),
		receiver: DefaultReceiver,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process lowers class in place and registers it. On error the class is
// not registered and must be discarded.
func (p *Pipeline) Process(ctx context.Context, class *ast.Class) error {
	if class.State != ast.StateDeclared {
		return fmt.Errorf("class %s: already processed (state %s)", class.Name, class.State)
	}
	logger := p.logger.With(slog.String("class", class.Name))

	if err := p.process(ctx, class, logger); err != nil {
		logger.Error("class lowering failed", slog.Any("error", err))
		return err
	}
	forwarders := 0
	for _, l := range class.Levels {
		forwarders += countForwarders(l.Operations)
	}
	for _, b := range class.Capabilities {
		forwarders += countForwarders(b.Operations)
	}
	logger.Info("class lowered",
		slog.Int("levels", len(class.Levels)),
		slog.Int("capabilities", len(class.Capabilities)),
		slog.Int("forwarders", forwarders),
	)
	return nil
}

func (p *Pipeline) process(ctx context.Context, class *ast.Class, logger *slog.Logger) error {
	if err := checkDeclaration(class); err != nil {
		return err
	}
	class.Receiver = p.receiver

	var parent *ast.Class
	var chain []*ast.Class
	if class.Parent != nil {
		var err error
		chain, err = p.registry.AncestorChain(ctx, class)
		if err != nil {
			return err
		}
		parent = chain[0]
		if parent.Package != class.Package {
			ce := ast.NewClassError(ast.ErrUnresolvedParent, class,
				"parent is declared in package %s, not %s", parent.Package, class.Package)
			ce.Parent = parent.Name
			return ce
		}
		logger.Debug("ancestor chain resolved", slog.Int("depth", len(chain)))
		inheritImports(class, chain)
	}

	levels := relocateOverrides(class, chain)
	forwardLevels(levels, chain, p.receiver)

	class.Dispatch = synthesizeInterface(class)
	p.advance(class, ast.StateInterfaceSynthesized, logger)

	class.Levels = append(levels, redistribute(class))
	if err := p.rewrite(class, logger); err != nil {
		return err
	}
	p.advance(class, ast.StateBehaviorRedistributed, logger)

	mergeCapabilities(class, parent, p.receiver)
	if err := resolveMethodSet(class); err != nil {
		return err
	}
	p.advance(class, ast.StateOverridesMerged, logger)

	augmentLayout(class)
	p.advance(class, ast.StateLayoutAugmented, logger)

	class.Constructor = synthesizeConstructor(class, parent, len(chain))
	p.advance(class, ast.StateConstructorSynthesized, logger)

	if err := ctx.Err(); err != nil {
		return err
	}
	return p.registry.Register(ctx, class)
}

// rewrite replaces symbolic references in every explicit operation. It
// runs before capability merge, so inherited forwarders are never
// rewritten and each body is rewritten exactly once. Bodies without a
// symbolic reference are left untouched.
func (p *Pipeline) rewrite(class *ast.Class, logger *slog.Logger) error {
	withParent := &visitor.Rewriter{Receiver: p.receiver, HasParent: class.Parent != nil}
	static := &visitor.Rewriter{HasParent: class.Parent != nil}

	var ops []*ast.Operation
	ops = append(ops, class.Primary.Operations...)
	for _, l := range class.Levels {
		ops = append(ops, l.Operations...)
	}
	for _, name := range class.CapabilityNames() {
		ops = append(ops, class.Capabilities[name].Operations...)
	}

	for _, op := range ops {
		if op.Forward || op.Func.Body == nil {
			continue
		}
		refs := visitor.Count(op.Func.Body, visitor.Symbols...)
		if len(refs) == 0 {
			continue
		}
		logger.Debug("rewriting operation", slog.String("op", op.Name), slog.Any("refs", refs))
		r := withParent
		if op.Static {
			r = static
		}
		if err := r.RewriteOperation(op); err != nil {
			return ast.NewClassError(ast.ErrMalformedInput, class, "%v", err)
		}
	}
	return nil
}

func (p *Pipeline) advance(class *ast.Class, to ast.State, logger *slog.Logger) {
	logger.Debug("state transition",
		slog.String("from", class.State.String()),
		slog.String("to", to.String()),
	)
	class.State = to
}
