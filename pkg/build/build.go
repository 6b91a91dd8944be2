// Package build lowers a batch of class files into Go source files.
//
// Classes are processed on a bounded worker pool. A class starts only
// after its parent in the batch has been registered, so any order of
// input files works. A failing class fails its descendants in the batch
// and nothing else.
package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/inherit/pkg/ast"
	"github.com/chazu/inherit/pkg/codegen"
	"github.com/chazu/inherit/pkg/parser"
	"github.com/chazu/inherit/pkg/registry"
	"github.com/chazu/inherit/pkg/transform"
)

var validate = validator.New()

// Config controls a build.
type Config struct {
	OutDir   string `validate:"required"`
	Workers  int    `validate:"min=1,max=256"`
	Receiver string `validate:"required,alphanum"`
	Package  string `validate:"required"`
	// Registry is the SQLite registry file. Empty keeps the registry in
	// memory for the duration of the build.
	Registry string
	// Unit names the compilation unit inside a persistent registry.
	// Empty means a fresh unit that is dropped when the build ends.
	Unit   string
	DryRun bool
}

// DefaultConfig returns a configuration writing to the current directory.
func DefaultConfig() Config {
	return Config{
		OutDir:   ".",
		Workers:  4,
		Receiver: transform.DefaultReceiver,
		Package:  codegen.DefaultPackage,
	}
}

// ClassResult is the outcome for one input file.
type ClassResult struct {
	Source string // class file
	Class  string
	Output string // written file, empty on failure or dry run
	Code   *codegen.Result
	Err    error
}

// Report lists the per-class results in input order plus the support
// file of the batch.
type Report struct {
	Classes []*ClassResult
	Support *codegen.Result
}

// Option configures a build.
type Option func(*builder)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

type builder struct {
	cfg      Config
	logger   *slog.Logger
	registry *registry.Registry
	pipeline *transform.Pipeline
}

type job struct {
	result *ClassResult
	class  *ast.Class
	parent int // index of the in-batch parent, or -1
	done   chan struct{}
}

// Build parses, lowers and emits every class in files. The returned
// error aggregates the per-class failures; the report is returned even
// when some classes failed.
func Build(ctx context.Context, cfg Config, files []string, opts ...Option) (*Report, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid build configuration: %w", err)
	}
	b := &builder{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}

	store, err := b.openStore()
	if err != nil {
		return nil, err
	}
	b.registry = registry.New(store, registry.WithLogger(b.logger))
	b.pipeline = transform.New(b.registry,
		transform.WithLogger(b.logger),
		transform.WithReceiver(cfg.Receiver),
	)

	report, buildErr := b.run(ctx, files)
	if err := b.registry.Close(); err != nil {
		buildErr = multierror.Append(buildErr, fmt.Errorf("closing registry: %w", err))
	}
	return report, buildErr
}

func (b *builder) openStore() (registry.Store, error) {
	if b.cfg.Registry == "" {
		return registry.NewMemoryStore(), nil
	}
	store, err := registry.OpenSQLite(&registry.SQLiteConfig{Path: b.cfg.Registry, Unit: b.cfg.Unit})
	if err != nil {
		return nil, err
	}
	b.logger.Debug("registry opened", slog.String("path", b.cfg.Registry), slog.String("unit", store.Unit()))
	return store, nil
}

func (b *builder) run(ctx context.Context, files []string) (*Report, error) {
	jobs := b.parse(files)
	if err := b.checkPackages(jobs); err != nil {
		return nil, err
	}
	order := b.schedule(jobs)

	g := new(errgroup.Group)
	g.SetLimit(b.cfg.Workers)
	for _, i := range order {
		j := jobs[i]
		g.Go(func() error {
			defer close(j.done)
			if j.parent >= 0 {
				select {
				case <-jobs[j.parent].done:
				case <-ctx.Done():
					j.result.Err = ctx.Err()
					return nil
				}
				if perr := jobs[j.parent].result.Err; perr != nil {
					j.result.Err = parentFailed(j.class, perr)
					return nil
				}
			}
			j.result.Err = b.lower(ctx, j)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{}
	var merr *multierror.Error
	var lowered bool
	for _, j := range jobs {
		report.Classes = append(report.Classes, j.result)
		if j.result.Err != nil {
			merr = multierror.Append(merr, j.result.Err)
		} else {
			lowered = true
		}
	}
	if lowered {
		support, err := b.support(jobs)
		if err != nil {
			merr = multierror.Append(merr, err)
		}
		report.Support = support
	}
	return report, merr.ErrorOrNil()
}

// parse reads every file. Parse failures become failed results.
func (b *builder) parse(files []string) []*job {
	jobs := make([]*job, len(files))
	for i, path := range files {
		j := &job{result: &ClassResult{Source: path}, parent: -1, done: make(chan struct{})}
		jobs[i] = j
		class, err := parser.ParseFile(path)
		if err != nil {
			j.result.Err = err
			close(j.done)
			continue
		}
		if class.Package == "" {
			class.Package = b.cfg.Package
		}
		j.class = class
		j.result.Class = class.Name
	}
	return jobs
}

// checkPackages rejects a batch whose classes belong to different
// packages, since they share one output directory.
func (b *builder) checkPackages(jobs []*job) error {
	pkgs := map[string]bool{}
	for _, j := range jobs {
		if j.class != nil {
			pkgs[j.class.Package] = true
		}
	}
	if len(pkgs) <= 1 {
		return nil
	}
	names := make([]string, 0, len(pkgs))
	for p := range pkgs {
		names = append(names, p)
	}
	sort.Strings(names)
	return fmt.Errorf("classes of one build must share a package, found %v", names)
}

// schedule links every class to its in-batch parent and returns the jobs
// that can run, parents first. Duplicate names and cycles fail here.
func (b *builder) schedule(jobs []*job) []int {
	byName := map[string]int{}
	for i, j := range jobs {
		if j.class == nil {
			continue
		}
		if prev, dup := byName[j.class.Name]; dup {
			j.result.Err = ast.NewClassError(ast.ErrMalformedInput, j.class,
				"also declared in %s", jobs[prev].result.Source)
			close(j.done)
			j.class = nil
			continue
		}
		byName[j.class.Name] = i
	}
	for _, j := range jobs {
		if j.class != nil && j.class.Parent != nil {
			if p, ok := byName[j.class.Parent.Name]; ok {
				j.parent = p
			}
		}
	}

	const (
		unvisited = iota
		visiting
		visited
	)
	state := make([]int, len(jobs))
	var order []int
	var visit func(i int) bool
	visit = func(i int) bool {
		switch state[i] {
		case visiting:
			return false
		case visited:
			return true
		}
		state[i] = visiting
		j := jobs[i]
		ok := true
		if j.parent >= 0 && jobs[j.parent].class != nil {
			ok = visit(j.parent)
		}
		state[i] = visited
		if !ok {
			ce := ast.NewClassError(ast.ErrInheritanceCycle, j.class, "parent chain loops back")
			ce.Parent = j.class.Parent.Name
			j.result.Err = ce
			close(j.done)
			j.class = nil
			return false
		}
		order = append(order, i)
		return true
	}
	for i, j := range jobs {
		if j.class != nil {
			visit(i)
		}
	}
	return order
}

// lower runs one class through the pipeline and writes its file.
func (b *builder) lower(ctx context.Context, j *job) error {
	if err := b.pipeline.Process(ctx, j.class); err != nil {
		return err
	}
	res, err := codegen.Generate(j.class)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		b.logger.Warn(w, slog.String("class", j.class.Name))
	}
	j.result.Code = res
	if b.cfg.DryRun {
		return nil
	}
	out, err := b.write(res)
	if err != nil {
		return err
	}
	j.result.Output = out
	return nil
}

func (b *builder) support(jobs []*job) (*codegen.Result, error) {
	pkg := b.cfg.Package
	for _, j := range jobs {
		if j.result.Err == nil && j.result.Code != nil {
			pkg = j.result.Code.Package
			break
		}
	}
	res, err := codegen.GenerateSupport(pkg)
	if err != nil {
		return nil, err
	}
	if !b.cfg.DryRun {
		if _, err := b.write(res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (b *builder) write(res *codegen.Result) (string, error) {
	if err := os.MkdirAll(b.cfg.OutDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(b.cfg.OutDir, res.Filename)
	if err := os.WriteFile(path, []byte(res.Code), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", res.Filename, err)
	}
	b.logger.Debug("wrote file", slog.String("path", path))
	return path, nil
}

// parentFailed reports a class whose in-batch parent did not lower.
func parentFailed(class *ast.Class, cause error) error {
	ce := ast.NewClassError(ast.ErrUnresolvedParent, class, "parent failed to lower")
	ce.Parent = class.Parent.Name
	var pe *ast.ClassError
	if errors.As(cause, &pe) && pe.Class != "" {
		ce.Detail = fmt.Sprintf("parent failed to lower (%v)", pe.Kind)
	}
	return ce
}
