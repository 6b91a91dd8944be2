package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/chazu/inherit/pkg/build"
)

type GenCmd struct {
	Files    []string `arg:"" type:"existingfile" help:"Class files to lower."`
	Out      string   `help:"Output directory for generated files." short:"o" default:"."`
	Package  string   `help:"Package for class files without a package clause." default:"main"`
	Receiver string   `help:"Receiver name of generated methods." default:"this"`
	Workers  int      `help:"Classes lowered concurrently." default:"4" short:"j"`
	Registry string   `help:"SQLite class registry; empty keeps it in memory." env:"INHERIT_REGISTRY"`
	Unit     string   `help:"Compilation unit inside a persistent registry."`
	DryRun   bool     `help:"Lower and report without writing files." name:"dry-run"`
	Stdout   bool     `help:"Print generated code instead of writing files."`
}

func (c *GenCmd) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := build.DefaultConfig()
	cfg.OutDir = c.Out
	cfg.Package = c.Package
	cfg.Receiver = c.Receiver
	cfg.Workers = c.Workers
	cfg.Registry = c.Registry
	cfg.Unit = c.Unit
	cfg.DryRun = c.DryRun || c.Stdout

	report, err := build.Build(ctx, cfg, c.Files, build.WithLogger(logger))
	if report == nil {
		return err
	}
	for _, r := range report.Classes {
		switch {
		case r.Err != nil:
			fmt.Fprintf(os.Stderr, "  ✗ %s\n", r.Source)
		case c.Stdout:
			fmt.Print(r.Code.Code)
		case c.DryRun:
			fmt.Fprintf(os.Stderr, "  ✓ %s - would write %s (%d bytes)\n", r.Class, r.Code.Filename, len(r.Code.Code))
		default:
			fmt.Fprintf(os.Stderr, "  ✓ %s -> %s\n", r.Class, r.Output)
		}
	}
	if c.Stdout && report.Support != nil {
		fmt.Print(report.Support.Code)
	}
	if err != nil {
		return errors.New("lowering failed:\n" + err.Error())
	}
	return nil
}
