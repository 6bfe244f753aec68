package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/claude/zwoforge/internal/builder"
	"github.com/claude/zwoforge/internal/validator"
	"github.com/claude/zwoforge/internal/watcher"
	"github.com/claude/zwoforge/internal/zwo"
)

func runWatch(e *env, args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	dir := fs.String("dir", "", "directory of plan files (required)")
	outDir := fs.String("output", e.cfg.Compile.OutputDir, "output directory")
	validate := fs.Bool("validate", e.cfg.Compile.Validate, "validate each generated .zwo")
	unroll := fs.Bool("unroll-intervals", e.cfg.Compile.UnrollIntervals, "emit each interval repetition as SteadyState")
	if err := fs.Parse(args); err != nil {
		return validator.ExitUsage
	}
	if *dir == "" {
		fmt.Fprintln(e.stderr, "Usage: zwoforge watch -dir plans [-output dir]")
		fs.PrintDefaults()
		return validator.ExitUsage
	}

	opts := builder.Options{
		Emit:   zwo.EmitOptions{UnrollIntervals: *unroll},
		Author: e.cfg.Compile.Author,
		Strict: e.cfg.Validation.Strict,
	}
	if *validate {
		allow, err := loadAllowlist(e.cfg, "", "")
		if err != nil {
			e.log.Error("failed to load schema", "error", err)
			return validator.ExitUsage
		}
		opts.Allowlist = allow
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watcher.New(*dir, *outDir, opts, e.log)
	if err := w.Run(ctx); err != nil {
		e.log.Error("watch failed", "error", err)
		return validator.ExitFailed
	}
	e.log.Info("watch stopped")
	return validator.ExitOK
}
