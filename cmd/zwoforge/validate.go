package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/claude/zwoforge/internal/state"
	"github.com/claude/zwoforge/internal/validator"
)

func runValidate(e *env, args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	path := fs.String("path", "", "a .zwo file or a directory searched recursively")
	usagePath := fs.String("tag-attr-usage", "", "path to tag_attr_usage.json")
	descPath := fs.String("descriptions", "", "path to descriptions.yaml")
	strict := fs.Bool("strict", e.cfg.Validation.Strict, "also check document structure")
	workers := fs.Int("workers", e.cfg.Validation.Workers, "concurrent validations (0 = GOMAXPROCS)")
	cacheDir := fs.String("cache-dir", e.cfg.Validation.CacheDir, "remember files that passed in this directory")
	if err := fs.Parse(args); err != nil {
		return validator.ExitUsage
	}

	roots := fs.Args()
	if *path != "" {
		roots = append([]string{*path}, roots...)
	}
	if len(roots) == 0 {
		fmt.Fprintln(e.stderr, "Usage: zwoforge validate -path file.zwo|dir [-strict] [-tag-attr-usage F -descriptions F]")
		fs.PrintDefaults()
		return validator.ExitUsage
	}
	if (*usagePath == "") != (*descPath == "") {
		fmt.Fprintln(e.stderr, "-tag-attr-usage and -descriptions must be given together")
		return validator.ExitUsage
	}

	allow, err := loadAllowlist(e.cfg, *usagePath, *descPath)
	if err != nil {
		e.log.Error("failed to load schema", "error", err)
		return validator.ExitUsage
	}

	opts := validator.RunOptions{
		Options: validator.Options{Strict: *strict},
		Workers: *workers,
		Logger:  e.log,
	}
	if *cacheDir != "" {
		cache, err := state.Open(*cacheDir)
		if err != nil {
			e.log.Warn("validation cache disabled", "error", err)
		} else {
			defer cache.Close()
			opts.Cache = cache
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report := validator.RunRoots(ctx, roots, allow, opts)
	out := e.stdout
	if report.Failed() {
		out = e.stderr
	}
	if err := report.Write(out); err != nil {
		e.log.Error("failed to write report", "error", err)
	}
	return report.ExitCode()
}
