package main

import (
	"flag"
	"fmt"

	"github.com/claude/zwoforge/internal/builder"
	"github.com/claude/zwoforge/internal/validator"
	"github.com/claude/zwoforge/internal/zwo"
)

func runCompile(e *env, args []string) int {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	planPath := fs.String("plan", "", "path to the plan file (required)")
	outDir := fs.String("output", e.cfg.Compile.OutputDir, "output directory")
	validate := fs.Bool("validate", e.cfg.Compile.Validate, "validate the generated .zwo")
	strict := fs.Bool("strict", e.cfg.Validation.Strict, "also check document structure when validating")
	unroll := fs.Bool("unroll-intervals", e.cfg.Compile.UnrollIntervals, "emit each interval repetition as SteadyState")
	author := fs.String("author", e.cfg.Compile.Author, "author for plans without one")
	if err := fs.Parse(args); err != nil {
		return validator.ExitUsage
	}
	if *planPath == "" && fs.NArg() == 1 {
		*planPath = fs.Arg(0)
	}
	if *planPath == "" {
		fmt.Fprintln(e.stderr, "Usage: zwoforge compile -plan plan.yaml [-output dir] [-validate] [-unroll-intervals]")
		fs.PrintDefaults()
		return validator.ExitUsage
	}

	opts := builder.Options{
		Emit:   zwo.EmitOptions{UnrollIntervals: *unroll},
		Author: *author,
		Strict: *strict,
	}
	if *validate {
		allow, err := loadAllowlist(e.cfg, "", "")
		if err != nil {
			e.log.Error("failed to load schema", "error", err)
			return validator.ExitUsage
		}
		opts.Allowlist = allow
	}

	res, out, err := builder.BuildFile(*planPath, *outDir, opts)
	if err != nil {
		e.log.Error("compile failed", "plan", *planPath, "error", err)
		return validator.ExitFailed
	}
	e.log.Debug("compiled", "plan", *planPath, "steps", res.Summary.Steps, "segments", res.Summary.Segments)

	fmt.Fprintf(e.stdout, "wrote %s (%s, TSS %.0f)\n", out, clock(res.Summary.TotalSeconds), res.Summary.EstimatedTSS)
	if !res.Valid() {
		for _, is := range res.Issues {
			fmt.Fprintln(e.stderr, is.String())
		}
		fmt.Fprintf(e.stderr, "validation failed: %d error(s)\n", len(res.Issues))
		return validator.ExitFailed
	}
	if opts.Allowlist != nil {
		fmt.Fprintf(e.stdout, "validation ok: 1 file(s)\n")
	}
	return validator.ExitOK
}

// clock formats seconds as h:mm:ss or m:ss.
func clock(sec int) string {
	h, m, s := sec/3600, sec%3600/60, sec%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
