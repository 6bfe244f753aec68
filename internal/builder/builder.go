// Package builder runs the full plan to .zwo pipeline: defaults, expansion,
// emission, encoding and optional validation of the result.
package builder

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/claude/zwoforge/internal/compiler"
	"github.com/claude/zwoforge/internal/models"
	"github.com/claude/zwoforge/internal/plan"
	"github.com/claude/zwoforge/internal/schema"
	"github.com/claude/zwoforge/internal/validator"
	"github.com/claude/zwoforge/internal/zwo"
)

// Options configures a build.
type Options struct {
	Emit zwo.EmitOptions
	// Author is used when the plan does not name one.
	Author string
	// Allowlist, when set, validates the encoded document.
	Allowlist *schema.Allowlist
	Strict    bool
}

// Result is a compiled workout.
type Result struct {
	Plan     *models.Plan
	Slug     string
	Steps    []models.Step
	Document *zwo.Node
	XML      []byte
	Summary  compiler.Summary
	Issues   []validator.Issue
}

// Valid reports whether the build was validated without findings.
func (r *Result) Valid() bool {
	return len(r.Issues) == 0
}

// Build compiles p. p is updated in place with defaults. Any expansion
// failure returns an error and no output.
func Build(p *models.Plan, opts Options) (*Result, error) {
	plan.ApplyDefaults(p, opts.Author)
	if err := plan.Validate(p); err != nil {
		return nil, err
	}

	steps, err := compiler.Compile(p)
	if err != nil {
		return nil, fmt.Errorf("compiling %q: %w", p.Name, err)
	}

	doc := zwo.Emit(p, steps, opts.Emit)
	data, err := zwo.Marshal(doc)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Plan:     p,
		Slug:     plan.Slugify(p.Name),
		Steps:    steps,
		Document: doc,
		XML:      data,
		Summary:  compiler.Summarize(steps),
	}

	if opts.Allowlist != nil {
		// Re-parse so findings carry line numbers.
		parsed, err := zwo.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("re-reading output: %w", err)
		}
		res.Issues = validator.Validate(parsed, opts.Allowlist, validator.Options{Strict: opts.Strict})
	}
	return res, nil
}

// BuildSource parses a plan document and builds it.
func BuildSource(data []byte, opts Options) (*Result, error) {
	p, err := plan.Parse(data)
	if err != nil {
		return nil, err
	}
	return Build(p, opts)
}

// Row converts a build into a workout library row. source is the plan
// document the build came from.
func (r *Result) Row(source []byte) models.WorkoutRow {
	return models.WorkoutRow{
		Slug:         r.Slug,
		Name:         r.Plan.Name,
		Author:       r.Plan.Author,
		Sport:        r.Plan.Sport,
		Description:  r.Plan.Description,
		TotalSeconds: r.Summary.TotalSeconds,
		EstimatedTSS: r.Summary.EstimatedTSS,
		PlanSource:   string(source),
		ZWO:          string(r.XML),
	}
}

// BuildFile loads the plan at planPath, builds it and writes
// <outDir>/<slug>.zwo. The output is written even when validation finds
// issues; callers check Result.Valid.
func BuildFile(planPath, outDir string, opts Options) (*Result, string, error) {
	p, err := plan.Load(planPath)
	if err != nil {
		return nil, "", err
	}
	res, err := Build(p, opts)
	if err != nil {
		return nil, "", err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("creating output dir %s: %w", outDir, err)
	}
	out := filepath.Join(outDir, res.Slug+".zwo")
	if err := WriteAtomic(out, res.XML); err != nil {
		return nil, "", err
	}
	for i := range res.Issues {
		res.Issues[i].File = out
	}
	return res, out, nil
}

// WriteAtomic writes content to a temp file next to path and renames it
// into place.
func WriteAtomic(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".zwoforge-tmp-*.zwo")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}
