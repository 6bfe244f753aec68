package validator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/claude/zwoforge/internal/schema"
	"golang.org/x/sync/errgroup"
)

// ErrNoFiles is returned by CollectFiles when a directory holds no .zwo files.
var ErrNoFiles = errors.New("no .zwo files found")

// Exit statuses for validation runs.
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitUsage  = 2
)

// Cache remembers files that already passed under a given schema.
type Cache interface {
	Passed(path, fingerprint string) (bool, error)
	MarkPassed(path, fingerprint string) error
}

// RunOptions configures a batch run.
type RunOptions struct {
	Options
	// Workers bounds concurrent validations; zero means GOMAXPROCS.
	Workers int
	Cache   Cache
	Logger  *slog.Logger
}

// FileResult is the outcome for one file.
type FileResult struct {
	Path   string  `json:"path"`
	Issues []Issue `json:"issues,omitempty"`
	Err    error   `json:"-"`
	Cached bool    `json:"cached,omitempty"`
}

// Report holds results in input order.
type Report struct {
	Files []FileResult `json:"files"`
}

// CollectFiles returns path itself when it is a file, or every *.zwo file
// below it in lexical order.
func CollectFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".zwo") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoFiles)
	}
	sort.Strings(files)
	return files, nil
}

// Run validates paths concurrently. A failing file never stops the batch.
func Run(ctx context.Context, paths []string, allow *schema.Allowlist, opts RunOptions) *Report {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	scope := cacheScope(allow, opts.Options)

	results := make([]FileResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		g.Go(func() error {
			res := FileResult{Path: path}
			defer func() { results[i] = res }()

			if err := ctx.Err(); err != nil {
				res.Err = fmt.Errorf("%s: %w", path, err)
				return nil
			}
			if opts.Cache != nil {
				ok, err := opts.Cache.Passed(path, scope)
				if err != nil {
					log.Warn("validation cache lookup failed", "path", path, "error", err)
				} else if ok {
					log.Debug("validation cache hit", "path", path)
					res.Cached = true
					return nil
				}
			}

			res.Issues, res.Err = ValidateFile(path, allow, opts.Options)
			if res.Err == nil && len(res.Issues) == 0 && opts.Cache != nil {
				if err := opts.Cache.MarkPassed(path, scope); err != nil {
					log.Warn("validation cache update failed", "path", path, "error", err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	return &Report{Files: results}
}

// RunRoots expands each root with CollectFiles and validates the result.
// A root that cannot be collected is reported as a failed file in its place
// and the remaining roots are still checked.
func RunRoots(ctx context.Context, roots []string, allow *schema.Allowlist, opts RunOptions) *Report {
	type collected struct {
		root  string
		files []string
		err   error
	}
	sets := make([]collected, len(roots))
	var paths []string
	for i, root := range roots {
		files, err := CollectFiles(root)
		sets[i] = collected{root: root, files: files, err: err}
		paths = append(paths, files...)
	}

	ran := Run(ctx, paths, allow, opts)
	report := &Report{Files: make([]FileResult, 0, len(ran.Files)+len(roots))}
	next := 0
	for _, c := range sets {
		if c.err != nil {
			report.Files = append(report.Files, FileResult{Path: c.root, Err: c.err})
			continue
		}
		report.Files = append(report.Files, ran.Files[next:next+len(c.files)]...)
		next += len(c.files)
	}
	return report
}

// cacheScope keys cache entries by schema and by every option that changes
// the findings for a file.
func cacheScope(allow *schema.Allowlist, opts Options) string {
	return allow.Fingerprint() + ":strict=" + strconv.FormatBool(opts.Strict)
}

// Issues returns all findings in file order.
func (r *Report) Issues() []Issue {
	var out []Issue
	for _, f := range r.Files {
		out = append(out, f.Issues...)
	}
	return out
}

// ErrorCount is the number of findings plus the number of unreadable files.
func (r *Report) ErrorCount() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Issues)
		if f.Err != nil {
			n++
		}
	}
	return n
}

// Failed reports whether any file had findings or could not be validated.
func (r *Report) Failed() bool {
	return r.ErrorCount() > 0
}

// ExitCode maps the report onto a process exit status.
func (r *Report) ExitCode() int {
	if r.Failed() {
		return ExitFailed
	}
	return ExitOK
}

// Write prints one line per finding followed by a summary line.
func (r *Report) Write(w io.Writer) error {
	for _, f := range r.Files {
		if f.Err != nil {
			if _, err := fmt.Fprintln(w, f.Err); err != nil {
				return err
			}
		}
		for _, is := range f.Issues {
			if _, err := fmt.Fprintln(w, is.String()); err != nil {
				return err
			}
		}
	}
	if r.Failed() {
		_, err := fmt.Fprintf(w, "validation failed: %d error(s)\n", r.ErrorCount())
		return err
	}
	_, err := fmt.Fprintf(w, "validation ok: %d file(s)\n", len(r.Files))
	return err
}
