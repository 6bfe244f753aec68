// Package upload pushes local plan files to a zwoforge server's workout
// library, skipping files that were already sent unchanged.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/claude/zwoforge/internal/builder"
	"github.com/claude/zwoforge/internal/plan"
	"github.com/claude/zwoforge/internal/watcher"
)

// Tracker remembers files already pushed to a server. *state.Cache
// implements it.
type Tracker interface {
	Passed(path, scope string) (bool, error)
	MarkPassed(path, scope string) error
}

// Stats summarizes an upload run.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int
}

// Uploader pushes every plan in a directory.
type Uploader struct {
	client *Client
	state  Tracker
	dir    string
	dryRun bool
	log    *slog.Logger
}

// New creates an Uploader. state may be nil to push every file; client may
// be nil in dry-run mode.
func New(client *Client, state Tracker, dir string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{client: client, state: state, dir: dir, dryRun: dryRun, log: log}
}

// Run compiles each plan locally, then sends the ones that compile. A
// failing file is counted and the run continues; the returned error reports
// that at least one file failed.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	entries, err := os.ReadDir(u.dir)
	if err != nil {
		return stats, fmt.Errorf("reading %s: %w", u.dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && watcher.IsPlan(e.Name()) {
			files = append(files, filepath.Join(u.dir, e.Name()))
		}
	}
	sort.Strings(files)
	stats.FilesTotal = len(files)

	scope := ""
	if u.client != nil {
		scope = "push " + u.client.ServerURL()
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if u.state != nil && !u.dryRun {
			done, err := u.state.Passed(path, scope)
			if err != nil {
				u.log.Warn("state lookup failed", "file", path, "error", err)
			} else if done {
				stats.FilesSkipped++
				continue
			}
		}

		if err := u.push(ctx, path); err != nil {
			u.log.Error("upload failed", "file", path, "error", err)
			stats.FilesErrored++
			continue
		}
		stats.FilesUploaded++

		if u.state != nil && !u.dryRun {
			if err := u.state.MarkPassed(path, scope); err != nil {
				u.log.Warn("state update failed", "file", path, "error", err)
			}
		}
	}

	if stats.FilesErrored > 0 {
		return stats, fmt.Errorf("%d of %d file(s) failed", stats.FilesErrored, stats.FilesTotal)
	}
	return stats, nil
}

func (u *Uploader) push(ctx context.Context, path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	p, err := plan.Parse(source)
	if err != nil {
		return err
	}
	res, err := builder.Build(p, builder.Options{})
	if err != nil {
		return err
	}

	if u.dryRun {
		u.log.Info("dry run", "file", path, "slug", res.Slug, "seconds", res.Summary.TotalSeconds)
		return nil
	}
	row, err := u.client.PushPlan(ctx, source)
	if err != nil {
		return err
	}
	u.log.Info("uploaded", "file", path, "id", row.ID, "slug", row.Slug)
	return nil
}
