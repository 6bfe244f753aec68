// Package watcher recompiles workout plans in a directory as they change.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/claude/zwoforge/internal/builder"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce groups the burst of events an editor produces on save.
const DefaultDebounce = 200 * time.Millisecond

// Event reports one rebuild.
type Event struct {
	Plan   string
	Output string
	Issues int
	Err    error
}

// Watcher rebuilds plans under Dir into OutDir.
type Watcher struct {
	Dir      string
	OutDir   string
	Options  builder.Options
	Debounce time.Duration
	// OnBuild, when set, is called after every rebuild from the watch loop.
	OnBuild func(Event)

	log *slog.Logger
}

// New creates a Watcher with the default debounce.
func New(dir, outDir string, opts builder.Options, log *slog.Logger) *Watcher {
	return &Watcher{
		Dir:      dir,
		OutDir:   outDir,
		Options:  opts,
		Debounce: DefaultDebounce,
		log:      log,
	}
}

// IsPlan reports whether name looks like a plan file. Hidden files and
// editor backups are skipped.
func IsPlan(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// Scan builds every plan currently in Dir, in name order.
func (w *Watcher) Scan() ([]Event, error) {
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", w.Dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && IsPlan(e.Name()) {
			names = append(names, filepath.Join(w.Dir, e.Name()))
		}
	}
	sort.Strings(names)

	events := make([]Event, 0, len(names))
	for _, p := range names {
		events = append(events, w.build(p))
	}
	return events, nil
}

// Run scans Dir once and then rebuilds plans as they are written, until ctx
// is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	if err := os.MkdirAll(w.OutDir, 0o755); err != nil {
		return fmt.Errorf("ensure dir %s: %w", w.OutDir, err)
	}
	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.Dir, err)
	}

	events, err := w.Scan()
	if err != nil {
		return err
	}
	for _, ev := range events {
		w.notify(ev)
	}
	w.log.Info("watching plans", "dir", w.Dir, "output", w.OutDir, "plans", len(events))

	ready := make(chan string)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !IsPlan(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.log.Debug("fsnotify", "op", event.Op.String(), "file", event.Name)
				w.schedule(ctx, timers, ready, event.Name)
			}
		case name := <-ready:
			delete(timers, name)
			w.notify(w.build(name))
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, timers map[string]*time.Timer, ready chan<- string, name string) {
	if t, ok := timers[name]; ok {
		t.Reset(w.Debounce)
		return
	}
	timers[name] = time.AfterFunc(w.Debounce, func() {
		select {
		case ready <- name:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) build(planPath string) Event {
	res, out, err := builder.BuildFile(planPath, w.OutDir, w.Options)
	ev := Event{Plan: planPath, Output: out, Err: err}
	if err != nil {
		w.log.Error("build failed", "plan", planPath, "error", err)
		return ev
	}
	ev.Issues = len(res.Issues)
	if ev.Issues > 0 {
		w.log.Warn("workout built with validation issues", "plan", planPath, "output", out, "issues", ev.Issues)
		for _, is := range res.Issues {
			w.log.Warn(is.String())
		}
		return ev
	}
	w.log.Info("workout built", "plan", planPath, "output", out, "seconds", res.Summary.TotalSeconds)
	return ev
}

func (w *Watcher) notify(ev Event) {
	if w.OnBuild != nil {
		w.OnBuild(ev)
	}
}
