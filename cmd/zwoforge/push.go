package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/claude/zwoforge/internal/state"
	"github.com/claude/zwoforge/internal/upload"
	"github.com/claude/zwoforge/internal/validator"
)

func runPush(e *env, args []string) int {
	fs := flag.NewFlagSet("push", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	dir := fs.String("dir", "", "directory of plan files (required)")
	serverURL := fs.String("server", "", "zwoforge server URL (e.g. https://zwoforge.tail1234.ts.net)")
	apiKey := fs.String("api-key", e.cfg.Auth.APIKey, "API key for library writes")
	dryRun := fs.Bool("dry-run", false, "compile plans but don't send them")
	stateDir := fs.String("state-dir", "", "where to remember pushed files (default ~/.zwoforge)")
	if err := fs.Parse(args); err != nil {
		return validator.ExitUsage
	}
	if *dir == "" || (*serverURL == "" && !*dryRun) {
		fmt.Fprintln(e.stderr, "Usage: zwoforge push -dir plans -server <URL> [-api-key K] [-dry-run]")
		fs.PrintDefaults()
		return validator.ExitUsage
	}

	var tracker upload.Tracker
	if !*dryRun {
		if *stateDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				e.log.Error("failed to get home directory", "error", err)
				return validator.ExitFailed
			}
			*stateDir = filepath.Join(home, ".zwoforge")
		}
		cache, err := state.Open(*stateDir)
		if err != nil {
			e.log.Error("failed to open state database", "error", err)
			return validator.ExitFailed
		}
		defer cache.Close()
		tracker = cache
	}

	var client *upload.Client
	if !*dryRun {
		client = upload.NewClient(*serverURL, *apiKey)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := upload.New(client, tracker, *dir, *dryRun, e.log).Run(ctx)
	fmt.Fprintf(e.stdout, "plans: %d total, %d uploaded, %d skipped, %d failed\n",
		stats.FilesTotal, stats.FilesUploaded, stats.FilesSkipped, stats.FilesErrored)
	if err != nil {
		e.log.Error("push failed", "error", err)
		return validator.ExitFailed
	}
	return validator.ExitOK
}
