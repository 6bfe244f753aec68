package main

import (
	"context"
	"flag"

	"github.com/claude/zwoforge/internal/mcp"
	"github.com/claude/zwoforge/internal/storage"
	"github.com/claude/zwoforge/internal/validator"
	"github.com/mark3labs/mcp-go/server"
)

// runMCP serves the MCP tools over stdio. The workout library is reached
// through the REST API with -remote, or directly when a database is
// configured.
func runMCP(e *env, args []string) int {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	remote := fs.String("remote", "", "base URL of a zwoforge server for the workout library")
	if err := fs.Parse(args); err != nil {
		return validator.ExitUsage
	}

	allow, err := loadAllowlist(e.cfg, "", "")
	if err != nil {
		e.log.Error("failed to load schema", "error", err)
		return validator.ExitUsage
	}

	deps := mcp.Deps{
		Allowlist:       allow,
		Author:          e.cfg.Compile.Author,
		Strict:          e.cfg.Validation.Strict,
		UnrollIntervals: e.cfg.Compile.UnrollIntervals,
	}
	switch {
	case *remote != "":
		deps.Library = mcp.NewHTTPClient(*remote)
		e.log.Info("mcp library via REST", "url", *remote)
	case e.cfg.Database.Enabled():
		db, err := storage.New(context.Background(), e.cfg.Database.DSN())
		if err != nil {
			e.log.Error("failed to connect database", "error", err)
			return validator.ExitFailed
		}
		defer db.Close()
		deps.Library = db
	}

	s := mcp.New(deps, Version, e.log)
	if err := server.ServeStdio(s); err != nil {
		e.log.Error("mcp stdio server failed", "error", err)
		return validator.ExitFailed
	}
	return validator.ExitOK
}
