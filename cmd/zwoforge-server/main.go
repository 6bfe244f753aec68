package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/zwoforge/internal/config"
	zmcp "github.com/claude/zwoforge/internal/mcp"
	"github.com/claude/zwoforge/internal/schema"
	"github.com/claude/zwoforge/internal/server"
	"github.com/claude/zwoforge/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("zwoforge starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid server config", "error", err)
		os.Exit(1)
	}

	// Schema allowlist
	var allow *schema.Allowlist
	if cfg.Validation.TagAttrUsage != "" {
		allow, err = schema.Load(cfg.Validation.TagAttrUsage, cfg.Validation.Descriptions)
	} else {
		allow, err = schema.LoadDefault()
	}
	if err != nil {
		log.Error("failed to load schema", "error", err)
		os.Exit(1)
	}
	log.Info("schema loaded", "elements", len(allow.Elements()), "fingerprint", allow.Fingerprint()[:12])

	// Workout library (optional)
	ctx := context.Background()
	var db *storage.DB
	if cfg.Database.Enabled() {
		dsn := cfg.Database.DSN()
		if err := storage.RunMigrations(dsn, "migrations"); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")

		if *migrateOnly {
			log.Info("migrate-only: exiting")
			return
		}

		db, err = storage.New(ctx, dsn)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		log.Info("database connected")
	} else {
		if *migrateOnly {
			log.Error("migrate-only requires a database")
			os.Exit(1)
		}
		log.Info("no database configured, workout library disabled")
	}

	opts := server.Options{
		APIKey:          cfg.Auth.APIKey,
		Author:          cfg.Compile.Author,
		Strict:          cfg.Validation.Strict,
		UnrollIntervals: cfg.Compile.UnrollIntervals,
	}
	deps := zmcp.Deps{
		Allowlist:       allow,
		Author:          cfg.Compile.Author,
		Strict:          cfg.Validation.Strict,
		UnrollIntervals: cfg.Compile.UnrollIntervals,
	}

	// Create server
	var srv *server.Server
	if db != nil {
		srv = server.New(db, allow, opts, log)
		deps.Library = db
	} else {
		srv = server.New(nil, allow, opts, log)
	}

	// MCP over streamable HTTP; the tailnet caller becomes the default author.
	mcpSrv := zmcp.New(deps, Version, log)
	srv.MountMCP(mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if name := server.CallerName(r); name != "" {
				return zmcp.WithAuthor(ctx, name)
			}
			return ctx
		}),
	))

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
