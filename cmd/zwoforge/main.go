package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/claude/zwoforge/internal/config"
	"github.com/claude/zwoforge/internal/schema"
	"github.com/claude/zwoforge/internal/validator"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const usage = `Usage: zwoforge [-config F] <command> [flags]

Commands:
  compile   compile a plan into a .zwo file
  validate  check .zwo files against the Zwift vocabulary
  watch     recompile plans in a directory as they change
  push      send plans to a zwoforge server's workout library
  mcp       serve the MCP tools over stdio
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// env is what every command receives.
type env struct {
	cfg    *config.Config
	log    *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("zwoforge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	configPath := fs.String("config", "", "path to config file")
	version := fs.Bool("version", false, "print version and exit")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return validator.ExitUsage
	}

	if *version {
		fmt.Fprintf(stdout, "zwoforge %s\n", Version)
		return validator.ExitOK
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return validator.ExitUsage
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		return validator.ExitUsage
	}
	e := &env{cfg: cfg, log: log, stdout: stdout, stderr: stderr}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "compile":
		return runCompile(e, rest)
	case "validate":
		return runValidate(e, rest)
	case "watch":
		return runWatch(e, rest)
	case "push":
		return runPush(e, rest)
	case "mcp":
		return runMCP(e, rest)
	}
	fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
	fs.Usage()
	return validator.ExitUsage
}

// loadAllowlist reads the reference data named by flags, falling back to the
// config and then to the data built into the binary.
func loadAllowlist(cfg *config.Config, usagePath, descPath string) (*schema.Allowlist, error) {
	if usagePath == "" && descPath == "" {
		usagePath, descPath = cfg.Validation.TagAttrUsage, cfg.Validation.Descriptions
	}
	if usagePath == "" && descPath == "" {
		return schema.LoadDefault()
	}
	return schema.Load(usagePath, descPath)
}
