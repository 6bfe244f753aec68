package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Tailscale  TailscaleConfig  `yaml:"tailscale"`
	Compile    CompileConfig    `yaml:"compile"`
	Validation ValidationConfig `yaml:"validation"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// CompileConfig holds defaults for plan compilation.
type CompileConfig struct {
	OutputDir       string `yaml:"output_dir"`
	Author          string `yaml:"author"`
	UnrollIntervals bool   `yaml:"unroll_intervals"`
	Validate        bool   `yaml:"validate"`
}

// ValidationConfig locates the schema reference data. Empty paths select the
// reference data built into the binary.
type ValidationConfig struct {
	TagAttrUsage string `yaml:"tag_attr_usage"`
	Descriptions string `yaml:"descriptions"`
	Strict       bool   `yaml:"strict"`
	Workers      int    `yaml:"workers"`
	CacheDir     string `yaml:"cache_dir"`
}

// Enabled reports whether a workout library database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Host: "127.0.0.1", Port: 8080},
		Tailscale: TailscaleConfig{Hostname: "zwoforge"},
		Compile:   CompileConfig{OutputDir: "workouts"},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then a .env file next to it, then environment
// variable overrides. Env vars use the prefix ZWOFORGE_:
//
//	ZWOFORGE_SERVER_HOST, ZWOFORGE_SERVER_PORT,
//	ZWOFORGE_DB_HOST, ZWOFORGE_DB_PORT, ZWOFORGE_DB_NAME,
//	ZWOFORGE_DB_USER, ZWOFORGE_DB_PASSWORD, ZWOFORGE_DB_SSLMODE,
//	ZWOFORGE_AUTH_API_KEY, ZWOFORGE_TAILSCALE_ENABLED,
//	ZWOFORGE_TAILSCALE_HOSTNAME, ZWOFORGE_TAILSCALE_STATE_DIR,
//	ZWOFORGE_OUTPUT_DIR, ZWOFORGE_AUTHOR,
//	ZWOFORGE_TAG_ATTR_USAGE, ZWOFORGE_DESCRIPTIONS,
//	ZWOFORGE_VALIDATION_WORKERS, ZWOFORGE_CACHE_DIR
//
// Variables already set in the environment win over the .env file.
func Load(path string) (*Config, error) {
	cfg := Default()

	envDir := "."
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		envDir = filepath.Dir(path)
	}
	// A missing .env is fine.
	_ = godotenv.Load(filepath.Join(envDir, ".env"))

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("ZWOFORGE_SERVER_HOST", &cfg.Server.Host)
	num("ZWOFORGE_SERVER_PORT", &cfg.Server.Port)
	str("ZWOFORGE_DB_HOST", &cfg.Database.Host)
	num("ZWOFORGE_DB_PORT", &cfg.Database.Port)
	str("ZWOFORGE_DB_NAME", &cfg.Database.Name)
	str("ZWOFORGE_DB_USER", &cfg.Database.User)
	str("ZWOFORGE_DB_PASSWORD", &cfg.Database.Password)
	str("ZWOFORGE_DB_SSLMODE", &cfg.Database.SSLMode)
	str("ZWOFORGE_AUTH_API_KEY", &cfg.Auth.APIKey)
	if v := os.Getenv("ZWOFORGE_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	str("ZWOFORGE_TAILSCALE_HOSTNAME", &cfg.Tailscale.Hostname)
	str("ZWOFORGE_TAILSCALE_STATE_DIR", &cfg.Tailscale.StateDir)
	str("ZWOFORGE_OUTPUT_DIR", &cfg.Compile.OutputDir)
	str("ZWOFORGE_AUTHOR", &cfg.Compile.Author)
	str("ZWOFORGE_TAG_ATTR_USAGE", &cfg.Validation.TagAttrUsage)
	str("ZWOFORGE_DESCRIPTIONS", &cfg.Validation.Descriptions)
	num("ZWOFORGE_VALIDATION_WORKERS", &cfg.Validation.Workers)
	str("ZWOFORGE_CACHE_DIR", &cfg.Validation.CacheDir)
}

func (c *Config) validate() error {
	if c.Validation.Workers < 0 {
		return fmt.Errorf("validation.workers must be >= 0")
	}
	if (c.Validation.TagAttrUsage == "") != (c.Validation.Descriptions == "") {
		return fmt.Errorf("validation.tag_attr_usage and validation.descriptions must be set together")
	}
	if c.Database.Enabled() {
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	}
	return nil
}

// ValidateServer checks the settings only the HTTP server needs.
func (c *Config) ValidateServer() error {
	if !c.Tailscale.Enabled && c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	return nil
}
