package configs

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/crack-kitty/claudememkeep/internal/storage"
)

// Transport modes for the MCP server.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

type Config struct {
	HTTPPort  int    `env:"HTTP_PORT" envDefault:"8080"`
	Transport string `env:"MCP_TRANSPORT" envDefault:"http"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"./data/memory.db"`
	DBMinConns  int    `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConns  int    `env:"DB_MAX_CONNS" envDefault:"10"`

	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"10s"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	// Shared bearer credential. Empty disables auth on /mcp.
	AuthToken string `env:"MCP_AUTH_TOKEN"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load reads .env files when present, then parses and validates the
// environment.
func Load() (*Config, error) {
	loadEnvFiles(".env")

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case storage.DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
	case storage.DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required when STORE_DRIVER=sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", storage.DriverPostgres, storage.DriverSQLite, c.StoreDriver))
	}

	if c.Transport != TransportHTTP && c.Transport != TransportStdio {
		errs = append(errs, fmt.Errorf("MCP_TRANSPORT must be %q or %q, got %q", TransportHTTP, TransportStdio, c.Transport))
	}
	if c.DBMaxConns < 1 {
		errs = append(errs, fmt.Errorf("DB_MAX_CONNS must be at least 1, got %d", c.DBMaxConns))
	}
	if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		errs = append(errs, fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS (%d), got %d", c.DBMaxConns, c.DBMinConns))
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("HTTP_PORT out of range: %d", c.HTTPPort))
	}

	return errors.Join(errs...)
}

// StoreOptions maps the config onto storage.Options.
func (c *Config) StoreOptions() storage.Options {
	return storage.Options{
		Driver:      c.StoreDriver,
		DSN:         c.DatabaseURL,
		SQLitePath:  c.SQLitePath,
		MinConns:    c.DBMinConns,
		MaxConns:    c.DBMaxConns,
		ConnTimeout: c.ConnectTimeout,
	}
}

func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		// Load does not override variables already set in the environment.
		if err := godotenv.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
		}
	}
}

// HookConfig configures the memory-hook CLI.
type HookConfig struct {
	ServerURL string `env:"MCP_SERVER_URL" envDefault:"http://localhost:8080"`
	AuthToken string `env:"MCP_AUTH_TOKEN"`
	LogLevel  string `env:"HOOK_LOG_LEVEL" envDefault:"warn"`
}

// LoadHook parses the hook environment. It never fails on a missing .env.
func LoadHook() (*HookConfig, error) {
	loadEnvFiles(".env")

	cfg := &HookConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	cfg.ServerURL = strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	return cfg, nil
}
