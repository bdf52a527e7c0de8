// ABOUTME: Configuration loading and parsing for ecg-gateway
// ABOUTME: Supports YAML or TOML files with environment variable expansion, overrides and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultHTTPAddr      = "0.0.0.0:8000"
	DefaultDatabasePath  = "./ecg.db"
	DefaultDriver        = "sqlite"
	DefaultSecretKey     = "secret"
	DefaultAlgorithm     = "HS256"
	DefaultTokenTTL      = 5 * time.Minute
	DefaultBcryptCost    = 10
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "password"
	DefaultHostname      = "ecg-gateway"
)

// Config represents the complete ecg-gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr" toml:"grpc_addr"` // optional health service
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver string `yaml:"driver" toml:"driver"` // "sqlite" (pure Go) or "sqlite3" (cgo)
	Path   string `yaml:"path" toml:"path"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	SecretKey     string `yaml:"secret_key" toml:"secret_key"`
	Algorithm     string `yaml:"algorithm" toml:"algorithm"`
	BcryptCost    int    `yaml:"bcrypt_cost" toml:"bcrypt_cost"`
	AdminUsername string `yaml:"admin_username" toml:"admin_username"`
	AdminPassword string `yaml:"admin_password" toml:"admin_password"`

	TokenTTL    time.Duration `yaml:"-" toml:"-"`
	TokenTTLRaw string        `yaml:"token_ttl" toml:"token_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
	HTTPS     bool   `yaml:"https" toml:"https"`   // serve on :443 with tailnet certs
	Funnel    bool   `yaml:"funnel" toml:"funnel"` // expose publicly (implies HTTPS)
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr: DefaultHTTPAddr,
		},
		Database: DatabaseConfig{
			Driver: DefaultDriver,
			Path:   DefaultDatabasePath,
		},
		Auth: AuthConfig{
			SecretKey:     DefaultSecretKey,
			Algorithm:     DefaultAlgorithm,
			BcryptCost:    DefaultBcryptCost,
			AdminUsername: DefaultAdminUsername,
			AdminPassword: DefaultAdminPassword,
			TokenTTL:      DefaultTokenTTL,
			TokenTTLRaw:   DefaultTokenTTL.String(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tailscale: TailscaleConfig{
			Hostname: DefaultHostname,
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// An empty path skips the file and uses defaults plus environment overrides.
// Files ending in .toml are parsed as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		// Expand environment variables in the raw content
		expandedData := expandEnvVars(string(data))

		if err := decode(path, expandedData, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// decode unmarshals data over cfg, keeping defaults for absent keys.
func decode(path, data string, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(data, cfg)
		return err
	}
	return yaml.Unmarshal([]byte(data), cfg)
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyEnvOverrides applies the service's environment variables on top of
// the file values.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.Path = databasePathFromURL(v)
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		cfg.Auth.SecretKey = v
	}
	if v := os.Getenv("ALGORITHM"); v != "" {
		cfg.Auth.Algorithm = v
	}
	if v := os.Getenv("ADMIN_USERNAME"); v != "" {
		cfg.Auth.AdminUsername = v
	}
	if v := os.Getenv("ADMIN_PASSWORD"); v != "" {
		cfg.Auth.AdminPassword = v
	}
	if v := os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES %q: %w", v, err)
		}
		cfg.Auth.TokenTTLRaw = (time.Duration(minutes) * time.Minute).String()
	}
	return nil
}

// databasePathFromURL accepts a bare path or a sqlite:// URL.
func databasePathFromURL(v string) string {
	for _, prefix := range []string{"sqlite:///", "sqlite://", "file:"} {
		if strings.HasPrefix(v, prefix) {
			return strings.TrimPrefix(v, prefix)
		}
	}
	return v
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// HTTP address is required unless Tailscale is enabled
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	// Tailscale requires a hostname
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Database.Driver {
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("database.driver must be \"sqlite\" or \"sqlite3\", got %q", c.Database.Driver)
	}

	if c.Auth.SecretKey == "" {
		return fmt.Errorf("auth.secret_key is required")
	}

	if !slices.Contains([]string{"HS256", "HS384", "HS512"}, c.Auth.Algorithm) {
		return fmt.Errorf("auth.algorithm must be one of HS256, HS384, HS512, got %q", c.Auth.Algorithm)
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Auth.TokenTTLRaw != "" {
		cfg.Auth.TokenTTL, err = time.ParseDuration(cfg.Auth.TokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing token_ttl %q: %w", cfg.Auth.TokenTTLRaw, err)
		}
	}

	return nil
}

// UsesDefaultSecret reports whether the signing key was left at its default.
func (c *Config) UsesDefaultSecret() bool {
	return c.Auth.SecretKey == DefaultSecretKey
}
