// ABOUTME: Configuration loading and parsing for the back-office gateway
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Default values applied by Load when a field is left empty.
const (
	DefaultTokenTTL         = "7d"
	DefaultFailedLoginDelay = "1s"
	DefaultMetricsPath      = "/metrics"
	DefaultAdminUsername    = "admin"
	DefaultAdminEmail       = "admin@localhost"
)

// Config represents the complete gateway configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// AuthConfig holds token signing and access code configuration.
// An empty JWTSecret or access code is not a load error; requests that
// need them fail as server misconfiguration.
type AuthConfig struct {
	JWTSecret      string             `yaml:"jwt_secret" toml:"jwt_secret"`
	AccessCode     string             `yaml:"access_code" toml:"access_code"`
	AccessCodeHash string             `yaml:"access_code_hash" toml:"access_code_hash"` // bcrypt
	DefaultAdmin   DefaultAdminConfig `yaml:"default_admin" toml:"default_admin"`

	TokenTTL         time.Duration `yaml:"-" toml:"-"`
	FailedLoginDelay time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	TokenTTLRaw         string `yaml:"token_ttl" toml:"token_ttl"`
	FailedLoginDelayRaw string `yaml:"failed_login_delay" toml:"failed_login_delay"`
}

// DefaultAdminConfig holds the attributes of the admin account created on first login
type DefaultAdminConfig struct {
	Username string `yaml:"username" toml:"username"`
	Email    string `yaml:"email" toml:"email"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// Path returns the path to the config file.
// Priority: BACKOFFICE_CONFIG env var > XDG_CONFIG_HOME/backoffice/config.yaml > ~/.config/backoffice/config.yaml
func Path() string {
	if envPath := os.Getenv("BACKOFFICE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "backoffice", "config.yaml")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if dbPath := os.Getenv("BACKOFFICE_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	applyDefaults(&cfg)

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Auth.TokenTTLRaw == "" {
		cfg.Auth.TokenTTLRaw = DefaultTokenTTL
	}
	if cfg.Auth.FailedLoginDelayRaw == "" {
		cfg.Auth.FailedLoginDelayRaw = DefaultFailedLoginDelay
	}
	if cfg.Auth.DefaultAdmin.Username == "" {
		cfg.Auth.DefaultAdmin.Username = DefaultAdminUsername
	}
	if cfg.Auth.DefaultAdmin.Email == "" {
		cfg.Auth.DefaultAdmin.Email = DefaultAdminEmail
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}

	if c.Auth.FailedLoginDelay <= 0 {
		return fmt.Errorf("auth.failed_login_delay must be positive")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// Warnings lists settings that are allowed to be empty but leave parts of the
// API unusable until they are set.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Auth.JWTSecret == "" {
		warnings = append(warnings, "auth.jwt_secret is not set: every authenticated request will fail")
	}
	if c.Auth.AccessCode == "" && c.Auth.AccessCodeHash == "" {
		warnings = append(warnings, "auth.access_code is not set: login is disabled")
	}
	return warnings
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	cfg.Auth.TokenTTL, err = ParseDuration(cfg.Auth.TokenTTLRaw)
	if err != nil {
		return fmt.Errorf("parsing token_ttl %q: %w", cfg.Auth.TokenTTLRaw, err)
	}

	cfg.Auth.FailedLoginDelay, err = ParseDuration(cfg.Auth.FailedLoginDelayRaw)
	if err != nil {
		return fmt.Errorf("parsing failed_login_delay %q: %w", cfg.Auth.FailedLoginDelayRaw, err)
	}

	return nil
}

// ParseDuration parses a Go duration string, additionally accepting a day
// suffix such as "7d" or "1.5d".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseFloat(days, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", days)
		}
		return time.Duration(n * float64(24*time.Hour)), nil
	}
	return time.ParseDuration(s)
}
