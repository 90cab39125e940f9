// ABOUTME: Configuration loading and parsing for partner-gateway
// ABOUTME: Supports YAML and TOML files with environment variable expansion

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the complete partner-gateway configuration.
// Secrets are loaded once at startup; missing secrets are fatal at process
// start, never per-request.
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	PartnerA PartnerAConfig `yaml:"partner_a" toml:"partner_a"`
	PartnerB PartnerBConfig `yaml:"partner_b" toml:"partner_b"`
	Admin    AdminConfig    `yaml:"admin" toml:"admin"`
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

// PartnerAConfig holds Partner A integration settings: the signed login flow,
// the opaque access token and the cross-window unlock relay.
type PartnerAConfig struct {
	SharedSecret   string   `yaml:"shared_secret" toml:"shared_secret"`
	TokenSecret    string   `yaml:"token_secret" toml:"token_secret"`
	ProviderURL    string   `yaml:"provider_url" toml:"provider_url"`
	ProviderOrigin string   `yaml:"provider_origin" toml:"provider_origin"`
	LiteralKeys    []string `yaml:"literal_keys" toml:"literal_keys"`

	TokenTTL time.Duration `yaml:"-" toml:"-"`
	// Raw string value for unmarshaling
	TokenTTLRaw string `yaml:"token_ttl" toml:"token_ttl"`
}

// PartnerBConfig holds Partner B integration settings: API key and signed
// webhook verification.
type PartnerBConfig struct {
	SharedSecret string   `yaml:"shared_secret" toml:"shared_secret"`
	LiteralKeys  []string `yaml:"literal_keys" toml:"literal_keys"`
}

// AdminConfig holds internal admin API configuration
type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`
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

// defaultTokenTTL is applied when partner_a.token_ttl is unset. Tokens bridge
// a short browser redirect flow; anything longer invites replay of captured
// tokens. An explicit "0s" disables the window.
const defaultTokenTTL = 10 * time.Minute

// Load reads a configuration file from the given path and returns a parsed
// Config. YAML is assumed unless the file ends in .toml. Environment
// variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	switch filepath.Ext(path) {
	case ".toml":
		if err := toml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment
// variable values. If the environment variable is not set, it is replaced with
// an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
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
	if c.PartnerA.SharedSecret == "" {
		return fmt.Errorf("partner_a.shared_secret is required")
	}
	if c.PartnerA.TokenSecret == "" {
		return fmt.Errorf("partner_a.token_secret is required")
	}
	if c.PartnerB.SharedSecret == "" {
		return fmt.Errorf("partner_b.shared_secret is required")
	}
	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return fmt.Errorf("metrics.path is required when metrics are enabled")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.PartnerA.TokenTTLRaw == "" {
		cfg.PartnerA.TokenTTL = defaultTokenTTL
		return nil
	}
	ttl, err := time.ParseDuration(cfg.PartnerA.TokenTTLRaw)
	if err != nil {
		return fmt.Errorf("parsing token_ttl %q: %w", cfg.PartnerA.TokenTTLRaw, err)
	}
	if ttl < 0 {
		return fmt.Errorf("token_ttl must not be negative")
	}
	cfg.PartnerA.TokenTTL = ttl
	return nil
}
