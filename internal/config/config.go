// Package config provides configuration management.
// A Config is built once by Load and passed explicitly; there is no global instance.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"commodity-pricing/core/importer"
	"commodity-pricing/internal/errors"
	"commodity-pricing/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. PRICING_DATABASE_URL
const EnvPrefix = "PRICING"

// DefaultEnvFile is loaded when present in the working directory
const DefaultEnvFile = ".env"

// Config is the main application configuration
type Config struct {
	// Server contains HTTP API settings
	Server ServerConfig `json:"server"`

	// Database contains storage settings
	Database DatabaseConfig `json:"database"`

	// Cache contains aggregate cache settings
	Cache CacheConfig `json:"cache"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`

	// Import contains product import settings
	Import ImportConfig `json:"import"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	// Addr is the listen address
	Addr string `json:"addr"`

	// AllowedOrigins lists CORS origins; "*" allows any
	AllowedOrigins []string `json:"allowed_origins"`

	// RateLimitPerMinute caps requests per client IP, 0 disables limiting
	RateLimitPerMinute int `json:"rate_limit_per_minute"`
}

// DatabaseConfig contains storage settings
type DatabaseConfig struct {
	// URL selects the driver: postgres:// URLs use pgx, anything else SQLite
	URL string `json:"url"`
}

// CacheConfig contains aggregate cache settings
type CacheConfig struct {
	// RedisAddr enables the cache when set
	RedisAddr string `json:"redis_addr"`

	// TTL bounds how long a cached aggregate lives
	TTL time.Duration `json:"ttl"`
}

// Enabled reports whether a Redis cache is configured
func (c CacheConfig) Enabled() bool {
	return c.RedisAddr != ""
}

// ImportConfig contains product import settings
type ImportConfig struct {
	// ColumnMapping overrides the default field to column layout
	ColumnMapping map[string]string `json:"column_mapping,omitempty"`
}

// Mapping merges the overrides over the default layout
func (c ImportConfig) Mapping() (importer.ColumnMapping, error) {
	return importer.DefaultColumnMapping().Merge(c.ColumnMapping)
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:               ":8080",
			AllowedOrigins:     []string{"*"},
			RateLimitPerMinute: 120,
		},
		Database: DatabaseConfig{
			URL: "sqlite://pricing.db",
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Logging: logging.DefaultConfig(),
	}
}

// settings is the flat form shared by config files and the environment
type settings struct {
	ServerAddr         string            `json:"server_addr" hcl:"server_addr,optional" envconfig:"SERVER_ADDR"`
	AllowedOrigins     []string          `json:"allowed_origins" hcl:"allowed_origins,optional" envconfig:"ALLOWED_CORS_ORIGINS"`
	RateLimitPerMinute int               `json:"rate_limit_per_minute" hcl:"rate_limit_per_minute,optional" envconfig:"RATE_LIMIT_PER_MINUTE"`
	DatabaseURL        string            `json:"database_url" hcl:"database_url,optional" envconfig:"DATABASE_URL"`
	RedisAddr          string            `json:"redis_addr" hcl:"redis_addr,optional" envconfig:"REDIS_ADDR"`
	CacheTTL           string            `json:"cache_ttl" hcl:"cache_ttl,optional" envconfig:"CACHE_TTL"`
	LogLevel           string            `json:"log_level" hcl:"log_level,optional" envconfig:"LOG_LEVEL"`
	LogFormat          string            `json:"log_format" hcl:"log_format,optional" envconfig:"LOG_FORMAT"`
	LogOutput          string            `json:"log_output" hcl:"log_output,optional" envconfig:"LOG_OUTPUT"`
	LogDevelopment     bool              `json:"log_development" hcl:"log_development,optional" envconfig:"LOG_DEVELOPMENT"`
	ColumnMapping      map[string]string `json:"column_mapping" hcl:"column_mapping,optional" envconfig:"COLUMN_MAPPING"`
}

// Load builds a Config from defaults, an optional .json or .hcl file, the env
// files (DefaultEnvFile when none are named) and PRICING_* variables, in that order.
// Variables already present in the process environment win over env files.
func Load(path string, envFiles ...string) (*Config, error) {
	s := flatten(Default())

	if path != "" {
		if err := s.readFile(path); err != nil {
			return nil, err
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, errors.Config("load env file "+f, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &s); err != nil {
		return nil, errors.Config("read environment", err)
	}

	cfg, err := s.build()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return errors.Config("database url is required", nil)
	}
	if c.Server.RateLimitPerMinute < 0 {
		return errors.Config("rate_limit_per_minute must not be negative", nil)
	}
	if c.Cache.TTL < 0 {
		return errors.Config("cache ttl must not be negative", nil)
	}
	if err := c.Logging.Validate(); err != nil {
		return errors.Config("invalid logging configuration", err)
	}
	if _, err := c.Import.Mapping(); err != nil {
		return errors.Config("invalid column mapping", err)
	}
	return nil
}

// Save saves configuration to a file as JSON
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(flatten(c), "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func (s *settings) readFile(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Config("read config file", err)
		}
		if err := json.Unmarshal(data, s); err != nil {
			return errors.Config("parse config file "+path, err)
		}
	case ".hcl":
		var fromFile settings
		if err := hclsimple.DecodeFile(path, nil, &fromFile); err != nil {
			return errors.Config("parse config file "+path, err)
		}
		s.overlay(fromFile)
	default:
		return errors.Config("unsupported config file extension: "+path, nil)
	}
	return nil
}

// overlay copies the attributes an HCL file set; absent attributes decode as zero
func (s *settings) overlay(o settings) {
	if o.ServerAddr != "" {
		s.ServerAddr = o.ServerAddr
	}
	if o.AllowedOrigins != nil {
		s.AllowedOrigins = o.AllowedOrigins
	}
	if o.RateLimitPerMinute != 0 {
		s.RateLimitPerMinute = o.RateLimitPerMinute
	}
	if o.DatabaseURL != "" {
		s.DatabaseURL = o.DatabaseURL
	}
	if o.RedisAddr != "" {
		s.RedisAddr = o.RedisAddr
	}
	if o.CacheTTL != "" {
		s.CacheTTL = o.CacheTTL
	}
	if o.LogLevel != "" {
		s.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		s.LogFormat = o.LogFormat
	}
	if o.LogOutput != "" {
		s.LogOutput = o.LogOutput
	}
	if o.LogDevelopment {
		s.LogDevelopment = true
	}
	if o.ColumnMapping != nil {
		s.ColumnMapping = o.ColumnMapping
	}
}

func flatten(c *Config) settings {
	return settings{
		ServerAddr:         c.Server.Addr,
		AllowedOrigins:     c.Server.AllowedOrigins,
		RateLimitPerMinute: c.Server.RateLimitPerMinute,
		DatabaseURL:        c.Database.URL,
		RedisAddr:          c.Cache.RedisAddr,
		CacheTTL:           c.Cache.TTL.String(),
		LogLevel:           c.Logging.Level,
		LogFormat:          c.Logging.Format,
		LogOutput:          c.Logging.Output,
		LogDevelopment:     c.Logging.Development,
		ColumnMapping:      c.Import.ColumnMapping,
	}
}

func (s settings) build() (*Config, error) {
	ttl, err := time.ParseDuration(s.CacheTTL)
	if err != nil {
		return nil, errors.Config("invalid cache_ttl "+s.CacheTTL, err)
	}
	return &Config{
		Server: ServerConfig{
			Addr:               s.ServerAddr,
			AllowedOrigins:     s.AllowedOrigins,
			RateLimitPerMinute: s.RateLimitPerMinute,
		},
		Database: DatabaseConfig{URL: s.DatabaseURL},
		Cache:    CacheConfig{RedisAddr: s.RedisAddr, TTL: ttl},
		Logging: logging.Config{
			Level:       s.LogLevel,
			Format:      s.LogFormat,
			Output:      s.LogOutput,
			Development: s.LogDevelopment,
		},
		Import: ImportConfig{ColumnMapping: s.ColumnMapping},
	}, nil
}
