// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the sqlbridge server.
// It handles loading and parsing YAML configuration files, and provides
// structured access to server, database, generator, routing, engine, history,
// export, plugin, and logging settings.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Server holds the HTTP boundary settings.
	Server ServerConfig `yaml:"server"`

	// Databases maps a database id (e.g. "default", "erp_r12") to its handle settings.
	Databases map[string]DatabaseConfig `yaml:"databases"`

	// Generator configures the external SQL-generation API client.
	Generator GeneratorConfig `yaml:"generator"`

	// Routing controls query routing behavior.
	Routing RoutingConfig `yaml:"routing"`

	// Engine controls execution retries, backoff, and pagination.
	Engine EngineConfig `yaml:"engine"`

	// History configures the query-history sink.
	History HistoryConfig `yaml:"history"`

	// Export configures optional CSV export to S3-compatible object storage.
	Export ExportConfig `yaml:"export"`

	// Plugin configures the Lua rewrite plugin system.
	Plugin PluginConfig `yaml:"plugin"`

	// Logging controls log destination and rotation.
	Logging LoggingConfig `yaml:"logging"`

	// Debug enables debug-level logging and Gin debug mode.
	Debug bool `yaml:"debug"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	// Host is the network interface to bind. Empty binds all interfaces.
	Host string `yaml:"host"`
	// Port is the port the API server listens on.
	Port int `yaml:"port"`
	// AuthKeys lists accepted API keys. Entries may be plaintext or bcrypt
	// hashes prefixed with "bcrypt:".
	AuthKeys []string `yaml:"auth-keys"`
	// MaxConnections caps concurrent TCP connections on the listener. 0 disables the cap.
	MaxConnections int `yaml:"max-connections"`
	// OpenBrowser opens the service URL in the default browser on startup.
	OpenBrowser bool `yaml:"open-browser"`
}

// DatabaseConfig describes one named database handle.
type DatabaseConfig struct {
	// Driver selects the database/sql driver: "oracle", "pgx", or "sqlite3".
	Driver string `yaml:"driver"`
	// DSN is the driver-specific connection string.
	DSN string `yaml:"dsn"`
	// MaxOpenConns bounds the pool size. 0 uses the driver default.
	MaxOpenConns int `yaml:"max-open-conns"`
	// MaxIdleConns bounds idle pooled connections.
	MaxIdleConns int `yaml:"max-idle-conns"`
	// ConnMaxLifetime recycles connections older than this duration.
	ConnMaxLifetime time.Duration `yaml:"conn-max-lifetime"`
}

// GeneratorConfig configures the OpenAI-compatible SQL generator client.
type GeneratorConfig struct {
	// BaseURL is the chat-completions endpoint base, e.g. "https://api.example.com/v1".
	BaseURL string `yaml:"base-url"`
	// APIKey authenticates requests when OAuth is not configured.
	APIKey string `yaml:"api-key"`
	// Model is the model identifier sent with each request.
	Model string `yaml:"model"`
	// Timeout bounds a single generation request.
	Timeout time.Duration `yaml:"timeout"`
	// MaxPromptTokens caps the schema context included in a prompt.
	MaxPromptTokens int `yaml:"max-prompt-tokens"`
	// OAuth optionally configures a client-credentials token source instead of APIKey.
	OAuth OAuthConfig `yaml:"oauth"`
}

// OAuthConfig holds client-credentials settings for the generator API.
type OAuthConfig struct {
	// Enabled switches the client to OAuth2 client-credentials authentication.
	Enabled bool `yaml:"enabled"`
	// TokenURL is the token endpoint.
	TokenURL string `yaml:"token-url"`
	// ClientID identifies this service.
	ClientID string `yaml:"client-id"`
	// ClientSecret authenticates this service.
	ClientSecret string `yaml:"client-secret"`
	// Scopes lists requested scopes.
	Scopes []string `yaml:"scopes"`
}

// RoutingConfig controls query routing.
type RoutingConfig struct {
	// RulesDir is a directory of YAML rule files for the pattern-fallback tier.
	// Rules are hot-reloaded when the directory changes.
	RulesDir string `yaml:"rules-dir"`
	// DefaultModule receives queries no tier claims.
	DefaultModule string `yaml:"default-module"`
	// DefaultDatabase is the database id used when no explicit selection applies.
	DefaultDatabase string `yaml:"default-database"`
}

// EngineConfig controls the execution engine.
type EngineConfig struct {
	// MaxAttempts is the retry cap for transient execution errors.
	MaxAttempts int `yaml:"max-attempts"`
	// PageSize is the default pagination page size.
	PageSize int `yaml:"page-size"`
	// MaxPageSize caps client-requested page sizes.
	MaxPageSize int `yaml:"max-page-size"`
	// QueryTimeout bounds a single driver call.
	QueryTimeout time.Duration `yaml:"query-timeout"`
	// CountProbe enables the COUNT(*) wrapper for total-row estimation.
	CountProbe bool `yaml:"count-probe"`
}

// HistoryConfig configures the query-history sink.
type HistoryConfig struct {
	// Enabled toggles history recording.
	Enabled bool `yaml:"enabled"`
	// Path is the SQLite database file path.
	Path string `yaml:"path"`
	// RetentionDays prunes records older than this many days. 0 keeps everything.
	RetentionDays int `yaml:"retention-days"`
}

// ExportConfig configures CSV export to S3-compatible object storage.
type ExportConfig struct {
	// Enabled toggles the export endpoint.
	Enabled bool `yaml:"enabled"`
	// Endpoint is the S3-compatible endpoint host:port.
	Endpoint string `yaml:"endpoint"`
	// AccessKey authenticates against the object store.
	AccessKey string `yaml:"access-key"`
	// SecretKey authenticates against the object store.
	SecretKey string `yaml:"secret-key"`
	// Bucket receives exported objects.
	Bucket string `yaml:"bucket"`
	// UseSSL enables TLS to the endpoint.
	UseSSL bool `yaml:"use-ssl"`
}

// PluginConfig holds Lua rewrite plugin settings.
type PluginConfig struct {
	// Enabled determines if the plugin engine is active.
	Enabled bool `yaml:"enabled"`
	// Dir is the directory containing Lua scripts exposing rewrite(sql).
	Dir string `yaml:"dir"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// ToFile writes logs to a rotating file instead of stdout.
	ToFile bool `yaml:"to-file"`
	// Dir is the log directory when ToFile is set.
	Dir string `yaml:"dir"`
	// MaxSizeMB bounds a single log file before rotation.
	MaxSizeMB int `yaml:"max-size-mb"`
}

// Load reads, parses, and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8317
	}
	if c.Generator.Timeout == 0 {
		c.Generator.Timeout = 60 * time.Second
	}
	if c.Generator.MaxPromptTokens == 0 {
		c.Generator.MaxPromptTokens = 6000
	}
	if c.Routing.DefaultModule == "" {
		c.Routing.DefaultModule = "GENERAL"
	}
	if c.Routing.DefaultDatabase == "" {
		c.Routing.DefaultDatabase = "default"
	}
	if c.Engine.MaxAttempts == 0 {
		c.Engine.MaxAttempts = 3
	}
	if c.Engine.PageSize == 0 {
		c.Engine.PageSize = 50
	}
	if c.Engine.MaxPageSize == 0 {
		c.Engine.MaxPageSize = 500
	}
	if c.Engine.QueryTimeout == 0 {
		c.Engine.QueryTimeout = 120 * time.Second
	}
	if c.History.Path == "" {
		c.History.Path = "history.db"
	}
	if c.History.RetentionDays == 0 {
		c.History.RetentionDays = 90
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 10
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	for id, db := range c.Databases {
		switch db.Driver {
		case "oracle", "pgx", "sqlite3":
		default:
			return fmt.Errorf("config: database %q: unsupported driver %q", id, db.Driver)
		}
		if db.DSN == "" {
			return fmt.Errorf("config: database %q: dsn is required", id)
		}
	}
	if c.Engine.MaxAttempts < 1 {
		return fmt.Errorf("config: engine max-attempts must be >= 1")
	}
	return nil
}

// CheckAPIKey reports whether the presented key matches any configured auth
// key. Entries prefixed with "bcrypt:" are compared as bcrypt hashes;
// everything else is compared verbatim.
func (c *Config) CheckAPIKey(presented string) bool {
	if presented == "" {
		return false
	}
	for _, key := range c.Server.AuthKeys {
		if hash, ok := strings.CutPrefix(key, "bcrypt:"); ok {
			if bcrypt.CompareHashAndPassword([]byte(hash), []byte(presented)) == nil {
				return true
			}
			continue
		}
		if key == presented {
			return true
		}
	}
	return false
}

// AuthRequired reports whether any auth keys are configured.
func (c *Config) AuthRequired() bool {
	return len(c.Server.AuthKeys) > 0
}
