package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"github.com/CTAG07/wordwalk/pkg/tokenize"
)

// Environment variables that override values from the config file.
const (
	envDatabase = "WORDWALK_DATABASE"
	envAddr     = "WORDWALK_ADDR"
	envLogLevel = "WORDWALK_LOG_LEVEL"
)

// ServerConfig holds the settings for the HTTP server and the database.
type ServerConfig struct {
	Addr         string `json:"addr" yaml:"addr"`
	LogLevel     string `json:"log_level" yaml:"log_level"`
	DatabasePath string `json:"database_path" yaml:"database_path"`
}

// WalkConfig holds the defaults used when generating text.
type WalkConfig struct {
	Order    int    `json:"order" yaml:"order"`
	MaxSteps int    `json:"max_steps" yaml:"max_steps"` // 0 means unbounded
	Parallel int    `json:"parallel" yaml:"parallel"`   // walks in flight for a multi-walk request
	RandSeed uint64 `json:"rand_seed" yaml:"rand_seed"` // 0 means randomly seeded
}

// TokenizerConfig mirrors the options of tokenize.New.
type TokenizerConfig struct {
	SplitHyphens bool   `json:"split_hyphens" yaml:"split_hyphens"`
	CaseFold     bool   `json:"case_fold" yaml:"case_fold"`
	KeepEmpty    bool   `json:"keep_empty" yaml:"keep_empty"`
	Separator    string `json:"separator" yaml:"separator"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server    *ServerConfig    `json:"server_config" yaml:"server_config"`
	Walk      *WalkConfig      `json:"walk_config" yaml:"walk_config"`
	Tokenizer *TokenizerConfig `json:"tokenizer_config" yaml:"tokenizer_config"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: &ServerConfig{
			Addr:         ":7280",
			LogLevel:     "info",
			DatabasePath: "./data/wordwalk.db",
		},
		Walk: &WalkConfig{
			Order:    2,
			MaxSteps: 0,
			Parallel: 4,
			RandSeed: 0,
		},
		Tokenizer: &TokenizerConfig{
			SplitHyphens: true,
			CaseFold:     true,
			KeepEmpty:    false,
			Separator:    " ",
		},
	}
}

// LoadConfig reads the configuration from the file at path. Files ending in
// .yaml or .yml are parsed as YAML, anything else as JSON. If the file doesn't
// exist, it is created with default values. Environment overrides are applied
// last.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		data, err := marshalConfig(path, config)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal default config: %w", err)
		}
		if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
			// The defaults are still usable without a file on disk.
			slog.Warn("Failed to write default config file", "path", path, "error", err)
		}
	} else if err = unmarshalConfig(path, file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.fillSections()
	config.applyEnv(os.LookupEnv)
	if err = config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func marshalConfig(path string, config *Config) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(config)
	}
	return json.MarshalIndent(config, "", "  ")
}

func unmarshalConfig(path string, data []byte, config *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, config)
	}
	return json.Unmarshal(data, config)
}

// applyEnv overrides file values with the WORDWALK_* environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(envDatabase); ok && v != "" {
		c.Server.DatabasePath = v
	}
	if v, ok := lookup(envAddr); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup(envLogLevel); ok && v != "" {
		c.Server.LogLevel = v
	}
}

// fillSections restores sections that a config file set to null.
func (c *Config) fillSections() {
	defaults := DefaultConfig()
	if c.Server == nil {
		c.Server = defaults.Server
	}
	if c.Walk == nil {
		c.Walk = defaults.Walk
	}
	if c.Tokenizer == nil {
		c.Tokenizer = defaults.Tokenizer
	}
}

func (c *Config) validate() error {
	if c.Walk.Order <= 0 {
		return fmt.Errorf("walk_config.order must be positive, got %d", c.Walk.Order)
	}
	if c.Walk.MaxSteps < 0 {
		return fmt.Errorf("walk_config.max_steps must not be negative, got %d", c.Walk.MaxSteps)
	}
	if c.Server.DatabasePath == "" {
		return fmt.Errorf("server_config.database_path must not be empty")
	}
	return nil
}

// NewTokenizer builds the tokenizer described by the config.
func (c *TokenizerConfig) NewTokenizer() *tokenize.Tokenizer {
	return tokenize.New(
		tokenize.WithHyphenSplit(c.SplitHyphens),
		tokenize.WithCaseFold(c.CaseFold),
		tokenize.WithKeepEmpty(c.KeepEmpty),
		tokenize.WithSeparator(c.Separator),
	)
}

// parseLogLevel maps a config string to a slog level, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
