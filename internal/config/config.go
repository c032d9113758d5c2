package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Root            string            `json:"root" yaml:"root"`
	Database        string            `json:"database" yaml:"database"`
	IgnoreDirs      []string          `json:"ignore_dirs" yaml:"ignore_dirs"`
	Languages       map[string]string `json:"languages" yaml:"languages"` // extension -> language
	Workers         int               `json:"workers" yaml:"workers"`
	TimeoutMS       int               `json:"timeout_ms" yaml:"timeout_ms"`
	LogFile         string            `json:"log_file" yaml:"log_file"`
	Verbosity       int               `json:"verbosity" yaml:"verbosity"`
	FeedAddr        string            `json:"feed_addr" yaml:"feed_addr"`
	RemoteTimeoutMS int               `json:"remote_timeout_ms" yaml:"remote_timeout_ms"`
}

var defaultConfig = Config{
	Root:            ".",
	Database:        ".sitterfeed.db",
	IgnoreDirs:      []string{"node_modules", "vendor", "build", "dist"},
	Workers:         4,
	TimeoutMS:       5000,
	Verbosity:       1,
	FeedAddr:        "127.0.0.1:7420",
	RemoteTimeoutMS: 2000,
}

// Default returns a copy of the default configuration.
func Default() Config {
	cfg := defaultConfig
	cfg.IgnoreDirs = append([]string(nil), defaultConfig.IgnoreDirs...)
	return cfg
}

func Load(v any) (Config, error) {
	cfg := Default()

	data, err := json.Marshal(v)
	if err != nil {
		return Config{}, fmt.Errorf("failed to marshal source: %w", err)
	}

	// only fields present in src will overwrite.
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal into Config: %w", err)
	}

	return cfg, cfg.validate()
}

// LoadFromJSON reads JSON from r into a Config.
func LoadFromJSON(r io.Reader) (Config, error) {
	cfg := Default()

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode json config: %w", err)
	}

	return cfg, cfg.validate()
}

// LoadFromYAML reads YAML from r into a Config.
func LoadFromYAML(r io.Reader) (Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("failed to decode yaml config: %w", err)
	}

	return cfg, cfg.validate()
}

// LoadFile picks the decoder from the file extension.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadFromYAML(f)
	case ".json":
		return LoadFromJSON(f)
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

func (c Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.TimeoutMS < 0 {
		return fmt.Errorf("timeout_ms must not be negative, got %d", c.TimeoutMS)
	}
	if c.RemoteTimeoutMS <= 0 {
		return fmt.Errorf("remote_timeout_ms must be positive, got %d", c.RemoteTimeoutMS)
	}
	return nil
}

// Timeout is the parse timeout. Zero means no limit.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func (c Config) RemoteTimeout() time.Duration {
	return time.Duration(c.RemoteTimeoutMS) * time.Millisecond
}

// DatabasePath resolves a relative database path against Root.
func (c Config) DatabasePath() string {
	if filepath.IsAbs(c.Database) {
		return c.Database
	}
	return filepath.Join(c.Root, c.Database)
}
