// Package config provides configuration loading and structs for the DeckLens server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/decklens/internal/cache"
	"github.com/hyperjump/decklens/internal/classify"
	"github.com/hyperjump/decklens/internal/pipeline"
	"github.com/hyperjump/decklens/internal/scoring"
	"github.com/hyperjump/decklens/internal/selection"
	"github.com/hyperjump/decklens/internal/vision"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool             `yaml:"debug"`
	Server    ServerConfig     `yaml:"server"`
	Cache     cache.Config     `yaml:"cache"`
	Classify  classify.Config  `yaml:"classify"`
	Scoring   scoring.Config   `yaml:"scoring"`
	Selection selection.Config `yaml:"selection"`
	Vision    VisionConfig     `yaml:"vision"`
	Pipeline  pipeline.Config  `yaml:"pipeline"`
	Watch     WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// VisionConfig holds vision backend, worker, and budget settings.
type VisionConfig struct {
	// Provider selects the backend: "anthropic" (default) or "mock".
	Provider  string                 `yaml:"provider"`
	Anthropic vision.AnthropicConfig `yaml:"anthropic"`
	Worker    vision.WorkerConfig    `yaml:"worker"`
	// MaxCalls caps vision calls per session. 0 means unlimited.
	MaxCalls int `yaml:"max_calls"`
	// MaxTokens caps tokens spent on vision per session. 0 means unlimited.
	MaxTokens int `yaml:"max_tokens"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// ApplyDefaults fills in zero values across all sections.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Vision.Provider == "" {
		cfg.Vision.Provider = "anthropic"
	}
	if cfg.Vision.Anthropic.APIKey == "" {
		cfg.Vision.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if len(cfg.Watch.Extensions) == 0 {
		cfg.Watch.Extensions = []string{".pdf", ".docx", ".xlsx", ".txt"}
	}
	cfg.Cache.ApplyDefaults()
	cfg.Classify.ApplyDefaults()
	cfg.Scoring.ApplyDefaults()
	cfg.Selection.ApplyDefaults()
	cfg.Vision.Worker.ApplyDefaults()
	cfg.Pipeline.ApplyDefaults()
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Cache.DatabasePath = expandPath(cfg.Cache.DatabasePath, configDir)
	cfg.Cache.IndexPath = expandPath(cfg.Cache.IndexPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Default returns a config with all defaults applied and no file loaded.
// In-memory cache paths, suitable for one-shot CLI runs.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty
// (in-memory cache).
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
