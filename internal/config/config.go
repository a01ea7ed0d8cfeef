// Package config provides configuration loading and structs for the kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug        bool                `yaml:"debug"`
	DataPath     string              `yaml:"data_path"`
	Server       ServerConfig        `yaml:"server"`
	Cache        CacheConfig         `yaml:"cache"`
	Embedding    EmbeddingConfig     `yaml:"embedding"`
	Generation   GenerationConfig    `yaml:"generation"`
	Retrieval    RetrievalConfig     `yaml:"retrieval"`
	Applications []ApplicationConfig `yaml:"applications"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// CacheConfig holds semantic cache settings.
type CacheConfig struct {
	Backend             string       `yaml:"backend"`
	SimilarityThreshold float64      `yaml:"similarity_threshold"`
	SingleFlight        bool         `yaml:"single_flight"`
	ResetOnStart        *bool        `yaml:"reset_on_start"`
	Redis               RedisConfig  `yaml:"redis"`
	SQLite              SQLiteConfig `yaml:"sqlite"`
}

// ResetOnStartOrDefault returns whether to flush the cache at startup; defaults to true when unset.
func (c *CacheConfig) ResetOnStartOrDefault() bool {
	if c.ResetOnStart != nil {
		return *c.ResetOnStart
	}
	return true
}

// RedisConfig selects a single node, a cluster (ClusterAddrs) or a sentinel group (SentinelAddrs).
type RedisConfig struct {
	Addr           string        `yaml:"addr"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	ClusterAddrs   []string      `yaml:"cluster_addrs"`
	SentinelAddrs  []string      `yaml:"sentinel_addrs"`
	SentinelMaster string        `yaml:"sentinel_master"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	PoolSize       int           `yaml:"pool_size"`
}

// SQLiteConfig holds the single-node cache database path.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	ModelPath  string `yaml:"model_path"`
	Model      string `yaml:"model"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// GenerationConfig holds LLM provider settings.
type GenerationConfig struct {
	Provider      string        `yaml:"provider"`
	BaseURL       string        `yaml:"base_url"`
	Model         string        `yaml:"model"`
	APIKeyEnv     string        `yaml:"api_key_env"`
	Temperature   float64       `yaml:"temperature"`
	Timeout       time.Duration `yaml:"timeout"`
	StopSequences []string      `yaml:"stop_sequences"`
}

// RetrievalConfig holds knowledge-base retrieval settings.
type RetrievalConfig struct {
	TopK         int    `yaml:"top_k"`
	NoDataMarker string `yaml:"no_data_marker"`
}

// ApplicationConfig declares one application. Prompt is an inline template;
// PromptFile points at a template file; with neither, the built-in template
// for Name is used.
type ApplicationConfig struct {
	ID            int    `yaml:"id"`
	Name          string `yaml:"name"`
	Prompt        string `yaml:"prompt,omitempty"`
	PromptFile    string `yaml:"prompt_file,omitempty"`
	KnowledgeBase string `yaml:"knowledge_base,omitempty"`
}

// Load reads and parses the config file at path, applies defaults, expands
// paths and validates the result.
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
	cfg.DataPath = expandPath(cfg.DataPath, configDir)
	if cfg.Cache.SQLite.Path != ":memory:" {
		cfg.Cache.SQLite.Path = expandPath(cfg.Cache.SQLite.Path, configDir)
	}
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	for i := range cfg.Applications {
		app := &cfg.Applications[i]
		if app.PromptFile != "" {
			app.PromptFile = expandPath(app.PromptFile, configDir)
		}
		if app.KnowledgeBase != "" {
			app.KnowledgeBase = expandPath(app.KnowledgeBase, configDir)
		}
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects configurations the server cannot run with.
func Validate(cfg *Config) error {
	t := cfg.Cache.SimilarityThreshold
	if t <= 0 || t > 1 {
		return fmt.Errorf("cache.similarity_threshold must be in (0, 1], got %g", t)
	}
	switch cfg.Cache.Backend {
	case BackendRedis, BackendSQLite:
	default:
		return fmt.Errorf("unknown cache.backend %q (supported: redis, sqlite)", cfg.Cache.Backend)
	}
	if cfg.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", cfg.Retrieval.TopK)
	}
	seen := make(map[int]string, len(cfg.Applications))
	for _, app := range cfg.Applications {
		if app.ID <= 0 {
			return fmt.Errorf("application %q: id must be positive", app.Name)
		}
		if strings.TrimSpace(app.Name) == "" {
			return fmt.Errorf("application %d: name is required", app.ID)
		}
		if prev, ok := seen[app.ID]; ok {
			return fmt.Errorf("application id %d declared twice (%s, %s)", app.ID, prev, app.Name)
		}
		seen[app.ID] = app.Name
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
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
