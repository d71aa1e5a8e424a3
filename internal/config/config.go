// Package config provides configuration loading for the Kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Target    TargetConfig    `yaml:"target"`
	Cache     CacheConfig     `yaml:"cache"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Search    SearchConfig    `yaml:"search"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the system store location. The system store keeps
// documents, fragments, and query history; target databases are configured
// separately.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// TargetConfig holds the default target database. Requests may override it
// with their own connection string.
type TargetConfig struct {
	ConnectionString string `yaml:"connection_string"`
}

// CacheConfig holds query response cache settings.
type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
	MaxEntries int `yaml:"max_entries"`
}

// DiscoveryConfig holds schema discovery settings.
type DiscoveryConfig struct {
	SampleRows         int   `yaml:"sample_rows"`
	ValueInference     *bool `yaml:"value_inference"`
	CallTimeoutSeconds int   `yaml:"call_timeout_seconds"`
}

// ValueInferenceOrDefault reports whether value-overlap relationship
// inference runs; defaults to true when unset.
func (d *DiscoveryConfig) ValueInferenceOrDefault() bool {
	if d.ValueInference != nil {
		return *d.ValueInference
	}
	return true
}

// SearchConfig holds document search settings.
type SearchConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	TopK                int     `yaml:"top_k"`
	SnippetLength       int     `yaml:"snippet_length"`
}

// EmbeddingConfig holds embedder settings. Provider selects the
// implementation: "hash" needs no model file, "onnx" loads ModelPath.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// IngestConfig holds document upload and processing settings.
type IngestConfig struct {
	UploadDir         string   `yaml:"upload_dir"`
	BatchSize         int      `yaml:"batch_size"`
	MaxFileSize       int64    `yaml:"max_file_size"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	DebounceMS  int      `yaml:"debounce_ms"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault reports whether to watch recursively; defaults to true
// when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, applies environment
// overrides and defaults, and expands paths.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnv(&cfg)
	ApplyDefaults(&cfg)
	expandAll(&cfg, filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no config file is given:
// defaults plus environment overrides, with paths relative to the working
// directory.
func Default() *Config {
	cfg := &Config{}
	applyEnv(cfg)
	ApplyDefaults(cfg)
	expandAll(cfg, ".")
	return cfg
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Search.SimilarityThreshold < 0 || c.Search.SimilarityThreshold >= 1 {
		return fmt.Errorf("similarity threshold must be in [0, 1): %v", c.Search.SimilarityThreshold)
	}
	if c.Search.TopK < 1 {
		return fmt.Errorf("search top_k must be positive: %d", c.Search.TopK)
	}
	if c.Ingest.MaxFileSize < 1 {
		return fmt.Errorf("max file size must be positive: %d", c.Ingest.MaxFileSize)
	}
	switch c.Embedding.Provider {
	case "hash", "onnx":
	default:
		return fmt.Errorf("unknown embedding provider: %q", c.Embedding.Provider)
	}
	return nil
}

// applyEnv overrides settings from the environment. The variable names
// match the original deployment's .env contract.
func applyEnv(cfg *Config) {
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("DEBUG"); v != "" {
		cfg.Debug = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Target.ConnectionString = v
	}
	if v := os.Getenv("CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.TTLSeconds = n
		}
	}
	if v := os.Getenv("CACHE_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxEntries = n
		}
	}
	if v := os.Getenv("BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.BatchSize = n
		}
	}
	if v := os.Getenv("MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Ingest.MaxFileSize = n
		}
	}
}

func expandAll(cfg *Config, baseDir string) {
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, baseDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, baseDir)
	cfg.Ingest.UploadDir = expandPath(cfg.Ingest.UploadDir, baseDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], baseDir)
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to baseDir; other relative paths are relative to the home
// directory.
func expandPath(path string, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(baseDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
