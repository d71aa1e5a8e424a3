package config

import (
	"os"
	"path/filepath"
	"testing"
)

// clearEnv blanks every override variable so ambient environment does not
// leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HOST", "PORT", "DEBUG", "DATABASE_URL",
		"CACHE_TTL_SECONDS", "CACHE_MAX_SIZE", "BATCH_SIZE", "MAX_FILE_SIZE",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "server:\n  host: 127.0.0.1\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("host = %q", cfg.Server.Host)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Cache.TTLSeconds != 300 || cfg.Cache.MaxEntries != 1000 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Search.SimilarityThreshold != 0.2 {
		t.Errorf("threshold = %v, want 0.2", cfg.Search.SimilarityThreshold)
	}
	if cfg.Search.TopK != 15 || cfg.Search.SnippetLength != 300 {
		t.Errorf("search = %+v", cfg.Search)
	}
	if cfg.Embedding.Provider != "hash" || cfg.Embedding.Dimensions != 384 {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if cfg.Ingest.MaxFileSize != 10*1024*1024 {
		t.Errorf("max file size = %d", cfg.Ingest.MaxFileSize)
	}
	want := []string{".pdf", ".docx", ".txt", ".csv"}
	if len(cfg.Ingest.AllowedExtensions) != len(want) {
		t.Errorf("allowed extensions = %v, want %v", cfg.Ingest.AllowedExtensions, want)
	}
	if cfg.Discovery.SampleRows != 3 || !cfg.Discovery.ValueInferenceOrDefault() {
		t.Errorf("discovery = %+v", cfg.Discovery)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  host: 10.0.0.1
  port: 9000
cache:
  ttl_seconds: 60
  max_entries: 10
search:
  similarity_threshold: 0.5
  top_k: 5
discovery:
  sample_rows: 7
  value_inference: false
target:
  connection_string: postgres://db:5432/hr
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Cache.TTLSeconds != 60 || cfg.Cache.MaxEntries != 10 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Search.SimilarityThreshold != 0.5 || cfg.Search.TopK != 5 {
		t.Errorf("search = %+v", cfg.Search)
	}
	if cfg.Discovery.SampleRows != 7 {
		t.Errorf("sample rows = %d", cfg.Discovery.SampleRows)
	}
	if cfg.Discovery.ValueInferenceOrDefault() {
		t.Error("value inference should be disabled")
	}
	if cfg.Target.ConnectionString != "postgres://db:5432/hr" {
		t.Errorf("target = %q", cfg.Target.ConnectionString)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9999")
	t.Setenv("DATABASE_URL", "mysql://hr@tcp(db:3306)/hr")
	t.Setenv("CACHE_TTL_SECONDS", "42")

	path := writeConfig(t, "server:\n  port: 9000\ncache:\n  ttl_seconds: 60\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want the env value 9999", cfg.Server.Port)
	}
	if cfg.Target.ConnectionString != "mysql://hr@tcp(db:3306)/hr" {
		t.Errorf("target = %q", cfg.Target.ConnectionString)
	}
	if cfg.Cache.TTLSeconds != 42 {
		t.Errorf("ttl = %d, want the env value 42", cfg.Cache.TTLSeconds)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestDefaultIsValid(t *testing.T) {
	clearEnv(t)
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}
	if cfg.Server.Port != 8000 || cfg.Embedding.Provider != "hash" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port too low", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"threshold at one", func(c *Config) { c.Search.SimilarityThreshold = 1.0 }},
		{"negative threshold", func(c *Config) { c.Search.SimilarityThreshold = -0.1 }},
		{"zero top_k", func(c *Config) { c.Search.TopK = -1 }},
		{"zero max file size", func(c *Config) { c.Ingest.MaxFileSize = -5 }},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "sentencepiece" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	base := t.TempDir()
	if got := expandPath("./sub/file.db", base); got != filepath.Join(base, "sub/file.db") {
		t.Errorf("relative path = %q", got)
	}
	if got := expandPath("/abs/file.db", base); got != "/abs/file.db" {
		t.Errorf("absolute path = %q", got)
	}
	if got := expandPath("", base); got != "" {
		t.Errorf("empty path = %q", got)
	}
}

func TestWatchRecursiveDefaultsTrue(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "watch:\n  directories:\n    - ./docs\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Watch.RecursiveOrDefault() {
		t.Error("recursive should default to true")
	}
	if cfg.Watch.DebounceMS != 500 {
		t.Errorf("debounce = %d, want 500", cfg.Watch.DebounceMS)
	}
	if !filepath.IsAbs(cfg.Watch.Directories[0]) {
		t.Errorf("watch dir not expanded: %q", cfg.Watch.Directories[0])
	}
}
