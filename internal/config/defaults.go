package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/kotae.db"
	}
	if cfg.Cache.TTLSeconds == 0 {
		cfg.Cache.TTLSeconds = 300
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 1000
	}
	if cfg.Discovery.SampleRows == 0 {
		cfg.Discovery.SampleRows = 3
	}
	if cfg.Search.SimilarityThreshold == 0 {
		cfg.Search.SimilarityThreshold = 0.2
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 15
	}
	if cfg.Search.SnippetLength == 0 {
		cfg.Search.SnippetLength = 300
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "hash"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Ingest.UploadDir == "" {
		cfg.Ingest.UploadDir = "./data/uploads"
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 32
	}
	if cfg.Ingest.MaxFileSize == 0 {
		cfg.Ingest.MaxFileSize = 10 * 1024 * 1024
	}
	if cfg.Ingest.AllowedExtensions == nil {
		cfg.Ingest.AllowedExtensions = []string{".pdf", ".docx", ".txt", ".csv"}
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".pdf", ".docx", ".txt", ".csv", ".md"}
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 500
	}
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
