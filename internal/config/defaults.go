package config

import "time"

// Cache backends.
const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// DefaultStopSequence is the marker the built-in prompts tell the model to emit
// after a refusal; generated text is cut there.
const DefaultStopSequence = "[STOP_GENERATION]"

// DefaultApplications mirrors the personas shipped with built-in prompts.
func DefaultApplications() []ApplicationConfig {
	return []ApplicationConfig{
		{ID: 1, Name: "Application_Recette"},
		{ID: 2, Name: "Application_Quran"},
		{ID: 3, Name: "Application_Qissas"},
	}
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.DataPath == "" {
		cfg.DataPath = "/usr/local/var/kotae/data"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 2 * time.Minute
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = BackendRedis
	}
	if cfg.Cache.SimilarityThreshold == 0 {
		cfg.Cache.SimilarityThreshold = 0.90
	}
	if cfg.Cache.Redis.Addr == "" {
		cfg.Cache.Redis.Addr = "localhost:6379"
	}
	if cfg.Cache.Redis.DialTimeout == 0 {
		cfg.Cache.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Cache.Redis.ReadTimeout == 0 {
		cfg.Cache.Redis.ReadTimeout = 3 * time.Second
	}
	if cfg.Cache.Redis.WriteTimeout == 0 {
		cfg.Cache.Redis.WriteTimeout = 3 * time.Second
	}
	if cfg.Cache.Redis.PoolSize == 0 {
		cfg.Cache.Redis.PoolSize = 10
	}
	if cfg.Cache.SQLite.Path == "" {
		cfg.Cache.SQLite.Path = "/usr/local/var/kotae/data/cache.db"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/kotae/data/models/paraphrase-multilingual-MiniLM-L12-v2.onnx"
	}
	if cfg.Embedding.Model == "" && cfg.Embedding.Provider == "gemini" {
		cfg.Embedding.Model = "text-embedding-004"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "GEMINI_API_KEY"
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

	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "ollama"
	}
	if cfg.Generation.BaseURL == "" && cfg.Generation.Provider == "ollama" {
		cfg.Generation.BaseURL = "http://localhost:11434"
	}
	if cfg.Generation.Model == "" {
		switch cfg.Generation.Provider {
		case "gemini":
			cfg.Generation.Model = "gemini-2.5-flash"
		default:
			cfg.Generation.Model = "mistral"
		}
	}
	if cfg.Generation.APIKeyEnv == "" {
		cfg.Generation.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 60 * time.Second
	}
	if cfg.Generation.StopSequences == nil {
		cfg.Generation.StopSequences = []string{DefaultStopSequence}
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.NoDataMarker == "" {
		cfg.Retrieval.NoDataMarker = "Aucune donnée disponible"
	}

	if cfg.Applications == nil {
		cfg.Applications = DefaultApplications()
	}
}
