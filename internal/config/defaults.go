package config

// ApplyDefaults fills zero-value fields with sensible defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}

	if cfg.Index.Type == "" {
		cfg.Index.Type = "flat"
	}
	if cfg.Index.VectorsPath == "" {
		cfg.Index.VectorsPath = "./index.bin"
	}
	if cfg.Index.Catalog == "" {
		cfg.Index.Catalog = "json"
	}
	if cfg.Index.CatalogPath == "" {
		cfg.Index.CatalogPath = "./metadata.json"
	}
	if cfg.Index.CacheDir == "" {
		cfg.Index.CacheDir = "./cache"
	}
	if cfg.Index.FetchTimeoutSeconds == 0 {
		cfg.Index.FetchTimeoutSeconds = 60
	}
	if cfg.Index.Qdrant.Collection == "" {
		cfg.Index.Qdrant.Collection = "visearch"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "clip"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 512
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 77
	}
	if cfg.Embedding.MaxTextLength == 0 {
		cfg.Embedding.MaxTextLength = 1000
	}
	if cfg.Embedding.MaxImageBytes == 0 {
		cfg.Embedding.MaxImageBytes = 10 << 20
	}
	if cfg.Embedding.Cache == "" {
		cfg.Embedding.Cache = "memory"
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1024
	}
	if cfg.Embedding.RedisAddr == "" {
		cfg.Embedding.RedisAddr = "localhost:6379"
	}

	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.TimeoutSeconds == 0 {
		cfg.Search.TimeoutSeconds = 30
	}
}
