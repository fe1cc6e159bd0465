// Package config provides configuration loading and structs for the visearch server.
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
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// IndexConfig holds index artifact locations and backend selection.
type IndexConfig struct {
	// Type selects the vector index backend: flat, faiss, or qdrant.
	Type string `yaml:"type"`
	// VectorsPath is the local vector artifact file.
	VectorsPath string `yaml:"vectors_path"`
	// Catalog selects the metadata backend: json or sqlite.
	Catalog string `yaml:"catalog"`
	// CatalogPath is the metadata file or database path.
	CatalogPath string `yaml:"catalog_path"`
	// ArtifactBaseURL, when set, downloads index.bin and metadata.json from
	// this base URL into CacheDir at startup instead of using local paths.
	ArtifactBaseURL string `yaml:"artifact_base_url"`
	// CacheDir holds artifacts downloaded from ArtifactBaseURL.
	CacheDir string `yaml:"cache_dir"`
	// FetchTimeoutSeconds bounds artifact downloads.
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds"`
	// Watch reloads the snapshot when the artifact files change on disk.
	Watch bool `yaml:"watch"`

	Qdrant QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig holds remote Qdrant settings, used when index.type is qdrant.
type QdrantConfig struct {
	URL        string `yaml:"url"`
	Collection string `yaml:"collection"`
	APIKey     string `yaml:"api_key"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the embedder: clip or mock.
	Provider        string `yaml:"provider"`
	TextModelPath   string `yaml:"text_model_path"`
	VisualModelPath string `yaml:"visual_model_path"`
	Dimensions      int    `yaml:"dimensions"`
	MaxTokens       int    `yaml:"max_tokens"`
	MaxTextLength   int    `yaml:"max_text_length"`
	MaxImageBytes   int64  `yaml:"max_image_bytes"`
	// Cache selects the embedding cache: memory or redis.
	Cache     string `yaml:"cache"`
	CacheSize int    `yaml:"cache_size"`
	RedisAddr string `yaml:"redis_addr"`
}

// SearchConfig holds search limits and the per-request timeout.
type SearchConfig struct {
	DefaultLimit   int `yaml:"default_limit"`
	MaxLimit       int `yaml:"max_limit"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns the per-request timeout as a duration.
func (s *SearchConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
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
	cfg.Index.VectorsPath = expandPath(cfg.Index.VectorsPath, configDir)
	cfg.Index.CatalogPath = expandPath(cfg.Index.CatalogPath, configDir)
	cfg.Index.CacheDir = expandPath(cfg.Index.CacheDir, configDir)
	cfg.Embedding.TextModelPath = expandPath(cfg.Embedding.TextModelPath, configDir)
	cfg.Embedding.VisualModelPath = expandPath(cfg.Embedding.VisualModelPath, configDir)

	return &cfg, nil
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
