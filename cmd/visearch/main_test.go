package main

import (
	"reflect"
	"testing"

	"github.com/charpstar/visearch/internal/config"
)

func TestSearchArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"red leather sofa", "-limit", "5"},
			expected: []string{"-limit", "5", "red leather sofa"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-limit", "5", "red leather sofa"},
			expected: []string{"-limit", "5", "red leather sofa"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"red leather sofa"},
			expected: []string{"red leather sofa"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"office", "chair", "-output", "json"},
			expected: []string{"-output", "json", "office", "chair"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchArgsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("searchArgsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"sofa"}, "sofa"},
		{"multiple words", []string{"red", "leather", "sofa"}, "red leather sofa"},
		{"quoted phrase", []string{"red leather sofa"}, "red leather sofa"},
		{"whitespace trimmed", []string{"  sofa  "}, "sofa"},
		{"empty", []string{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildSearchQuery(tt.args); got != tt.expected {
				t.Errorf("buildSearchQuery() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("VISEARCH_QDRANT_API_KEY", "secret")
	t.Setenv("VISEARCH_REDIS_ADDR", "redis.internal:6379")

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	applyEnvOverrides(cfg)

	if cfg.Index.Qdrant.APIKey != "secret" {
		t.Errorf("expected qdrant api key override, got %q", cfg.Index.Qdrant.APIKey)
	}
	if cfg.Embedding.RedisAddr != "redis.internal:6379" {
		t.Errorf("expected redis addr override, got %q", cfg.Embedding.RedisAddr)
	}
	// Unset variables leave config values alone.
	if cfg.Index.Qdrant.URL != "" {
		t.Errorf("expected empty qdrant url, got %q", cfg.Index.Qdrant.URL)
	}
}
