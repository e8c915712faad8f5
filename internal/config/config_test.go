package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/healthrag/internal/domain"
)

func validConfig() Config {
	cfg := Config{}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 90 {
		t.Errorf("expected WriteTimeoutSec=90, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Corpus.ChunkSize != 300 || cfg.Corpus.ChunkOverlap != 50 {
		t.Errorf("expected chunking 300/50, got %d/%d", cfg.Corpus.ChunkSize, cfg.Corpus.ChunkOverlap)
	}
	if cfg.Index.Dir != "data/index" {
		t.Errorf("expected Index.Dir='data/index', got %q", cfg.Index.Dir)
	}
	if cfg.Embedding.Provider != "hashing" || cfg.Embedding.BatchSize != 64 {
		t.Errorf("unexpected embedding defaults: %+v", cfg.Embedding)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("expected TopK=3, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Grounding.MinContextChars != 50 {
		t.Errorf("expected MinContextChars=50, got %d", cfg.Grounding.MinContextChars)
	}
	if cfg.Generation.Provider != "ollama" || cfg.Generation.BaseURL != "http://localhost:11434" {
		t.Errorf("unexpected generation defaults: %+v", cfg.Generation)
	}
	if cfg.Generation.TimeoutSec != 60 {
		t.Errorf("expected generation TimeoutSec=60, got %d", cfg.Generation.TimeoutSec)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:       HTTPConfig{Port: 9000, ReadTimeoutSec: 30},
		Corpus:     CorpusConfig{ChunkSize: 100},
		Retrieval:  RetrievalConfig{TopK: 5},
		Generation: GenerationConfig{Provider: "openai", Model: "gpt-4o-mini", TimeoutSec: 20},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 9000 || cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("http overridden: %+v", cfg.HTTP)
	}
	if cfg.Corpus.ChunkSize != 100 || cfg.Corpus.ChunkOverlap != 0 {
		t.Errorf("explicit chunk size must keep zero overlap, got %d/%d",
			cfg.Corpus.ChunkSize, cfg.Corpus.ChunkOverlap)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Generation.BaseURL != "" {
		t.Errorf("openai provider must not get the ollama base url, got %q", cfg.Generation.BaseURL)
	}
	if cfg.Generation.TimeoutSec != 20 {
		t.Errorf("expected TimeoutSec=20, got %d", cfg.Generation.TimeoutSec)
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"invalid port", func(c *Config) { c.HTTP.Port = 70000 }},
		{"overlap equals size", func(c *Config) { c.Corpus.ChunkOverlap = c.Corpus.ChunkSize }},
		{"negative overlap", func(c *Config) { c.Corpus.ChunkOverlap = -1 }},
		{"unknown embedding provider", func(c *Config) { c.Embedding.Provider = "cohere" }},
		{"openai without model", func(c *Config) { c.Embedding.Provider = "openai" }},
		{"cache without addrs", func(c *Config) { c.Cache.Enabled = true }},
		{"min score above one", func(c *Config) { c.Retrieval.MinScore = 1.5 }},
		{"unknown generation provider", func(c *Config) { c.Generation.Provider = "bard" }},
		{"generation without model", func(c *Config) { c.Generation.Model = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidate_ChunkingIsConfigError(t *testing.T) {
	cfg := validConfig()
	cfg.Corpus.ChunkOverlap = 300
	if err := cfg.Validate(); !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoadFile_ExpandsEnv(t *testing.T) {
	t.Setenv("HEALTHRAG_TEST_MODEL", "llama3")
	path := filepath.Join(t.TempDir(), "test.yaml")
	content := `
http:
  port: 8181
generation:
  model: ${HEALTHRAG_TEST_MODEL}
  base_url: ${HEALTHRAG_TEST_UNSET:-http://ollama:11434}
retrieval:
  top_k: 4
  min_score: 0.2
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.HTTP.Port != 8181 || cfg.Retrieval.TopK != 4 || cfg.Retrieval.MinScore != 0.2 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Generation.Model != "llama3" {
		t.Errorf("expected model from env, got %q", cfg.Generation.Model)
	}
	if cfg.Generation.BaseURL != "http://ollama:11434" {
		t.Errorf("expected default from expression, got %q", cfg.Generation.BaseURL)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("http: [not a map"), 0o600); err != nil {
		t.Fatal(err)
	}
	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("corpus:\n  chunk_size: 10\n  chunk_overlap: 20\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"missing", filepath.Join(dir, "nope.yaml"), "failed to read config"},
		{"malformed", bad, "failed to parse config"},
		{"invalid", invalid, "invalid config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(tt.path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q error, got %v", tt.want, err)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if got := GetEnv(); got != "local" {
		t.Errorf("expected local, got %q", got)
	}
	t.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("expected prod, got %q", got)
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("Load(local): %v", err)
	}
	if cfg.Corpus.Manifest == "" {
		t.Error("local config should name a corpus manifest")
	}
}
