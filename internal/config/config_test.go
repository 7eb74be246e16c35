package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Retrieval.DistanceMax != 1.6 {
		t.Fatalf("DistanceMax = %v, want 1.6", cfg.Retrieval.DistanceMax)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Fatalf("TopK = %d, want 3", cfg.Retrieval.TopK)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	payload := "retrieval:\n  top_k: 5\n  distance_max: 1.2\nllm:\n  model: gemini-2.5-pro\n"
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Retrieval.TopK != 5 || cfg.Retrieval.DistanceMax != 1.2 {
		t.Fatalf("retrieval = %+v", cfg.Retrieval)
	}
	if cfg.LLM.Model != "gemini-2.5-pro" {
		t.Fatalf("model = %q", cfg.LLM.Model)
	}
	// Untouched sections keep their defaults.
	if cfg.CatalogPath != "data/books.json" {
		t.Fatalf("catalog_path = %q", cfg.CatalogPath)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.IndexPath != "data/bookmind.db" {
		t.Fatalf("index_path = %q", cfg.IndexPath)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Fatalf("LLM.APIKey = %q", cfg.LLM.APIKey)
	}
	if cfg.Embedding.GenAIAPIKey != "test-key" {
		t.Fatalf("Embedding.GenAIAPIKey = %q", cfg.Embedding.GenAIAPIKey)
	}
}

func TestEnvDoesNotClobberExplicitKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  api_key: file-key\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "file-key" {
		t.Fatalf("LLM.APIKey = %q, want file-key", cfg.LLM.APIKey)
	}
}

func TestValidateRejectsBadTunables(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Retrieval.TopK = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero top_k accepted")
	}
	cfg = DefaultConfig()
	cfg.Retrieval.DistanceMax = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative distance_max accepted")
	}
}
