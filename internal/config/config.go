// Package config holds the process configuration: data file locations, the
// Gemini settings, and the retrieval tunables. Values come from defaults, an
// optional YAML file, and environment overrides for secrets, in that order.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"bookmind/internal/embedding"
)

// Config is the full bookmind configuration.
type Config struct {
	// Data files.
	CatalogPath string `yaml:"catalog_path"`
	AliasPath   string `yaml:"alias_path"`
	ThemePath   string `yaml:"theme_path"`
	IndexPath   string `yaml:"index_path"`

	LLM       LLMConfig        `yaml:"llm"`
	Embedding embedding.Config `yaml:"embedding"`
	Retrieval RetrievalConfig  `yaml:"retrieval"`
}

// LLMConfig configures the Gemini client.
type LLMConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`

	// UseModeration enables the model-backed moderation classifier behind
	// the lexical blacklist.
	UseModeration bool `yaml:"use_moderation"`
}

// RetrievalConfig holds the ranking tunables. DistanceMax is the inclusive
// acceptance boundary for the best candidate.
type RetrievalConfig struct {
	TopK        int     `yaml:"top_k"`
	DistanceMax float64 `yaml:"distance_max"`
}

// DefaultConfig returns the stock setup: bundled data files, Gemini for both
// generation and embeddings, relaxed thematic matching.
func DefaultConfig() Config {
	return Config{
		CatalogPath: "data/books.json",
		AliasPath:   "data/aliases.yaml",
		IndexPath:   "data/bookmind.db",
		LLM: LLMConfig{
			Model:         "gemini-2.0-flash",
			UseModeration: true,
		},
		Embedding: embedding.DefaultConfig(),
		Retrieval: RetrievalConfig{
			TopK:        3,
			DistanceMax: 1.6,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv pulls secrets from the environment. GEMINI_API_KEY feeds both the
// chat client and the GenAI embedding engine unless the file set them
// explicitly.
func (c *Config) applyEnv() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = key
		}
		if c.Embedding.GenAIAPIKey == "" {
			c.Embedding.GenAIAPIKey = key
		}
	}
}

// Validate reports configuration errors before any request work begins.
func (c *Config) Validate() error {
	if c.CatalogPath == "" {
		return fmt.Errorf("catalog_path is required")
	}
	if c.IndexPath == "" {
		return fmt.Errorf("index_path is required")
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.DistanceMax <= 0 {
		return fmt.Errorf("retrieval.distance_max must be positive, got %v", c.Retrieval.DistanceMax)
	}
	return nil
}
