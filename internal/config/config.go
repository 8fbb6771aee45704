// Package config loads the YAML application configuration with sensible
// defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StorageConfig selects the persistence backend for the four stores.
type StorageConfig struct {
	// Backend is one of "memory", "file", "sqlite".
	Backend string `yaml:"backend"`
	// DataDir holds the file backend's directories or the SQLite database.
	DataDir string `yaml:"data_dir"`
	// Qdrant, when set, holds embedding records instead of the KV backend.
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector backend.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
}

// EmbedderConfig configures the OpenAI embedding generator.
type EmbedderConfig struct {
	Model string `yaml:"model"`
}

// ChunkingConfig configures the splitter.
type ChunkingConfig struct {
	TokensPerChunk int    `yaml:"tokens_per_chunk"`
	LineSeparator  string `yaml:"line_separator"`
}

// MatcherConfig configures query budgets.
type MatcherConfig struct {
	MaxQueryTokens int `yaml:"max_query_tokens"`
	MaxTotalTokens int `yaml:"max_total_tokens"`
}

// SourceConfig names the GitHub repository the sync command ingests.
type SourceConfig struct {
	Owner    string `yaml:"owner"`
	Repo     string `yaml:"repo"`
	BasePath string `yaml:"base_path"`
}

// Config is the root configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Chunking ChunkingConfig `yaml:"chunking"`
	Matcher  MatcherConfig  `yaml:"matcher"`
	Source   SourceConfig   `yaml:"source"`
}

// Load reads the config at path. A missing file yields defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./docgrep.yaml, then ~/.config/docgrep/config.yaml,
// falling back to defaults when neither exists.
func LoadDefault() (*Config, error) {
	if _, err := os.Stat("docgrep.yaml"); err == nil {
		return Load("docgrep.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return Default(), nil
	}
	return Load(filepath.Join(home, ".config", "docgrep", "config.yaml"))
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "file"
	}
	if cfg.Storage.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		cfg.Storage.DataDir = filepath.Join(home, ".docgrep", "data")
	}
	if cfg.Storage.Qdrant != nil {
		if cfg.Storage.Qdrant.Host == "" {
			cfg.Storage.Qdrant.Host = "localhost"
		}
		if cfg.Storage.Qdrant.Port == 0 {
			cfg.Storage.Qdrant.Port = 6334
		}
		if cfg.Storage.Qdrant.Collection == "" {
			cfg.Storage.Qdrant.Collection = "embeddings"
		}
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "text-embedding-3-small"
	}
	if cfg.Chunking.TokensPerChunk == 0 {
		cfg.Chunking.TokensPerChunk = 1000
	}
	if cfg.Chunking.LineSeparator == "" {
		cfg.Chunking.LineSeparator = "\n"
	}
	if cfg.Matcher.MaxQueryTokens == 0 {
		cfg.Matcher.MaxQueryTokens = 8000
	}
	if cfg.Matcher.MaxTotalTokens == 0 {
		cfg.Matcher.MaxTotalTokens = 8000
	}
}
