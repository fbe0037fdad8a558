// Package config holds process configuration for the knowledge gate.
// Values come from the environment (a .env file may be loaded by the cmd
// entrypoints), optionally overlaid by a YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultDBPath       = "state/knowledge.db"
	DefaultGoldIndex    = "data/gold/gold_index.json"
	DefaultEmbeddingDim = 1536
	DefaultAgentID      = "AGENT-KNOWLEDGE-GATE"
	DefaultOllamaURL    = "http://localhost:11434"
	DefaultEmbedModel   = "nomic-embed-text"
)

// Config is the runtime configuration of the gate
type Config struct {
	DBPath        string `yaml:"db_path"`
	GoldIndexPath string `yaml:"gold_index_path"`
	EmbeddingDim  int    `yaml:"embedding_dim"`
	AgentID       string `yaml:"agent_id"`
	OllamaURL     string `yaml:"ollama_url"`
	EmbedModel    string `yaml:"embed_model"`
}

// FromEnv builds a config from environment variables, falling back to
// defaults for anything unset.
func FromEnv() Config {
	cfg := Config{
		DBPath:        envOr("KGATE_DB_PATH", DefaultDBPath),
		GoldIndexPath: envOr("KGATE_GOLD_INDEX", DefaultGoldIndex),
		EmbeddingDim:  DefaultEmbeddingDim,
		AgentID:       envOr("KGATE_AGENT_ID", DefaultAgentID),
		OllamaURL:     envOr("KGATE_OLLAMA_URL", DefaultOllamaURL),
		EmbedModel:    envOr("KGATE_EMBED_MODEL", DefaultEmbedModel),
	}
	if v := os.Getenv("KGATE_EMBEDDING_DIM"); v != "" {
		if dim, err := strconv.Atoi(v); err == nil && dim > 0 {
			cfg.EmbeddingDim = dim
		}
	}
	return cfg
}

// Load builds a config from the environment and, when path names an
// existing YAML file, overlays its non-zero fields.
func Load(path string) (Config, error) {
	cfg := FromEnv()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if overlay.DBPath != "" {
		cfg.DBPath = overlay.DBPath
	}
	if overlay.GoldIndexPath != "" {
		cfg.GoldIndexPath = overlay.GoldIndexPath
	}
	if overlay.EmbeddingDim > 0 {
		cfg.EmbeddingDim = overlay.EmbeddingDim
	}
	if overlay.AgentID != "" {
		cfg.AgentID = overlay.AgentID
	}
	if overlay.OllamaURL != "" {
		cfg.OllamaURL = overlay.OllamaURL
	}
	if overlay.EmbedModel != "" {
		cfg.EmbedModel = overlay.EmbedModel
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
