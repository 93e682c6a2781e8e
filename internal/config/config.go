// Package config provides configuration loading for docsentry.
//
// Configuration is loaded from an optional YAML file, then overridden by
// environment variables, then backfilled with defaults.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/halcyonlabs/docsentry/internal/logging"
)

// Config holds the complete docsentry configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    logging.Config   `koanf:"logging"`
	Repo       RepoConfig       `koanf:"repo"`
	Knowledge  KnowledgeConfig  `koanf:"knowledge"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Generation GenerationConfig `koanf:"generation"`
	GitHub     GitHubConfig     `koanf:"github"`
	Scheduler  SchedulerConfig  `koanf:"scheduler"`
	Watch      WatchConfig      `koanf:"watch"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// RepoConfig describes the monitored source repository checkout.
type RepoConfig struct {
	// Path is the filesystem location of the monitored repository's
	// working tree. Keeping it in sync (clone/pull) is external.
	Path string `koanf:"path"`

	// ExcludePaths are path substrings that exclude files from ingestion
	// even when their extension would otherwise qualify.
	ExcludePaths []string `koanf:"exclude_paths"`
}

// KnowledgeConfig holds knowledge base configuration.
type KnowledgeConfig struct {
	// SnapshotPath is where the persisted knowledge base snapshot lives.
	SnapshotPath string `koanf:"snapshot_path"`

	// MaxChunkSize is the chunking threshold in characters.
	MaxChunkSize int `koanf:"max_chunk_size"`

	// TopK is the default number of retrieval results.
	TopK int `koanf:"top_k"`
}

// EmbeddingsConfig holds embedding provider configuration.
type EmbeddingsConfig struct {
	Provider string `koanf:"provider"` // "openai"
	Model    string `koanf:"model"`
	APIKey   Secret `koanf:"api_key"`
	BaseURL  string `koanf:"base_url"`
}

// GenerationConfig holds text-generation provider configuration.
type GenerationConfig struct {
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

// GitHubConfig holds webhook and docs-repository settings.
type GitHubConfig struct {
	WebhookSecret Secret `koanf:"webhook_secret"`
	Token         Secret `koanf:"token"`

	// DocsOwner/DocsRepo identify the documentation repository that
	// receives pull requests.
	DocsOwner  string `koanf:"docs_owner"`
	DocsRepo   string `koanf:"docs_repo"`
	DocsBranch string `koanf:"docs_branch"`

	// DocsPath restricts doc-page discovery to a subtree (e.g. "docs").
	DocsPath string `koanf:"docs_path"`
}

// SchedulerConfig controls the periodic full re-ingestion backstop.
type SchedulerConfig struct {
	Enabled bool   `koanf:"enabled"`
	Spec    string `koanf:"spec"` // cron expression
}

// WatchConfig controls the local filesystem watch mode.
type WatchConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Repo.Path == "" {
		return errors.New("repo path is required")
	}
	if c.Knowledge.MaxChunkSize <= 0 {
		return errors.New("knowledge max_chunk_size must be positive")
	}
	if c.Knowledge.TopK <= 0 {
		return errors.New("knowledge top_k must be positive")
	}
	if c.Scheduler.Enabled && c.Scheduler.Spec == "" {
		return errors.New("scheduler spec required when scheduler is enabled")
	}
	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Knowledge.SnapshotPath == "" {
		cfg.Knowledge.SnapshotPath = "knowledge-base.json"
	}
	if cfg.Knowledge.MaxChunkSize == 0 {
		cfg.Knowledge.MaxChunkSize = 8000
	}
	if cfg.Knowledge.TopK == 0 {
		cfg.Knowledge.TopK = 5
	}
	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "openai"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "text-embedding-3-small"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "gpt-4o"
	}
	if cfg.GitHub.DocsBranch == "" {
		cfg.GitHub.DocsBranch = "main"
	}
	if cfg.GitHub.DocsPath == "" {
		cfg.GitHub.DocsPath = "docs"
	}
	if cfg.Scheduler.Enabled && cfg.Scheduler.Spec == "" {
		cfg.Scheduler.Spec = "0 3 * * *"
	}
}
