package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// DefaultEmbedModel is the embedding model used when none is configured.
	DefaultEmbedModel = "nomic-embed-text"

	// DefaultNeo4jURI is the bolt endpoint assumed when EVA_NEO4J_URI is unset.
	DefaultNeo4jURI = "bolt://neo4j:7687"
)

// Config holds all configuration for eva-memory.
type Config struct {
	Neo4j   Neo4jConfig   `mapstructure:"neo4j"`
	Chroma  ChromaConfig  `mapstructure:"chroma"`
	Ollama  OllamaConfig  `mapstructure:"ollama"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Neo4jConfig holds graph database connection settings.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// ChromaConfig holds vector store settings. An empty BaseURL disables the
// vector layer; an empty Collection disables upserts but keeps the queue.
type ChromaConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Collection string `mapstructure:"collection"`
}

// OllamaConfig holds embedding service settings. An empty BaseURL disables
// embedding (writes fall through to the offline queue).
type OllamaConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// StoreConfig holds the local file store root and the per-client suffix.
type StoreConfig struct {
	Path     string `mapstructure:"path"`
	ClientID string `mapstructure:"client_id"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the optional config file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("neo4j.uri", DefaultNeo4jURI)
	v.SetDefault("neo4j.user", "neo4j")
	v.SetDefault("neo4j.database", "neo4j")
	v.SetDefault("ollama.model", DefaultEmbedModel)
	v.SetDefault("store.path", filepath.Join(homeDir(), ".eva-memory"))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	_ = v.BindEnv("neo4j.uri", "EVA_NEO4J_URI")
	_ = v.BindEnv("neo4j.user", "EVA_NEO4J_USER")
	_ = v.BindEnv("neo4j.password", "EVA_NEO4J_PASS", "NEO4J_PASSWORD")
	_ = v.BindEnv("chroma.base_url", "EVA_CHROMA_URL")
	_ = v.BindEnv("chroma.collection", "EVA_CHROMA_COLLECTION")
	_ = v.BindEnv("ollama.base_url", "EVA_OLLAMA_URL")
	_ = v.BindEnv("ollama.model", "EVA_OLLAMA_MODEL")
	_ = v.BindEnv("store.path", "EVA_STORE_PATH")
	_ = v.BindEnv("store.client_id", "EVA_CLIENT_ID")
	_ = v.BindEnv("logging.level", "EVA_LOG_LEVEL")
	_ = v.BindEnv("logging.format", "EVA_LOG_FORMAT")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(v.GetString("store.path"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine; env vars and defaults suffice.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are consistent.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	if c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri must not be empty")
	}
	if c.Chroma.BaseURL != "" && c.Chroma.Collection == "" {
		return fmt.Errorf("chroma.collection is required when chroma.base_url is set")
	}
	if c.Ollama.BaseURL != "" && c.Ollama.Model == "" {
		return fmt.Errorf("ollama.model must not be empty")
	}
	return nil
}

// clientSuffix returns the per-client filename suffix ("-<clientId>" or "").
func (c *Config) clientSuffix() string {
	if c.Store.ClientID == "" {
		return ""
	}
	return "-" + c.Store.ClientID
}

// StatePath is the per-client state record (WAL, session, queue stats).
func (c *Config) StatePath() string {
	return filepath.Join(c.Store.Path, "state"+c.clientSuffix()+".json")
}

// QueuePath is the per-client pending-embeddings log.
func (c *Config) QueuePath() string {
	return filepath.Join(c.Store.Path, "queue", "pending-embeddings"+c.clientSuffix()+".jsonl")
}

// SessionStatePath is the per-client session-state markdown file.
func (c *Config) SessionStatePath() string {
	return filepath.Join(c.Store.Path, "SESSION-STATE"+c.clientSuffix()+".md")
}

// MemoryMDPath is the long-term memory markdown file included in backups.
func (c *Config) MemoryMDPath() string {
	return filepath.Join(c.Store.Path, "MEMORY.md")
}

// DailyDir holds the per-day markdown logs.
func (c *Config) DailyDir() string {
	return filepath.Join(c.Store.Path, "daily")
}

// ProjectsDir holds the per-project markdown logs.
func (c *Config) ProjectsDir() string {
	return filepath.Join(c.Store.Path, "projects")
}

// BackupsDir holds pre-compaction snapshots.
func (c *Config) BackupsDir() string {
	return filepath.Join(c.Store.Path, "backups", "pre-compaction")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
