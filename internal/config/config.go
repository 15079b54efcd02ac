package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"finchat/internal/llm"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Server struct {
		Port            string        `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Logging struct {
		Development bool   `yaml:"development"`
		Level       string `yaml:"level"`
	} `yaml:"logging"`

	Auth struct {
		Secret     string        `yaml:"secret"`
		TokenTTL   time.Duration `yaml:"token_ttl"`
		BcryptCost int           `yaml:"bcrypt_cost"`
	} `yaml:"auth"`

	Database struct {
		Type string `yaml:"type"` // "memory", "sqlite" or "postgres"
		URL  string `yaml:"url"`  // SQLite path or PostgreSQL URL
	} `yaml:"database"`

	SeedUsers []SeedUser `yaml:"seed_users"`

	Scraper ScraperConfig `yaml:"scraper"`

	// Pages scraped on every chat request, in order
	Sources []string `yaml:"sources"`

	Retrieval struct {
		ChunkSize         int  `yaml:"chunk_size"`
		TopK              int  `yaml:"top_k"`
		ClearBeforeUpsert bool `yaml:"clear_before_upsert"`
		EmbedConcurrency  int  `yaml:"embed_concurrency"`
	} `yaml:"retrieval"`

	Embedding EmbeddingConfig `yaml:"embedding"`

	VectorStore VectorStoreConfig `yaml:"vector_store"`

	LLM LLMConfig `yaml:"llm"`

	History struct {
		Limit int `yaml:"limit"` // exchanges kept per user
	} `yaml:"history"`
}

// SeedUser is a user inserted at startup when missing from the store.
type SeedUser struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"password_hash"`
}

type ScraperConfig struct {
	Mode      string        `yaml:"mode"` // "http", "readability" or "browser"
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	Headless  bool          `yaml:"headless"`
}

type EmbeddingConfig struct {
	Provider   string        `yaml:"provider"` // "openai" or "gemini"
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	BatchSize  int           `yaml:"batch_size"`
	Timeout    time.Duration `yaml:"timeout"`
}

type VectorStoreConfig struct {
	Type     string `yaml:"type"` // "pinecone", "qdrant" or "memory"
	Pinecone struct {
		APIKey    string `yaml:"api_key"`
		Host      string `yaml:"host"`
		Namespace string `yaml:"namespace"`
	} `yaml:"pinecone"`
	Qdrant struct {
		URL        string `yaml:"url"`
		APIKey     string `yaml:"api_key"`
		Collection string `yaml:"collection"`
	} `yaml:"qdrant"`
	Timeout time.Duration `yaml:"timeout"`
}

type LLMConfig struct {
	Enabled                 bool                 `yaml:"enabled"`
	Providers               []llm.ProviderConfig `yaml:"providers"`
	MaxFailuresBeforeSwitch int                  `yaml:"max_failures_before_switch"`
	MinFragmentLength       int                  `yaml:"min_fragment_length"`
	FallbackFragments       int                  `yaml:"fallback_fragments"`
	FallbackFragmentLength  int                  `yaml:"fallback_fragment_length"`
}

// LoadConfig loads configuration from YAML file
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.expandEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// expandEnv resolves ${VAR} references in secrets and endpoints
func (c *Config) expandEnv() {
	c.Auth.Secret = os.ExpandEnv(c.Auth.Secret)
	c.Database.URL = os.ExpandEnv(c.Database.URL)
	c.Embedding.APIKey = os.ExpandEnv(c.Embedding.APIKey)
	c.Embedding.BaseURL = os.ExpandEnv(c.Embedding.BaseURL)
	c.VectorStore.Pinecone.APIKey = os.ExpandEnv(c.VectorStore.Pinecone.APIKey)
	c.VectorStore.Pinecone.Host = os.ExpandEnv(c.VectorStore.Pinecone.Host)
	c.VectorStore.Qdrant.URL = os.ExpandEnv(c.VectorStore.Qdrant.URL)
	c.VectorStore.Qdrant.APIKey = os.ExpandEnv(c.VectorStore.Qdrant.APIKey)
	for i := range c.LLM.Providers {
		c.LLM.Providers[i].APIKey = os.ExpandEnv(c.LLM.Providers[i].APIKey)
	}
	for i := range c.SeedUsers {
		c.SeedUsers[i].Password = os.ExpandEnv(c.SeedUsers[i].Password)
	}
	for i := range c.Sources {
		c.Sources[i] = os.ExpandEnv(c.Sources[i])
	}

	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "3000"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = time.Hour
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = 10
	}

	if c.Database.Type == "" {
		c.Database.Type = "memory"
	}

	if c.Scraper.Mode == "" {
		c.Scraper.Mode = "http"
	}
	if c.Scraper.Timeout == 0 {
		c.Scraper.Timeout = 30 * time.Second
	}

	if c.Retrieval.ChunkSize == 0 {
		c.Retrieval.ChunkSize = 1024
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 5
	}
	if c.Retrieval.EmbedConcurrency == 0 {
		c.Retrieval.EmbedConcurrency = 1
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Provider == "openai" {
		if c.Embedding.BaseURL == "" {
			c.Embedding.BaseURL = "https://api.openai.com/v1"
		}
		if c.Embedding.Model == "" {
			c.Embedding.Model = "text-embedding-3-small"
		}
	}
	if c.Embedding.Provider == "gemini" {
		if c.Embedding.Model == "" {
			c.Embedding.Model = "text-embedding-004"
		}
		if c.Embedding.Dimensions == 0 {
			c.Embedding.Dimensions = 768
		}
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 1024
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = 32
	}
	if c.Embedding.Timeout == 0 {
		c.Embedding.Timeout = 30 * time.Second
	}

	if c.VectorStore.Type == "" {
		c.VectorStore.Type = "pinecone"
	}
	if c.VectorStore.Qdrant.Collection == "" {
		c.VectorStore.Qdrant.Collection = "finance-index"
	}
	if c.VectorStore.Timeout == 0 {
		c.VectorStore.Timeout = 15 * time.Second
	}

	if c.LLM.MaxFailuresBeforeSwitch == 0 {
		c.LLM.MaxFailuresBeforeSwitch = 3
	}
	if c.LLM.MinFragmentLength == 0 {
		c.LLM.MinFragmentLength = 50
	}
	if c.LLM.FallbackFragments == 0 {
		c.LLM.FallbackFragments = 3
	}
	if c.LLM.FallbackFragmentLength == 0 {
		c.LLM.FallbackFragmentLength = 200
	}

	if c.History.Limit == 0 {
		c.History.Limit = 20
	}
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.Secret == "" {
		errs = append(errs, errors.New("auth.secret is required"))
	}
	if len(c.Sources) == 0 {
		errs = append(errs, errors.New("at least one source URL is required"))
	}
	if c.Retrieval.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.chunk_size must be positive, got %d", c.Retrieval.ChunkSize))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK))
	}
	if c.Retrieval.EmbedConcurrency < 0 {
		errs = append(errs, fmt.Errorf("retrieval.embed_concurrency must not be negative, got %d", c.Retrieval.EmbedConcurrency))
	}

	switch c.Database.Type {
	case "memory":
	case "sqlite", "postgres":
		if c.Database.URL == "" {
			errs = append(errs, fmt.Errorf("database.url is required for %s", c.Database.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database type: %s", c.Database.Type))
	}

	switch c.Scraper.Mode {
	case "http", "readability", "browser":
	default:
		errs = append(errs, fmt.Errorf("unknown scraper mode: %s", c.Scraper.Mode))
	}

	switch c.Embedding.Provider {
	case "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("unknown embedding provider: %s", c.Embedding.Provider))
	}

	switch c.VectorStore.Type {
	case "memory":
	case "pinecone":
		if c.VectorStore.Pinecone.Host == "" {
			errs = append(errs, errors.New("vector_store.pinecone.host is required"))
		}
	case "qdrant":
		if c.VectorStore.Qdrant.URL == "" {
			errs = append(errs, errors.New("vector_store.qdrant.url is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown vector store: %s", c.VectorStore.Type))
	}

	for i, u := range c.SeedUsers {
		if u.Username == "" {
			errs = append(errs, fmt.Errorf("seed_users[%d]: username is required", i))
		}
		if u.Password == "" && u.PasswordHash == "" {
			errs = append(errs, fmt.Errorf("seed_users[%d]: password or password_hash is required", i))
		}
	}

	if c.LLM.Enabled && len(c.LLM.Providers) == 0 {
		errs = append(errs, errors.New("llm.enabled requires at least one provider"))
	}

	return errors.Join(errs...)
}
