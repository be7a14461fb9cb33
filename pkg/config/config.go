package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pario-ai/folio/pkg/models"
	"gopkg.in/yaml.v3"
)

// Config holds all folio configuration.
type Config struct {
	Listen       string             `yaml:"listen"`
	DBPath       string             `yaml:"db_path"`
	Log          LogConfig          `yaml:"log"`
	LLM          LLMConfig          `yaml:"llm"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Cache        CacheConfig        `yaml:"cache"`
	ContentStore ContentStoreConfig `yaml:"content_store"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
	Server       ServerConfig       `yaml:"server"`
	Ingest       IngestConfig       `yaml:"ingest"`
	Audit        models.AuditConfig `yaml:"audit"`
}

// LogConfig selects the zap logger level and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// LLMConfig defines the chat model used for rewriting and answering.
// FallbackModels are tried in order when the primary model is unavailable.
type LLMConfig struct {
	APIKey         string        `yaml:"api_key"`
	BaseURL        string        `yaml:"base_url"`
	Model          string        `yaml:"model"`
	RewriteModel   string        `yaml:"rewrite_model"`
	FallbackModels []string      `yaml:"fallback_models"`
	Temperature    float64       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	Timeout        time.Duration `yaml:"timeout"`
}

// EmbeddingConfig defines the embedding model. APIKey and BaseURL default
// to the LLM values when empty. Provider "hash" selects the offline
// bag-of-words embedder.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	MaxRetries int    `yaml:"max_retries"`
}

// CacheConfig controls the answer cache.
// Provider is "redis", "sqlite", "memory" or "none".
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Provider string        `yaml:"provider"`
	TTL      time.Duration `yaml:"ttl"`
	Size     int           `yaml:"size"`
	Redis    RedisConfig   `yaml:"redis"`
}

// RedisConfig locates the redis cache. URL takes precedence over Addr.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// ContentStoreConfig selects the vector store.
// Provider is "sqlite", "memory", "milvus" or "qdrant".
type ContentStoreConfig struct {
	Provider   string       `yaml:"provider"`
	Collection string       `yaml:"collection"`
	Milvus     MilvusConfig `yaml:"milvus"`
	Qdrant     QdrantConfig `yaml:"qdrant"`
}

// MilvusConfig holds milvus connection settings.
type MilvusConfig struct {
	Address  string `yaml:"address"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"db_name"`
}

// QdrantConfig holds qdrant REST settings.
type QdrantConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// RetrievalConfig controls the retriever.
type RetrievalConfig struct {
	TopK     int     `yaml:"top_k"`
	MinScore float64 `yaml:"min_score"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	CORSOrigins  []string      `yaml:"cors_origins"`
	RateLimit    float64       `yaml:"rate_limit"` // requests per second per client, 0 disables
	RateBurst    int           `yaml:"rate_burst"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// IngestConfig controls the offline ingestion job.
type IngestConfig struct {
	PagesDir      string        `yaml:"pages_dir"`
	PageFiles     []string      `yaml:"page_files"`
	ResumePath    string        `yaml:"resume_path"`
	ResumeTitle   string        `yaml:"resume_title"`
	ChunkSize     int           `yaml:"chunk_size"`
	ChunkOverlap  int           `yaml:"chunk_overlap"`
	Length        string        `yaml:"length"` // "chars" or "tokens"
	Encoding      string        `yaml:"encoding"`
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		DBPath: "folio.db",
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		LLM: LLMConfig{
			Model:       "gpt-4-turbo",
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
			BatchSize:  64,
			MaxRetries: 3,
		},
		Cache: CacheConfig{
			Enabled:  true,
			Provider: "sqlite",
			TTL:      time.Hour,
			Size:     1024,
		},
		ContentStore: ContentStoreConfig{
			Provider:   "sqlite",
			Collection: "portfolio",
		},
		Retrieval: RetrievalConfig{
			TopK: 8,
		},
		Server: ServerConfig{
			RateLimit:    5,
			RateBurst:    10,
			MaxBodyBytes: 1 << 20,
			WriteTimeout: 2 * time.Minute,
		},
		Ingest: IngestConfig{
			PagesDir:      "src/app",
			PageFiles:     []string{"page.tsx", "page.mdx", "page.md"},
			ResumeTitle:   "Resume",
			ChunkSize:     1000,
			ChunkOverlap:  200,
			Length:        "chars",
			Encoding:      "cl100k_base",
			WatchDebounce: 2 * time.Second,
		},
		Audit: models.AuditConfig{
			DBPath:        "folio-audit.db",
			RetentionDays: 30,
			Include:       []string{"questions"},
			MaxBodySize:   8192,
		},
	}
}

// EnvFiles are loaded before the config file is read so that ${VAR}
// references resolve from them. Existing environment variables win.
var EnvFiles = []string{".env.local", ".env"}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	if err := LoadEnv(EnvFiles...); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadOrDefault behaves like Load, except that a missing file yields the
// defaults (plus environment) instead of an error.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
		cfg.applyEnv()
		return cfg, nil
	}
	return cfg, err
}

// LoadEnv loads dotenv files, skipping any that do not exist.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// applyEnv fills credentials that were not set in the file from the
// conventional environment variables.
func (c *Config) applyEnv() {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = c.LLM.APIKey
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = c.LLM.BaseURL
	}
	if c.Cache.Redis.URL == "" && c.Cache.Redis.Addr == "" {
		c.Cache.Redis.URL = os.Getenv("REDIS_URL")
	}
	if c.LLM.RewriteModel == "" {
		c.LLM.RewriteModel = c.LLM.Model
	}
}
