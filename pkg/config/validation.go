package config

import (
	"fmt"
	"strings"
)

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found by Validate.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "found %d configuration error(s):", len(errs))
	for _, e := range errs {
		b.WriteString("\n  - ")
		b.WriteString(e.Error())
	}
	return b.String()
}

var (
	cacheProviders   = []string{"redis", "sqlite", "memory", "none"}
	contentProviders = []string{"sqlite", "memory", "milvus", "qdrant"}
)

// Validate checks the fields needed to serve chat requests.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.LLM.Model == "" {
		add("llm.model", "model is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		add("llm.temperature", "must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	if c.Embedding.Provider != "openai" && c.Embedding.Provider != "hash" {
		add("embedding.provider", "must be openai or hash, got %q", c.Embedding.Provider)
	}
	if c.Embedding.Model == "" {
		add("embedding.model", "model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		add("embedding.dimensions", "must be positive, got %d", c.Embedding.Dimensions)
	}

	if c.Cache.Enabled {
		if !oneOf(c.Cache.Provider, cacheProviders) {
			add("cache.provider", "unknown provider %q (want one of %s)", c.Cache.Provider, strings.Join(cacheProviders, ", "))
		}
		if c.Cache.TTL <= 0 {
			add("cache.ttl", "must be positive, got %v", c.Cache.TTL)
		}
		if c.Cache.Provider == "redis" && c.Cache.Redis.URL == "" && c.Cache.Redis.Addr == "" {
			add("cache.redis", "url or addr is required for the redis provider")
		}
	}

	if !oneOf(c.ContentStore.Provider, contentProviders) {
		add("content_store.provider", "unknown provider %q (want one of %s)", c.ContentStore.Provider, strings.Join(contentProviders, ", "))
	}
	if c.ContentStore.Collection == "" {
		add("content_store.collection", "collection is required")
	}
	switch c.ContentStore.Provider {
	case "milvus":
		if c.ContentStore.Milvus.Address == "" {
			add("content_store.milvus.address", "address is required for the milvus provider")
		}
	case "qdrant":
		if c.ContentStore.Qdrant.URL == "" {
			add("content_store.qdrant.url", "url is required for the qdrant provider")
		}
	}

	if c.Retrieval.TopK <= 0 {
		add("retrieval.top_k", "must be positive, got %d", c.Retrieval.TopK)
	}

	if c.Ingest.ChunkSize <= 0 {
		add("ingest.chunk_size", "must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		add("ingest.chunk_overlap", "must be in [0, chunk_size), got %d", c.Ingest.ChunkOverlap)
	}
	if c.Ingest.Length != "chars" && c.Ingest.Length != "tokens" {
		add("ingest.length", "must be chars or tokens, got %q", c.Ingest.Length)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
