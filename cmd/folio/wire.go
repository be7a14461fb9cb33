package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pario-ai/folio/pkg/audit"
	"github.com/pario-ai/folio/pkg/cache"
	"github.com/pario-ai/folio/pkg/cache/memory"
	"github.com/pario-ai/folio/pkg/cache/redis"
	cachesqlite "github.com/pario-ai/folio/pkg/cache/sqlite"
	"github.com/pario-ai/folio/pkg/chat"
	"github.com/pario-ai/folio/pkg/config"
	"github.com/pario-ai/folio/pkg/embedding"
	"github.com/pario-ai/folio/pkg/llm"
	"github.com/pario-ai/folio/pkg/llm/openai"
	"github.com/pario-ai/folio/pkg/logging"
	"github.com/pario-ai/folio/pkg/prompt"
	"github.com/pario-ai/folio/pkg/rag"
	"github.com/pario-ai/folio/pkg/vectorstore"
	vsmemory "github.com/pario-ai/folio/pkg/vectorstore/memory"
	"github.com/pario-ai/folio/pkg/vectorstore/milvus"
	"github.com/pario-ai/folio/pkg/vectorstore/qdrant"
	vssqlite "github.com/pario-ai/folio/pkg/vectorstore/sqlite"
)

// loadConfig reads the config file. When --config was not given
// explicitly a missing file falls back to the defaults.
func loadConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cmd.Flags().Changed("config") {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadOrDefault(path)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// deps holds the components shared by the commands. Cache and Auditor are
// nil when disabled.
type deps struct {
	cfg      *config.Config
	log      *zap.Logger
	cache    cache.Store
	store    vectorstore.Store
	embedder embedding.Embedder
	auditor  *audit.Logger
}

// openDeps builds the logger, cache, content store and embedder. The
// returned cleanup closes everything that was opened.
func openDeps(ctx context.Context, cmd *cobra.Command, configPath string) (*deps, func(), error) {
	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}

	d := &deps{cfg: cfg, log: log, embedder: newEmbedder(cfg)}
	cleanup := func() {
		if d.auditor != nil {
			_ = d.auditor.Close()
		}
		if d.store != nil {
			_ = d.store.Close()
		}
		if d.cache != nil {
			_ = d.cache.Close()
		}
		_ = log.Sync()
	}

	c, err := openCache(cfg)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("init cache: %w", err)
	}
	d.cache = c
	vs, err := openContentStore(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("init content store: %w", err)
	}
	d.store = vs
	return d, cleanup, nil
}

// ensureCollection creates the content store collection when it is
// missing so chat works before the first ingest.
func (d *deps) ensureCollection(ctx context.Context) error {
	if err := d.store.EnsureCollection(ctx, d.embedder.Dimensions()); err != nil {
		return fmt.Errorf("ensure content collection: %w", err)
	}
	return nil
}

// openAuditor opens the audit log when it is enabled.
func (d *deps) openAuditor() error {
	if !d.cfg.Audit.Enabled {
		return nil
	}
	l, err := audit.New(d.cfg.Audit)
	if err != nil {
		return fmt.Errorf("open audit db: %w", err)
	}
	d.auditor = l
	return nil
}

func openCache(cfg *config.Config) (cache.Store, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	switch cfg.Cache.Provider {
	case "redis":
		r := cfg.Cache.Redis
		return redis.New(redis.Options{URL: r.URL, Addr: r.Addr, Password: r.Password, DB: r.DB, Prefix: r.Prefix})
	case "sqlite":
		return cachesqlite.New(cfg.DBPath, cfg.Cache.TTL)
	case "memory":
		return memory.New(cfg.Cache.Size, cfg.Cache.TTL), nil
	case "none", "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown cache provider %q", cfg.Cache.Provider)
}

func openContentStore(ctx context.Context, cfg *config.Config) (vectorstore.Store, error) {
	cs := cfg.ContentStore
	switch cs.Provider {
	case "sqlite":
		return vssqlite.New(cfg.DBPath, cs.Collection)
	case "memory":
		return vsmemory.New(), nil
	case "milvus":
		return milvus.New(ctx, milvus.Config{
			Address:    cs.Milvus.Address,
			Username:   cs.Milvus.Username,
			Password:   cs.Milvus.Password,
			DBName:     cs.Milvus.DBName,
			Collection: cs.Collection,
		})
	case "qdrant":
		return qdrant.New(qdrant.Config{URL: cs.Qdrant.URL, APIKey: cs.Qdrant.APIKey, Collection: cs.Collection}), nil
	}
	return nil, fmt.Errorf("unknown content store provider %q", cs.Provider)
}

func newEmbedder(cfg *config.Config) embedding.Embedder {
	e := cfg.Embedding
	if e.Provider == "hash" {
		return embedding.NewHash(e.Dimensions)
	}
	return embedding.NewOpenAI(embedding.Config{
		APIKey:     e.APIKey,
		BaseURL:    e.BaseURL,
		Model:      e.Model,
		Dimensions: e.Dimensions,
		BatchSize:  e.BatchSize,
		MaxRetries: e.MaxRetries,
	})
}

// newProvider chains model with the configured fallback models.
func newProvider(cfg *config.Config, model string, log *zap.Logger) llm.Provider {
	names := append([]string{model}, cfg.LLM.FallbackModels...)
	providers := make([]llm.Provider, 0, len(names))
	for _, m := range names {
		providers = append(providers, openai.New(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       m,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout,
			MaxRetries:  2,
		}))
	}
	return llm.NewFallback(log, providers...)
}

func (d *deps) retriever() *rag.Retriever {
	return rag.NewRetriever(d.embedder, d.store,
		rag.WithTopK(d.cfg.Retrieval.TopK),
		rag.WithMinScore(d.cfg.Retrieval.MinScore),
	)
}

func (d *deps) orchestrator() *chat.Orchestrator {
	return chat.New(chat.Options{
		Cache:     d.cache,
		Rewriter:  rag.NewRewriter(newProvider(d.cfg, d.cfg.LLM.RewriteModel, d.log), d.log),
		Retriever: d.retriever(),
		Generator: rag.NewGenerator(newProvider(d.cfg, d.cfg.LLM.Model, d.log), prompt.Default()),
		TTL:       d.cfg.Cache.TTL,
		Logger:    d.log,
	})
}
