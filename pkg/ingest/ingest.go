// Package ingest loads the portfolio's page sources and resume, splits them
// into chunks, embeds them and rebuilds the content store.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/pario-ai/folio/pkg/cache"
	"github.com/pario-ai/folio/pkg/config"
	"github.com/pario-ai/folio/pkg/embedding"
	"github.com/pario-ai/folio/pkg/logging"
	"github.com/pario-ai/folio/pkg/models"
	"github.com/pario-ai/folio/pkg/vectorstore"
)

const upsertBatch = 100

// Report summarizes an ingestion run.
type Report struct {
	Pages    int
	Resume   bool
	Chunks   int
	Duration time.Duration
	// Warnings collects problems that did not stop the run.
	Warnings error
}

// Ingester rebuilds the content store from the configured sources.
type Ingester struct {
	cfg      config.IngestConfig
	cache    cache.Store
	store    vectorstore.Store
	embedder embedding.Embedder
	length   LengthFunc
	log      *zap.Logger
}

// New creates an Ingester. Cache may be nil. When cfg.Length is "tokens"
// the tokenizer for cfg.Encoding is loaded here.
func New(cfg config.IngestConfig, c cache.Store, s vectorstore.Store, e embedding.Embedder, log *zap.Logger) (*Ingester, error) {
	length := LengthFunc(RuneLength)
	if cfg.Length == "tokens" {
		var err error
		if length, err = TokenLength(cfg.Encoding); err != nil {
			return nil, err
		}
	}
	return &Ingester{cfg: cfg, cache: c, store: s, embedder: e, length: length, log: logging.OrNop(log)}, nil
}

// Run flushes the answer cache, recreates the content store's records and
// loads every source into it.
func (in *Ingester) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{}
	var warnings *multierror.Error

	if in.cache != nil {
		if err := in.cache.Flush(ctx); err != nil {
			warnings = multierror.Append(warnings, fmt.Errorf("flush cache: %w", err))
		}
	}
	if err := in.store.EnsureCollection(ctx, in.embedder.Dimensions()); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}
	if err := in.store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("clear content store: %w", err)
	}

	sources, err := LoadPages(ctx, in.cfg.PagesDir, in.cfg.PageFiles)
	if err != nil {
		return nil, err
	}
	report.Pages = len(sources)

	if in.cfg.ResumePath != "" {
		resume, err := LoadResume(in.cfg.ResumePath, in.cfg.ResumeTitle)
		if err != nil {
			warnings = multierror.Append(warnings, err)
		} else {
			sources = append(sources, resume)
			report.Resume = true
		}
	}

	records := in.chunk(sources)
	report.Chunks = len(records)
	if err := in.embed(ctx, records); err != nil {
		return nil, err
	}
	for i := 0; i < len(records); i += upsertBatch {
		end := min(i+upsertBatch, len(records))
		if err := in.store.Upsert(ctx, records[i:end]); err != nil {
			return nil, fmt.Errorf("upsert records: %w", err)
		}
	}

	report.Duration = time.Since(start)
	report.Warnings = warnings.ErrorOrNil()
	for _, w := range multierrorList(warnings) {
		in.log.Warn("ingest warning", zap.Error(w))
	}
	in.log.Info("ingest complete",
		zap.Int("pages", report.Pages),
		zap.Bool("resume", report.Resume),
		zap.Int("chunks", report.Chunks),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (in *Ingester) chunk(sources []Source) []models.Record {
	var records []models.Record
	for _, src := range sources {
		seps := TextSeparators
		if src.Markup {
			seps = MarkupSeparators
		}
		sp := &Splitter{Size: in.cfg.ChunkSize, Overlap: in.cfg.ChunkOverlap, Separators: seps, Len: in.length}
		for i, text := range sp.Split(src.Text) {
			meta := make(map[string]string, len(src.Metadata)+1)
			for k, v := range src.Metadata {
				meta[k] = v
			}
			meta["chunk"] = fmt.Sprint(i)
			records = append(records, models.Record{
				ID:       RecordID(src.URL(), src.Path, i),
				Text:     text,
				Metadata: meta,
			})
		}
	}
	return records
}

func (in *Ingester) embed(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}
	vecs, err := in.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vecs) != len(records) {
		return fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vecs), len(records))
	}
	for i := range records {
		records[i].Vector = vecs[i]
	}
	return nil
}

// RecordID returns a stable identifier for chunk i of a source.
func RecordID(url, path string, i int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s|%s#%d", url, path, i))).String()
}

func multierrorList(m *multierror.Error) []error {
	if m == nil {
		return nil
	}
	return m.Errors
}
