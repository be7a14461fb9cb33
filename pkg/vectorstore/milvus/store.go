// Package milvus stores the Content Store in a Milvus collection with an
// HNSW index on the cosine metric.
package milvus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/pario-ai/folio/pkg/models"
	"github.com/pario-ai/folio/pkg/vectorstore"
)

const (
	fieldID       = "pk"
	fieldText     = "text"
	fieldURL      = "url"
	fieldMetadata = "metadata"
	fieldVector   = "vector"

	maxTextLength = 65535
)

// Config locates the Milvus server and collection.
type Config struct {
	Address    string
	Username   string
	Password   string
	DBName     string
	Collection string
}

// Store wraps a Milvus client bound to one collection.
type Store struct {
	c          client.Client
	collection string
	dim        int
}

// New connects to Milvus.
func New(ctx context.Context, cfg Config) (*Store, error) {
	c, err := client.NewClient(ctx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.DBName,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}
	return &Store{c: c, collection: cfg.Collection}, nil
}

func schema(name string, dim int) *entity.Schema {
	return entity.NewSchema().
		WithName(name).
		WithDescription("folio site content").
		WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar).WithIsPrimaryKey(true).WithMaxLength(256)).
		WithField(entity.NewField().WithName(fieldText).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxTextLength)).
		WithField(entity.NewField().WithName(fieldURL).WithDataType(entity.FieldTypeVarChar).WithMaxLength(1024)).
		WithField(entity.NewField().WithName(fieldMetadata).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxTextLength)).
		WithField(entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dim)))
}

// EnsureCollection creates and indexes the collection if missing, then
// loads it for search.
func (s *Store) EnsureCollection(ctx context.Context, dim int) error {
	has, err := s.c.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("has collection: %w", err)
	}
	if !has {
		if err := s.c.CreateCollection(ctx, schema(s.collection, dim), entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
		idx, err := entity.NewIndexHNSW(entity.COSINE, 16, 200)
		if err != nil {
			return fmt.Errorf("build index params: %w", err)
		}
		if err := s.c.CreateIndex(ctx, s.collection, fieldVector, idx, false); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	if err := s.c.LoadCollection(ctx, s.collection, false); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	s.dim = dim
	return nil
}

func columns(records []models.Record, dim int) ([]entity.Column, error) {
	ids := make([]string, len(records))
	texts := make([]string, len(records))
	urls := make([]string, len(records))
	metas := make([]string, len(records))
	vecs := make([][]float32, len(records))
	for i, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata for %s: %w", r.ID, err)
		}
		text := r.Text
		if len(text) > maxTextLength {
			text = text[:maxTextLength]
		}
		ids[i], texts[i], urls[i], metas[i], vecs[i] = r.ID, text, r.URL(), string(meta), r.Vector
	}
	return []entity.Column{
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnVarChar(fieldText, texts),
		entity.NewColumnVarChar(fieldURL, urls),
		entity.NewColumnVarChar(fieldMetadata, metas),
		entity.NewColumnFloatVector(fieldVector, dim, vecs),
	}, nil
}

func (s *Store) Upsert(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	dim := s.dim
	if dim == 0 {
		dim = len(records[0].Vector)
	}
	if err := vectorstore.CheckDims(records, dim); err != nil {
		return err
	}
	cols, err := columns(records, dim)
	if err != nil {
		return err
	}
	if _, err := s.c.Upsert(ctx, s.collection, "", cols...); err != nil {
		return fmt.Errorf("milvus upsert: %w", err)
	}
	if err := s.c.Flush(ctx, s.collection, false); err != nil {
		return fmt.Errorf("milvus flush: %w", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]models.RetrievedDocument, error) {
	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, err
	}
	results, err := s.c.Search(ctx, s.collection, nil, "",
		[]string{fieldText, fieldURL, fieldMetadata},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldVector, entity.COSINE, k, sp)
	if err != nil {
		return nil, fmt.Errorf("milvus search: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	res := results[0]
	textCol := res.Fields.GetColumn(fieldText)
	urlCol := res.Fields.GetColumn(fieldURL)
	metaCol := res.Fields.GetColumn(fieldMetadata)
	if textCol == nil || urlCol == nil || metaCol == nil {
		return nil, errors.New("milvus search: missing output fields")
	}

	docs := make([]models.RetrievedDocument, 0, res.ResultCount)
	for i := 0; i < res.ResultCount; i++ {
		text, err := textCol.GetAsString(i)
		if err != nil {
			return nil, err
		}
		url, err := urlCol.GetAsString(i)
		if err != nil {
			return nil, err
		}
		metaJSON, err := metaCol.GetAsString(i)
		if err != nil {
			return nil, err
		}
		var meta map[string]string
		_ = json.Unmarshal([]byte(metaJSON), &meta)

		var score float64
		if i < len(res.Scores) {
			score = float64(res.Scores[i])
		}
		docs = append(docs, models.RetrievedDocument{Content: text, URL: url, Score: score, Metadata: meta})
	}
	return docs, nil
}

// Clear deletes every record; the collection and its index are kept.
func (s *Store) Clear(ctx context.Context) error {
	has, err := s.c.HasCollection(ctx, s.collection)
	if err != nil || !has {
		return err
	}
	if err := s.c.Delete(ctx, s.collection, "", fieldID+` != ""`); err != nil {
		return fmt.Errorf("milvus delete: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	stats, err := s.c.GetCollectionStatistics(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("milvus stats: %w", err)
	}
	return strconv.ParseInt(stats["row_count"], 10, 64)
}

func (s *Store) Close() error {
	return s.c.Close()
}
