// Package qdrant stores the Content Store in a Qdrant collection through
// its REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pario-ai/folio/pkg/models"
	"github.com/pario-ai/folio/pkg/vectorstore"
)

// Config locates the Qdrant server and collection.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Store is a minimal REST client bound to one collection.
type Store struct {
	base       string
	apiKey     string
	collection string
	client     *http.Client
}

// New creates a Store. No request is made until the first call.
func New(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		base:       strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// pointID maps a record ID onto the UUIDs Qdrant accepts.
func pointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("folio:"+id)).String()
}

// StatusError is a non-2xx Qdrant response.
type StatusError struct {
	Method, Path string
	StatusCode   int
	Body         string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("qdrant %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.base+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(msg)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (s *Store) collectionPath() string {
	return "/collections/" + url.PathEscape(s.collection)
}

// EnsureCollection creates the collection with the cosine distance if it
// does not exist.
func (s *Store) EnsureCollection(ctx context.Context, dim int) error {
	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodGet, s.collectionPath(), nil, &info)
	if err == nil {
		if size := info.Result.Config.Params.Vectors.Size; size != 0 && size != dim {
			return &vectorstore.DimensionError{Got: dim, Want: size}
		}
		return nil
	}
	if se, ok := err.(*StatusError); !ok || se.StatusCode != http.StatusNotFound {
		return fmt.Errorf("get collection: %w", err)
	}

	body := map[string]any{
		"vectors": map[string]any{"size": dim, "distance": "Cosine"},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionPath(), body, nil); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (s *Store) Upsert(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]point, len(records))
	for i, r := range records {
		points[i] = point{
			ID:     pointID(r.ID),
			Vector: r.Vector,
			Payload: map[string]any{
				"record_id": r.ID,
				"text":      r.Text,
				"url":       r.URL(),
				"metadata":  r.Metadata,
			},
		}
	}
	if err := s.do(ctx, http.MethodPut, s.collectionPath()+"/points?wait=true", map[string]any{"points": points}, nil); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]models.RetrievedDocument, error) {
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload struct {
				Text     string            `json:"text"`
				URL      string            `json:"url"`
				Metadata map[string]string `json:"metadata"`
			} `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath()+"/points/search", req, &resp); err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}
	docs := make([]models.RetrievedDocument, 0, len(resp.Result))
	for _, r := range resp.Result {
		docs = append(docs, models.RetrievedDocument{
			Content:  r.Payload.Text,
			URL:      r.Payload.URL,
			Score:    r.Score,
			Metadata: r.Payload.Metadata,
		})
	}
	return docs, nil
}

// Clear deletes every point; the collection itself is kept.
func (s *Store) Clear(ctx context.Context) error {
	body := map[string]any{"filter": map[string]any{"must": []any{}}}
	err := s.do(ctx, http.MethodPost, s.collectionPath()+"/points/delete?wait=true", body, nil)
	if se, ok := err.(*StatusError); ok && se.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var resp struct {
		Result struct {
			Count int64 `json:"count"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath()+"/points/count", map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
