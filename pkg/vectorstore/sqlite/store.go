// Package sqlite stores the Content Store in a SQLite database and ranks
// by brute-force cosine similarity, which is ample for a portfolio-sized
// collection.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/folio/pkg/models"
	"github.com/pario-ai/folio/pkg/vectorstore"
)

// Store is a single named collection inside a SQLite database.
type Store struct {
	db         *sql.DB
	collection string
}

// New opens (or creates) the database and its schema.
func New(dbPath, collection string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open content db: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate content db: %w", err)
	}
	return &Store{db: db, collection: collection}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS collections (
		name       TEXT PRIMARY KEY,
		dimensions INTEGER NOT NULL,
		metric     TEXT NOT NULL DEFAULT 'cosine',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS records (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		collection TEXT NOT NULL,
		id         TEXT NOT NULL,
		text       TEXT NOT NULL,
		url        TEXT NOT NULL DEFAULT '',
		metadata   TEXT NOT NULL DEFAULT '{}',
		vector     BLOB NOT NULL,
		UNIQUE (collection, id)
	)`)
	return err
}

func (s *Store) dimensions(ctx context.Context) (int, error) {
	var dim int
	err := s.db.QueryRowContext(ctx,
		`SELECT dimensions FROM collections WHERE name = ?`, s.collection,
	).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, vectorstore.ErrNoCollection
	}
	return dim, err
}

// EnsureCollection creates the collection with dim and the cosine metric
// if it does not exist yet.
func (s *Store) EnsureCollection(ctx context.Context, dim int) error {
	existing, err := s.dimensions(ctx)
	switch {
	case err == nil:
		if existing != dim {
			return &vectorstore.DimensionError{Got: dim, Want: existing}
		}
		return nil
	case !errors.Is(err, vectorstore.ErrNoCollection):
		return fmt.Errorf("lookup collection: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO collections (name, dimensions, metric) VALUES (?, ?, 'cosine')`,
		s.collection, dim)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

// Upsert inserts records, replacing any with the same ID. A replaced record
// keeps its original insertion position.
func (s *Store) Upsert(ctx context.Context, records []models.Record) error {
	dim, err := s.dimensions(ctx)
	if err != nil {
		return err
	}
	if err := vectorstore.CheckDims(records, dim); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (collection, id, text, url, metadata, vector)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			text = excluded.text, url = excluded.url,
			metadata = excluded.metadata, vector = excluded.vector`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, s.collection, r.ID, r.Text, r.URL(), string(meta), encodeVector(r.Vector)); err != nil {
			return fmt.Errorf("upsert %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]models.RetrievedDocument, error) {
	dim, err := s.dimensions(ctx)
	if err != nil {
		return nil, err
	}
	if len(vector) != dim {
		return nil, &vectorstore.DimensionError{Got: len(vector), Want: dim}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, metadata, vector FROM records WHERE collection = ? ORDER BY seq`,
		s.collection)
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		var r models.Record
		var meta string
		var blob []byte
		if err := rows.Scan(&r.ID, &r.Text, &meta, &blob); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", r.ID, err)
		}
		r.Vector = decodeVector(blob)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vectorstore.Rank(vector, records, k), nil
}

// Clear deletes every record in the collection but keeps its definition.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, s.collection); err != nil {
		return fmt.Errorf("clear collection: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE collection = ?`, s.collection).Scan(&n)
	return n, err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
