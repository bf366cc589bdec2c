// Copyright 2025 Allan Butler
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlitevec stores product embeddings in a sqlite-vec vec0 virtual
// table and answers nearest-neighbor queries with cosine distance.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/allanbutler/kg-rag-grocery/core"
	"github.com/allanbutler/kg-rag-grocery/storage"
)

func init() {
	sqlite_vec.Auto()
}

const metaSchema = `
CREATE TABLE IF NOT EXISTS embedding_meta (
    product_id  INTEGER PRIMARY KEY,
    fingerprint INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS index_config (
    key   TEXT PRIMARY KEY,
    value INTEGER NOT NULL
);
`

const vecSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS vec_products USING vec0(
    product_id INTEGER PRIMARY KEY,
    embedding float[%d] distance_metric=cosine
);
`

// Index is a sqlite-vec backed storage.EmbeddingRepository and
// storage.SimilarityIndex. The vector table is created on the first write,
// when the dimension is known.
type Index struct {
	db     *sql.DB
	logger *slog.Logger

	mu  sync.RWMutex
	dim int
}

var (
	_ storage.EmbeddingRepository = (*Index)(nil)
	_ storage.SimilarityIndex     = (*Index)(nil)
)

// Option configures an Index.
type Option func(*Index) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Index) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		i.logger = logger
		return nil
	}
}

// Open opens (or creates) the index database at dbPath.
func Open(dbPath string, opts ...Option) (*Index, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging index: %w", err)
	}
	if _, err := db.Exec(metaSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	idx := &Index{
		db:     db,
		logger: slog.Default().With("component", "sqlitevec"),
	}
	for _, opt := range opts {
		if err := opt(idx); err != nil {
			db.Close()
			return nil, err
		}
	}

	var dim int
	err = db.QueryRow("SELECT value FROM index_config WHERE key = 'dim'").Scan(&dim)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		db.Close()
		return nil, fmt.Errorf("reading index config: %w", err)
	default:
		idx.dim = dim
	}
	return idx, nil
}

// Close closes the underlying database connection.
func (i *Index) Close() error {
	return i.db.Close()
}

// Dim returns the vector dimension, or 0 before the first write.
func (i *Index) Dim() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.dim
}

func (i *Index) ensureTable(ctx context.Context, dim int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.dim != 0 {
		if i.dim != dim {
			return fmt.Errorf("%w: got %d, want %d", storage.ErrDimensionMismatch, dim, i.dim)
		}
		return nil
	}
	if _, err := i.db.ExecContext(ctx, fmt.Sprintf(vecSchema, dim)); err != nil {
		return fmt.Errorf("creating vector table: %w", err)
	}
	if _, err := i.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO index_config (key, value) VALUES ('dim', ?)", dim); err != nil {
		return err
	}
	i.dim = dim
	return nil
}

// PutEmbeddings stores embeddings keyed by product id in one transaction.
func (i *Index) PutEmbeddings(ctx context.Context, embeddings ...*core.Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	for _, e := range embeddings {
		if len(e.Vector) == 0 {
			return fmt.Errorf("%w: product %d has an empty vector", storage.ErrDimensionMismatch, e.ProductID)
		}
		if err := i.ensureTable(ctx, len(e.Vector)); err != nil {
			return err
		}
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range embeddings {
		// vec0 does not support upsert, so replace by delete then insert
		if _, err := tx.ExecContext(ctx, "DELETE FROM vec_products WHERE product_id = ?", e.ProductID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO vec_products (product_id, embedding) VALUES (?, ?)",
			e.ProductID, serializeFloat32(e.Vector)); err != nil {
			return fmt.Errorf("inserting embedding for product %d: %w", e.ProductID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO embedding_meta (product_id, fingerprint) VALUES (?, ?)",
			e.ProductID, int64(e.Fingerprint)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteEmbeddings removes vectors and fingerprints by product id in one
// transaction.
func (i *Index) DeleteEmbeddings(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	hasVectors := i.Dim() != 0

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, id := range ids {
		if hasVectors {
			if _, err := tx.ExecContext(ctx, "DELETE FROM vec_products WHERE product_id = ?", id); err != nil {
				return fmt.Errorf("deleting embedding for product %d: %w", id, err)
			}
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM embedding_meta WHERE product_id = ?", id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Fingerprints returns the stored fingerprint of every embedded product.
func (i *Index) Fingerprints(ctx context.Context) (map[int64]core.ID, error) {
	rows, err := i.db.QueryContext(ctx, "SELECT product_id, fingerprint FROM embedding_meta")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]core.ID)
	for rows.Next() {
		var id, fp int64
		if err := rows.Scan(&id, &fp); err != nil {
			return nil, err
		}
		out[id] = core.ID(fp)
	}
	return out, rows.Err()
}

// LoadIndex returns the Index itself; queries run against the database.
func (i *Index) LoadIndex(ctx context.Context) (storage.SimilarityIndex, error) {
	return i, nil
}

// Len returns the number of stored vectors. Errors read as an empty index.
func (i *Index) Len() int {
	if i.Dim() == 0 {
		return 0
	}
	var n int
	if err := i.db.QueryRow("SELECT COUNT(*) FROM vec_products").Scan(&n); err != nil {
		i.logger.Warn("counting vectors", "err", err)
		return 0
	}
	return n
}

// Nearest performs a KNN search and converts cosine distance to similarity.
func (i *Index) Nearest(ctx context.Context, vector []float32, k int) ([]core.SimilarityMatch, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}
	dim := i.Dim()
	if k <= 0 || dim == 0 {
		return nil, nil
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: got %d, want %d", storage.ErrDimensionMismatch, len(vector), dim)
	}

	rows, err := i.db.QueryContext(ctx, `
		SELECT product_id, distance
		FROM vec_products
		WHERE embedding MATCH ? AND k = ?
		ORDER BY distance
	`, serializeFloat32(vector), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.SimilarityMatch
	for rows.Next() {
		var id int64
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, err
		}
		out = append(out, core.SimilarityMatch{ProductID: id, Score: float32(1.0 - distance)})
	}
	return out, rows.Err()
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
