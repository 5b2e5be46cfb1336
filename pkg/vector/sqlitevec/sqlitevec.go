// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/askbase/pkg/vector"
	"github.com/papercomputeco/askbase/pkg/vector/similarity"
)

const (
	defaultTopK        = 10
	defaultScrollLimit = 100
)

// Driver implements vector.Driver using SQLite with sqlite-vec.
// Embeddings are stored unit-normalized so the vec0 L2 distance maps
// directly onto cosine similarity.
type Driver struct {
	db     *sql.DB
	logger *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	dimensions := c.Dimensions
	if dimensions == 0 {
		return nil, errors.New("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	// vec0 virtual tables use integer rowids, so documents keep a mapping
	// from string document IDs to integer rowids.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}'
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating documents table: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d])`,
		dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"dimensions", dimensions,
		"vec_version", vecVersion,
	)

	return &Driver{
		db:     db,
		logger: logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// Upsert stores documents with their embeddings.
// If a document with the same ID already exists, it is updated in place.
func (d *Driver) Upsert(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", vector.ErrStore, err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		embBlob := serializeFloat32(similarity.Normalize(doc.Embedding))

		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for doc %s: %w", doc.ID, err)
		}

		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM vec_documents WHERE doc_id = ?`, doc.ID,
		).Scan(&existingRowID)

		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE vec_documents SET title = ?, content = ?, metadata = ? WHERE rowid = ?`,
				doc.Title, doc.Content, string(meta), existingRowID,
			); err != nil {
				return fmt.Errorf("%w: updating document %s: %v", vector.ErrStore, doc.ID, err)
			}

			// vec0 does not support UPDATE
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vec_embeddings WHERE rowid = ?`, existingRowID,
			); err != nil {
				return fmt.Errorf("%w: deleting old embedding for doc %s: %v", vector.ErrStore, doc.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				existingRowID, embBlob,
			); err != nil {
				return fmt.Errorf("%w: re-inserting embedding for doc %s: %v", vector.ErrStore, doc.ID, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			result, err := tx.ExecContext(ctx,
				`INSERT INTO vec_documents(doc_id, title, content, metadata) VALUES (?, ?, ?, ?)`,
				doc.ID, doc.Title, doc.Content, string(meta),
			)
			if err != nil {
				return fmt.Errorf("%w: inserting document %s: %v", vector.ErrStore, doc.ID, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("%w: getting rowid for doc %s: %v", vector.ErrStore, doc.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				rowID, embBlob,
			); err != nil {
				return fmt.Errorf("%w: inserting embedding for doc %s: %v", vector.ErrStore, doc.ID, err)
			}
		default:
			return fmt.Errorf("%w: checking for existing document %s: %v", vector.ErrStore, doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", vector.ErrStore, err)
	}

	d.logger.Debug("upserted documents to sqlite-vec", "count", len(docs))
	return nil
}

// Search runs a KNN query via vec0 MATCH. For unit vectors the L2
// distance d satisfies cos = 1 - d²/2.
func (d *Driver) Search(ctx context.Context, embedding []float32, opts vector.SearchOptions) ([]vector.SearchResult, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	queryBlob := serializeFloat32(similarity.Normalize(embedding))

	rows, err := d.db.QueryContext(ctx, `
		SELECT
			d.doc_id,
			d.title,
			d.content,
			d.metadata,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_documents d ON d.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, queryBlob, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: querying vectors: %v", vector.ErrStore, err)
	}
	defer rows.Close()

	results := []vector.SearchResult{}
	for rows.Next() {
		var doc vector.Document
		var meta string
		var distance float64
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &meta, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		score := 1.0 - (distance*distance)/2.0
		if score < opts.ScoreThreshold {
			continue
		}

		doc.Metadata = decodeMetadata(meta)
		results = append(results, vector.SearchResult{Document: doc, Score: score})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec", "results", len(results))
	return results, nil
}

// Scroll lists documents in insertion order.
func (d *Driver) Scroll(ctx context.Context, opts vector.ScrollOptions) ([]vector.Document, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultScrollLimit
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT doc_id, title, content, metadata FROM vec_documents ORDER BY rowid LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: scrolling documents: %v", vector.ErrStore, err)
	}
	defer rows.Close()

	docs := []vector.Document{}
	for rows.Next() {
		var doc vector.Document
		var meta string
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &meta); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc.Metadata = decodeMetadata(meta)
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders, args := inClause(ids)
	query := fmt.Sprintf(`
		SELECT d.doc_id, d.title, d.content, d.metadata, d.rowid
		FROM vec_documents d
		WHERE d.doc_id IN (%s)
		ORDER BY d.rowid
	`, placeholders)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying documents: %v", vector.ErrStore, err)
	}
	defer rows.Close()

	// Collect results first so we can close the rows cursor before
	// issuing additional queries (SQLite uses a single connection).
	type docRow struct {
		doc   vector.Document
		rowID int64
	}
	var docRows []docRow

	for rows.Next() {
		var dr docRow
		var meta string
		if err := rows.Scan(&dr.doc.ID, &dr.doc.Title, &dr.doc.Content, &meta, &dr.rowID); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		dr.doc.Metadata = decodeMetadata(meta)
		docRows = append(docRows, dr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	rows.Close()

	docs := make([]vector.Document, 0, len(docRows))
	for _, dr := range docRows {
		var embBlob []byte
		err := d.db.QueryRowContext(ctx,
			`SELECT embedding FROM vec_embeddings WHERE rowid = ?`, dr.rowID,
		).Scan(&embBlob)
		if err == nil && len(embBlob) > 0 {
			dr.doc.Embedding, _ = deserializeFloat32(embBlob)
		}

		docs = append(docs, dr.doc)
	}

	return docs, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", vector.ErrStore, err)
	}
	defer tx.Rollback()

	placeholders, args := inClause(ids)

	rows, err := tx.QueryContext(ctx,
		fmt.Sprintf(`SELECT rowid FROM vec_documents WHERE doc_id IN (%s)`, placeholders), args...,
	)
	if err != nil {
		return fmt.Errorf("%w: querying rowids for deletion: %v", vector.ErrStore, err)
	}

	var rowIDs []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning rowid: %w", err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rowids: %w", err)
	}

	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM vec_embeddings WHERE rowid = ?`, rowID,
		); err != nil {
			return fmt.Errorf("%w: deleting embedding rowid %d: %v", vector.ErrStore, rowID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM vec_documents WHERE doc_id IN (%s)`, placeholders), args...,
	); err != nil {
		return fmt.Errorf("%w: deleting documents: %v", vector.ErrStore, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", vector.ErrStore, err)
	}

	d.logger.Debug("deleted documents from sqlite-vec", "count", len(ids))
	return nil
}

// Count returns the number of stored documents.
func (d *Driver) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vec_documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting documents: %v", vector.ErrStore, err)
	}
	return n, nil
}

// Ping checks the database connection.
func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

func inClause(ids []string) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ","), args
}

func decodeMetadata(raw string) map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	return m
}

var _ vector.Driver = (*Driver)(nil)
