package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dshills/pdfindex/pkg/types"
)

// ErrNotFound is returned when a requested entity doesn't exist
var ErrNotFound = types.ErrNotFound

// ErrInvalidUpsert is returned when chunks and embeddings passed to UpsertDocument do not line up
var ErrInvalidUpsert = errors.New("invalid document upsert")

// DatabaseExt is the file extension of a collection database
const DatabaseExt = ".db"

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// DatabasePath returns the database file for a collection inside dir
func DatabasePath(dir, collection string) string {
	return filepath.Join(dir, collection+DatabaseExt)
}

// Open opens (creating if needed) the collection database inside dir
func Open(dir, collection string) (*SQLiteStorage, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return NewSQLiteStorage(DatabasePath(dir, collection))
}

// OpenReadOnly opens an existing collection database without applying
// migrations or changing its journal mode. Writes through it fail.
func OpenReadOnly(dir, collection string) (*SQLiteStorage, error) {
	path := DatabasePath(dir, collection)
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := openDatabase(path, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &SQLiteStorage{db: db, path: path}, nil
}

// Remove deletes the collection database and its WAL side files.
// A missing database is not an error.
func Remove(dir, collection string) error {
	path := DatabasePath(dir, collection)
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

// memoryPath opens a private in-memory database
const memoryPath = ":memory:"

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string, readOnly bool) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dsn(dbPath, readOnly))
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if !readOnly {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance. dbPath may be ":memory:".
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

// Path returns the database file path
func (s *SQLiteStorage) Path() string {
	return s.path
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Document operations

// UpsertDocument replaces everything stored for doc.Path with the given chunks
// and embeddings in one transaction. embeddings[i] belongs to chunks[i].
func (s *SQLiteStorage) UpsertDocument(ctx context.Context, doc *Document, chunks []*Chunk, embeddings []*Embedding) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.upsertDocumentWithQuerier(ctx, tx, doc, chunks, embeddings); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document %s: %w", doc.Path, err)
	}
	return nil
}

// upsertDocumentWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertDocumentWithQuerier(ctx context.Context, q querier, doc *Document, chunks []*Chunk, embeddings []*Embedding) error {
	if doc == nil || doc.Path == "" {
		return fmt.Errorf("%w: document path is required", ErrInvalidUpsert)
	}
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("%w: %d chunks but %d embeddings", ErrInvalidUpsert, len(chunks), len(embeddings))
	}

	// Old chunks go first; their embeddings follow by cascade
	if _, err := s.deleteChunksByDocumentWithQuerier(ctx, q, doc.Path); err != nil {
		return err
	}

	if doc.IndexedAt.IsZero() {
		doc.IndexedAt = time.Now().UTC()
	}
	doc.ChunkCount = len(chunks)

	query := `
		INSERT INTO documents (path, fingerprint, page_count, chunk_count, indexed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			page_count = excluded.page_count,
			chunk_count = excluded.chunk_count,
			indexed_at = excluded.indexed_at
	`
	if _, err := q.ExecContext(ctx, query,
		doc.Path, string(doc.Fingerprint), doc.PageCount, doc.ChunkCount, doc.IndexedAt); err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.Path, err)
	}

	for i, chunk := range chunks {
		if chunk.DocumentPath != doc.Path {
			return fmt.Errorf("%w: chunk %s belongs to %s", ErrInvalidUpsert, chunk.ID, chunk.DocumentPath)
		}
		if chunk.ID == "" {
			chunk.ID = types.ChunkID(chunk.DocumentPath, chunk.Index)
		}
		if err := s.insertChunkWithQuerier(ctx, q, chunk); err != nil {
			return err
		}

		emb := embeddings[i]
		if emb == nil || len(emb.Vector) == 0 {
			return fmt.Errorf("%w: chunk %s has no embedding", ErrInvalidUpsert, chunk.ID)
		}
		emb.ChunkID = chunk.ID
		if err := s.insertEmbeddingWithQuerier(ctx, q, emb); err != nil {
			return err
		}
	}

	return nil
}

// getDocumentWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getDocumentWithQuerier(ctx context.Context, q querier, path string) (*Document, error) {
	query := `
		SELECT path, fingerprint, page_count, chunk_count, indexed_at
		FROM documents
		WHERE path = ?
	`
	var doc Document
	var fingerprint string
	err := q.QueryRowContext(ctx, query, path).Scan(
		&doc.Path, &fingerprint, &doc.PageCount, &doc.ChunkCount, &doc.IndexedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	doc.Fingerprint = types.Fingerprint(fingerprint)
	return &doc, nil
}

func (s *SQLiteStorage) GetDocument(ctx context.Context, path string) (*Document, error) {
	return s.getDocumentWithQuerier(ctx, s.querier(), path)
}

// listDocumentsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listDocumentsWithQuerier(ctx context.Context, q querier) ([]*Document, error) {
	query := `
		SELECT path, fingerprint, page_count, chunk_count, indexed_at
		FROM documents
		ORDER BY path
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	docs := make([]*Document, 0)
	for rows.Next() {
		var doc Document
		var fingerprint string
		if err := rows.Scan(&doc.Path, &fingerprint, &doc.PageCount, &doc.ChunkCount, &doc.IndexedAt); err != nil {
			return nil, err
		}
		doc.Fingerprint = types.Fingerprint(fingerprint)
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStorage) ListDocuments(ctx context.Context) ([]*Document, error) {
	return s.listDocumentsWithQuerier(ctx, s.querier())
}

// deleteDocumentWithQuerier is the internal implementation that uses a querier.
// Deleting a document that is not stored is not an error.
func (s *SQLiteStorage) deleteDocumentWithQuerier(ctx context.Context, q querier, path string) error {
	if _, err := s.deleteChunksByDocumentWithQuerier(ctx, q, path); err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", path, err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteDocument(ctx context.Context, path string) error {
	return s.deleteDocumentWithQuerier(ctx, s.querier(), path)
}

// Chunk operations

// insertChunkWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) insertChunkWithQuerier(ctx context.Context, q querier, chunk *Chunk) error {
	query := `
		INSERT INTO chunks (
			id, document_path, chunk_index, content, content_hash,
			token_count, start_offset, page
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		chunk.ID, chunk.DocumentPath, chunk.Index, chunk.Content, chunk.ContentHash[:],
		chunk.TokenCount, chunk.StartOffset, chunk.Page,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk %s: %w", chunk.ID, err)
	}
	return nil
}

// listChunksWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listChunksWithQuerier(ctx context.Context, q querier, path string) ([]*Chunk, error) {
	query := `
		SELECT id, document_path, chunk_index, content, content_hash,
		       token_count, start_offset, page
		FROM chunks
		WHERE document_path = ?
		ORDER BY chunk_index
	`
	rows, err := q.QueryContext(ctx, query, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	chunks := make([]*Chunk, 0)
	for rows.Next() {
		var chunk Chunk
		var hash []byte
		var tokenCount sql.NullInt64

		err := rows.Scan(
			&chunk.ID, &chunk.DocumentPath, &chunk.Index, &chunk.Content, &hash,
			&tokenCount, &chunk.StartOffset, &chunk.Page,
		)
		if err != nil {
			return nil, err
		}

		copy(chunk.ContentHash[:], hash)
		chunk.TokenCount = int(tokenCount.Int64)
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStorage) ListChunks(ctx context.Context, path string) ([]*Chunk, error) {
	return s.listChunksWithQuerier(ctx, s.querier(), path)
}

// deleteChunksByDocumentWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteChunksByDocumentWithQuerier(ctx context.Context, q querier, path string) (int, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM chunks WHERE document_path = ?`, path)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks of %s: %w", path, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if _, err := q.ExecContext(ctx, `UPDATE documents SET chunk_count = 0 WHERE path = ?`, path); err != nil {
		return 0, fmt.Errorf("failed to reset chunk count of %s: %w", path, err)
	}

	return int(rowsAffected), nil
}

// Embedding operations

// insertEmbeddingWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) insertEmbeddingWithQuerier(ctx context.Context, q querier, embedding *Embedding) error {
	query := `
		INSERT INTO embeddings (chunk_id, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	dimension := len(embedding.Vector)
	_, err := q.ExecContext(ctx, query,
		embedding.ChunkID, serializeVector(embedding.Vector), dimension,
		embedding.Provider, embedding.Model, now)
	if err != nil {
		return fmt.Errorf("failed to insert embedding %s: %w", embedding.ChunkID, err)
	}

	embedding.Dimension = dimension
	embedding.CreatedAt = now
	return nil
}

// getEmbeddingWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getEmbeddingWithQuerier(ctx context.Context, q querier, chunkID string) (*Embedding, error) {
	query := `
		SELECT chunk_id, vector, dimension, provider, model, created_at
		FROM embeddings
		WHERE chunk_id = ?
	`
	var embedding Embedding
	var blob []byte
	err := q.QueryRowContext(ctx, query, chunkID).Scan(
		&embedding.ChunkID, &blob, &embedding.Dimension,
		&embedding.Provider, &embedding.Model, &embedding.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("embedding %s: %w", chunkID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	embedding.Vector = deserializeVector(blob)
	return &embedding, nil
}

func (s *SQLiteStorage) GetEmbedding(ctx context.Context, chunkID string) (*Embedding, error) {
	return s.getEmbeddingWithQuerier(ctx, s.querier(), chunkID)
}

// Status operations

// statsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) statsWithQuerier(ctx context.Context, q querier) (*Stats, error) {
	stats := &Stats{BuildMode: BuildMode}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM documents", &stats.Documents},
		{"SELECT COUNT(*) FROM chunks", &stats.Chunks},
		{"SELECT COUNT(*) FROM embeddings", &stats.Embeddings},
	}
	for _, c := range counts {
		if err := q.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	// Models and dimension
	rows, err := q.QueryContext(ctx, `
		SELECT provider, model, dimension
		FROM embeddings
		GROUP BY provider, model, dimension
		ORDER BY provider, model, dimension
	`)
	if err != nil {
		return nil, err
	}
	dimensions := make(map[int]bool)
	models := make(map[string]bool)
	for rows.Next() {
		var provider, model string
		var dimension int
		if err := rows.Scan(&provider, &model, &dimension); err != nil {
			_ = rows.Close()
			return nil, err
		}
		dimensions[dimension] = true
		models[provider+"/"+model] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for m := range models {
		stats.Models = append(stats.Models, m)
	}
	sort.Strings(stats.Models)
	if len(dimensions) == 1 {
		for d := range dimensions {
			stats.Dimension = d
		}
	}

	// Last indexed time; aggregate functions lose the TIMESTAMP column type
	var lastIndexedAt sql.NullTime
	err = q.QueryRowContext(ctx, "SELECT indexed_at FROM documents ORDER BY indexed_at DESC LIMIT 1").Scan(&lastIndexedAt)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if lastIndexedAt.Valid {
		stats.LastIndexedAt = lastIndexedAt.Time
	}

	// Calculate database size
	var pageCount, pageSize int64
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			stats.SizeBytes = pageCount * pageSize
		}
	}

	version, err := currentSchemaVersion(ctx, q)
	if err != nil {
		return nil, err
	}
	stats.SchemaVersion = version.String()

	return stats, nil
}

func (s *SQLiteStorage) Stats(ctx context.Context) (*Stats, error) {
	return s.statsWithQuerier(ctx, s.querier())
}

// checkIntegrityWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) checkIntegrityWithQuerier(ctx context.Context, q querier) (*IntegrityReport, error) {
	report := &IntegrityReport{}

	var err error
	report.MissingEmbeddings, err = queryStrings(ctx, q, `
		SELECT c.id FROM chunks c
		LEFT JOIN embeddings e ON e.chunk_id = c.id
		WHERE e.chunk_id IS NULL
		ORDER BY c.id
	`)
	if err != nil {
		return nil, err
	}

	report.MalformedVectors, err = queryStrings(ctx, q, `
		SELECT chunk_id FROM embeddings
		WHERE dimension <= 0 OR length(vector) != dimension * 4
		ORDER BY chunk_id
	`)
	if err != nil {
		return nil, err
	}

	var distinct int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(DISTINCT dimension) FROM embeddings").Scan(&distinct); err != nil {
		return nil, err
	}
	report.MixedDimensions = distinct > 1

	report.ChunkCountMismatch, err = queryStrings(ctx, q, `
		SELECT d.path FROM documents d
		WHERE d.chunk_count != (SELECT COUNT(*) FROM chunks c WHERE c.document_path = d.path)
		ORDER BY d.path
	`)
	if err != nil {
		return nil, err
	}

	return report, nil
}

func (s *SQLiteStorage) CheckIntegrity(ctx context.Context) (*IntegrityReport, error) {
	return s.checkIntegrityWithQuerier(ctx, s.querier())
}

func queryStrings(ctx context.Context, q querier, query string, args ...interface{}) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Transaction implementations route every call through the transaction querier

func (t *sqliteTx) ListDocuments(ctx context.Context) ([]*Document, error) {
	return t.storage.listDocumentsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) DeleteDocument(ctx context.Context, path string) error {
	return t.storage.deleteDocumentWithQuerier(ctx, t.querier(), path)
}

// documentPaths returns the sorted paths of docs
func documentPaths(docs []*Document) []string {
	paths := make([]string, len(docs))
	for i, d := range docs {
		paths[i] = d.Path
	}
	sort.Strings(paths)
	return paths
}

// StoredPaths lists the paths of every stored document
func StoredPaths(ctx context.Context, s Storage) ([]string, error) {
	docs, err := s.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	return documentPaths(docs), nil
}

var _ Storage = (*SQLiteStorage)(nil)
var _ Tx = (*sqliteTx)(nil)

