// Package storage provides the file-backed vector store for indexed documents.
//
// Each collection is one SQLite database, <dir>/<collection>.db, holding:
//   - documents: one row per source PDF (path, fingerprint, page and chunk counts)
//   - chunks: text chunks keyed by "<path>#<index>"
//   - embeddings: one little-endian float32 vector per chunk
//
// Chunks and embeddings cascade when their document is deleted.
//
// # Basic Usage
//
//	store, err := storage.Open("vector_db", "pdf_docs")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.UpsertDocument(ctx, &storage.Document{
//	    Path:        "manuals/install.pdf",
//	    Fingerprint: fp,
//	}, chunks, embeddings)
//
// UpsertDocument runs in a single transaction: every chunk previously stored
// for the path is deleted, then the new chunks and embeddings are inserted.
// A failure leaves the previous version untouched. Calling it twice with the
// same input leaves the store in the same state.
//
// # Transactions
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	for _, path := range removed {
//	    if err := tx.DeleteDocument(ctx, path); err != nil {
//	        return err
//	    }
//	}
//	return tx.Commit()
//
// # Inspection
//
// Inspect and OpenReadOnly never create, migrate or write a database. Inspect
// reports whether an existing store is readable and consistent, along with the
// fingerprint stored for every document.
//
// # Build Modes
//
// The default build uses the pure Go driver (modernc.org/sqlite). Building
// with -tags sqlite_vec selects github.com/mattn/go-sqlite3 through cgo. Both
// produce the same file format.
//
// # Migrations
//
// The schema is versioned with semantic versions in the schema_version table.
// Open applies pending migrations; a database written by a newer schema is
// refused.
package storage
