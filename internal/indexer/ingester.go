package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/dshills/pdfindex/internal/chunker"
	"github.com/dshills/pdfindex/internal/detector"
	"github.com/dshills/pdfindex/internal/embedder"
	"github.com/dshills/pdfindex/internal/extractor"
	"github.com/dshills/pdfindex/internal/storage"
	"github.com/dshills/pdfindex/pkg/types"
)

// Ingester runs the pipeline for one plan: extract -> chunk -> embed -> store
type Ingester struct {
	extractor extractor.Extractor
	chunker   *chunker.Chunker
	embedder  embedder.Embedder
	storage   storage.Storage

	batchSize int
	logger    *slog.Logger
}

// Tally counts what an ingestion run did
type Tally struct {
	Processed   int      // Files upserted
	Failed      int      // Files skipped after an extraction failure
	Removed     int      // Documents deleted from the store
	Chunks      int      // Chunks written
	Embeddings  int      // Vectors written
	FailedFiles []string // Sorted paths of failed files
	Errors      []*types.FileError
	Duration    time.Duration
}

// NewIngester creates an Ingester. batchSize bounds the texts per embedding
// request; values outside (0, embedder.MaxBatchSize] select the default.
func NewIngester(ext extractor.Extractor, ch *chunker.Chunker, emb embedder.Embedder, store storage.Storage, batchSize int) *Ingester {
	if batchSize <= 0 || batchSize > embedder.MaxBatchSize {
		batchSize = embedder.DefaultBatchSize
	}
	return &Ingester{
		extractor: ext,
		chunker:   ch,
		embedder:  emb,
		storage:   store,
		batchSize: batchSize,
		logger:    slog.Default().With("component", "ingester"),
	}
}

// Ingest executes plan against the files scanned from dir. current must
// contain every path in plan.Process.
//
// Extraction failures are recorded in the tally and the run continues; the
// failed file's document row and chunks are removed so the store never claims
// a version it could not index. Embedding and storage
// failures abort the run. The returned tally is valid even when err is not nil.
func (in *Ingester) Ingest(ctx context.Context, dir string, plan detector.Plan, current map[string]types.SourceFile) (*Tally, error) {
	start := time.Now()
	tally := &Tally{FailedFiles: []string{}}
	defer func() { tally.Duration = time.Since(start) }()

	in.logger.Info("ingesting", "mode", plan.Mode, "process", len(plan.Process), "remove", len(plan.Remove))

	for i, path := range plan.Process {
		if err := ctx.Err(); err != nil {
			return tally, err
		}

		src, ok := current[path]
		if !ok {
			return tally, fmt.Errorf("%w: %s is not in the current scan", types.ErrNotFound, path)
		}

		in.logger.Debug("processing file", "path", path, "n", i+1, "of", len(plan.Process))

		n, err := in.ingestFile(ctx, dir, src)
		switch {
		case err == nil:
			tally.Processed++
			tally.Chunks += n
			tally.Embeddings += n
		case errors.Is(err, types.ErrExtraction):
			in.logger.Warn("skipping file", "path", path, "err", err)
			if delErr := in.storage.DeleteDocument(ctx, path); delErr != nil {
				return tally, fmt.Errorf("%w: drop stale entries of %s: %v", types.ErrPersistence, path, delErr)
			}
			tally.Failed++
			tally.FailedFiles = append(tally.FailedFiles, path)
			tally.Errors = append(tally.Errors, &types.FileError{Path: path, Err: err})
		default:
			return tally, err
		}
	}

	removed, err := in.removeStale(ctx, plan, current)
	if err != nil {
		return tally, err
	}
	tally.Removed = removed

	in.logger.Info("ingestion finished",
		"processed", tally.Processed, "failed", tally.Failed, "removed", tally.Removed, "chunks", tally.Chunks)

	return tally, nil
}

// ingestFile extracts, chunks, embeds and upserts one file, returning the chunk count
func (in *Ingester) ingestFile(ctx context.Context, dir string, src types.SourceFile) (int, error) {
	doc, err := in.extractor.Extract(ctx, filepath.Join(dir, filepath.FromSlash(src.Path)))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		if !errors.Is(err, types.ErrExtraction) {
			err = fmt.Errorf("%w: %v", types.ErrExtraction, err)
		}
		return 0, err
	}

	chunks, err := in.chunker.ChunkDocument(src.Path, doc)
	if err != nil {
		return 0, fmt.Errorf("%w: chunk: %v", types.ErrExtraction, err)
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: no text to index", types.ErrExtraction)
	}

	embeddings, err := in.embed(ctx, src.Path, chunks)
	if err != nil {
		return 0, err
	}

	storedChunks := make([]*storage.Chunk, len(chunks))
	for i, c := range chunks {
		storedChunks[i] = storage.FromTypesChunk(c)
	}

	document := &storage.Document{
		Path:        src.Path,
		Fingerprint: src.Fingerprint,
		PageCount:   len(doc.Pages),
	}
	if err := in.storage.UpsertDocument(ctx, document, storedChunks, embeddings); err != nil {
		return 0, fmt.Errorf("%w: upsert %s: %v", types.ErrPersistence, src.Path, err)
	}

	in.logger.Debug("upserted document", "path", src.Path, "pages", len(doc.Pages), "chunks", len(chunks))
	return len(chunks), nil
}

// embed requests vectors for chunks in batches of in.batchSize
func (in *Ingester) embed(ctx context.Context, path string, chunks []*types.Chunk) ([]*storage.Embedding, error) {
	out := make([]*storage.Embedding, 0, len(chunks))

	for _, batch := range embedder.Batches(path, chunks, in.batchSize) {
		vectors, err := in.embedder.Embed(ctx, batch)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: %s: %v", types.ErrEmbeddingProvider, path, err)
		}
		if len(vectors) != len(batch.Chunks) {
			return nil, fmt.Errorf("%w: %s: got %d embeddings for %d chunks",
				types.ErrEmbeddingProvider, path, len(vectors), len(batch.Chunks))
		}

		for _, e := range vectors {
			out = append(out, &storage.Embedding{
				Vector:   e.Vector,
				Provider: e.Provider,
				Model:    e.Model,
			})
		}
	}

	return out, nil
}

// removeStale deletes the documents in plan.Remove and, in full mode, every
// stored document no longer in current. All deletions share one transaction.
func (in *Ingester) removeStale(ctx context.Context, plan detector.Plan, current map[string]types.SourceFile) (removed int, err error) {
	if len(plan.Remove) == 0 && plan.Mode != detector.ModeFull {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tx, err := in.storage.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: begin removal: %v", types.ErrPersistence, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	targets := make(map[string]string, len(plan.Remove))
	for _, path := range plan.Remove {
		targets[path] = "removed document"
	}
	if plan.Mode == detector.ModeFull {
		docs, err := tx.ListDocuments(ctx)
		if err != nil {
			return 0, fmt.Errorf("%w: list stored documents: %v", types.ErrPersistence, err)
		}
		for _, d := range docs {
			if _, ok := current[d.Path]; !ok {
				if _, listed := targets[d.Path]; !listed {
					targets[d.Path] = "pruned orphaned document"
				}
			}
		}
	}

	paths := make([]string, 0, len(targets))
	for path := range targets {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := tx.DeleteDocument(ctx, path); err != nil {
			return 0, fmt.Errorf("%w: remove %s: %v", types.ErrPersistence, path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit removals: %v", types.ErrPersistence, err)
	}

	for _, path := range paths {
		in.logger.Info(targets[path], "path", path)
	}
	return len(paths), nil
}
