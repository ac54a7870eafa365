package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dshills/pdfindex/internal/chunker"
	"github.com/dshills/pdfindex/internal/detector"
	"github.com/dshills/pdfindex/internal/embedder"
	"github.com/dshills/pdfindex/internal/extractor"
	"github.com/dshills/pdfindex/internal/record"
	"github.com/dshills/pdfindex/internal/scanner"
	"github.com/dshills/pdfindex/internal/storage"
	"github.com/dshills/pdfindex/pkg/types"
)

// Options locates the inputs and outputs of a build
type Options struct {
	SourceDir  string // Directory scanned for PDFs
	RecordPath string // Processed-files record
	StoreDir   string // Vector store directory
	Collection string // Collection name; the database is <StoreDir>/<Collection>.db
	LogPath    string // Build log; empty disables it
	BatchSize  int    // Texts per embedding request
	Force      bool   // Rebuild every file even if nothing changed
}

// Validate checks that all required locations are set
func (o Options) Validate() error {
	switch {
	case o.SourceDir == "":
		return errors.New("source directory is required")
	case o.RecordPath == "":
		return errors.New("record path is required")
	case o.StoreDir == "":
		return errors.New("store directory is required")
	case o.Collection == "":
		return errors.New("collection is required")
	}
	return nil
}

// Report describes a finished (or failed) build
type Report struct {
	StartedAt     time.Time
	Duration      time.Duration
	Changes       detector.ChangeSet
	Plan          detector.Plan
	Tally         *Tally // nil when nothing was ingested
	Outcome       record.Outcome
	RecordWritten bool

	// Unreadable lists PDFs the scan could not read. A new one is left out
	// of the record and retried next run; an indexed one keeps its vectors.
	Unreadable []*types.FileError
	// ModelChanged is true when the store held vectors of another
	// provider/model, forcing a full rebuild
	ModelChanged bool
}

// Failures returns every file skipped by the run, sorted by path: PDFs the
// scan could not read followed by extraction failures
func (r *Report) Failures() []*types.FileError {
	out := append([]*types.FileError{}, r.Unreadable...)
	seen := make(map[string]bool, len(out))
	for _, f := range out {
		seen[f.Path] = true
	}
	if r.Tally != nil {
		for _, f := range r.Tally.Errors {
			if !seen[f.Path] {
				out = append(out, f)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// LogEntry converts the report into a build log entry
func (r *Report) LogEntry(runErr error) record.BuildLogEntry {
	entry := record.BuildLogEntry{
		Time:      r.StartedAt,
		Outcome:   r.Outcome,
		Mode:      string(r.Changes.Mode),
		Added:     len(r.Changes.Added),
		Modified:  len(r.Changes.Modified),
		Removed:   len(r.Changes.Removed),
		Unchanged: len(r.Changes.Unchanged),
	}
	if r.Tally != nil {
		entry.Processed = r.Tally.Processed
		entry.Chunks = r.Tally.Chunks
	}
	for _, f := range r.Failures() {
		entry.FailedFiles = append(entry.FailedFiles, f.Path)
	}
	entry.Failed = len(entry.FailedFiles)
	if runErr != nil {
		entry.Outcome = record.OutcomeFailed
		entry.Error = runErr.Error()
	}
	return entry
}

// Builder orchestrates one end-to-end run:
// scan -> detect -> ingest (when needed) -> record
type Builder struct {
	extractor extractor.Extractor
	chunker   *chunker.Chunker
	embedder  embedder.Embedder
	logger    *slog.Logger
}

// NewBuilder creates a Builder from its pipeline stages
func NewBuilder(ext extractor.Extractor, ch *chunker.Chunker, emb embedder.Embedder) *Builder {
	return &Builder{
		extractor: ext,
		chunker:   ch,
		embedder:  emb,
		logger:    slog.Default().With("component", "builder"),
	}
}

// detection is the scan and classification of one run
type detection struct {
	current    map[string]types.SourceFile
	unreadable []*types.FileError
	previous   record.Record // as loaded; nil when absent
	store      *storage.Inspection
	changes    detector.ChangeSet
	// modelChanged is true when the stored vectors came from another model
	modelChanged bool
}

// detect scans the source directory, loads the record and inspects the store
// read-only. The record is reconciled with the documents actually stored, so
// a run that died after writing part of the store is completed next time.
func (b *Builder) detect(ctx context.Context, opts Options) (*detection, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	current, unreadable, err := scanner.Scan(opts.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", opts.SourceDir, err)
	}
	previous, err := record.Load(opts.RecordPath)
	if err != nil {
		return nil, err
	}

	d := &detection{
		current:    current,
		unreadable: unreadable,
		previous:   previous,
		store:      storage.Inspect(ctx, opts.StoreDir, opts.Collection),
	}
	if d.store.Exists && !d.store.Ready {
		b.logger.Warn("vector store unusable, rebuilding", "store", d.store.Path, "err", d.store.Problem)
	}

	var stored map[string]types.Fingerprint
	if d.store.Ready {
		stored = d.store.Documents
	}
	baseline, drifted := detector.Reconcile(previous, stored)
	if len(drifted) > 0 {
		b.logger.Warn("record and vector store disagree", "files", len(drifted), "paths", drifted)
	}

	// A PDF that was indexed but cannot be read this run keeps its vectors
	for _, f := range unreadable {
		if fp, ok := baseline[f.Path]; ok && fp != "" {
			current[f.Path] = types.SourceFile{Path: f.Path, Fingerprint: fp}
			b.logger.Warn("keeping indexed PDF that could not be read", "path", f.Path)
		}
	}

	fingerprints := scanner.Fingerprints(current)
	cs := detector.Detect(fingerprints, baseline, d.store.Ready)
	if err := cs.Validate(fingerprints, baseline); err != nil {
		return nil, fmt.Errorf("change detection: %w", err)
	}

	if d.store.Ready && b.embedder != nil {
		configured := b.embedder.Provider() + "/" + b.embedder.Model()
		if !d.store.UsesModel(configured) {
			b.logger.Warn("stored vectors come from another model, rebuilding",
				"stored", d.store.Stats.Models, "configured", configured)
			d.modelChanged = true
			cs = cs.Force()
		}
	}
	if opts.Force {
		cs = cs.Force()
	}
	d.changes = cs
	return d, nil
}

// Check scans and classifies without touching the store or the record
func (b *Builder) Check(ctx context.Context, opts Options) (detector.ChangeSet, error) {
	d, err := b.detect(ctx, opts)
	if err != nil {
		return detector.ChangeSet{}, err
	}
	return d.changes, nil
}

// Build runs the pipeline. The record is written only when the whole run
// succeeds and only when its content changed. A line is appended to the build
// log for every run, successful or not.
func (b *Builder) Build(ctx context.Context, opts Options) (report *Report, err error) {
	report = &Report{StartedAt: time.Now()}

	defer func() {
		report.Duration = time.Since(report.StartedAt)
		b.appendLog(opts.LogPath, report, err)
	}()

	d, err := b.detect(ctx, opts)
	if err != nil {
		return report, err
	}
	cs := d.changes
	report.Changes = cs
	report.Unreadable = d.unreadable
	report.ModelChanged = d.modelChanged

	b.logger.Info("change detection", "summary", cs.Summary(),
		"record_missing", cs.RecordMissing, "store_missing", cs.StoreMissing, "unreadable", len(d.unreadable))

	if !cs.RebuildNeeded {
		report.Outcome = record.OutcomeUpToDate
		b.logger.Info("no new or updated files detected; vector store is up to date")
		// The store may hold files a failed run never recorded
		if err := b.saveRecord(opts.RecordPath, report, record.Next(d.current, nil), d.previous); err != nil {
			report.Outcome = record.OutcomeFailed
			return report, err
		}
		return report, nil
	}

	if d.store.Corrupt {
		if err := storage.Remove(opts.StoreDir, opts.Collection); err != nil {
			return report, fmt.Errorf("%w: remove unreadable store: %v", types.ErrPersistence, err)
		}
	}

	store, err := storage.Open(opts.StoreDir, opts.Collection)
	if err != nil {
		return report, fmt.Errorf("%w: open vector store: %v", types.ErrPersistence, err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: close vector store: %v", types.ErrPersistence, closeErr)
		}
	}()

	report.Plan = cs.Plan()
	ingester := NewIngester(b.extractor, b.chunker, b.embedder, store, opts.BatchSize)
	report.Tally, err = ingester.Ingest(ctx, opts.SourceDir, report.Plan, d.current)
	if err != nil {
		report.Outcome = record.OutcomeFailed
		return report, err
	}

	next := record.Next(d.current, report.Tally.FailedFiles)
	if err := b.saveRecord(opts.RecordPath, report, next, d.previous); err != nil {
		report.Outcome = record.OutcomeFailed
		return report, err
	}

	report.Outcome = record.OutcomeRebuilt
	b.logger.Info("vector store updated",
		"store", storage.DatabasePath(opts.StoreDir, opts.Collection),
		"processed", report.Tally.Processed, "failed", report.Tally.Failed+len(d.unreadable),
		"removed", report.Tally.Removed, "chunks", report.Tally.Chunks)

	return report, nil
}

// saveRecord writes next unless it matches what was loaded
func (b *Builder) saveRecord(path string, report *Report, next, previous record.Record) error {
	if previous != nil && record.Equal(next, previous) {
		return nil
	}
	if err := record.Save(path, next); err != nil {
		return err
	}
	report.RecordWritten = true
	return nil
}

func (b *Builder) appendLog(path string, report *Report, runErr error) {
	if path == "" {
		return
	}
	if err := record.NewLog(path).Append(report.LogEntry(runErr)); err != nil {
		b.logger.Error("failed to append build log", "path", path, "err", err)
	}
}
