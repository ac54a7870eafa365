package indexer

import (
	"context"
	"time"
)

// Status is a read-only view of the index: pending changes plus store contents
type Status struct {
	Mode          string     `json:"mode" yaml:"mode"`
	RebuildNeeded bool       `json:"rebuild_needed" yaml:"rebuild_needed"`
	Added         []string   `json:"added" yaml:"added"`
	Modified      []string   `json:"modified" yaml:"modified"`
	Removed       []string   `json:"removed" yaml:"removed"`
	Unchanged     int        `json:"unchanged" yaml:"unchanged"`
	Unreadable    []string   `json:"unreadable,omitempty" yaml:"unreadable,omitempty"`
	RecordMissing bool       `json:"record_missing" yaml:"record_missing"`
	StoreExists   bool       `json:"store_exists" yaml:"store_exists"`
	StoreReady    bool       `json:"store_ready" yaml:"store_ready"`
	ModelChanged  bool       `json:"model_changed" yaml:"model_changed"`
	Store         *StoreInfo `json:"store,omitempty" yaml:"store,omitempty"`
}

// StoreInfo summarizes the vector store
type StoreInfo struct {
	Path          string    `json:"path" yaml:"path"`
	Documents     int       `json:"documents" yaml:"documents"`
	Chunks        int       `json:"chunks" yaml:"chunks"`
	Embeddings    int       `json:"embeddings" yaml:"embeddings"`
	Dimension     int       `json:"dimension" yaml:"dimension"`
	Models        []string  `json:"models" yaml:"models"`
	SizeBytes     int64     `json:"size_bytes" yaml:"size_bytes"`
	LastIndexedAt time.Time `json:"last_indexed_at" yaml:"last_indexed_at"`
	SchemaVersion string    `json:"schema_version" yaml:"schema_version"`
	BuildMode     string    `json:"build_mode" yaml:"build_mode"`
	Consistent    bool      `json:"consistent" yaml:"consistent"`
	Problems      string    `json:"problems,omitempty" yaml:"problems,omitempty"`
}

// Status reports what the next Build would do and what the store holds.
// The store is only opened read-only; Status never creates or migrates it and
// never writes the record.
func (b *Builder) Status(ctx context.Context, opts Options) (*Status, error) {
	d, err := b.detect(ctx, opts)
	if err != nil {
		return nil, err
	}
	cs := d.changes

	st := &Status{
		Mode:          string(cs.Mode),
		RebuildNeeded: cs.RebuildNeeded,
		Added:         cs.Added,
		Modified:      cs.Modified,
		Removed:       cs.Removed,
		Unchanged:     len(cs.Unchanged),
		RecordMissing: cs.RecordMissing,
		StoreExists:   d.store.Exists,
		StoreReady:    d.store.Ready,
		ModelChanged:  d.modelChanged,
	}
	for _, f := range d.unreadable {
		st.Unreadable = append(st.Unreadable, f.Path)
	}
	if !d.store.Exists {
		return st, nil
	}

	st.Store = &StoreInfo{Path: d.store.Path}
	if stats := d.store.Stats; stats != nil {
		st.Store.Documents = stats.Documents
		st.Store.Chunks = stats.Chunks
		st.Store.Embeddings = stats.Embeddings
		st.Store.Dimension = stats.Dimension
		st.Store.Models = stats.Models
		st.Store.SizeBytes = stats.SizeBytes
		st.Store.LastIndexedAt = stats.LastIndexedAt
		st.Store.SchemaVersion = stats.SchemaVersion
		st.Store.BuildMode = stats.BuildMode
	}
	st.Store.Consistent = d.store.Integrity != nil && d.store.Integrity.OK()
	if d.store.Problem != nil {
		st.Store.Problems = d.store.Problem.Error()
	}
	return st, nil
}
