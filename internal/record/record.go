package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/dshills/pdfindex/pkg/types"
)

// Record maps each successfully indexed source path to the fingerprint it had
// when it was indexed. A nil Record means no record file exists.
type Record map[string]types.Fingerprint

// Paths returns the recorded paths, sorted
func (r Record) Paths() []string {
	paths := make([]string, 0, len(r))
	for p := range r {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Load reads the record file. A missing file yields (nil, nil).
//
// Files written by earlier releases hold a bare JSON array of file names. They
// load with empty fingerprints so every listed file is treated as modified.
func Load(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read record %s: %v", types.ErrPersistence, path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var names []string
		if err := json.Unmarshal(trimmed, &names); err != nil {
			return nil, fmt.Errorf("%w: parse record %s: %v", types.ErrPersistence, path, err)
		}
		rec := make(Record, len(names))
		for _, n := range names {
			rec[filepath.ToSlash(n)] = ""
		}
		slog.Warn("loaded legacy record without fingerprints", "component", "record", "path", path, "files", len(rec))
		return rec, nil
	}

	rec := make(Record)
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return nil, fmt.Errorf("%w: parse record %s: %v", types.ErrPersistence, path, err)
	}
	return rec, nil
}

// Save writes rec atomically: a temporary file in the same directory is
// written, synced and renamed over path. Keys are sorted and indented so the
// file diffs cleanly under version control.
func Save(path string, rec Record) error {
	if rec == nil {
		rec = Record{}
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode record: %v", types.ErrPersistence, err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create record directory: %v", types.ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp record: %v", types.ErrPersistence, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("%w: write record: %v", types.ErrPersistence, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("%w: sync record: %v", types.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: close record: %v", types.ErrPersistence, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: chmod record: %v", types.ErrPersistence, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: replace record: %v", types.ErrPersistence, err)
	}

	return nil
}

// Next computes the record to persist after a successful run: every file in
// the current scan except those that failed extraction. Omitting a failed file
// makes the next run see it as added and try again.
func Next(current map[string]types.SourceFile, failed []string) Record {
	skip := make(map[string]bool, len(failed))
	for _, p := range failed {
		skip[p] = true
	}

	rec := make(Record, len(current))
	for p, f := range current {
		if skip[p] {
			continue
		}
		rec[p] = f.Fingerprint
	}
	return rec
}

// Equal reports whether two records hold the same paths and fingerprints
func Equal(a, b Record) bool {
	if len(a) != len(b) {
		return false
	}
	for p, fp := range a {
		other, ok := b[p]
		if !ok || other != fp {
			return false
		}
	}
	return true
}
