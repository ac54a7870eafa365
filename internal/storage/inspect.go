package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"

	"github.com/dshills/pdfindex/pkg/types"
)

// Inspection is what a read-only look at a collection database found
type Inspection struct {
	Path   string
	Exists bool // the database file is present
	Ready  bool // readable, on a supported schema and internally consistent
	// Corrupt is true when the file is present but SQLite cannot read it.
	// Such a file must be removed before the store is rebuilt.
	Corrupt bool
	Problem error // why the store is not ready

	Documents map[string]types.Fingerprint // stored path -> fingerprint
	Stats     *Stats
	Integrity *IntegrityReport
}

// Inspect opens the collection read-only and reports whether it can serve as
// the base of an incremental build. It never creates or modifies the store.
func Inspect(ctx context.Context, dir, collection string) *Inspection {
	insp := &Inspection{Path: DatabasePath(dir, collection)}

	info, err := os.Stat(insp.Path)
	if errors.Is(err, os.ErrNotExist) {
		insp.Problem = fmt.Errorf("%s: %w", insp.Path, ErrNotFound)
		return insp
	}
	if err != nil {
		insp.Problem = err
		return insp
	}
	insp.Exists = true
	if !info.Mode().IsRegular() {
		insp.Problem = fmt.Errorf("%s is not a regular file", insp.Path)
		return insp
	}

	store, err := OpenReadOnly(dir, collection)
	if err != nil {
		insp.Corrupt = true
		insp.Problem = err
		return insp
	}
	defer func() { _ = store.Close() }()

	version, err := currentSchemaVersion(ctx, store.querier())
	if err != nil {
		insp.Corrupt = true
		insp.Problem = err
		return insp
	}
	if version.LessThan(semver.MustParse(AllMigrations[0].Version)) {
		insp.Problem = fmt.Errorf("%s has no schema", insp.Path)
		return insp
	}
	if version.GreaterThan(semver.MustParse(CurrentSchemaVersion)) {
		insp.Problem = fmt.Errorf("database schema %s is newer than supported %s", version, CurrentSchemaVersion)
		return insp
	}

	docs, err := store.ListDocuments(ctx)
	if err != nil {
		insp.Corrupt = true
		insp.Problem = err
		return insp
	}
	insp.Documents = make(map[string]types.Fingerprint, len(docs))
	for _, d := range docs {
		insp.Documents[d.Path] = d.Fingerprint
	}

	if insp.Stats, err = store.Stats(ctx); err != nil {
		insp.Corrupt = true
		insp.Problem = err
		return insp
	}
	if insp.Integrity, err = store.CheckIntegrity(ctx); err != nil {
		insp.Corrupt = true
		insp.Problem = err
		return insp
	}
	if !insp.Integrity.OK() {
		insp.Problem = insp.Integrity.Err()
		return insp
	}

	insp.Ready = true
	return insp
}

// UsesModel reports whether every stored vector came from the given
// "provider/model". An empty store matches any model.
func (i *Inspection) UsesModel(model string) bool {
	if i.Stats == nil {
		return true
	}
	for _, m := range i.Stats.Models {
		if m != model {
			return false
		}
	}
	return true
}
