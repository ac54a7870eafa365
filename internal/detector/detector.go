// Package detector compares the current scan against the persisted
// processed-files record and decides whether, and how, the index is rebuilt.
//
// Detect is a pure function of its inputs. Every path in either input lands in
// exactly one of Unchanged, Added, Modified or Removed.
package detector

import (
	"fmt"
	"sort"

	"github.com/dshills/pdfindex/pkg/types"
)

// Mode is the rebuild strategy chosen for a run
type Mode string

const (
	// ModeNone means the store and record are current; nothing is ingested
	ModeNone Mode = "none"
	// ModeIncremental re-ingests only added and modified files
	ModeIncremental Mode = "incremental"
	// ModeFull re-ingests every file currently present
	ModeFull Mode = "full"
)

// ChangeSet is the classification of every known file for one run
type ChangeSet struct {
	Unchanged []string
	Added     []string
	Modified  []string
	Removed   []string

	// RecordMissing is true when no processed-files record existed
	RecordMissing bool
	// StoreMissing is true when the vector store was absent or unreadable
	StoreMissing bool

	RebuildNeeded bool
	Mode          Mode
}

// Plan is the explicit work list handed to the ingestion pipeline
type Plan struct {
	Mode    Mode
	Process []string // Files to (re)extract, chunk, embed and upsert
	Remove  []string // Files whose store entries must be deleted
}

// Detect classifies current against previous. A nil previous means the record
// was absent. storeReady reports whether the vector store exists and is readable.
func Detect(current map[string]types.Fingerprint, previous map[string]types.Fingerprint, storeReady bool) ChangeSet {
	cs := ChangeSet{
		Unchanged:     []string{},
		Added:         []string{},
		Modified:      []string{},
		Removed:       []string{},
		RecordMissing: previous == nil,
		StoreMissing:  !storeReady,
	}

	for path, fp := range current {
		old, ok := previous[path]
		switch {
		case !ok:
			cs.Added = append(cs.Added, path)
		case old == fp:
			cs.Unchanged = append(cs.Unchanged, path)
		default:
			cs.Modified = append(cs.Modified, path)
		}
	}

	for path := range previous {
		if _, ok := current[path]; !ok {
			cs.Removed = append(cs.Removed, path)
		}
	}

	sort.Strings(cs.Unchanged)
	sort.Strings(cs.Added)
	sort.Strings(cs.Modified)
	sort.Strings(cs.Removed)

	switch {
	case cs.RecordMissing || cs.StoreMissing:
		cs.Mode = ModeFull
	case len(cs.Added) > 0 || len(cs.Modified) > 0 || len(cs.Removed) > 0:
		cs.Mode = ModeIncremental
	default:
		cs.Mode = ModeNone
	}
	cs.RebuildNeeded = cs.Mode != ModeNone

	return cs
}

// Reconcile aligns the record with what the store actually holds, so files a
// failed or interrupted run never wrote are picked up again. A recorded path
// the store lacks, or holds at another fingerprint, keeps an empty fingerprint
// and is classified as modified (or removed once it leaves the source
// directory). A stored path missing from the record is adopted with its stored
// fingerprint. drifted lists every path that was adjusted, sorted.
//
// A nil record or a nil store is returned as is; both already force a full
// rebuild.
func Reconcile(previous, stored map[string]types.Fingerprint) (reconciled map[string]types.Fingerprint, drifted []string) {
	if previous == nil || stored == nil {
		return previous, nil
	}

	reconciled = make(map[string]types.Fingerprint, len(previous))
	for path, fp := range previous {
		if have, ok := stored[path]; !ok || have != fp {
			reconciled[path] = ""
			drifted = append(drifted, path)
			continue
		}
		reconciled[path] = fp
	}
	for path, fp := range stored {
		if _, ok := previous[path]; !ok {
			reconciled[path] = fp
			drifted = append(drifted, path)
		}
	}

	sort.Strings(drifted)
	return reconciled, drifted
}

// Force returns a copy of the change set that rebuilds every current file
// regardless of what changed
func (cs ChangeSet) Force() ChangeSet {
	cs.Mode = ModeFull
	cs.RebuildNeeded = true
	return cs
}

// Plan turns the change set into the ingestion work list
func (cs ChangeSet) Plan() Plan {
	plan := Plan{
		Mode:   cs.Mode,
		Remove: append([]string{}, cs.Removed...),
	}

	switch cs.Mode {
	case ModeFull:
		plan.Process = make([]string, 0, len(cs.Unchanged)+len(cs.Added)+len(cs.Modified))
		plan.Process = append(plan.Process, cs.Unchanged...)
		plan.Process = append(plan.Process, cs.Added...)
		plan.Process = append(plan.Process, cs.Modified...)
		sort.Strings(plan.Process)
	case ModeIncremental:
		plan.Process = make([]string, 0, len(cs.Added)+len(cs.Modified))
		plan.Process = append(plan.Process, cs.Added...)
		plan.Process = append(plan.Process, cs.Modified...)
		sort.Strings(plan.Process)
	default:
		plan.Process = []string{}
	}

	return plan
}

// Changed returns added and modified paths, sorted
func (cs ChangeSet) Changed() []string {
	changed := make([]string, 0, len(cs.Added)+len(cs.Modified))
	changed = append(changed, cs.Added...)
	changed = append(changed, cs.Modified...)
	sort.Strings(changed)
	return changed
}

// Validate checks that the change set covers both inputs and that the four
// categories are pairwise disjoint
func (cs ChangeSet) Validate(current, previous map[string]types.Fingerprint) error {
	seen := make(map[string]string, len(current)+len(previous))
	categories := []struct {
		name  string
		paths []string
	}{
		{"unchanged", cs.Unchanged},
		{"added", cs.Added},
		{"modified", cs.Modified},
		{"removed", cs.Removed},
	}

	for _, c := range categories {
		for _, p := range c.paths {
			if other, dup := seen[p]; dup {
				return fmt.Errorf("%s classified as both %s and %s", p, other, c.name)
			}
			seen[p] = c.name
		}
	}

	for p := range current {
		if _, ok := seen[p]; !ok {
			return fmt.Errorf("current file %s not classified", p)
		}
	}
	for p := range previous {
		if _, ok := seen[p]; !ok {
			return fmt.Errorf("recorded file %s not classified", p)
		}
	}
	if len(seen) != len(unionKeys(current, previous)) {
		return fmt.Errorf("change set contains paths outside both inputs")
	}

	return nil
}

// Summary renders the change set counts for logs
func (cs ChangeSet) Summary() string {
	return fmt.Sprintf("mode=%s added=%d modified=%d removed=%d unchanged=%d",
		cs.Mode, len(cs.Added), len(cs.Modified), len(cs.Removed), len(cs.Unchanged))
}

func unionKeys(a, b map[string]types.Fingerprint) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}
