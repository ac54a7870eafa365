package detector

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/pdfindex/pkg/types"
)

func fp(s string) types.Fingerprint {
	return types.FingerprintOf([]byte(s))
}

func TestDetect_Classification(t *testing.T) {
	previous := map[string]types.Fingerprint{
		"same.pdf":    fp("same"),
		"changed.pdf": fp("v1"),
		"gone.pdf":    fp("gone"),
	}
	current := map[string]types.Fingerprint{
		"same.pdf":    fp("same"),
		"changed.pdf": fp("v2"),
		"new.pdf":     fp("new"),
	}

	cs := Detect(current, previous, true)

	assert.Equal(t, []string{"same.pdf"}, cs.Unchanged)
	assert.Equal(t, []string{"new.pdf"}, cs.Added)
	assert.Equal(t, []string{"changed.pdf"}, cs.Modified)
	assert.Equal(t, []string{"gone.pdf"}, cs.Removed)
	assert.True(t, cs.RebuildNeeded)
	assert.Equal(t, ModeIncremental, cs.Mode)
	require.NoError(t, cs.Validate(current, previous))
}

func TestDetect_NoChanges(t *testing.T) {
	state := map[string]types.Fingerprint{
		"a.pdf": fp("a"),
		"b.pdf": fp("b"),
	}

	cs := Detect(state, state, true)

	assert.False(t, cs.RebuildNeeded)
	assert.Equal(t, ModeNone, cs.Mode)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, cs.Unchanged)
	assert.Empty(t, cs.Plan().Process)
	assert.Empty(t, cs.Plan().Remove)
}

func TestDetect_RecordMissing(t *testing.T) {
	current := map[string]types.Fingerprint{"a.pdf": fp("a")}

	cs := Detect(current, nil, true)

	assert.True(t, cs.RecordMissing)
	assert.True(t, cs.RebuildNeeded)
	assert.Equal(t, ModeFull, cs.Mode)
	assert.Equal(t, []string{"a.pdf"}, cs.Added)
}

func TestDetect_EmptyRecordIsNotMissing(t *testing.T) {
	cs := Detect(map[string]types.Fingerprint{}, map[string]types.Fingerprint{}, true)

	assert.False(t, cs.RecordMissing)
	assert.False(t, cs.RebuildNeeded)
}

func TestDetect_StoreMissingForcesFullRebuild(t *testing.T) {
	state := map[string]types.Fingerprint{
		"a.pdf": fp("a"),
		"b.pdf": fp("b"),
	}

	cs := Detect(state, state, false)

	assert.True(t, cs.StoreMissing)
	assert.True(t, cs.RebuildNeeded)
	assert.Equal(t, ModeFull, cs.Mode)

	plan := cs.Plan()
	assert.Equal(t, ModeFull, plan.Mode)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, plan.Process)
}

func TestDetect_RemovalOnlyTriggersRebuild(t *testing.T) {
	previous := map[string]types.Fingerprint{"a.pdf": fp("a"), "b.pdf": fp("b")}
	current := map[string]types.Fingerprint{"a.pdf": fp("a")}

	cs := Detect(current, previous, true)

	assert.True(t, cs.RebuildNeeded)
	assert.Equal(t, ModeIncremental, cs.Mode)
	plan := cs.Plan()
	assert.Empty(t, plan.Process)
	assert.Equal(t, []string{"b.pdf"}, plan.Remove)
}

func TestPlan_Incremental(t *testing.T) {
	previous := map[string]types.Fingerprint{"a.pdf": fp("a"), "b.pdf": fp("b1")}
	current := map[string]types.Fingerprint{"a.pdf": fp("a"), "b.pdf": fp("b2"), "c.pdf": fp("c")}

	plan := Detect(current, previous, true).Plan()

	assert.Equal(t, ModeIncremental, plan.Mode)
	assert.Equal(t, []string{"b.pdf", "c.pdf"}, plan.Process)
	assert.Empty(t, plan.Remove)
}

func TestChangeSet_Changed(t *testing.T) {
	cs := ChangeSet{Added: []string{"z.pdf"}, Modified: []string{"a.pdf"}}

	assert.Equal(t, []string{"a.pdf", "z.pdf"}, cs.Changed())
}

func TestChangeSet_ValidateRejectsOverlap(t *testing.T) {
	current := map[string]types.Fingerprint{"a.pdf": fp("a")}
	cs := ChangeSet{Added: []string{"a.pdf"}, Modified: []string{"a.pdf"}}

	err := cs.Validate(current, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.pdf")
}

func TestChangeSet_ValidateRejectsMissing(t *testing.T) {
	current := map[string]types.Fingerprint{"a.pdf": fp("a"), "b.pdf": fp("b")}
	cs := ChangeSet{Added: []string{"a.pdf"}}

	err := cs.Validate(current, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.pdf")
}

// TestDetect_Totality checks random record/scan pairs: every path is classified
// exactly once and the categories cover both key sets.
func TestDetect_Totality(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		previous := make(map[string]types.Fingerprint)
		current := make(map[string]types.Fingerprint)

		for j := 0; j < rng.Intn(30); j++ {
			name := fmt.Sprintf("doc-%02d.pdf", rng.Intn(40))
			previous[name] = fp(fmt.Sprintf("v%d", rng.Intn(3)))
		}
		for j := 0; j < rng.Intn(30); j++ {
			name := fmt.Sprintf("doc-%02d.pdf", rng.Intn(40))
			current[name] = fp(fmt.Sprintf("v%d", rng.Intn(3)))
		}

		cs := Detect(current, previous, true)
		require.NoError(t, cs.Validate(current, previous), "iteration %d", i)

		total := len(cs.Unchanged) + len(cs.Added) + len(cs.Modified) + len(cs.Removed)
		assert.Equal(t, len(unionKeys(current, previous)), total)

		for _, p := range cs.Unchanged {
			assert.Equal(t, previous[p], current[p])
		}
		for _, p := range cs.Modified {
			assert.NotEqual(t, previous[p], current[p])
		}
	}
}

func TestChangeSet_Summary(t *testing.T) {
	cs := Detect(map[string]types.Fingerprint{"a.pdf": fp("a")}, map[string]types.Fingerprint{}, true)

	assert.Equal(t, "mode=incremental added=1 modified=0 removed=0 unchanged=0", cs.Summary())
}

func TestChangeSet_Force(t *testing.T) {
	files := map[string]types.Fingerprint{"a.pdf": fp("a"), "b.pdf": fp("b")}
	cs := Detect(files, files, true)
	require.False(t, cs.RebuildNeeded)

	forced := cs.Force()

	assert.True(t, forced.RebuildNeeded)
	assert.Equal(t, ModeFull, forced.Mode)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, forced.Plan().Process)
	assert.Equal(t, ModeNone, cs.Mode, "original is not modified")
}

func TestReconcile(t *testing.T) {
	previous := map[string]types.Fingerprint{
		"ok.pdf":      fp("ok"),
		"missing.pdf": fp("missing"),
		"stale.pdf":   fp("stale v2"),
		"gone.pdf":    fp("gone"),
	}
	stored := map[string]types.Fingerprint{
		"ok.pdf":      fp("ok"),
		"stale.pdf":   fp("stale v1"),
		"gone.pdf":    fp("gone"),
		"orphan.pdf":  fp("orphan"),
		"adopted.pdf": fp("adopted"),
	}
	current := map[string]types.Fingerprint{
		"ok.pdf":      fp("ok"),
		"missing.pdf": fp("missing"),
		"stale.pdf":   fp("stale v2"),
		"adopted.pdf": fp("adopted"),
	}

	reconciled, drifted := Reconcile(previous, stored)

	assert.Equal(t, []string{"adopted.pdf", "missing.pdf", "orphan.pdf", "stale.pdf"}, drifted)

	cs := Detect(current, reconciled, true)
	require.NoError(t, cs.Validate(current, reconciled))
	assert.Equal(t, ModeIncremental, cs.Mode)
	assert.Equal(t, []string{"adopted.pdf", "ok.pdf"}, cs.Unchanged)
	assert.Equal(t, []string{"missing.pdf", "stale.pdf"}, cs.Modified)
	assert.Equal(t, []string{"gone.pdf", "orphan.pdf"}, cs.Removed)
	assert.Empty(t, cs.Added)
}

func TestReconcile_InSyncIsNoop(t *testing.T) {
	previous := map[string]types.Fingerprint{"a.pdf": fp("a"), "b.pdf": fp("b")}

	reconciled, drifted := Reconcile(previous, map[string]types.Fingerprint{"a.pdf": fp("a"), "b.pdf": fp("b")})

	assert.Empty(t, drifted)
	assert.Equal(t, previous, reconciled)
	assert.Equal(t, ModeNone, Detect(previous, reconciled, true).Mode)
}

func TestReconcile_NilInputs(t *testing.T) {
	previous := map[string]types.Fingerprint{"a.pdf": fp("a")}

	got, drifted := Reconcile(nil, previous)
	assert.Nil(t, got)
	assert.Empty(t, drifted)

	got, drifted = Reconcile(previous, nil)
	assert.Equal(t, previous, got)
	assert.Empty(t, drifted)
}
