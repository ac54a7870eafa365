package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/pdfindex/pkg/types"
)

// openTestStore creates a collection database on disk with the given documents
func openTestStore(t *testing.T, dir string, paths ...string) {
	t.Helper()

	store, err := Open(dir, "docs")
	require.NoError(t, err)
	for _, p := range paths {
		doc, chunks, embs := testDocument(p, 2, "v1")
		require.NoError(t, store.UpsertDocument(context.Background(), doc, chunks, embs))
	}
	require.NoError(t, store.Close())
}

func TestInspect_Missing(t *testing.T) {
	dir := t.TempDir()

	insp := Inspect(context.Background(), dir, "docs")

	assert.False(t, insp.Exists)
	assert.False(t, insp.Ready)
	assert.False(t, insp.Corrupt)
	assert.ErrorIs(t, insp.Problem, types.ErrNotFound)
	assert.NoFileExists(t, DatabasePath(dir, "docs"))
}

func TestInspect_Ready(t *testing.T) {
	dir := t.TempDir()
	openTestStore(t, dir, "a.pdf", "b.pdf")

	insp := Inspect(context.Background(), dir, "docs")

	require.True(t, insp.Ready, "problem: %v", insp.Problem)
	assert.True(t, insp.Exists)
	assert.NoError(t, insp.Problem)
	doc, _, _ := testDocument("a.pdf", 2, "v1")
	assert.Equal(t, doc.Fingerprint, insp.Documents["a.pdf"])
	assert.Len(t, insp.Documents, 2)
	assert.Equal(t, 2, insp.Stats.Documents)
	assert.True(t, insp.UsesModel("local/test"))
	assert.False(t, insp.UsesModel("openai/text-embedding-3-small"))
}

func TestInspect_Corrupt(t *testing.T) {
	dir := t.TempDir()
	openTestStore(t, dir, "a.pdf")
	require.NoError(t, os.WriteFile(DatabasePath(dir, "docs"), []byte("garbage, not sqlite"), 0o644))

	insp := Inspect(context.Background(), dir, "docs")

	assert.True(t, insp.Exists)
	assert.False(t, insp.Ready)
	assert.True(t, insp.Corrupt)
	assert.Error(t, insp.Problem)
}

func TestInspect_Inconsistent(t *testing.T) {
	dir := t.TempDir()
	openTestStore(t, dir, "a.pdf")

	store, err := Open(dir, "docs")
	require.NoError(t, err)
	_, err = store.db.Exec("UPDATE documents SET chunk_count = 9")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	insp := Inspect(context.Background(), dir, "docs")

	assert.False(t, insp.Ready)
	assert.False(t, insp.Corrupt)
	assert.ErrorIs(t, insp.Problem, types.ErrInconsistentStore)
	require.NotNil(t, insp.Integrity)
	assert.Equal(t, []string{"a.pdf"}, insp.Integrity.ChunkCountMismatch)
}

func TestOpenReadOnly(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	_, err := OpenReadOnly(dir, "docs")
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoFileExists(t, DatabasePath(dir, "docs"), "read-only open never creates the store")

	openTestStore(t, dir, "a.pdf")

	// Roll the schema back by hand; a read-only open must leave it there
	store, err := Open(dir, "docs")
	require.NoError(t, err)
	_, err = store.db.Exec("DELETE FROM schema_version WHERE version = '1.1.0'")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	ro, err := OpenReadOnly(dir, "docs")
	require.NoError(t, err)
	defer func() { _ = ro.Close() }()

	version, err := SchemaVersion(ctx, ro.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version)

	paths, err := StoredPaths(ctx, ro)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf"}, paths)

	assert.Error(t, ro.DeleteDocument(ctx, "a.pdf"), "writes fail on a read-only store")
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	openTestStore(t, dir, "a.pdf")
	require.NoError(t, os.WriteFile(DatabasePath(dir, "docs")+"-wal", nil, 0o644))

	require.NoError(t, Remove(dir, "docs"))
	assert.NoFileExists(t, DatabasePath(dir, "docs"))
	assert.NoFileExists(t, DatabasePath(dir, "docs")+"-wal")

	assert.NoError(t, Remove(dir, "docs"), "removing a missing store is not an error")
}
