package record

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/pdfindex/pkg/types"
)

func fp(s string) types.Fingerprint {
	return types.FingerprintOf([]byte(s))
}

func TestLoad_Missing(t *testing.T) {
	rec, err := Load(filepath.Join(t.TempDir(), "processed_files.json"))

	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_files.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, types.ErrPersistence)
}

func TestLoad_Legacy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_files.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
    "a.pdf",
    "b.pdf"
]`), 0o644))

	rec, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Record{"a.pdf": "", "b.pdf": ""}, rec)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "processed_files.json")
	rec := Record{"b.pdf": fp("b"), "a.pdf": fp("a"), "dir/c.pdf": fp("c")}

	require.NoError(t, Save(path, rec))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, rec, loaded)
}

func TestSave_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_files.json")
	require.NoError(t, Save(path, Record{"b.pdf": "sha256:bb", "a.pdf": "sha256:aa"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a.pdf\": \"sha256:aa\",\n  \"b.pdf\": \"sha256:bb\"\n}\n", string(data))

	// Byte-identical on rewrite
	require.NoError(t, Save(path, Record{"a.pdf": "sha256:aa", "b.pdf": "sha256:bb"}))
	again, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestSave_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_files.json")
	require.NoError(t, Save(path, nil))

	rec, err := Load(path)
	require.NoError(t, err)
	assert.NotNil(t, rec)
	assert.Empty(t, rec)
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "processed_files.json")

	require.NoError(t, Save(path, Record{"a.pdf": fp("a")}))
	require.NoError(t, Save(path, Record{"a.pdf": fp("a2")}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "processed_files.json", entries[0].Name())
}

func TestSave_Unwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	// Parent "directory" is a regular file
	err := Save(filepath.Join(blocker, "processed_files.json"), Record{})
	assert.ErrorIs(t, err, types.ErrPersistence)
}

func TestNext(t *testing.T) {
	current := map[string]types.SourceFile{
		"a.pdf": {Path: "a.pdf", Fingerprint: fp("a")},
		"b.pdf": {Path: "b.pdf", Fingerprint: fp("b")},
		"c.pdf": {Path: "c.pdf", Fingerprint: fp("c")},
	}

	rec := Next(current, []string{"b.pdf"})

	assert.Equal(t, Record{"a.pdf": fp("a"), "c.pdf": fp("c")}, rec)
}

func TestNext_Empty(t *testing.T) {
	rec := Next(map[string]types.SourceFile{}, nil)
	assert.NotNil(t, rec)
	assert.Empty(t, rec)
}

func TestEqual(t *testing.T) {
	a := Record{"a.pdf": fp("a")}

	assert.True(t, Equal(a, Record{"a.pdf": fp("a")}))
	assert.False(t, Equal(a, Record{"a.pdf": fp("x")}))
	assert.False(t, Equal(a, Record{"b.pdf": fp("a")}))
	assert.False(t, Equal(a, nil))
	assert.True(t, Equal(nil, Record{}))
}

func TestLog_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vecDataHist.txt")
	log := NewLog(path)
	when := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	require.NoError(t, log.Append(BuildLogEntry{Time: when, Outcome: OutcomeUpToDate, Unchanged: 3}))
	require.NoError(t, log.Append(BuildLogEntry{
		Time: when.Add(time.Minute), Outcome: OutcomeRebuilt, Mode: "incremental",
		Added: 1, Processed: 2, Failed: 1, Chunks: 7, FailedFiles: []string{"bad.pdf"},
	}))
	require.NoError(t, log.Append(BuildLogEntry{
		Time: when.Add(2 * time.Minute), Outcome: OutcomeFailed, Mode: "full", Error: "quota exceeded",
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 3)

	assert.True(t, strings.HasPrefix(lines[0], "2024-05-01 09:30:00 - INFO - No new or updated files"))
	assert.Contains(t, lines[0], "(3 files)")

	assert.True(t, strings.HasPrefix(lines[1], "2024-05-01 09:31:00 - WARNING - Vector store updated"))
	assert.Contains(t, lines[1], "mode=incremental added=1")
	assert.Contains(t, lines[1], "failed_files=[bad.pdf]")

	assert.True(t, strings.HasPrefix(lines[2], "2024-05-01 09:32:00 - ERROR - Build failed"))
	assert.Contains(t, lines[2], `error="quota exceeded"`)
}

func TestLog_DefaultsTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "vecDataHist.txt")
	require.NoError(t, NewLog(path).Append(BuildLogEntry{Outcome: OutcomeUpToDate}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	_, err = time.Parse(LogTimeFormat, string(data[:len(LogTimeFormat)]))
	assert.NoError(t, err)
}

func TestBuildLogEntry_ErrorIsSingleLine(t *testing.T) {
	e := BuildLogEntry{Outcome: OutcomeFailed, Error: "first\nsecond"}
	assert.NotContains(t, e.Line(), "\n")
}
