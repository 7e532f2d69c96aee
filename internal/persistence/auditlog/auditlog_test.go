package auditlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhooc77/advanced-region-market/internal/market/flaggroups"
)

func TestApplyLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewApplyLogger(dir)
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	require.NoError(t, l.RecordApply("A1", flaggroups.ApplyReport{
		Group: "plots", Mode: flaggroups.ResetComplete, Sold: true, Wiped: true,
		Set: []string{"build"}, PrioritySet: true, Priority: 20,
	}))
	clock = clock.Add(2 * time.Minute)
	require.NoError(t, l.RecordApply("A1-sub", flaggroups.ApplyReport{
		Group: "Subregion", Mode: flaggroups.ResetNonEditable, Skipped: []string{"pvp"}, Kept: []string{"greeting"},
	}))
	require.NoError(t, l.Close())

	files, err := os.ReadDir(filepath.Join(dir, "apply"))
	require.NoError(t, err)
	require.Len(t, files, 2, "one file per hour")
	assert.Equal(t, "apply-2026-03-01-10.jsonl.zst", files[0].Name())

	entries, err := ReadEntries(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "A1", entries[0].Region)
	assert.Equal(t, "complete", entries[0].Mode)
	assert.True(t, entries[0].Wiped)
	require.NotNil(t, entries[0].Priority)
	assert.Equal(t, 20, *entries[0].Priority)
	assert.NotEmpty(t, entries[0].ID)

	assert.Equal(t, "non_editable", entries[1].Mode)
	assert.Nil(t, entries[1].Priority)
	assert.Equal(t, []string{"pvp"}, entries[1].Skipped)
	assert.Equal(t, []string{"greeting"}, entries[1].Kept)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestWriter_ReopenAppends(t *testing.T) {
	dir := t.TempDir()
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		l := NewApplyLogger(dir)
		l.w.now = func() time.Time { return clock }
		require.NoError(t, l.RecordApply("A1", flaggroups.ApplyReport{Group: "g"}))
		require.NoError(t, l.Close())
	}
	entries, err := ReadEntries(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestReadEntries_NoDir(t *testing.T) {
	entries, err := ReadEntries(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadEntries_WhileWriterOpen(t *testing.T) {
	dir := t.TempDir()
	l := NewApplyLogger(dir)
	l.w.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	defer l.Close()

	require.NoError(t, l.RecordApply("A1", flaggroups.ApplyReport{Group: "g", Set: []string{"build"}}))
	require.NoError(t, l.RecordApply("A2", flaggroups.ApplyReport{Group: "g"}))

	entries, err := ReadEntries(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "A1", entries[0].Region)
	assert.Equal(t, "A2", entries[1].Region)
}

func TestReadEntries_TruncatedLine(t *testing.T) {
	dir := t.TempDir()
	l := NewApplyLogger(dir)
	l.w.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	require.NoError(t, l.RecordApply("A1", flaggroups.ApplyReport{Group: "g"}))
	require.NoError(t, l.Close())

	// A second file whose last line was cut mid-record.
	f, err := os.Create(filepath.Join(dir, "apply", "apply-2026-03-01-11"+fileSuffix))
	require.NoError(t, err)
	enc, err := zstd.NewWriter(f)
	require.NoError(t, err)
	_, err = enc.Write([]byte(`{"region":"A2","group":"g"}` + "\n" + `{"region":"A3","gro`))
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	entries, err := ReadEntries(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "A2", entries[1].Region)
}
