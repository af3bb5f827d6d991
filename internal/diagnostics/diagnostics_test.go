package diagnostics

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	stats := NewStats("jit", time.Time{})
	stats.IncNoteOn()
	stats.IncNoteOn()
	stats.IncClash()
	stats.IncDroppedKey()

	path := filepath.Join(t.TempDir(), "diagnostics.json.gz")
	rec := NewRecorder(path, stats)
	require.NoError(t, rec.Save())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "jit", loaded.Technique)
	assert.Equal(t, 2, loaded.NotesOn)
	assert.Equal(t, 1, loaded.Clashes)
	assert.Equal(t, 1, loaded.DroppedKeys)
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	stats := NewStats("aot", time.Time{})
	snap := stats.Snapshot()
	stats.IncNoteOn()
	assert.Equal(t, 0, snap.NotesOn)
	assert.Equal(t, 1, stats.Snapshot().NotesOn)
}
