package namelog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDistinct(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, n := range []string{"R1", "R2", "R1", "R3", "R2"} {
		require.NoError(t, m.Append(ctx, n))
	}

	names, err := m.Distinct(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1", "R2", "R3"}, names)

	names, err = m.Distinct(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1", "R2"}, names)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.json")
	ctx := context.Background()

	f, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Append(ctx, "R1"))
	require.NoError(t, f.Append(ctx, "R2"))
	require.NoError(t, f.Append(ctx, "R1"))

	// the file holds the deduplicated set
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `["R1","R2"]`, string(raw))

	// a new store picks the set back up
	g, err := OpenFile(path)
	require.NoError(t, err)
	names, err := g.Distinct(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1", "R2"}, names)
}

func TestOpenFileMissingIsEmpty(t *testing.T) {
	f, err := OpenFile(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	names, err := f.Distinct(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestOpenFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err := OpenFile(path)
	assert.Error(t, err)
}
