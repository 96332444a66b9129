package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpers(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0o644))

	assert.True(t, Exists(file))
	assert.True(t, IsFile(file))
	assert.False(t, IsDirectory(file))
	assert.True(t, IsDirectory(dir))

	nested := filepath.Join(dir, "x", "y")
	require.NoError(t, EnsureDir(nested))
	assert.True(t, IsDirectory(nested))

	id, err := FileID(file)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	moved := filepath.Join(nested, "b.txt")
	require.NoError(t, Move(file, moved))
	assert.False(t, Exists(file))
	movedID, err := FileID(moved)
	require.NoError(t, err)
	assert.Equal(t, id, movedID)
}

func TestPathHelpers(t *testing.T) {
	assert.Equal(t, "b", Basename(filepath.Join("a", "b.txt"), ".txt"))
	assert.Equal(t, ".txt", Extname("b.txt"))
	assert.True(t, IsAbsolute(Resolve("relative")))
	assert.True(t, Contains(filepath.Join("a", "node_modules", "b"), "node_modules"))
}

func TestWatchEvery(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0o644))

	s := WatchEvery(context.Background(), dir, 10*time.Millisecond, WatchOptions{Throttle: 10 * time.Millisecond})
	defer s.Close()

	require.NoError(t, os.WriteFile(file, []byte("changed"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	got, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, file, got)

	require.NoError(t, s.Close())
	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}
