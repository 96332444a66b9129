package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintChanges(t *testing.T) {
	changes := make(chan change, 3)
	changes <- change{alias: "docs", path: "/tmp/docs/a.md"}
	changes <- change{alias: "site", path: "/tmp/site/b.md"}
	changes <- change{alias: "site", path: "/tmp/site/c.md"}

	var buf bytes.Buffer
	require.NoError(t, printChanges(context.Background(), &buf, changes, true, 2))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "docs")
	assert.Contains(t, lines[0], "/tmp/docs/a.md")
	assert.Contains(t, lines[1], "/tmp/site/b.md")
}

func TestPrintChanges_StopsWhenClosed(t *testing.T) {
	changes := make(chan change, 1)
	changes <- change{alias: "docs", path: "a.md"}
	close(changes)

	var buf bytes.Buffer
	require.NoError(t, printChanges(context.Background(), &buf, changes, false, 0))
	assert.Contains(t, buf.String(), "a.md")
	assert.NotContains(t, buf.String(), "docs")
}

func TestPrintStats(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, make([]byte, 2048), 0o644))

	var buf bytes.Buffer
	require.NoError(t, printStats(&buf, []string{file, dir}))
	out := buf.String()
	assert.Contains(t, out, "file")
	assert.Contains(t, out, "2.0 kB")
	assert.Contains(t, out, "directory")

	buf.Reset()
	err := printStats(&buf, []string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "missing")
}

func TestMove(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(source, []byte("a"), 0o644))

	destination := filepath.Join(dir, "nested", "deeper", "b.txt")
	require.Error(t, move(source, destination, false))
	require.NoError(t, move(source, destination, true))

	data, err := os.ReadFile(destination)
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
	assert.Error(t, move(source, destination, true))
}
