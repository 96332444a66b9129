package fs

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRepo creates a temporary git repository with sample files for testing.
func setupTestRepo(t *testing.T) (string, func(args ...string)) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()

	git := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v\n%s", args, out)
	}

	git("init")
	git("config", "user.email", "test@test.com")
	git("config", "user.name", "Test")

	docsDir := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# README\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "guide.md"), []byte("# Guide\n\nHello world.\n"), 0o644))

	git("add", "-A")
	git("commit", "-m", "initial commit")

	return dir, git
}

func TestGitFS_Stat_Root(t *testing.T) {
	dir, _ := setupTestRepo(t)
	g := NewGitFS(dir, "HEAD", 0)

	info, err := g.Stat("")
	require.NoError(t, err)
	assert.True(t, info.IsDir)
}

func TestGitFS_Stat_Dir(t *testing.T) {
	dir, _ := setupTestRepo(t)
	g := NewGitFS(dir, "HEAD", 0)

	info, err := g.Stat("docs")
	require.NoError(t, err)
	assert.True(t, info.IsDir)
	assert.Equal(t, "docs", info.Name)
}

func TestGitFS_Stat_File(t *testing.T) {
	dir, _ := setupTestRepo(t)
	g := NewGitFS(dir, "HEAD", 0)

	info, err := g.Stat("docs/guide.md")
	require.NoError(t, err)
	assert.False(t, info.IsDir)
	assert.True(t, info.IsRegular())
	assert.Equal(t, int64(len("# Guide\n\nHello world.\n")), info.Size)
}

func TestGitFS_Stat_NotExist(t *testing.T) {
	dir, _ := setupTestRepo(t)
	g := NewGitFS(dir, "HEAD", 0)

	_, err := g.Stat("missing.md")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGitFS_ReadDir_Root(t *testing.T) {
	dir, _ := setupTestRepo(t)
	g := NewGitFS(dir, "HEAD", 0)

	entries, err := g.ReadDir("")
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, e := range entries {
		names[e.Name] = e.IsDir
	}
	assert.Contains(t, names, "README.md")
	assert.True(t, names["docs"])
}

func TestGitFS_ReadDir_SubDir(t *testing.T) {
	dir, _ := setupTestRepo(t)
	g := NewGitFS(dir, "HEAD", 0)

	entries, err := g.ReadDir("docs")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "guide.md", entries[0].Name)
}

func TestGitFS_ReadFile(t *testing.T) {
	dir, _ := setupTestRepo(t)
	g := NewGitFS(dir, "HEAD", 0)

	content, err := g.ReadFile("docs/guide.md")
	require.NoError(t, err)
	assert.Equal(t, "# Guide\n\nHello world.\n", string(content))
}

func TestGitFS_ReadFile_NotExist(t *testing.T) {
	dir, _ := setupTestRepo(t)
	g := NewGitFS(dir, "HEAD", 0)

	_, err := g.ReadFile("nonexistent.md")
	assert.Error(t, err)
}

func TestGitFS_SubscribeReportsCommit(t *testing.T) {
	dir, git := setupTestRepo(t)
	g := NewGitFS(dir, "HEAD", 20*time.Millisecond)

	changes := make(chan Change, 4)
	sub, err := g.Subscribe("README.md", func(c Change) { changes <- c })
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# README\n\nupdated\n"), 0o644))
	git("commit", "-am", "update readme")

	select {
	case c := <-changes:
		assert.Equal(t, "README.md", c.Path)
		assert.NotEqual(t, c.Previous.Size, c.Current.Size)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for ref change")
	}
}
