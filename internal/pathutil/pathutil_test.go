package pathutil

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNativeResolve(t *testing.T) {
	r := Native{}

	resolved := r.Resolve("some/dir")
	assert.True(t, filepath.IsAbs(resolved))
	assert.Equal(t, filepath.Join(resolved, "child"), r.Child(resolved, "child"))
}

func TestSlashResolve(t *testing.T) {
	r := Slash{}

	assert.Equal(t, "", r.Resolve(""))
	assert.Equal(t, "", r.Resolve("."))
	assert.Equal(t, "docs", r.Resolve("/docs/"))
	assert.Equal(t, "docs/guide.md", r.Resolve("docs/./guide.md"))
	assert.Equal(t, "README.md", r.Child("", "README.md"))
	assert.Equal(t, "docs/guide.md", r.Child("docs", "guide.md"))
}

func TestBasename(t *testing.T) {
	assert.Equal(t, "file.txt", Basename("/a/b/file.txt", ""))
	assert.Equal(t, "file", Basename("/a/b/file.txt", ".txt"))
	assert.Equal(t, ".txt", Basename("/a/b/.txt", ".txt"))
}

func TestExtname(t *testing.T) {
	cases := map[string]string{
		"index.html":      ".html",
		"index.coffee.md": ".md",
		"index.":          ".",
		"index":           "",
		".index":          "",
		".index.md":       ".md",
	}
	for input, want := range cases {
		assert.Equal(t, want, Extname(input), input)
	}
}

func TestFilenameAndDirname(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix file URLs")
	}

	p, err := Filename("file:///tmp/project/index.js")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/project/index.js", p)

	assert.Equal(t, "/tmp/project", Dirname("file:///tmp/project/index.js"))
	assert.Equal(t, "/tmp/project", Dirname("/tmp/project/index.js"))

	_, err = Filename("https://example.com/index.js")
	assert.Error(t, err)
}

func TestIsAbsolute(t *testing.T) {
	assert.False(t, IsAbsolute("relative/path"))
	abs, err := filepath.Abs("x")
	require.NoError(t, err)
	assert.True(t, IsAbsolute(abs))
}

func TestContains(t *testing.T) {
	p := filepath.Join("a", "node_modules", "pkg", "index.js")
	assert.True(t, Contains(p, "node_modules"))
	assert.False(t, Contains(p, "node"))
}
