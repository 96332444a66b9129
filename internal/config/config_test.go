package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/vistta-org/fs/internal/fs"
	"github.com/vistta-org/fs/internal/pathutil"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.Backend != BackendPoll {
		t.Errorf("expected backend poll, got %s", cfg.Backend)
	}
	if cfg.PollInterval != fs.DefaultPollInterval {
		t.Errorf("expected poll interval %s, got %s", fs.DefaultPollInterval, cfg.PollInterval)
	}
}

func TestNormalizeRoots(t *testing.T) {
	cfg := &Config{
		Path: "./test_docs",
	}
	cfg.normalizeRoots()

	if len(cfg.Roots) != 1 {
		t.Fatalf("expected 1 root after normalizing, got %d", len(cfg.Roots))
	}

	absExpected, _ := filepath.Abs("./test_docs")
	if cfg.Roots[0].Path != absExpected {
		t.Errorf("expected path %s, got %s", absExpected, cfg.Roots[0].Path)
	}
	if cfg.Roots[0].Alias != "test_docs" {
		t.Errorf("expected alias test_docs, got %s", cfg.Roots[0].Alias)
	}
}

func TestAddRoot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Roots = nil

	if err := cfg.AddRoot("./docs", "MyDocs", "", ""); err != nil {
		t.Fatalf("AddRoot failed: %v", err)
	}
	if err := cfg.AddRoot("./docs", "Again", "", ""); err != nil {
		t.Fatalf("AddRoot failed: %v", err)
	}
	if err := cfg.AddRoot("./docs", "", "main", ""); err != nil {
		t.Fatalf("AddRoot failed: %v", err)
	}

	if len(cfg.Roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(cfg.Roots))
	}
	if cfg.Roots[0].Alias != "MyDocs" {
		t.Errorf("expected alias MyDocs, got %s", cfg.Roots[0].Alias)
	}
	if cfg.Roots[1].Alias != "docs (main)" {
		t.Errorf("expected alias 'docs (main)', got %s", cfg.Roots[1].Alias)
	}

	cfg.RemoveRootByIndex(0)
	if _, ok := cfg.FindRoot("MyDocs"); ok {
		t.Error("expected MyDocs to be removed")
	}
}

func TestAddRootUniqueAliases(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Roots = nil
	base := t.TempDir()

	for _, parent := range []string{"one", "two", "three"} {
		if err := cfg.AddRoot(filepath.Join(base, parent, "docs"), "", "", ""); err != nil {
			t.Fatalf("AddRoot failed: %v", err)
		}
	}
	if err := cfg.AddRoot(filepath.Join(base, "four"), "docs", "", ""); err != nil {
		t.Fatalf("AddRoot failed: %v", err)
	}

	want := []string{"docs", "docs-2", "docs-3", "docs-4"}
	if len(cfg.Roots) != len(want) {
		t.Fatalf("expected %d roots, got %d", len(want), len(cfg.Roots))
	}
	for i, alias := range want {
		if cfg.Roots[i].Alias != alias {
			t.Errorf("root %d: expected alias %s, got %s", i, alias, cfg.Roots[i].Alias)
		}
	}
	if r, ok := cfg.FindRoot("docs-2"); !ok || r.Path != filepath.Join(base, "two", "docs") {
		t.Errorf("expected docs-2 to resolve to the second root, got %+v", r)
	}
}

func TestExcludeFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exclude = "global"

	if got := cfg.ExcludeFor(Root{}); got != "global" {
		t.Errorf("expected global exclude, got %s", got)
	}
	if got := cfg.ExcludeFor(Root{Exclude: "local"}); got != "local" {
		t.Errorf("expected root exclude, got %s", got)
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.configPath = tmpFile
	cfg.Port = 9999
	cfg.Throttle = 250 * time.Millisecond
	cfg.Roots = []Root{{Path: "/tmp", Alias: "Temp", Exclude: `\.log$`}}

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	cfg2, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg2.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg2.Port)
	}
	if cfg2.Throttle != 250*time.Millisecond {
		t.Errorf("expected throttle 250ms, got %s", cfg2.Throttle)
	}
	if len(cfg2.Roots) != 1 || cfg2.Roots[0].Alias != "Temp" || cfg2.Roots[0].Exclude != `\.log$` {
		t.Errorf("root loading failed: %+v", cfg2.Roots)
	}
	if cfg2.GetConfigFilePath() != tmpFile {
		t.Errorf("expected config path %s, got %s", tmpFile, cfg2.GetConfigFilePath())
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(tmpFile, []byte("port: 9000\nbackend: poll\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FSWATCH_PORT", "9100")
	t.Setenv("FSWATCH_BACKEND", BackendFsnotify)
	t.Setenv("FSWATCH_THROTTLE", "2s")
	t.Setenv("FSWATCH_LOG_LEVEL", "debug")

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 9100 {
		t.Errorf("expected port 9100, got %d", cfg.Port)
	}
	if cfg.Backend != BackendFsnotify {
		t.Errorf("expected backend fsnotify, got %s", cfg.Backend)
	}
	if cfg.Throttle != 2*time.Second {
		t.Errorf("expected throttle 2s, got %s", cfg.Throttle)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logger.Level)
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Roots = []Root{{Path: "/saved", Alias: "saved"}}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	dir := t.TempDir()
	if err := flags.Parse([]string{"--path", dir, "--throttle", "3s", "--backend", "fsnotify"}); err != nil {
		t.Fatal(err)
	}

	if err := cfg.ApplyFlags(flags); err != nil {
		t.Fatalf("ApplyFlags failed: %v", err)
	}
	if len(cfg.Roots) != 1 || cfg.Roots[0].Path != dir {
		t.Errorf("expected --path to replace roots, got %+v", cfg.Roots)
	}
	if cfg.Throttle != 3*time.Second {
		t.Errorf("expected throttle 3s, got %s", cfg.Throttle)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected unset port flag to keep 8080, got %d", cfg.Port)
	}
}

func TestApplyFlagsRejectsUnknownBackend(t *testing.T) {
	cfg := DefaultConfig()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	if err := flags.Parse([]string{"--backend", "inotify"}); err != nil {
		t.Fatal(err)
	}
	if err := cfg.ApplyFlags(flags); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	storage, resolver, root, err := cfg.Open(Root{Path: dir, Alias: "tmp"}, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer CloseStorage(storage)

	if _, ok := resolver.(pathutil.Native); !ok {
		t.Errorf("expected native resolver for local root, got %T", resolver)
	}
	if root != dir {
		t.Errorf("expected root %s, got %s", dir, root)
	}
	info, err := storage.Stat(filepath.Join(root, "a.txt"))
	if err != nil || !info.IsRegular() {
		t.Errorf("expected a.txt to be a regular file, got %+v, %v", info, err)
	}

	storage, resolver, root, err = cfg.Open(Root{Path: dir, GitRef: "main"}, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, ok := storage.(*fs.GitFS); !ok {
		t.Errorf("expected git storage, got %T", storage)
	}
	if _, ok := resolver.(pathutil.Slash); !ok || root != "" {
		t.Errorf("expected slash resolver and empty root, got %T %q", resolver, root)
	}
}
