// Package handler provides HTTP handlers for the fswatch REST API.
package handler

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/vistta-org/fs/internal/config"
	"github.com/vistta-org/fs/internal/fs"
	"github.com/vistta-org/fs/internal/pathutil"
)

// Mount is a configured root with its open storage.
type Mount struct {
	Root     config.Root
	Storage  fs.Storage
	Resolver pathutil.Resolver
	// Base is the watch root inside Storage.
	Base    string
	Exclude *regexp.Regexp
}

// OpenMount opens the storage for r. An exclude pattern that does not
// compile is logged and ignored, the same way watch sessions treat it.
func OpenMount(cfg *config.Config, r config.Root, logger *slog.Logger) (*Mount, error) {
	storage, resolver, base, err := cfg.Open(r, logger)
	if err != nil {
		return nil, err
	}

	m := &Mount{Root: r, Storage: storage, Resolver: resolver, Base: base}
	if pattern := cfg.ExcludeFor(r); pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			if logger != nil {
				logger.Warn("invalid exclude pattern, excluding nothing", "root", r.Alias, "exclude", pattern, "error", err)
			}
		} else {
			m.Exclude = re
		}
	}
	return m, nil
}

// Close releases the mount's storage.
func (m *Mount) Close() error {
	return config.CloseStorage(m.Storage)
}

// Path returns the storage path of a slash-separated path relative to the
// mount.
func (m *Mount) Path(rel string) string {
	if rel == "" {
		return m.Base
	}
	return m.Resolver.Child(m.Base, rel)
}

// Relative converts a storage path back to a slash-separated path relative
// to the mount.
func (m *Mount) Relative(p string) string {
	if m.Base == "" {
		return strings.TrimPrefix(p, "/")
	}
	rel, err := filepath.Rel(m.Base, p)
	if err != nil {
		return p
	}
	if rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

// Excluded reports whether the storage path p is filtered out.
func (m *Mount) Excluded(p string) bool {
	return m.Exclude != nil && m.Exclude.MatchString(p)
}

// Mounts is the ordered set of mounts served by the API.
type Mounts []*Mount

// Find returns the mount with the given alias.
func (ms Mounts) Find(alias string) (*Mount, bool) {
	for _, m := range ms {
		if m.Root.Alias == alias {
			return m, true
		}
	}
	return nil, false
}

// resolve splits "{alias}/{relativePath}" into its mount and relative path.
func (ms Mounts) resolve(p string) (*Mount, string, error) {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return nil, "", errNotFound
	}

	parts := strings.SplitN(p, "/", 2)
	m, ok := ms.Find(parts[0])
	if !ok {
		return nil, "", errNotFound
	}
	var rel string
	if len(parts) > 1 {
		rel = strings.Trim(parts[1], "/")
	}
	// Security: prevent path traversal
	if pathutil.Contains(filepath.FromSlash(rel), "..") {
		return nil, "", errForbidden
	}
	return m, rel, nil
}
