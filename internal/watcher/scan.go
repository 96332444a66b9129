package watcher

import (
	"time"

	"github.com/vistta-org/fs/internal/fs"
)

// scan walks the tree under the root, subscribes to files that are not yet
// tracked and releases tracked files that are gone.
func (s *Session) scan() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	start := time.Now()
	released := 0
	for path := range s.takeStale() {
		if s.registry.remove(path) {
			released++
		}
	}
	seen := make(map[string]struct{})
	added := s.visit(s.root, seen)
	pruned := s.registry.prune(seen)

	s.metrics.track(added)
	s.metrics.untrack(released + len(pruned))
	s.metrics.observeScan(time.Since(start))
	if added > 0 || released > 0 || len(pruned) > 0 {
		s.logger.Debug("scan complete",
			"root", s.root,
			"tracked", s.registry.len(),
			"added", added,
			"resubscribed", released,
			"pruned", len(pruned),
			"duration", time.Since(start))
	}
	return nil
}

// visit handles one candidate path and returns how many new subscriptions
// it created. Symbolic links below the root are skipped whatever they point
// at, which also keeps link cycles from recursing forever. The root itself
// is followed.
func (s *Session) visit(path string, seen map[string]struct{}) int {
	if s.exclude != nil && s.exclude.MatchString(path) {
		return 0
	}

	info, err := s.storage.Stat(path)
	if err != nil {
		s.logger.Debug("skipping unwatchable path", "path", path, "error", err)
		return 0
	}

	switch {
	case info.IsDir:
		entries, err := s.storage.ReadDir(path)
		if err != nil {
			s.logger.Debug("skipping unreadable directory", "path", path, "error", err)
			return 0
		}
		added := 0
		for _, entry := range entries {
			if entry.Symlink {
				continue
			}
			added += s.visit(s.resolver.Child(path, entry.Name), seen)
		}
		return added
	case info.IsRegular():
		seen[path] = struct{}{}
		if s.track(path) {
			return 1
		}
	}
	return 0
}

// track subscribes to path unless it is already tracked.
func (s *Session) track(path string) bool {
	if s.registry.has(path) {
		return false
	}
	sub, err := s.storage.Subscribe(path, func(c fs.Change) {
		if c.Removed() {
			s.markStale(path)
		}
		s.deliver(path)
	})
	if err != nil {
		s.logger.Debug("subscribe failed", "path", path, "error", err)
		return false
	}
	s.registry.add(path, sub)
	return true
}
