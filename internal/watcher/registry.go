package watcher

import (
	"sort"

	"github.com/vistta-org/fs/internal/fs"
)

// registry tracks the live subscription of every watched path. It is not
// safe for concurrent use; the owning session serializes access.
type registry struct {
	subs map[string]fs.Subscription
}

func newRegistry() *registry {
	return &registry{subs: make(map[string]fs.Subscription)}
}

func (r *registry) has(path string) bool {
	_, ok := r.subs[path]
	return ok
}

func (r *registry) add(path string, sub fs.Subscription) {
	r.subs[path] = sub
}

// remove closes and forgets the subscription for path. It reports whether
// path was tracked.
func (r *registry) remove(path string) bool {
	sub, ok := r.subs[path]
	if !ok {
		return false
	}
	_ = sub.Close()
	delete(r.subs, path)
	return true
}

func (r *registry) len() int {
	return len(r.subs)
}

// prune closes and forgets every path not present in seen. It returns the
// pruned paths.
func (r *registry) prune(seen map[string]struct{}) []string {
	var pruned []string
	for path, sub := range r.subs {
		if _, ok := seen[path]; ok {
			continue
		}
		_ = sub.Close()
		delete(r.subs, path)
		pruned = append(pruned, path)
	}
	return pruned
}

// closeAll closes every subscription and empties the registry. It returns
// the first close error.
func (r *registry) closeAll() error {
	var firstErr error
	for path, sub := range r.subs {
		if err := sub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.subs, path)
	}
	return firstErr
}

func (r *registry) paths() []string {
	paths := make([]string, 0, len(r.subs))
	for path := range r.subs {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
