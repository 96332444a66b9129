// Package fs is a filesystem access facade. It offers existence and type
// checks, stable file ids, cross-device moves and path helpers, plus a
// recursive, filtered and throttled change stream over a directory tree.
package fs

import (
	"context"
	"time"

	ifs "github.com/vistta-org/fs/internal/fs"
	"github.com/vistta-org/fs/internal/pathutil"
	"github.com/vistta-org/fs/internal/watcher"
)

type (
	// Session is a live watch over a root path.
	Session = watcher.Session
	// WatchOptions controls a watch session.
	WatchOptions = watcher.Options
	// Metrics holds the Prometheus collectors shared by watch sessions.
	Metrics = watcher.Metrics
	// Storage is a file system that can report per-path changes.
	Storage = ifs.Storage
	// FileInfo holds file metadata.
	FileInfo = ifs.FileInfo
)

// ErrClosed is returned by Session.Next once the session has been closed.
var ErrClosed = watcher.ErrClosed

// DefaultPollInterval is the stat polling interval used by Watch.
const DefaultPollInterval = ifs.DefaultPollInterval

// Watch watches every regular file under root on the host file system,
// polling each one every DefaultPollInterval. It never fails: a root that
// does not exist yields no changes until it appears.
func Watch(ctx context.Context, root string, opts WatchOptions) *Session {
	return WatchEvery(ctx, root, DefaultPollInterval, opts)
}

// WatchEvery is Watch with a custom poll interval.
func WatchEvery(ctx context.Context, root string, interval time.Duration, opts WatchOptions) *Session {
	storage := ifs.NewLocalFS("", ifs.WithSubscriber(ifs.NewPollSubscriber(interval)))
	return WatchStorage(ctx, storage, root, opts)
}

// WatchStorage watches root inside an arbitrary storage. Host paths are
// assumed; storages keyed by slash-separated relative paths, such as git
// refs, should use the watcher package directly with a matching resolver.
func WatchStorage(ctx context.Context, storage Storage, root string, opts WatchOptions) *Session {
	return watcher.New(storage, pathutil.Native{}).Watch(ctx, root, opts)
}

// Exists reports whether path can be stated.
func Exists(path string) bool { return ifs.Exists(path) }

// IsFile reports whether path is a regular file. Links are not followed.
func IsFile(path string) bool { return ifs.IsFile(path) }

// IsDirectory reports whether path is a directory. Links are not followed.
func IsDirectory(path string) bool { return ifs.IsDirectory(path) }

// EnsureDir creates path and any missing parents unless something already
// exists there.
func EnsureDir(path string) error { return ifs.EnsureDir(path) }

// FileID returns a stable identifier built from the inode and device
// numbers of path, or "" when path does not exist.
func FileID(path string) (string, error) { return ifs.FileID(path) }

// Move renames source to destination, copying across devices when needed.
func Move(source, destination string) error { return ifs.Move(source, destination) }

// Resolve returns the absolute, cleaned form of path.
func Resolve(path string) string { return pathutil.Native{}.Resolve(path) }

// Basename returns the last element of path without suffix.
func Basename(path, suffix string) string { return pathutil.Basename(path, suffix) }

// Dirname returns the directory of path. File URLs are accepted.
func Dirname(path string) string { return pathutil.Dirname(path) }

// Extname returns the extension of path including the dot.
func Extname(path string) string { return pathutil.Extname(path) }

// IsAbsolute reports whether path is absolute.
func IsAbsolute(path string) bool { return pathutil.IsAbsolute(path) }

// Filename converts a file:// URL to a host path.
func Filename(url string) (string, error) { return pathutil.Filename(url) }

// Contains reports whether segment is one of the elements of path.
func Contains(path, segment string) bool { return pathutil.Contains(path, segment) }
