// Package fs provides the storage capability used by the watcher: reading
// files and directories from local disk or a git ref, and subscribing to
// per-path change notifications.
package fs

import (
	"io/fs"
	"time"
)

// FileInfo holds file metadata.
type FileInfo struct {
	Name    string
	IsDir   bool
	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
}

// IsRegular reports whether the entry describes a regular file.
func (i FileInfo) IsRegular() bool {
	return i.Mode.IsRegular()
}

// DirEntry represents a single directory entry. Symlink is set when the
// entry itself is a symbolic link, whatever it points to.
type DirEntry struct {
	Name    string
	IsDir   bool
	Symlink bool
}

// FileSystem abstracts file operations so callers can work with either
// the local filesystem or a git object database.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (FileInfo, error)
	ReadDir(path string) ([]DirEntry, error)
}

// Change describes one low-level notification for a path. A zero FileInfo
// means the path did not exist at that moment.
type Change struct {
	Path     string
	Current  FileInfo
	Previous FileInfo
}

// Removed reports whether the path no longer existed when the change was
// observed.
func (c Change) Removed() bool {
	return c.Current == FileInfo{}
}

// ChangeFunc receives notifications for a subscribed path. Calls for the
// same subscription are never concurrent and arrive in the order the
// storage observed them.
type ChangeFunc func(Change)

// Subscription is a live registration against one path.
type Subscription interface {
	Close() error
}

// Subscriber registers change callbacks for individual paths.
type Subscriber interface {
	Subscribe(path string, fn ChangeFunc) (Subscription, error)
}

// Storage is a FileSystem that can also report changes.
type Storage interface {
	FileSystem
	Subscriber
}

// changed reports whether two observations of the same path differ.
func changed(previous, current FileInfo) bool {
	return previous.Size != current.Size ||
		previous.Mode != current.Mode ||
		previous.IsDir != current.IsDir ||
		!previous.ModTime.Equal(current.ModTime)
}

func infoFromOS(info fs.FileInfo) FileInfo {
	return FileInfo{
		Name:    info.Name(),
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		Mode:    info.Mode(),
		ModTime: info.ModTime(),
	}
}
