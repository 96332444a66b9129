package fs

import (
	"os"
	"path/filepath"
)

// LocalFS implements Storage using the local filesystem.
type LocalFS struct {
	root       string
	subscriber Subscriber
}

// LocalOption configures a LocalFS.
type LocalOption func(*LocalFS)

// WithSubscriber sets how LocalFS subscribes to changes. The default is a
// PollSubscriber with DefaultPollInterval.
func WithSubscriber(s Subscriber) LocalOption {
	return func(l *LocalFS) {
		l.subscriber = s
	}
}

// NewLocalFS creates a LocalFS rooted at the given directory. Relative paths
// are resolved against root; absolute paths are used as they are. An empty
// root means the process working directory.
func NewLocalFS(root string, opts ...LocalOption) *LocalFS {
	l := &LocalFS{root: root}
	for _, opt := range opts {
		opt(l)
	}
	if l.subscriber == nil {
		l.subscriber = NewPollSubscriber(DefaultPollInterval)
	}
	return l
}

func (l *LocalFS) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if path == "" || path == "." {
		if l.root == "" {
			return "."
		}
		return l.root
	}
	return filepath.Join(l.root, path)
}

// ReadFile reads the contents of the file at the given path.
func (l *LocalFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(l.abs(path))
}

// Stat returns metadata for the file or directory at the given path.
func (l *LocalFS) Stat(path string) (FileInfo, error) {
	info, err := os.Stat(l.abs(path))
	if err != nil {
		return FileInfo{}, err
	}
	return infoFromOS(info), nil
}

// ReadDir lists the immediate children of the directory at the given path.
func (l *LocalFS) ReadDir(path string) ([]DirEntry, error) {
	entries, err := os.ReadDir(l.abs(path))
	if err != nil {
		return nil, err
	}
	result := make([]DirEntry, len(entries))
	for i, e := range entries {
		result[i] = DirEntry{
			Name:    e.Name(),
			IsDir:   e.IsDir(),
			Symlink: e.Type()&os.ModeSymlink != 0,
		}
	}
	return result, nil
}

// Subscribe registers fn for changes to the file at path. Notifications carry
// the path exactly as given here.
func (l *LocalFS) Subscribe(path string, fn ChangeFunc) (Subscription, error) {
	sub, err := l.subscriber.Subscribe(l.abs(path), func(c Change) {
		c.Path = path
		fn(c)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Close releases the subscriber if it holds resources of its own.
func (l *LocalFS) Close() error {
	if closer, ok := l.subscriber.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
