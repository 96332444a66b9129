package fs

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charlievieth/fastwalk"
	"github.com/pkg/errors"
)

// Exists reports whether path can be stated.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsFile reports whether path is a regular file. Symbolic links are not
// followed, so a link is never a file.
func IsFile(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode().IsRegular()
}

// IsDirectory reports whether path is a directory. Symbolic links are not
// followed, so a link is never a directory.
func IsDirectory(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.IsDir()
}

// EnsureDir creates path and any missing parents. Nothing is done when
// something already exists at path, whatever its type.
func EnsureDir(path string) error {
	if Exists(path) {
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return errors.Wrapf(err, "unable to create directory %s", path)
	}
	return nil
}

// FileID returns a stable identifier for the file at path built from its
// inode and device numbers. It returns "" when path does not exist.
func FileID(path string) (string, error) {
	if !Exists(path) {
		return "", nil
	}
	id, err := fileID(path)
	if err != nil {
		return "", errors.Wrapf(err, "unable to identify %s", path)
	}
	return id, nil
}

// Move renames source to destination. When they live on different devices
// the tree is copied and the source removed afterwards.
func Move(source, destination string) error {
	err := os.Rename(source, destination)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return errors.Wrap(err, "unable to rename")
	}
	if err := copyTree(source, destination); err != nil {
		return errors.Wrap(err, "unable to copy across devices")
	}
	if err := os.RemoveAll(source); err != nil {
		return errors.Wrap(err, "unable to remove source after copy")
	}
	return nil
}

func copyTree(source, destination string) error {
	info, err := os.Lstat(source)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyEntry(source, destination, info)
	}

	conf := fastwalk.Config{Follow: false}
	return fastwalk.Walk(&conf, source, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(source, p)
		if err != nil {
			return err
		}
		target := filepath.Join(destination, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}
		// fastwalk visits entries concurrently, so the parent may not exist yet.
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return copyEntry(p, target, info)
	})
}

func copyEntry(source, destination string, info fs.FileInfo) error {
	if info.Mode()&fs.ModeSymlink != 0 {
		link, err := os.Readlink(source)
		if err != nil {
			return err
		}
		return os.Symlink(link, destination)
	}

	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(destination, info.ModTime(), info.ModTime())
}
