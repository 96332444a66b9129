package fs

import (
	"io/fs"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// GitFS implements Storage by reading from a git ref (branch, tag, or
// commit). Paths are slash-separated and relative to the repository root.
// Subscriptions report a change whenever the object a path resolves to under
// the ref changes, for example after a commit moves the branch.
type GitFS struct {
	repoPath string
	ref      string
	interval time.Duration
}

// NewGitFS creates a GitFS that reads files from the given ref in the
// repository at repoPath. Subscriptions re-resolve the ref every interval;
// non-positive values use DefaultPollInterval.
func NewGitFS(repoPath, ref string, interval time.Duration) *GitFS {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &GitFS{repoPath: repoPath, ref: ref, interval: interval}
}

func (g *GitFS) git(args ...string) (string, error) {
	cmd := exec.Command("git", append([]string{"-C", g.repoPath}, args...)...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", errors.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", errors.Wrap(err, "unable to run git")
	}
	return string(out), nil
}

func objectPath(path string) string {
	path = strings.Trim(path, "/")
	if path == "." {
		return ""
	}
	return path
}

// ReadFile reads the contents of the file at the given path from the git ref.
func (g *GitFS) ReadFile(path string) ([]byte, error) {
	objPath := objectPath(path)
	if objPath == "" {
		return nil, errors.New("cannot read directory as file")
	}
	out, err := g.git("show", g.ref+":"+objPath)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "does not exist") || strings.Contains(msg, "not exist") {
			return nil, os.ErrNotExist
		}
		return nil, err
	}
	return []byte(out), nil
}

// Stat returns metadata for the file or directory at the given path in the git ref.
func (g *GitFS) Stat(path string) (FileInfo, error) {
	objPath := objectPath(path)

	// For root, check if the ref exists at all
	if objPath == "" {
		if _, err := g.git("rev-parse", "--verify", g.ref); err != nil {
			return FileInfo{}, os.ErrNotExist
		}
		return FileInfo{
			Name:    g.ref,
			IsDir:   true,
			Mode:    fs.ModeDir | 0o755,
			ModTime: g.getModTime(""),
		}, nil
	}

	out, err := g.git("ls-tree", g.ref, objPath)
	if err != nil {
		return FileInfo{}, os.ErrNotExist
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return FileInfo{}, os.ErrNotExist
	}

	// Format: "<mode> <type> <hash>\t<name>"
	fields := strings.Fields(out)
	if len(fields) < 4 {
		return FileInfo{}, os.ErrNotExist
	}
	mode := parseGitMode(fields[0])

	info := FileInfo{
		Name:    baseName(objPath),
		IsDir:   fields[1] == "tree",
		Mode:    mode,
		ModTime: g.getModTime(objPath),
	}
	if fields[1] == "blob" {
		if sizeOut, err := g.git("cat-file", "-s", g.ref+":"+objPath); err == nil {
			info.Size, _ = strconv.ParseInt(strings.TrimSpace(sizeOut), 10, 64)
		}
	}
	return info, nil
}

// ReadDir lists the immediate children of the directory at the given path in the git ref.
func (g *GitFS) ReadDir(path string) ([]DirEntry, error) {
	objPath := objectPath(path)

	// git ls-tree <ref> [<path>/] lists immediate children
	var out string
	var err error
	if objPath == "" {
		out, err = g.git("ls-tree", g.ref)
	} else {
		out, err = g.git("ls-tree", g.ref, objPath+"/")
	}
	if err != nil {
		return nil, os.ErrNotExist
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return []DirEntry{}, nil
	}

	var entries []DirEntry
	for _, line := range strings.Split(out, "\n") {
		tabIdx := strings.IndexByte(line, '\t')
		if tabIdx < 0 {
			continue
		}
		fields := strings.Fields(line[:tabIdx])
		if len(fields) < 3 {
			continue
		}
		entries = append(entries, DirEntry{
			Name:    baseName(line[tabIdx+1:]),
			IsDir:   fields[1] == "tree",
			Symlink: parseGitMode(fields[0])&fs.ModeSymlink != 0,
		})
	}
	return entries, nil
}

// objectID resolves path under the ref to an object id, or "" if it does
// not exist there.
func (g *GitFS) objectID(path string) string {
	spec := g.ref
	if objPath := objectPath(path); objPath != "" {
		spec += ":" + objPath
	}
	out, err := g.git("rev-parse", "--verify", "--quiet", spec)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// Subscribe polls the object id of path under the ref.
func (g *GitFS) Subscribe(path string, fn ChangeFunc) (Subscription, error) {
	if fn == nil {
		return nil, errors.New("callback is required")
	}
	sub := &gitSubscription{
		owner: g,
		path:  path,
		fn:    fn,
		oid:   g.objectID(path),
		done:  make(chan struct{}),
	}
	sub.last, _ = g.Stat(path)
	go sub.run()
	return sub, nil
}

type gitSubscription struct {
	owner *GitFS
	path  string
	fn    ChangeFunc
	oid   string
	last  FileInfo
	done  chan struct{}
	once  sync.Once
}

func (s *gitSubscription) run() {
	ticker := time.NewTicker(s.owner.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			oid := s.owner.objectID(s.path)
			if oid == s.oid {
				continue
			}
			s.oid = oid
			current, _ := s.owner.Stat(s.path)
			previous := s.last
			s.last = current
			select {
			case <-s.done:
				return
			default:
			}
			s.fn(Change{Path: s.path, Current: current, Previous: previous})
		case <-s.done:
			return
		}
	}
}

func (s *gitSubscription) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (g *GitFS) getModTime(path string) time.Time {
	args := []string{"log", "-1", "--format=%ct", g.ref}
	if path != "" {
		args = append(args, "--", path)
	}
	out, err := g.git(args...)
	if err != nil {
		return time.Time{}
	}
	ts := strings.TrimSpace(out)
	if ts == "" {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// parseGitMode maps a tree entry mode to a FileMode.
func parseGitMode(s string) fs.FileMode {
	mode, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return fs.ModeIrregular
	}
	switch mode & 0o170000 {
	case 0o040000:
		return fs.ModeDir | 0o755
	case 0o120000:
		return fs.ModeSymlink | 0o777
	case 0o160000:
		// submodule commit
		return fs.ModeIrregular
	}
	return fs.FileMode(mode & 0o777)
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
