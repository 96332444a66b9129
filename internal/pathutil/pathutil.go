// Package pathutil holds the path helpers the facade exposes and the
// resolvers the watcher uses to turn directory entries into paths.
package pathutil

import (
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Resolver turns a watch root and directory entry names into the paths a
// storage understands.
type Resolver interface {
	Resolve(p string) string
	Child(parent, name string) string
}

// Native resolves host paths. Roots become absolute.
type Native struct{}

// Resolve returns the absolute, cleaned form of p.
func (Native) Resolve(p string) string {
	if p == "" {
		p = "."
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}

// Child joins name onto parent.
func (Native) Child(parent, name string) string {
	return filepath.Join(parent, name)
}

// Slash resolves slash-separated paths relative to a storage root, as used
// by git refs. The root itself is "".
type Slash struct{}

// Resolve cleans p and strips leading slashes.
func (Slash) Resolve(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(p)), "/")
	return p
}

// Child joins name onto parent.
func (Slash) Child(parent, name string) string {
	if parent == "" {
		return name
	}
	return path.Join(parent, name)
}

var schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)

// Basename returns the last element of p, with suffix removed when p ends
// in it.
func Basename(p, suffix string) string {
	base := filepath.Base(p)
	if suffix != "" && base != suffix && strings.HasSuffix(base, suffix) {
		base = strings.TrimSuffix(base, suffix)
	}
	return base
}

// Dirname returns the directory of p. File URLs are converted to paths
// first.
func Dirname(p string) string {
	if schemePattern.MatchString(p) {
		if converted, err := Filename(p); err == nil {
			p = converted
		}
	}
	return filepath.Dir(p)
}

// Extname returns the extension of p including the dot, or "". Leading
// dots of hidden files do not start an extension.
func Extname(p string) string {
	return filepath.Ext(strings.TrimLeft(filepath.Base(p), "."))
}

// IsAbsolute reports whether p is an absolute path.
func IsAbsolute(p string) bool {
	return filepath.IsAbs(p)
}

// Filename converts a file:// URL to a host path.
func Filename(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrap(err, "invalid file URL")
	}
	if u.Scheme != "file" {
		return "", errors.Errorf("URL scheme must be file, got %q", u.Scheme)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", errors.Errorf("file URL host must be empty or localhost, got %q", u.Host)
	}
	return filepath.FromSlash(u.Path), nil
}

// Contains reports whether segment is one of the separator-delimited
// elements of p.
func Contains(p, segment string) bool {
	for _, s := range strings.Split(p, string(filepath.Separator)) {
		if s == segment {
			return true
		}
	}
	return false
}
