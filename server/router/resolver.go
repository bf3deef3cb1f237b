package router

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound covers both missing files and paths escaping the root;
// callers can't tell them apart, and neither can a client
var ErrNotFound = errors.New("not found")

// Resolver maps request uris to canonical paths under a root directory
type Resolver struct {
	root   string // canonical, no trailing separator unless "/"
	prefix string // root with trailing separator
}

func NewResolver(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("root %q: %w", root, err)
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("root %q: %w", root, err)
	}
	info, err := os.Stat(canon)
	if err != nil {
		return nil, fmt.Errorf("root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %q: not a directory", root)
	}

	prefix := canon
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return &Resolver{root: canon, prefix: prefix}, nil
}

// Root returns the canonical root directory
func (rs *Resolver) Root() string { return rs.root }

// Resolve joins root and uri, resolves '.', '..' and symlinks, and checks the
// result is still inside root
func (rs *Resolver) Resolve(uri string) (string, error) {
	p, err := url.PathUnescape(uri)
	if err != nil {
		return "", ErrNotFound
	}

	canon, err := filepath.EvalSymlinks(rs.root + p)
	if err != nil {
		return "", ErrNotFound
	}
	if canon, err = filepath.Abs(canon); err != nil {
		return "", ErrNotFound
	}

	if canon != rs.root && !strings.HasPrefix(canon, rs.prefix) {
		return "", ErrNotFound
	}
	return canon, nil
}
