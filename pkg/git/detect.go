// Package git provides utilities for detecting git repository information.
package git

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const detectTimeout = 5 * time.Second

// Root returns the top level of the git work tree containing dir, or "" if
// dir is not inside one or git is unavailable.
func Root(ctx context.Context, dir string) string {
	ctx, cancel := context.WithTimeout(ctx, detectTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// SourceNamer names files after their repository so document sources stay
// stable across checkouts. Roots are cached per directory.
type SourceNamer struct {
	mu    sync.Mutex
	roots map[string]string
}

func NewSourceNamer() *SourceNamer {
	return &SourceNamer{roots: map[string]string{}}
}

// Name returns path as "<repo>/<path within repo>" when it lives in a git
// work tree, and path unchanged otherwise.
func (n *SourceNamer) Name(ctx context.Context, path string) string {
	dir := filepath.Dir(path)

	n.mu.Lock()
	root, ok := n.roots[dir]
	n.mu.Unlock()

	if !ok {
		root = Root(ctx, dir)
		n.mu.Lock()
		n.roots[dir] = root
		n.mu.Unlock()
	}
	if root == "" {
		return path
	}

	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.Base(root) + "/" + filepath.ToSlash(rel)
}
