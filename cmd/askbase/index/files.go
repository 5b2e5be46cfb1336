package indexcmder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/papercomputeco/askbase/pkg/git"
	"github.com/papercomputeco/askbase/pkg/ingest"
)

// DefaultInclude selects text documents inside directory arguments.
const DefaultInclude = "**/*.{md,markdown,txt,rst}"

// collectFiles expands args into a sorted, de-duplicated list of files.
// Directories are searched with include, anything else that is not an
// existing file is treated as a glob. Paths whose absolute or argument
// relative form matches an exclude pattern are dropped.
func collectFiles(args []string, include string, excludes []string) ([]string, error) {
	seen := map[string]bool{}
	var files []string

	add := func(path, rel string) error {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if seen[abs] || excluded(excludes, filepath.ToSlash(abs), rel) {
			return nil
		}
		seen[abs] = true
		files = append(files, abs)
		return nil
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		switch {
		case err == nil && info.IsDir():
			matches, err := doublestar.Glob(os.DirFS(arg), include, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("searching %s: %w", arg, err)
			}
			for _, m := range matches {
				if err := add(filepath.Join(arg, filepath.FromSlash(m)), m); err != nil {
					return nil, err
				}
			}

		case err == nil:
			if err := add(arg, filepath.ToSlash(arg)); err != nil {
				return nil, err
			}

		default:
			matches, globErr := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
			if globErr != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", arg, globErr)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no files match %q", arg)
			}
			for _, m := range matches {
				if err := add(m, filepath.ToSlash(m)); err != nil {
					return nil, err
				}
			}
		}
	}

	slices.Sort(files)
	return files, nil
}

// excluded reports whether any of paths matches an exclude pattern.
func excluded(excludes []string, paths ...string) bool {
	for _, pattern := range excludes {
		for _, p := range paths {
			if ok, _ := doublestar.Match(pattern, p); ok {
				return true
			}
		}
	}
	return false
}

// uploadOptions are metadata applied to every indexed file.
type uploadOptions struct {
	category string
	tags     []string
	author   string

	// sources names the Source of each document. Nil keeps the file path.
	sources *git.SourceNamer
}

// loadUpload reads a file into an upload titled after its base name.
func loadUpload(ctx context.Context, path string, opts uploadOptions) (ingest.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ingest.Upload{}, fmt.Errorf("reading %s: %w", path, err)
	}

	base := filepath.Base(path)
	title := strings.TrimSuffix(base, filepath.Ext(base))

	source := path
	if opts.sources != nil {
		source = opts.sources.Name(ctx, path)
	}

	return ingest.Upload{
		Title:    title,
		Content:  string(data),
		Category: opts.category,
		Tags:     opts.tags,
		Author:   opts.author,
		Source:   source,
	}, nil
}
