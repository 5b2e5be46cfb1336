package indexcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/schollz/progressbar/v3"

	"github.com/papercomputeco/askbase/api"
	"github.com/papercomputeco/askbase/pkg/apiclient"
	"github.com/papercomputeco/askbase/pkg/cliui"
	"github.com/papercomputeco/askbase/pkg/ingest"
)

// defaultDebounce coalesces the bursts of events editors emit on save.
const defaultDebounce = 300 * time.Millisecond

// indexer uploads files to the API server and keeps track of the document
// ID each file was stored under so edits replace the previous version.
type indexer struct {
	client   *apiclient.Client
	opts     uploadOptions
	include  string
	excludes []string
	out      io.Writer
	progress io.Writer
	debounce time.Duration

	ids map[string]string
}

func newIndexer(client *apiclient.Client, opts uploadOptions, include string, excludes []string, out, progress io.Writer) *indexer {
	return &indexer{
		client:   client,
		opts:     opts,
		include:  include,
		excludes: excludes,
		out:      out,
		progress: progress,
		debounce: defaultDebounce,
		ids:      map[string]string{},
	}
}

type failure struct {
	path   string
	reason string
}

// indexAll uploads files in bulk batches. Per-file failures are reported
// and counted; a transport failure aborts the run.
func (ix *indexer) indexAll(ctx context.Context, files []string) (int, int, error) {
	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(ix.progress),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(ix.progress)
		}),
	)

	var (
		indexed  int
		failures []failure
		paths    []string
		uploads  []ingest.Upload
	)

	flush := func() error {
		if len(uploads) == 0 {
			return nil
		}
		resp, err := ix.client.UploadBulk(ctx, uploads)
		if err != nil {
			return err
		}
		for i, res := range resp.Results {
			if i >= len(paths) {
				break
			}
			if res.Success {
				ix.ids[paths[i]] = res.DocumentID
				indexed++
			} else {
				failures = append(failures, failure{path: paths[i], reason: res.Error})
			}
		}
		_ = bar.Add(len(uploads))
		paths, uploads = paths[:0], uploads[:0]
		return nil
	}

	for _, path := range files {
		u, err := loadUpload(ctx, path, ix.opts)
		if err != nil {
			failures = append(failures, failure{path: path, reason: err.Error()})
			_ = bar.Add(1)
			continue
		}
		paths = append(paths, path)
		uploads = append(uploads, u)

		if len(uploads) == api.MaxBulkDocuments {
			if err := flush(); err != nil {
				return indexed, len(failures), err
			}
		}
	}
	if err := flush(); err != nil {
		return indexed, len(failures), err
	}
	_ = bar.Finish()

	for _, f := range failures {
		fmt.Fprintf(ix.out, "  %s %s\n    %s\n", cliui.FailMark, f.path, cliui.DimStyle.Render(f.reason))
	}

	return indexed, len(failures), nil
}

// sync brings the server in line with the file at path: a present file is
// (re)uploaded, a missing one is removed.
func (ix *indexer) sync(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ix.remove(ctx, path)
		}
		return err
	}
	return ix.reindex(ctx, path)
}

func (ix *indexer) reindex(ctx context.Context, path string) error {
	u, err := loadUpload(ctx, path, ix.opts)
	if err != nil {
		return err
	}

	if err := ix.remove(ctx, path); err != nil {
		return err
	}

	resp, err := ix.client.Upload(ctx, u)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}
	ix.ids[path] = resp.DocumentID

	fmt.Fprintf(ix.out, "  %s indexed %s %s\n", cliui.SuccessMark, path, cliui.DimStyle.Render(resp.DocumentID))
	return nil
}

func (ix *indexer) remove(ctx context.Context, path string) error {
	id, ok := ix.ids[path]
	if !ok {
		return nil
	}

	if err := ix.client.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("removing %s: %w", id, err)
	}
	delete(ix.ids, path)

	fmt.Fprintf(ix.out, "  %s removed %s %s\n", cliui.SuccessMark, path, cliui.DimStyle.Render(id))
	return nil
}

// watchable reports whether a file event at path concerns the index.
func (ix *indexer) watchable(path string) bool {
	if _, tracked := ix.ids[path]; tracked {
		return true
	}
	if excluded(ix.excludes, filepath.ToSlash(path)) {
		return false
	}
	ok, _ := doublestar.Match(ix.include, filepath.Base(path))
	return ok
}

// watch re-indexes files under dirs as they change until ctx is done.
func (ix *indexer) watch(ctx context.Context, dirs []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			return watcher.Add(path)
		})
		if err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	ticker := time.NewTicker(ix.debounce)
	defer ticker.Stop()

	pending := map[string]struct{}{}
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			path, err := filepath.Abs(event.Name)
			if err != nil || !ix.watchable(path) {
				continue
			}
			pending[path] = struct{}{}

		case <-ticker.C:
			for path := range pending {
				if err := ix.sync(ctx, path); err != nil {
					fmt.Fprintf(ix.out, "  %s %s\n    %s\n", cliui.FailMark, path, cliui.DimStyle.Render(err.Error()))
				}
			}
			clear(pending)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("file watcher error: %w", err)
		}
	}
}
