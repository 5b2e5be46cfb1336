// Package indexcmder provides the index command for adding files to the
// knowledge base of a running askbase API server.
package indexcmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/askbase/pkg/apiclient"
	"github.com/papercomputeco/askbase/pkg/cliui"
	"github.com/papercomputeco/askbase/pkg/config"
	"github.com/papercomputeco/askbase/pkg/git"
)

type indexCommander struct {
	paths    []string
	include  string
	excludes []string
	opts     uploadOptions
	watch    bool

	apiTarget string
}

const indexLongDesc string = `Index files into the knowledge base.

Arguments may be files, directories or glob patterns (doublestar syntax,
e.g. "docs/**/*.md"). Directories are searched with --include. Each file
becomes one document titled after its file name. Files inside a git
repository are sourced as <repo>/<path within repo>.

With --watch, askbase keeps running and re-indexes files as they are
created, edited or deleted.

Examples:
  askbase index ./handbook
  askbase index "policies/**/*.md" --category hr --tags policy,leave
  askbase index ./docs --exclude "drafts/**" --watch`

const indexShortDesc string = "Index files into the knowledge base"

func NewIndexCmd() *cobra.Command {
	cmder := &indexCommander{}

	cmd := &cobra.Command{
		Use:   "index <path|glob> [path|glob...]",
		Short: indexShortDesc,
		Long:  indexLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.ClientFlags, []string{config.FlagAPITarget})
			cmder.apiTarget = v.GetString(config.ClientFlags[config.FlagAPITarget].ViperKey)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.paths = args

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx, cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.include, "include", DefaultInclude, "Pattern selecting files inside directory arguments")
	cmd.Flags().StringSliceVar(&cmder.excludes, "exclude", nil, "Patterns of files to skip")
	cmd.Flags().StringVar(&cmder.opts.category, "category", "", "Category for every indexed document")
	cmd.Flags().StringSliceVar(&cmder.opts.tags, "tags", nil, "Tags for every indexed document")
	cmd.Flags().StringVar(&cmder.opts.author, "author", "", "Author for every indexed document")
	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Keep running and re-index files as they change")
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &cmder.apiTarget)

	return cmd
}

func (c *indexCommander) run(ctx context.Context, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	files, err := collectFiles(c.paths, c.include, c.excludes)
	if err != nil {
		return err
	}
	if len(files) == 0 && !c.watch {
		fmt.Fprintf(out, "  %s No files to index.\n", cliui.DimStyle.Render("●"))
		return nil
	}

	c.opts.sources = git.NewSourceNamer()
	ix := newIndexer(apiclient.New(c.apiTarget), c.opts, c.include, c.excludes, out, cmd.ErrOrStderr())

	indexed, failed, err := ix.indexAll(ctx, files)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Indexed %d of %d files\n\n", cliui.Mark(nil), indexed, len(files))

	if c.watch {
		dirs := watchDirs(c.paths, files)
		fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render(fmt.Sprintf("watching %d directories, press Ctrl+C to stop", len(dirs))))
		if err := ix.watch(ctx, dirs); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to index %d of %d files", failed, len(files))
	}
	return nil
}

// watchDirs returns the directory arguments plus the directory of every
// indexed file, without duplicates.
func watchDirs(args, files []string) []string {
	seen := map[string]bool{}
	var dirs []string

	add := func(dir string) {
		abs, err := filepath.Abs(dir)
		if err != nil || seen[abs] {
			return
		}
		seen[abs] = true
		dirs = append(dirs, abs)
	}

	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil && info.IsDir() {
			add(arg)
		}
	}
	for _, f := range files {
		add(filepath.Dir(f))
	}
	return dirs
}
