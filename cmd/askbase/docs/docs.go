// Package docscmder provides the docs command for managing knowledge base
// documents on a running askbase API server.
package docscmder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/askbase/pkg/apiclient"
	"github.com/papercomputeco/askbase/pkg/cliui"
	"github.com/papercomputeco/askbase/pkg/config"
)

type docsCommander struct {
	apiTarget string
	out       io.Writer
}

const docsLongDesc string = `Manage knowledge base documents.

Use subcommands to list or remove documents stored by a running askbase
API server. Use "askbase index" to add documents.

Examples:
  askbase docs list
  askbase docs rm employee-handbook-1718000000000`

const docsShortDesc string = "Manage knowledge base documents"

func NewDocsCmd() *cobra.Command {
	cmder := &docsCommander{}

	cmd := &cobra.Command{
		Use:   "docs",
		Short: docsShortDesc,
		Long:  docsLongDesc,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.ClientFlags, []string{config.FlagAPITarget})
			cmder.apiTarget = v.GetString(config.ClientFlags[config.FlagAPITarget].ViperKey)
			cmder.out = cmd.OutOrStdout()
			return nil
		},
	}

	def := config.ClientFlags[config.FlagAPITarget]
	cmd.PersistentFlags().StringVarP(&cmder.apiTarget, def.Name, def.Shorthand, config.NewDefaultConfig().Client.APITarget, def.Description)

	cmd.AddCommand(cmder.newListCmd())
	cmd.AddCommand(cmder.newRemoveCmd())

	return cmd
}

func (c *docsCommander) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored documents",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runList(cmd.Context())
		},
	}
}

func (c *docsCommander) newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id> [id...]",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove documents by ID",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRemove(cmd.Context(), args)
		},
	}
}

func (c *docsCommander) runList(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	resp, err := apiclient.New(c.apiTarget).ListDocuments(ctx)
	if err != nil {
		return err
	}

	if resp.Count == 0 {
		fmt.Fprintf(c.out, "\n  %s No documents indexed.\n\n", cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.HeaderStyle.Render(fmt.Sprintf("%d documents", resp.Count)))
	for _, doc := range resp.Documents {
		fmt.Fprintf(c.out, "  %s  %s\n", cliui.NameStyle.Render(doc.Title), cliui.DimStyle.Render(doc.ID))

		details := []string{doc.Category}
		if len(doc.Tags) > 0 {
			details = append(details, strings.Join(doc.Tags, ", "))
		}
		if doc.UploadedAt != "" {
			details = append(details, doc.UploadedAt)
		}
		fmt.Fprintf(c.out, "     %s\n", cliui.StepStyle.Render(strings.Join(details, " · ")))
	}
	fmt.Fprintln(c.out)

	return nil
}

func (c *docsCommander) runRemove(ctx context.Context, ids []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	client := apiclient.New(c.apiTarget)

	var failed int
	for _, id := range ids {
		err := client.DeleteDocument(ctx, id)
		fmt.Fprintf(c.out, "  %s %s\n", cliui.Mark(err), id)
		if err != nil {
			failed++
			fmt.Fprintf(c.out, "    %s\n", cliui.DimStyle.Render(err.Error()))
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to remove %d of %d documents", failed, len(ids))
	}
	return nil
}
