// Package askbasecmder
package askbasecmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/askbase/cmd/askbase/ask"
	authcmder "github.com/papercomputeco/askbase/cmd/askbase/auth"
	configcmder "github.com/papercomputeco/askbase/cmd/askbase/config"
	docscmder "github.com/papercomputeco/askbase/cmd/askbase/docs"
	feedbackcmder "github.com/papercomputeco/askbase/cmd/askbase/feedback"
	indexcmder "github.com/papercomputeco/askbase/cmd/askbase/index"
	initcmder "github.com/papercomputeco/askbase/cmd/askbase/init"
	servecmder "github.com/papercomputeco/askbase/cmd/askbase/serve"
	versioncmder "github.com/papercomputeco/askbase/cmd/askbase/version"
)

const askbaseLongDesc string = `askbase answers questions from your own documents.

Documents are chunked, embedded and stored in a vector store. Questions are
answered by an LLM using only the most relevant passages, with sources and
a confidence score.

Get started:
  askbase init                 Create a .askbase/ config directory
  askbase serve                Run the API server
  askbase index ./handbook     Add documents to the knowledge base
  askbase ask "How many vacation days do I get?"`

const askbaseShortDesc string = "askbase - Question answering over your documents"

func NewAskbaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "askbase",
		Short:        askbaseShortDesc,
		Long:         askbaseLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .askbase/ config directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(indexcmder.NewIndexCmd())
	cmd.AddCommand(docscmder.NewDocsCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(feedbackcmder.NewFeedbackCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
