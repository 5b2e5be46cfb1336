// Package askcmder provides the ask command for asking the knowledge base
// questions through a running askbase API server.
package askcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/askbase/api"
	"github.com/papercomputeco/askbase/pkg/apiclient"
	"github.com/papercomputeco/askbase/pkg/cliui"
	"github.com/papercomputeco/askbase/pkg/config"
	"github.com/papercomputeco/askbase/pkg/dotdir"
)

var (
	rankStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	idStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
)

type askCommander struct {
	questions []string
	jsonOut   bool
	raw       bool

	apiTarget string
	configDir string
	out       io.Writer
}

const askLongDesc string = `Ask the knowledge base a question.

The question is answered by a running askbase API server using the documents
it has indexed. The answer is printed with its confidence and the sources it
was grounded on. The most recent answer is remembered so it can be rated with
"askbase feedback".

Passing several questions sends them as one batch request.

Examples:
  askbase ask "How many vacation days do employees get?"
  askbase ask "What is the expense limit?" --json
  askbase ask "Who approves travel?" "What is the per diem?"
  askbase ask "How do I reset my password?" --api-target http://kb.internal:8081`

const askShortDesc string = "Ask the knowledge base a question"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question> [question...]",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.ClientFlags, []string{config.FlagAPITarget})
			cmder.apiTarget = v.GetString(config.ClientFlags[config.FlagAPITarget].ViperKey)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.questions = args
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the raw JSON response")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the answer without markdown rendering")
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &cmder.apiTarget)

	return cmd
}

func (c *askCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client := apiclient.New(c.apiTarget)

	var answers []api.QueryResponse
	ask := func() error {
		if len(c.questions) == 1 {
			resp, err := client.Ask(ctx, c.questions[0])
			if err != nil {
				return err
			}
			answers = []api.QueryResponse{*resp}
			return nil
		}

		resp, err := client.AskBatch(ctx, c.questions)
		if err != nil {
			return err
		}
		answers = resp.Results
		return nil
	}

	var err error
	if c.jsonOut {
		err = ask()
	} else {
		err = cliui.Step(c.out, askStepMessage(len(c.questions)), ask)
	}
	if err != nil {
		return err
	}

	if c.jsonOut {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		if len(answers) == 1 {
			return enc.Encode(answers[0])
		}
		return enc.Encode(answers)
	}

	for i, answer := range answers {
		if len(answers) > 1 {
			fmt.Fprintf(c.out, "\n%s\n", questionStyle.Render(fmt.Sprintf("Q%d: %s", i+1, c.questions[i])))
		}
		c.printAnswer(answer)
	}

	// Remember the last answer for "askbase feedback".
	last := answers[len(answers)-1]
	if last.QuestionID != "" {
		err := dotdir.NewManager().SaveLastAnswer(&dotdir.LastAnswer{
			QuestionID: last.QuestionID,
			Question:   c.questions[len(c.questions)-1],
			Confidence: last.Confidence,
			AnsweredAt: time.Now().UTC(),
		}, c.configDir)
		if err != nil {
			fmt.Fprintf(c.out, "  %s could not remember this answer: %v\n", cliui.WarnStyle.Render("!"), err)
		}
	}

	return nil
}

func askStepMessage(n int) string {
	if n == 1 {
		return "Asking the knowledge base"
	}
	return fmt.Sprintf("Asking the knowledge base %d questions", n)
}

func (c *askCommander) printAnswer(answer api.QueryResponse) {
	text := answer.Answer
	if !c.raw {
		if rendered, err := cliui.RenderMarkdown(text); err == nil {
			text = rendered
		}
	} else {
		text = "\n" + text + "\n"
	}
	fmt.Fprint(c.out, text)

	fmt.Fprintf(c.out, "  %s %s  %s\n",
		cliui.KeyStyle.Render("Confidence:"),
		cliui.RenderConfidence(answer.Confidence),
		cliui.DimStyle.Render(cliui.FormatDuration(time.Duration(answer.ProcessingTimeMs)*time.Millisecond)),
	)

	if len(answer.Sources) > 0 {
		fmt.Fprintf(c.out, "\n  %s\n", cliui.HeaderStyle.Render("Sources"))
		for i, src := range answer.Sources {
			fmt.Fprintf(c.out, "  %s  %s  %s  %s\n",
				rankStyle.Render(fmt.Sprintf("[%d]", i+1)),
				titleStyle.Render(src.Title),
				scoreStyle.Render(fmt.Sprintf("score: %.2f", src.RelevanceScore)),
				idStyle.Render(src.ID),
			)
		}
	}

	if answer.QuestionID != "" {
		fmt.Fprintf(c.out, "\n  %s\n", cliui.DimStyle.Render(
			fmt.Sprintf("question %s · rate it with: askbase feedback --rating <1-5>", answer.QuestionID)))
	}
	fmt.Fprintln(c.out)
}
