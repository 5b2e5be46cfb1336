// Package feedbackcmder provides the feedback command for rating answers.
package feedbackcmder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/askbase/api"
	"github.com/papercomputeco/askbase/pkg/apiclient"
	"github.com/papercomputeco/askbase/pkg/cliui"
	"github.com/papercomputeco/askbase/pkg/config"
	"github.com/papercomputeco/askbase/pkg/dotdir"
)

// helpfulRating is the lowest rating assumed helpful when --helpful is not given.
const helpfulRating = 3

type feedbackCommander struct {
	questionID string
	rating     int
	comment    string
	helpful    bool

	helpfulSet bool
	apiTarget  string
	configDir  string
	out        io.Writer
}

const feedbackLongDesc string = `Rate an answer from the knowledge base.

Ratings run from 1 (poor) to 5 (excellent). Without --question-id the most
recent answer from "askbase ask" is rated. Without --helpful, ratings of 3
and above count as helpful.

Examples:
  askbase feedback --rating 5
  askbase feedback --rating 2 --helpful=false --comment "cites the old policy"
  askbase feedback --question-id 3f1c... --rating 4`

const feedbackShortDesc string = "Rate an answer"

func NewFeedbackCmd() *cobra.Command {
	cmder := &feedbackCommander{}

	cmd := &cobra.Command{
		Use:   "feedback",
		Short: feedbackShortDesc,
		Long:  feedbackLongDesc,
		Args:  cobra.NoArgs,
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
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.helpfulSet = cmd.Flags().Changed("helpful")
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.questionID, "question-id", "q", "", "Question ID to rate (default: the last answer)")
	cmd.Flags().IntVarP(&cmder.rating, "rating", "r", 0, "Rating from 1 to 5")
	cmd.Flags().StringVarP(&cmder.comment, "comment", "c", "", "Optional comment (at most 500 characters)")
	cmd.Flags().BoolVar(&cmder.helpful, "helpful", false, "Whether the answer was helpful")
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &cmder.apiTarget)
	_ = cmd.MarkFlagRequired("rating")

	return cmd
}

func (c *feedbackCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if c.rating < 1 || c.rating > 5 {
		return errors.New("rating must be between 1 and 5")
	}

	questionID := c.questionID
	var last *dotdir.LastAnswer
	if questionID == "" {
		var err error
		last, err = dotdir.NewManager().LoadLastAnswer(c.configDir)
		if err != nil {
			return err
		}
		if last == nil {
			return errors.New("no answer to rate: ask a question first or pass --question-id")
		}
		questionID = last.QuestionID
	}

	helpful := c.helpful
	if !c.helpfulSet {
		helpful = c.rating >= helpfulRating
	}

	client := apiclient.New(c.apiTarget)
	_, err := client.Feedback(ctx, api.FeedbackRequest{
		QuestionID: questionID,
		Rating:     c.rating,
		Comment:    c.comment,
		Helpful:    &helpful,
	})
	if err != nil {
		return err
	}

	subject := questionID
	if last != nil && last.QuestionID == questionID {
		subject = fmt.Sprintf("%q", last.Question)
	}
	fmt.Fprintf(c.out, "\n  %s Rated %s %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(subject),
		cliui.DimStyle.Render(fmt.Sprintf("(%d/5, helpful: %t)", c.rating, helpful)),
	)

	return nil
}
