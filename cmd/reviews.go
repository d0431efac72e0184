package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carryon-app/carryon/pkg/output"
)

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "Review commands",
}

var reviewsListCmd = &cobra.Command{
	Use:   "list [user-id]",
	Short: "List reviews about a user (default: you)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, e *env) error {
			var userID string
			if len(args) == 1 {
				userID = args[0]
			} else {
				tokens, err := e.session.Load(ctx)
				if err != nil {
					return err
				}
				userID = tokens.Subject()
			}

			reviews, err := e.client.Reviews.ListForUser(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to list reviews: %w", err)
			}
			return output.Render(e.format, reviews, func() *output.Table {
				t := output.NewTable("RATING", "AUTHOR", "DATE", "COMMENT")
				for _, r := range reviews {
					author := ""
					if r.Author != nil {
						author = r.Author.Name()
					}
					t.AddRow(strings.Repeat("*", r.Rating), author, r.CreatedAt.Local().Format("2006-01-02"), r.Comment)
				}
				return t
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(reviewsCmd)
	reviewsCmd.AddCommand(reviewsListCmd)
}
