package commands

import (
	"fmt"

	"github.com/tildaslashalef/revline/internal/app"
	"github.com/tildaslashalef/revline/internal/utils"
	"github.com/urfave/cli/v2"
)

// ReviewsCommand returns the CLI command for browsing stored reviews
func ReviewsCommand() *cli.Command {
	return &cli.Command{
		Name:  "reviews",
		Usage: "Browse stored reviews",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent reviews",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of reviews to show",
						Value: 20,
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Number of reviews to skip",
					},
				},
				Action: listReviews,
			},
			{
				Name:      "show",
				Usage:     "Show a stored review",
				ArgsUsage: "<review-id>",
				Action:    showReview,
			},
		},
	}
}

func listReviews(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	states, err := application.Reports.ListReviews(c.Context, c.Int("limit"), c.Int("offset"))
	if err != nil {
		return fmt.Errorf("failed to list reviews: %w", err)
	}

	if len(states) == 0 {
		utils.PrintInfo("No reviews stored yet")
		return nil
	}

	rows := make([][]string, 0, len(states))
	for _, state := range states {
		title := state.Title
		if title == "" {
			title = state.ChangeURL
		}
		rows = append(rows, []string{
			state.ID,
			title,
			state.StatusMessage,
			fmt.Sprintf("%d", state.TotalUnits),
			state.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	utils.PrintTable([]string{"ID", "Title", "Status", "Units", "Created"}, rows)
	return nil
}

func showReview(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("a review ID is required")
	}

	state, err := application.Reports.GetReview(c.Context, id)
	if err != nil {
		return err
	}

	utils.PrintKeyValue("Review", state.ID)
	utils.PrintKeyValue("Change", state.ChangeURL)
	utils.PrintKeyValue("Created", state.CreatedAt.Format("2006-01-02 15:04"))
	printReview(state)
	return nil
}
