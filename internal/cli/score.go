package cli

import (
	"fmt"
	"text/tabwriter"

	"inflammation-planner/internal/core/service"

	"github.com/spf13/cobra"
)

func newScoreCmd(opts *options) *cobra.Command {
	var (
		table   string
		recipes string
		person  string
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score every recipe in the catalog for one person",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := service.NewService(opts.config(table, recipes), opts.loader(), nil)
			if err := svc.Load(cmd.Context()); err != nil {
				return err
			}
			scores, err := svc.ScoreCatalog(cmd.Context(), person)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tRECIPE\tTOTAL\tAVERAGE\tMATCHED")
			for _, s := range scores {
				fmt.Fprintf(tw, "%s\t%s\t%.3f\t%.3f\t%d/%d (%.1f%%)\n",
					s.RecipeID, s.Title, s.Total, s.Average, s.Matched, s.TotalCount, s.MatchPercentage)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&table, "table", "ingredients_with_inflammation.csv", "Inflammation table")
	cmd.Flags().StringVar(&recipes, "recipes", "popular_recipes_database.json", "Recipe catalog")
	cmd.Flags().StringVar(&person, "person", "general", "Person to score for")
	return cmd
}
