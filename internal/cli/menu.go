package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"inflammation-planner/internal/core/menu"
	"inflammation-planner/internal/core/service"
	"inflammation-planner/internal/pkg/common"

	"github.com/spf13/cobra"
)

func newMenuCmd(opts *options) *cobra.Command {
	var (
		table    string
		recipes  string
		persons  []string
		maximize bool
		outDir   string
	)

	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Plan weekly menus and shopping lists",
		Long:  "Plans a 7-day menu per person and writes weekly_menu_<person>.json and shopping_list_<person>.json. Without --person every person in the table is planned.",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := service.NewService(opts.config(table, recipes), opts.loader(), nil)
			if err := svc.Load(cmd.Context()); err != nil {
				return err
			}
			if len(persons) == 0 {
				all, err := svc.Persons()
				if err != nil {
					return err
				}
				persons = all
			}
			goal := menu.MinimizeInflammation
			if maximize {
				goal = menu.MaximizeInflammation
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}

			for _, person := range persons {
				m, err := svc.Plan(cmd.Context(), person, goal)
				if err != nil {
					return err
				}
				menuPath := filepath.Join(outDir, fmt.Sprintf("weekly_menu_%s.json", m.Person))
				if err := writeJSON(menuPath, m); err != nil {
					return err
				}
				listPath := filepath.Join(outDir, fmt.Sprintf("shopping_list_%s.json", m.Person))
				if err := writeJSON(listPath, menu.BuildShoppingList(m)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: weekly score %.3f, daily average %.3f, %d fallback meals -> %s\n",
					m.Person, m.Statistics.TotalWeeklyScore, m.Statistics.AverageDailyScore, m.Statistics.FallbackMeals, menuPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&table, "table", "ingredients_with_inflammation.csv", "Inflammation table")
	cmd.Flags().StringVar(&recipes, "recipes", "popular_recipes_database.json", "Recipe catalog")
	cmd.Flags().StringSliceVar(&persons, "person", nil, "Person to plan for (repeatable)")
	cmd.Flags().BoolVar(&maximize, "maximize", false, "Pick the most inflammatory recipes instead")
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "Directory for menu and shopping list files")
	return cmd
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := common.WriteJSONIndent(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
