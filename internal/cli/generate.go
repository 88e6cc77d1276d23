package cli

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"inflammation-planner/internal/core/inflammation"

	"github.com/spf13/cobra"
)

func newGenerateCmd(opts *options) *cobra.Command {
	var (
		nutrients    string
		out          string
		seed         int64
		jitter       bool
		availability string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build the ingredient inflammation table from a nutrient table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if nutrients == "" {
				return fmt.Errorf("--nutrients is required")
			}
			ctx := cmd.Context()
			loader := opts.loader()

			rc, err := loader.Open(ctx, nutrients)
			if err != nil {
				return err
			}
			store, err := inflammation.ReadNutrientStore(rc)
			rc.Close()
			if err != nil {
				return err
			}

			var popts []inflammation.PersonalizerOption
			if jitter {
				popts = append(popts, inflammation.WithRandSource(rand.NewSource(seed)))
			}
			if availability != "" {
				rc, err := loader.Open(ctx, availability)
				if err != nil {
					return err
				}
				set, err := inflammation.ReadAvailability(rc)
				rc.Close()
				if err != nil {
					return err
				}
				popts = append(popts, inflammation.WithAvailability(set))
			}

			gen := inflammation.NewGenerator(inflammation.NewScorer(), inflammation.NewPersonalizer(popts...))
			rows, err := gen.Generate(store)
			if err != nil {
				return err
			}

			if err := writeTable(out, rows, store.NutrientNames(), gen.Persons()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d ingredients to %s\n\n", len(rows), out)
			return inflammation.Summarize(rows, store.NutrientNames()).WriteText(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&nutrients, "nutrients", "", "Nutrient table (path, http(s):// or s3:// URI)")
	cmd.Flags().StringVar(&out, "out", "ingredients_with_inflammation.csv", "Output inflammation table")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for personal score jitter")
	cmd.Flags().BoolVar(&jitter, "jitter", false, "Apply seeded random jitter to personal scores")
	cmd.Flags().StringVar(&availability, "availability", "", "CSV of person,ingredient pairs with personal data")
	return cmd
}

func writeTable(path string, rows []inflammation.Row, nutrients, persons []string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := inflammation.WriteCSV(w, rows, nutrients, persons); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
