package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"inflammation-planner/internal/infrastructure/config"
	"inflammation-planner/internal/infrastructure/source"
	"inflammation-planner/internal/pkg/common"

	"github.com/spf13/cobra"
)

// options 所有子指令共用的旗標
type options struct {
	verbose bool
	timeout time.Duration
	region  string
	workers int
}

// NewRootCmd 建立離線指令樹
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "dii",
		Short:         "dii scores ingredients and recipes by inflammatory potential",
		Long:          "dii builds the ingredient inflammation table from nutrient data, scores recipes against it, and plans weekly menus with shopping lists.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !opts.verbose {
				return nil
			}
			return common.InitLoggerWithDir("debug", "")
		},
	}

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log progress to stderr")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Timeout for fetching remote inputs")
	root.PersistentFlags().StringVar(&opts.region, "region", "", "AWS region for s3:// inputs")
	root.PersistentFlags().IntVar(&opts.workers, "workers", 4, "Concurrent recipe scoring workers")

	root.AddCommand(newGenerateCmd(opts))
	root.AddCommand(newScoreCmd(opts))
	root.AddCommand(newMenuCmd(opts))
	return root
}

// Execute 執行指令樹，失敗時以非零狀態結束
func Execute() {
	defer common.Sync()
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *options) loader() *source.Loader {
	return source.NewLoader(o.timeout, o.region)
}

// config 以旗標組出服務設定，不讀取環境變數
func (o *options) config(table, recipes string) *config.Config {
	return &config.Config{
		Data:    config.DataConfig{InflammationCSV: table, RecipesJSON: recipes, FetchTimeout: o.timeout},
		Planner: config.PlannerConfig{Workers: o.workers, DefaultPerson: "general"},
	}
}
