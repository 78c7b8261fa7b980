package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/consolidate-cli/internal/engine"
)

var (
	consolidateWorkers    int
	consolidateTimeBudget time.Duration
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Run one full consolidation over the imported raw data",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		norm, err := newNormalizer()
		if err != nil {
			return err
		}

		st, err := newStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		workers := consolidateWorkers
		if workers == 0 {
			workers = cfg.Engine.Workers
		}
		budget := consolidateTimeBudget
		if budget == 0 && cfg.Engine.TimeBudgetSecs > 0 {
			budget = time.Duration(cfg.Engine.TimeBudgetSecs) * time.Second
		}

		eng := engine.New(st, norm, newClassifier(), engine.Options{
			Workers:    workers,
			TimeBudget: budget,
		})

		summary, err := eng.Run(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("consolidated %d customers into %d companies (%d bridge rows, %d domains mapped)\n",
			summary.CustomersTotal, summary.CompaniesFormed, summary.BridgeRows, summary.DomainsMapped)
		if summary.UnattributedLines > 0 {
			fmt.Printf("warning: %d transaction lines (%s) could not be attributed to a customer\n",
				summary.UnattributedLines, summary.UnattributedRevenue.StringFixed(2))
		}
		return nil
	},
}

func init() {
	consolidateCmd.Flags().IntVar(&consolidateWorkers, "workers", 0, "extraction workers (default from config)")
	consolidateCmd.Flags().DurationVar(&consolidateTimeBudget, "time-budget", 0, "hard run time limit, e.g. 10m (default from config, 0 = none)")
	rootCmd.AddCommand(consolidateCmd)
}
