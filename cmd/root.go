package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/consolidate-cli/internal/classify"
	"github.com/sells-group/consolidate-cli/internal/config"
	"github.com/sells-group/consolidate-cli/internal/domain"
	"github.com/sells-group/consolidate-cli/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "consolidate-cli",
	Short: "Customer-to-company consolidation engine",
	Long:  "Resolves customers into companies by email domain, aggregates revenue exactly, classifies companies, and publishes the consolidated tables.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// newStore opens the configured store backend.
func newStore(ctx context.Context) (store.Store, error) {
	return store.New(ctx, store.Options{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		MaxConns:    cfg.Store.MaxConns,
		MinConns:    cfg.Store.MinConns,
	})
}

// newNormalizer compiles the configured ruleset, falling back to the
// built-in one when no path is configured. A broken ruleset is fatal here,
// before anything touches the database.
func newNormalizer() (*domain.Normalizer, error) {
	if cfg.Rules.Path == "" {
		return domain.NewNormalizer(domain.DefaultRuleset())
	}
	rs, err := domain.LoadRuleset(cfg.Rules.Path)
	if err != nil {
		return nil, err
	}
	return domain.NewNormalizer(rs)
}

// newClassifier builds a classifier from the configured thresholds.
func newClassifier() classify.Classifier {
	return classify.New(classify.Thresholds{
		SizeSmallMax:      cfg.Classify.SizeSmallMax,
		SizeMediumMax:     cfg.Classify.SizeMediumMax,
		RevenueLowMax:     decimal.NewFromFloat(cfg.Classify.RevenueLowMax),
		RevenueGrowingMax: decimal.NewFromFloat(cfg.Classify.RevenueGrowingMax),
		RevenueMediumMax:  decimal.NewFromFloat(cfg.Classify.RevenueMediumMax),
		ActiveDays:        cfg.Classify.ActiveDays,
		RecentDays:        cfg.Classify.RecentDays,
		DormantDays:       cfg.Classify.DormantDays,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
