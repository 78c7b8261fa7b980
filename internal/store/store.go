// Package store persists raw inputs, consolidation outputs, and the run
// log. Two drivers exist: Postgres (pgx) for shared deployments and SQLite
// (modernc) for local runs.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/consolidate-cli/internal/model"
)

// RunStatus values for consolidation_runs.status.
const (
	RunRunning  = "running"
	RunComplete = "complete"
	RunFailed   = "failed"
)

// RunEntry is a row of the consolidation run log.
type RunEntry struct {
	ID             string            `json:"id"`
	Status         string            `json:"status"`
	RulesetVersion string            `json:"ruleset_version"`
	StartedAt      time.Time         `json:"started_at"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	Summary        *model.RunSummary `json:"summary,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// RunOutput is the full result of one consolidation run, published
// atomically: either all three tables replace the previous run's content,
// or none do.
type RunOutput struct {
	Companies []model.CompanyEntity
	Bridge    []model.CustomerCompanyLink
	Mappings  []model.DomainMappingEntry
}

// Store is the persistence interface for the consolidation engine.
type Store interface {
	// Raw inputs
	UpsertCustomers(ctx context.Context, customers []model.CustomerRecord) (int64, error)
	ReplaceTransactions(ctx context.Context, lines []model.TransactionLine) (int64, error)
	LoadCustomers(ctx context.Context) ([]model.CustomerRecord, error)
	LoadTransactions(ctx context.Context) ([]model.TransactionLine, error)

	// Outputs
	PublishOutputs(ctx context.Context, out *RunOutput) error

	// Run log
	StartRun(ctx context.Context, runID, rulesetVersion string) error
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error
	FailRun(ctx context.Context, runID string, errMsg string) error
	ListRuns(ctx context.Context, limit int) ([]RunEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Options carries driver selection and tuning.
type Options struct {
	Driver      string
	DatabaseURL string
	MaxConns    int32
	MinConns    int32
}

// New creates a Store for the configured driver.
func New(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "postgres", "":
		return NewPostgres(ctx, opts)
	case "sqlite":
		return NewSQLite(opts.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q (valid: postgres, sqlite)", opts.Driver)
	}
}
