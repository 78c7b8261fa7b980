package store

import (
	"context"
	"encoding/json"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/consolidate-cli/internal/db"
	"github.com/sells-group/consolidate-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool. Decimal
// support is registered on every connection so NUMERIC revenue columns
// round-trip exactly.
func NewPostgres(ctx context.Context, opts Options) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(opts.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if opts.MaxConns > 0 {
		maxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		minConns = opts.MinConns
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS raw_customers (
	customer_id     TEXT PRIMARY KEY,
	customer_name   TEXT NOT NULL DEFAULT '',
	company_name    TEXT NOT NULL DEFAULT '',
	main_email      TEXT NOT NULL DEFAULT '',
	cc_email        TEXT NOT NULL DEFAULT '',
	main_phone      TEXT NOT NULL DEFAULT '',
	billing_street  TEXT NOT NULL DEFAULT '',
	billing_city    TEXT NOT NULL DEFAULT '',
	billing_state   TEXT NOT NULL DEFAULT '',
	billing_zip     TEXT NOT NULL DEFAULT '',
	current_balance TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS raw_transactions (
	id                BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	customer_name_ref TEXT NOT NULL DEFAULT '',
	order_id          TEXT NOT NULL DEFAULT '',
	amount            TEXT NOT NULL DEFAULT '',
	transaction_date  TEXT NOT NULL DEFAULT '',
	source            TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS companies (
	company_domain_key     TEXT PRIMARY KEY,
	domain_type            TEXT NOT NULL,
	company_name           TEXT NOT NULL DEFAULT '',
	primary_email          TEXT NOT NULL DEFAULT '',
	primary_phone          TEXT NOT NULL DEFAULT '',
	primary_address        TEXT NOT NULL DEFAULT '',
	customer_count         INT NOT NULL DEFAULT 0,
	total_revenue          NUMERIC(18,2) NOT NULL DEFAULT 0,
	total_orders           INT NOT NULL DEFAULT 0,
	first_order_date       DATE,
	latest_order_date      DATE,
	business_size_category TEXT NOT NULL DEFAULT '',
	revenue_category       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS company_customer_bridge (
	customer_id              TEXT PRIMARY KEY,
	company_domain_key       TEXT NOT NULL,
	customer_name            TEXT NOT NULL DEFAULT '',
	domain_type              TEXT NOT NULL,
	customer_total_revenue   NUMERIC(18,2) NOT NULL DEFAULT 0,
	customer_total_orders    INT NOT NULL DEFAULT 0,
	first_order_date         DATE,
	latest_order_date        DATE,
	customer_value_tier      TEXT NOT NULL DEFAULT '',
	customer_activity_status TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_bridge_company ON company_customer_bridge (company_domain_key);

CREATE TABLE IF NOT EXISTS domain_mapping (
	original_domain   TEXT PRIMARY KEY,
	normalized_domain TEXT NOT NULL,
	domain_type       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS consolidation_runs (
	id              TEXT PRIMARY KEY,
	status          TEXT NOT NULL DEFAULT 'running',
	ruleset_version TEXT NOT NULL DEFAULT '',
	started_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at    TIMESTAMPTZ,
	summary         JSONB,
	error           TEXT
);
`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var customerColumns = []string{
	"customer_id", "customer_name", "company_name", "main_email", "cc_email",
	"main_phone", "billing_street", "billing_city", "billing_state", "billing_zip",
	"current_balance", "created_at",
}

// UpsertCustomers bulk-upserts raw customer rows keyed by customer_id, so
// re-importing a newer export refreshes rather than duplicates.
func (s *PostgresStore) UpsertCustomers(ctx context.Context, customers []model.CustomerRecord) (int64, error) {
	rows := make([][]any, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, []any{
			c.CustomerID, c.CustomerName, c.CompanyName, c.MainEmail, c.CCEmail,
			c.MainPhone, c.BillingStreet, c.BillingCity, c.BillingState, c.BillingZip,
			c.CurrentBalance, c.CreatedAt,
		})
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "raw_customers",
		Columns:      customerColumns,
		ConflictKeys: []string{"customer_id"},
	}, rows)
}

// ReplaceTransactions swaps the raw transaction table for the given lines
// in one transaction. Exports carry no stable line identity, so the table
// is replaced wholesale.
func (s *PostgresStore) ReplaceTransactions(ctx context.Context, lines []model.TransactionLine) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin replace transactions")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM raw_transactions`); err != nil {
		return 0, eris.Wrap(err, "postgres: clear raw_transactions")
	}

	rows := make([][]any, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []any{l.CustomerNameRef, l.OrderID, l.Amount, l.TransactionDate, l.Source})
	}
	n, err := db.CopyFromTx(ctx, tx, "raw_transactions",
		[]string{"customer_name_ref", "order_id", "amount", "transaction_date", "source"}, rows)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit replace transactions")
	}
	return n, nil
}

// LoadCustomers reads all raw customer rows ordered by customer_id.
func (s *PostgresStore) LoadCustomers(ctx context.Context) ([]model.CustomerRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT customer_id, customer_name, company_name, main_email, cc_email,
			main_phone, billing_street, billing_city, billing_state, billing_zip,
			current_balance, created_at
		FROM raw_customers ORDER BY customer_id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load customers")
	}
	defer rows.Close()

	var customers []model.CustomerRecord
	for rows.Next() {
		var c model.CustomerRecord
		if err := rows.Scan(&c.CustomerID, &c.CustomerName, &c.CompanyName, &c.MainEmail,
			&c.CCEmail, &c.MainPhone, &c.BillingStreet, &c.BillingCity, &c.BillingState,
			&c.BillingZip, &c.CurrentBalance, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan customer")
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// LoadTransactions reads all raw transaction lines.
func (s *PostgresStore) LoadTransactions(ctx context.Context) ([]model.TransactionLine, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT customer_name_ref, order_id, amount, transaction_date, source
		FROM raw_transactions ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load transactions")
	}
	defer rows.Close()

	var lines []model.TransactionLine
	for rows.Next() {
		var l model.TransactionLine
		if err := rows.Scan(&l.CustomerNameRef, &l.OrderID, &l.Amount, &l.TransactionDate, &l.Source); err != nil {
			return nil, eris.Wrap(err, "postgres: scan transaction")
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// PublishOutputs replaces the three output tables in one transaction.
// A failed run rolls back and leaves the previous run's output untouched.
func (s *PostgresStore) PublishOutputs(ctx context.Context, out *RunOutput) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin publish")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, table := range []string{"company_customer_bridge", "companies", "domain_mapping"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return eris.Wrapf(err, "postgres: clear %s", table)
		}
	}

	companyRows := make([][]any, 0, len(out.Companies))
	for _, c := range out.Companies {
		companyRows = append(companyRows, []any{
			c.CompanyDomainKey, string(c.DomainType), c.CompanyName, c.PrimaryEmail,
			c.PrimaryPhone, c.PrimaryAddress, c.CustomerCount, c.TotalRevenue,
			c.TotalOrders, c.FirstOrderDate, c.LatestOrderDate,
			c.BusinessSizeCategory, c.RevenueCategory,
		})
	}
	if _, err := db.CopyFromTx(ctx, tx, "companies", []string{
		"company_domain_key", "domain_type", "company_name", "primary_email",
		"primary_phone", "primary_address", "customer_count", "total_revenue",
		"total_orders", "first_order_date", "latest_order_date",
		"business_size_category", "revenue_category",
	}, companyRows); err != nil {
		return err
	}

	bridgeRows := make([][]any, 0, len(out.Bridge))
	for _, b := range out.Bridge {
		bridgeRows = append(bridgeRows, []any{
			b.CustomerID, b.CompanyDomainKey, b.CustomerName, string(b.DomainType),
			b.CustomerTotalRevenue, b.CustomerTotalOrders,
			b.FirstOrderDate, b.LatestOrderDate,
			b.CustomerValueTier, b.CustomerActivityStatus,
		})
	}
	if _, err := db.CopyFromTx(ctx, tx, "company_customer_bridge", []string{
		"customer_id", "company_domain_key", "customer_name", "domain_type",
		"customer_total_revenue", "customer_total_orders",
		"first_order_date", "latest_order_date",
		"customer_value_tier", "customer_activity_status",
	}, bridgeRows); err != nil {
		return err
	}

	mappingRows := make([][]any, 0, len(out.Mappings))
	for _, m := range out.Mappings {
		mappingRows = append(mappingRows, []any{m.OriginalDomain, m.NormalizedDomain, string(m.DomainType)})
	}
	if _, err := db.CopyFromTx(ctx, tx, "domain_mapping",
		[]string{"original_domain", "normalized_domain", "domain_type"}, mappingRows); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit publish")
	}
	return nil
}

// StartRun records the beginning of a consolidation run.
func (s *PostgresStore) StartRun(ctx context.Context, runID, rulesetVersion string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO consolidation_runs (id, status, ruleset_version, started_at)
		 VALUES ($1, $2, $3, now())`,
		runID, RunRunning, rulesetVersion)
	if err != nil {
		return eris.Wrapf(err, "postgres: start run %s", runID)
	}
	return nil
}

// CompleteRun marks a run complete and stores its summary.
func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	var summaryJSON []byte
	if summary != nil {
		var err error
		summaryJSON, err = json.Marshal(summary)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal run summary")
		}
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE consolidation_runs
		 SET status = $1, completed_at = now(), summary = $2
		 WHERE id = $3`,
		RunComplete, summaryJSON, runID)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	return nil
}

// FailRun marks a run failed with an error message.
func (s *PostgresStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE consolidation_runs
		 SET status = $1, completed_at = now(), error = $2
		 WHERE id = $3`,
		RunFailed, errMsg, runID)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	return nil
}

// ListRuns returns recent run entries, newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]RunEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, status, ruleset_version, started_at, completed_at, summary, error
		 FROM consolidation_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		var completedAt *time.Time
		var summaryJSON []byte
		var errStr *string
		if err := rows.Scan(&e.ID, &e.Status, &e.RulesetVersion, &e.StartedAt, &completedAt, &summaryJSON, &errStr); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		e.CompletedAt = completedAt
		if errStr != nil {
			e.Error = *errStr
		}
		if summaryJSON != nil {
			var sum model.RunSummary
			if err := json.Unmarshal(summaryJSON, &sum); err == nil {
				e.Summary = &sum
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
