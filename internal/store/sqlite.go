package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/consolidate-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Revenue columns
// are stored as TEXT in decimal string form so no float rounding creeps in.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sdb.Exec(pragma); err != nil {
			sdb.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sdb}, nil
}

const sqliteMigration = `
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
	created_at      DATETIME
);

CREATE TABLE IF NOT EXISTS raw_transactions (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
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
	customer_count         INTEGER NOT NULL DEFAULT 0,
	total_revenue          TEXT NOT NULL DEFAULT '0',
	total_orders           INTEGER NOT NULL DEFAULT 0,
	first_order_date       DATETIME,
	latest_order_date      DATETIME,
	business_size_category TEXT NOT NULL DEFAULT '',
	revenue_category       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS company_customer_bridge (
	customer_id              TEXT PRIMARY KEY,
	company_domain_key       TEXT NOT NULL,
	customer_name            TEXT NOT NULL DEFAULT '',
	domain_type              TEXT NOT NULL,
	customer_total_revenue   TEXT NOT NULL DEFAULT '0',
	customer_total_orders    INTEGER NOT NULL DEFAULT 0,
	first_order_date         DATETIME,
	latest_order_date        DATETIME,
	customer_value_tier      TEXT NOT NULL DEFAULT '',
	customer_activity_status TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_bridge_company ON company_customer_bridge(company_domain_key);

CREATE TABLE IF NOT EXISTS domain_mapping (
	original_domain   TEXT PRIMARY KEY,
	normalized_domain TEXT NOT NULL,
	domain_type       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS consolidation_runs (
	id              TEXT PRIMARY KEY,
	status          TEXT NOT NULL DEFAULT 'running',
	ruleset_version TEXT NOT NULL DEFAULT '',
	started_at      DATETIME NOT NULL,
	completed_at    DATETIME,
	summary         TEXT,
	error           TEXT
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertCustomers(ctx context.Context, customers []model.CustomerRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert customers")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO raw_customers (customer_id, customer_name, company_name, main_email,
			cc_email, main_phone, billing_street, billing_city, billing_state, billing_zip,
			current_balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (customer_id) DO UPDATE SET
			customer_name = excluded.customer_name,
			company_name = excluded.company_name,
			main_email = excluded.main_email,
			cc_email = excluded.cc_email,
			main_phone = excluded.main_phone,
			billing_street = excluded.billing_street,
			billing_city = excluded.billing_city,
			billing_state = excluded.billing_state,
			billing_zip = excluded.billing_zip,
			current_balance = excluded.current_balance,
			created_at = excluded.created_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert customers")
	}
	defer stmt.Close()

	for _, c := range customers {
		if _, err := stmt.ExecContext(ctx,
			c.CustomerID, c.CustomerName, c.CompanyName, c.MainEmail, c.CCEmail,
			c.MainPhone, c.BillingStreet, c.BillingCity, c.BillingState, c.BillingZip,
			c.CurrentBalance, c.CreatedAt); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert customer %s", c.CustomerID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert customers")
	}
	return int64(len(customers)), nil
}

func (s *SQLiteStore) ReplaceTransactions(ctx context.Context, lines []model.TransactionLine) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin replace transactions")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM raw_transactions`); err != nil {
		return 0, eris.Wrap(err, "sqlite: clear raw_transactions")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO raw_transactions (customer_name_ref, order_id, amount, transaction_date, source)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert transactions")
	}
	defer stmt.Close()

	for _, l := range lines {
		if _, err := stmt.ExecContext(ctx, l.CustomerNameRef, l.OrderID, l.Amount, l.TransactionDate, l.Source); err != nil {
			return 0, eris.Wrap(err, "sqlite: insert transaction")
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit replace transactions")
	}
	return int64(len(lines)), nil
}

func (s *SQLiteStore) LoadCustomers(ctx context.Context) ([]model.CustomerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_id, customer_name, company_name, main_email, cc_email,
			main_phone, billing_street, billing_city, billing_state, billing_zip,
			current_balance, created_at
		FROM raw_customers ORDER BY customer_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load customers")
	}
	defer rows.Close()

	var customers []model.CustomerRecord
	for rows.Next() {
		var c model.CustomerRecord
		var createdAt sql.NullTime
		if err := rows.Scan(&c.CustomerID, &c.CustomerName, &c.CompanyName, &c.MainEmail,
			&c.CCEmail, &c.MainPhone, &c.BillingStreet, &c.BillingCity, &c.BillingState,
			&c.BillingZip, &c.CurrentBalance, &createdAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan customer")
		}
		if createdAt.Valid {
			t := createdAt.Time
			c.CreatedAt = &t
		}
		customers = append(customers, c)
	}
	return customers, eris.Wrap(rows.Err(), "sqlite: load customers iterate")
}

func (s *SQLiteStore) LoadTransactions(ctx context.Context) ([]model.TransactionLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_name_ref, order_id, amount, transaction_date, source
		FROM raw_transactions ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load transactions")
	}
	defer rows.Close()

	var lines []model.TransactionLine
	for rows.Next() {
		var l model.TransactionLine
		if err := rows.Scan(&l.CustomerNameRef, &l.OrderID, &l.Amount, &l.TransactionDate, &l.Source); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan transaction")
		}
		lines = append(lines, l)
	}
	return lines, eris.Wrap(rows.Err(), "sqlite: load transactions iterate")
}

func (s *SQLiteStore) PublishOutputs(ctx context.Context, out *RunOutput) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin publish")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"company_customer_bridge", "companies", "domain_mapping"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return eris.Wrapf(err, "sqlite: clear %s", table)
		}
	}

	companyStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO companies (company_domain_key, domain_type, company_name, primary_email,
			primary_phone, primary_address, customer_count, total_revenue, total_orders,
			first_order_date, latest_order_date, business_size_category, revenue_category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert companies")
	}
	defer companyStmt.Close()

	for _, c := range out.Companies {
		if _, err := companyStmt.ExecContext(ctx,
			c.CompanyDomainKey, string(c.DomainType), c.CompanyName, c.PrimaryEmail,
			c.PrimaryPhone, c.PrimaryAddress, c.CustomerCount, c.TotalRevenue.String(),
			c.TotalOrders, c.FirstOrderDate, c.LatestOrderDate,
			c.BusinessSizeCategory, c.RevenueCategory); err != nil {
			return eris.Wrapf(err, "sqlite: insert company %s", c.CompanyDomainKey)
		}
	}

	bridgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO company_customer_bridge (customer_id, company_domain_key, customer_name,
			domain_type, customer_total_revenue, customer_total_orders,
			first_order_date, latest_order_date, customer_value_tier, customer_activity_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert bridge")
	}
	defer bridgeStmt.Close()

	for _, b := range out.Bridge {
		if _, err := bridgeStmt.ExecContext(ctx,
			b.CustomerID, b.CompanyDomainKey, b.CustomerName, string(b.DomainType),
			b.CustomerTotalRevenue.String(), b.CustomerTotalOrders,
			b.FirstOrderDate, b.LatestOrderDate,
			b.CustomerValueTier, b.CustomerActivityStatus); err != nil {
			return eris.Wrapf(err, "sqlite: insert bridge row %s", b.CustomerID)
		}
	}

	mappingStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO domain_mapping (original_domain, normalized_domain, domain_type)
		VALUES (?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert mapping")
	}
	defer mappingStmt.Close()

	for _, m := range out.Mappings {
		if _, err := mappingStmt.ExecContext(ctx,
			m.OriginalDomain, m.NormalizedDomain, string(m.DomainType)); err != nil {
			return eris.Wrapf(err, "sqlite: insert mapping %s", m.OriginalDomain)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit publish")
	}
	return nil
}

func (s *SQLiteStore) StartRun(ctx context.Context, runID, rulesetVersion string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO consolidation_runs (id, status, ruleset_version, started_at) VALUES (?, ?, ?, ?)`,
		runID, RunRunning, rulesetVersion, time.Now().UTC())
	return eris.Wrapf(err, "sqlite: start run %s", runID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	var summaryJSON any
	if summary != nil {
		b, err := json.Marshal(summary)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal run summary")
		}
		summaryJSON = string(b)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE consolidation_runs SET status = ?, completed_at = ?, summary = ? WHERE id = ?`,
		RunComplete, time.Now().UTC(), summaryJSON, runID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE consolidation_runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		RunFailed, time.Now().UTC(), errMsg, runID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, ruleset_version, started_at, completed_at, summary, error
		 FROM consolidation_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		var completedAt sql.NullTime
		var summaryJSON, errStr sql.NullString
		if err := rows.Scan(&e.ID, &e.Status, &e.RulesetVersion, &e.StartedAt, &completedAt, &summaryJSON, &errStr); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if completedAt.Valid {
			t := completedAt.Time
			e.CompletedAt = &t
		}
		if errStr.Valid {
			e.Error = errStr.String
		}
		if summaryJSON.Valid {
			var sum model.RunSummary
			if err := json.Unmarshal([]byte(summaryJSON.String), &sum); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal run summary")
			}
			e.Summary = &sum
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
