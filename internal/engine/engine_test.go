package engine

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/consolidate-cli/internal/classify"
	"github.com/sells-group/consolidate-cli/internal/domain"
	"github.com/sells-group/consolidate-cli/internal/model"
	"github.com/sells-group/consolidate-cli/internal/store"
)

// fakeStore is an in-memory Store for engine tests.
type fakeStore struct {
	customers []model.CustomerRecord
	lines     []model.TransactionLine

	published *store.RunOutput
	runs      []store.RunEntry

	loadCustomersErr error
	publishErr       error
}

func (f *fakeStore) UpsertCustomers(_ context.Context, customers []model.CustomerRecord) (int64, error) {
	f.customers = customers
	return int64(len(customers)), nil
}

func (f *fakeStore) ReplaceTransactions(_ context.Context, lines []model.TransactionLine) (int64, error) {
	f.lines = lines
	return int64(len(lines)), nil
}

func (f *fakeStore) LoadCustomers(context.Context) ([]model.CustomerRecord, error) {
	if f.loadCustomersErr != nil {
		return nil, f.loadCustomersErr
	}
	return f.customers, nil
}

func (f *fakeStore) LoadTransactions(context.Context) ([]model.TransactionLine, error) {
	return f.lines, nil
}

func (f *fakeStore) PublishOutputs(_ context.Context, out *store.RunOutput) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = out
	return nil
}

func (f *fakeStore) StartRun(_ context.Context, runID, rulesetVersion string) error {
	f.runs = append(f.runs, store.RunEntry{ID: runID, Status: store.RunRunning, RulesetVersion: rulesetVersion})
	return nil
}

func (f *fakeStore) CompleteRun(_ context.Context, runID string, summary *model.RunSummary) error {
	for i := range f.runs {
		if f.runs[i].ID == runID {
			f.runs[i].Status = store.RunComplete
			f.runs[i].Summary = summary
		}
	}
	return nil
}

func (f *fakeStore) FailRun(_ context.Context, runID string, errMsg string) error {
	for i := range f.runs {
		if f.runs[i].ID == runID {
			f.runs[i].Status = store.RunFailed
			f.runs[i].Error = errMsg
		}
	}
	return nil
}

func (f *fakeStore) ListRuns(context.Context, int) ([]store.RunEntry, error) { return f.runs, nil }
func (f *fakeStore) Migrate(context.Context) error                          { return nil }
func (f *fakeStore) Close() error                                           { return nil }

func newTestEngine(t *testing.T, st store.Store) *Engine {
	t.Helper()
	rs := domain.DefaultRuleset()
	norm, err := domain.NewNormalizer(rs)
	require.NoError(t, err)
	return New(st, norm, classify.New(classify.DefaultThresholds()), Options{Workers: 2})
}

func testCustomers() []model.CustomerRecord {
	return []model.CustomerRecord{
		{CustomerID: "C1", CustomerName: "Jane Smith", CompanyName: "Acme Co", MainEmail: "jane@acme.com", CurrentBalance: "500.00"},
		{CustomerID: "C2", CustomerName: "Bob Lee", MainEmail: "bob@acme.com", CurrentBalance: "100.00"},
		{CustomerID: "C3", CustomerName: "Pat Doe", MainEmail: "pat@gmail.com"},
		{CustomerID: "C4", CustomerName: "Walk In"},
		{CustomerID: "C5", CustomerName: "Amazon Buyer", MainEmail: "orders@marketplace.amazon.com"},
	}
}

func testLines() []model.TransactionLine {
	return []model.TransactionLine{
		{CustomerNameRef: "Jane Smith", OrderID: "INV-1", Amount: "1000.00", TransactionDate: "2026-01-15", Source: model.SourceInvoice},
		{CustomerNameRef: "Jane Smith", OrderID: "INV-2", Amount: "$2,500.00", TransactionDate: "2026-02-20", Source: model.SourceInvoice},
		{CustomerNameRef: "Bob Lee", OrderID: "SR-1", Amount: "250.00", TransactionDate: "2025-11-01", Source: model.SourceSalesReceipt},
		{CustomerNameRef: "Pat Doe", OrderID: "INV-3", Amount: "75.00", TransactionDate: "2026-03-01", Source: model.SourceInvoice},
		{CustomerNameRef: "Nobody Known", OrderID: "INV-4", Amount: "40.00", TransactionDate: "2026-03-02", Source: model.SourceInvoice},
		{CustomerNameRef: "Jane Smith", OrderID: "INV-5", Amount: "abc", TransactionDate: "2026-03-03", Source: model.SourceInvoice},
	}
}

func TestEngine_Run_FullConsolidation(t *testing.T) {
	st := &fakeStore{customers: testCustomers(), lines: testLines()}
	eng := newTestEngine(t, st)

	summary, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st.published)

	assert.Equal(t, 5, summary.CustomersTotal)
	assert.Equal(t, 2, summary.CompaniesFormed)
	assert.Equal(t, 5, summary.BridgeRows)
	assert.Equal(t, 1, summary.NoEmailCustomers)
	assert.Equal(t, 1, summary.SkipDomainCustomers)
	assert.Equal(t, 1, summary.UnattributedLines)
	assert.True(t, summary.UnattributedRevenue.Equal(decimal.RequireFromString("40.00")))
	assert.Equal(t, 1, summary.SkippedAmounts)

	companies := st.published.Companies
	require.Len(t, companies, 2)

	acme := companies[1]
	assert.Equal(t, "acme.com", acme.CompanyDomainKey)
	assert.Equal(t, model.DomainCorporate, acme.DomainType)
	assert.Equal(t, "Acme Co", acme.CompanyName)
	assert.Equal(t, "jane@acme.com", acme.PrimaryEmail)
	assert.Equal(t, 2, acme.CustomerCount)
	assert.True(t, acme.TotalRevenue.Equal(decimal.RequireFromString("3750.00")))
	assert.Equal(t, 3, acme.TotalOrders)
	assert.Equal(t, classify.SizeSmallMulti, acme.BusinessSizeCategory)
	assert.Equal(t, classify.RevenueLow, acme.RevenueCategory)
	require.NotNil(t, acme.FirstOrderDate)
	assert.Equal(t, "2025-11-01", acme.FirstOrderDate.Format("2006-01-02"))
	require.NotNil(t, acme.LatestOrderDate)
	assert.Equal(t, "2026-02-20", acme.LatestOrderDate.Format("2006-01-02"))

	individual := companies[0]
	assert.Equal(t, "INDIVIDUAL_GMAIL.COM", individual.CompanyDomainKey)
	assert.Equal(t, model.DomainIndividual, individual.DomainType)
	assert.Equal(t, classify.SizeIndividual, individual.BusinessSizeCategory)
	assert.True(t, individual.TotalRevenue.Equal(decimal.RequireFromString("75.00")))
}

func TestEngine_Run_SentinelBridgeRows(t *testing.T) {
	st := &fakeStore{customers: testCustomers(), lines: testLines()}
	eng := newTestEngine(t, st)

	_, err := eng.Run(context.Background())
	require.NoError(t, err)

	byID := map[string]model.CustomerCompanyLink{}
	for _, b := range st.published.Bridge {
		byID[b.CustomerID] = b
	}
	require.Len(t, byID, 5)

	assert.Equal(t, model.KeyNoEmail, byID["C4"].CompanyDomainKey)
	assert.Equal(t, model.DomainNoEmail, byID["C4"].DomainType)
	assert.Equal(t, classify.ActivityNone, byID["C4"].CustomerActivityStatus)

	assert.Equal(t, model.KeySkippedDomain, byID["C5"].CompanyDomainKey)
	assert.Equal(t, model.DomainSkip, byID["C5"].DomainType)

	// Sentinel keys never gain a company row.
	for _, c := range st.published.Companies {
		assert.NotEqual(t, model.KeyNoEmail, c.CompanyDomainKey)
		assert.NotEqual(t, model.KeySkippedDomain, c.CompanyDomainKey)
	}
}

func TestEngine_Run_CompanyRevenueMatchesBridgeSum(t *testing.T) {
	st := &fakeStore{customers: testCustomers(), lines: testLines()}
	eng := newTestEngine(t, st)

	_, err := eng.Run(context.Background())
	require.NoError(t, err)

	sums := map[string]decimal.Decimal{}
	for _, b := range st.published.Bridge {
		cur, ok := sums[b.CompanyDomainKey]
		if !ok {
			cur = decimal.Zero
		}
		sums[b.CompanyDomainKey] = cur.Add(b.CustomerTotalRevenue)
	}
	for _, c := range st.published.Companies {
		assert.True(t, c.TotalRevenue.Equal(sums[c.CompanyDomainKey]),
			"company %s revenue %s != bridge sum %s", c.CompanyDomainKey, c.TotalRevenue, sums[c.CompanyDomainKey])
	}
}

func TestEngine_Run_Idempotent(t *testing.T) {
	st := &fakeStore{customers: testCustomers(), lines: testLines()}
	eng := newTestEngine(t, st)

	_, err := eng.Run(context.Background())
	require.NoError(t, err)
	first := st.published

	_, err = eng.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Companies, st.published.Companies)
	assert.Equal(t, first.Bridge, st.published.Bridge)
	assert.Equal(t, first.Mappings, st.published.Mappings)
}

func TestEngine_Run_DomainMappings(t *testing.T) {
	st := &fakeStore{customers: testCustomers(), lines: nil}
	eng := newTestEngine(t, st)

	summary, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.DomainsMapped)

	mappings := st.published.Mappings
	require.Len(t, mappings, 3)
	assert.Equal(t, "acme.com", mappings[0].OriginalDomain)
	assert.Equal(t, "gmail.com", mappings[1].OriginalDomain)
	assert.Equal(t, "INDIVIDUAL_GMAIL.COM", mappings[1].NormalizedDomain)
	assert.Equal(t, "marketplace.amazon.com", mappings[2].OriginalDomain)
	assert.Equal(t, model.DomainSkip, mappings[2].DomainType)
}

func TestEngine_Run_LoadFailureRecorded(t *testing.T) {
	st := &fakeStore{loadCustomersErr: eris.New("postgres: load customers: boom")}
	eng := newTestEngine(t, st)

	_, err := eng.Run(context.Background())
	require.Error(t, err)

	require.Len(t, st.runs, 1)
	assert.Equal(t, store.RunFailed, st.runs[0].Status)
	assert.Contains(t, st.runs[0].Error, "load customers")
	assert.Nil(t, st.published)
}

func TestEngine_Run_PublishFailureLeavesRunFailed(t *testing.T) {
	st := &fakeStore{customers: testCustomers(), lines: testLines(), publishErr: eris.New("publish: boom")}
	eng := newTestEngine(t, st)

	_, err := eng.Run(context.Background())
	require.Error(t, err)
	require.Len(t, st.runs, 1)
	assert.Equal(t, store.RunFailed, st.runs[0].Status)
}

func TestEngine_Run_EmptyInputs(t *testing.T) {
	st := &fakeStore{}
	eng := newTestEngine(t, st)

	summary, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.CustomersTotal)
	assert.Equal(t, 0, summary.CompaniesFormed)
	require.NotNil(t, st.published)
	assert.Empty(t, st.published.Companies)
	assert.Empty(t, st.published.Bridge)
}
