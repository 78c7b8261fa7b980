package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/consolidate-cli/internal/model"
)

func TestParseCustomers_FullRow(t *testing.T) {
	header := []string{
		"Customer ID", "Customer Name", "Company Name", "Main Email", "CC Email",
		"Main Phone", "Billing Street", "Billing City", "Billing State", "Billing Zip",
		"Current Balance", "Created At",
	}
	rows := [][]string{
		{"C1", "Jane Smith", "Acme Co", "jane@acme.com", "cc@acme.com",
			"555-0100", "1 Main St", "Springfield", "IL", "62701", "1,200.50", "2024-06-01"},
	}

	customers, stats := ParseCustomers(header, rows)
	require.Len(t, customers, 1)
	assert.Equal(t, 1, stats.Rows)
	assert.Equal(t, 0, stats.Skipped)

	c := customers[0]
	assert.Equal(t, "C1", c.CustomerID)
	assert.Equal(t, "Acme Co", c.CompanyName)
	assert.Equal(t, "jane@acme.com", c.MainEmail)
	assert.Equal(t, "1,200.50", c.CurrentBalance)
	require.NotNil(t, c.CreatedAt)
	assert.Equal(t, "2024-06-01", c.CreatedAt.Format("2006-01-02"))
}

func TestParseCustomers_HeaderCaseInsensitive(t *testing.T) {
	header := []string{"CUSTOMER ID", "customer name"}
	rows := [][]string{{"C1", "Jane Smith"}}

	customers, _ := ParseCustomers(header, rows)
	require.Len(t, customers, 1)
	assert.Equal(t, "Jane Smith", customers[0].CustomerName)
}

func TestParseCustomers_SkipsMissingID(t *testing.T) {
	header := []string{"Customer ID", "Customer Name"}
	rows := [][]string{
		{"", "No ID"},
		{"C2", "Bob Lee"},
	}

	customers, stats := ParseCustomers(header, rows)
	require.Len(t, customers, 1)
	assert.Equal(t, "C2", customers[0].CustomerID)
	assert.Equal(t, 1, stats.Skipped)
}

func TestParseCustomers_ShortRow(t *testing.T) {
	header := []string{"Customer ID", "Customer Name", "Main Email"}
	rows := [][]string{{"C1"}}

	customers, _ := ParseCustomers(header, rows)
	require.Len(t, customers, 1)
	assert.Empty(t, customers[0].CustomerName)
	assert.Empty(t, customers[0].MainEmail)
}

func TestParseCustomers_MalformedCreatedAtIgnored(t *testing.T) {
	header := []string{"Customer ID", "Created At"}
	rows := [][]string{{"C1", "not-a-date"}}

	customers, _ := ParseCustomers(header, rows)
	require.Len(t, customers, 1)
	assert.Nil(t, customers[0].CreatedAt)
}

func TestParseTransactions_SourceNormalization(t *testing.T) {
	header := []string{"Customer", "Num", "Amount", "Date", "Type"}
	rows := [][]string{
		{"Jane Smith", "INV-1", "100.00", "2026-01-15", "Invoice"},
		{"Bob Lee", "SR-1", "25.50", "2026-02-01", "Sales Receipt"},
		{"Bob Lee", "X-1", "10.00", "2026-02-02", "Credit Memo"},
	}

	lines, stats := ParseTransactions(header, rows)
	require.Len(t, lines, 3)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, model.SourceInvoice, lines[0].Source)
	assert.Equal(t, model.SourceSalesReceipt, lines[1].Source)
	assert.Equal(t, "Credit Memo", lines[2].Source)
}

func TestParseTransactions_SkipsEmptyRows(t *testing.T) {
	header := []string{"Customer", "Amount"}
	rows := [][]string{
		{"", ""},
		{"Jane Smith", "100.00"},
	}

	lines, stats := ParseTransactions(header, rows)
	require.Len(t, lines, 1)
	assert.Equal(t, 1, stats.Skipped)
}

func TestParseTransactions_KeepsMalformedAmount(t *testing.T) {
	header := []string{"Customer", "Amount", "Date"}
	rows := [][]string{{"Jane Smith", "abc", "13/45/2026"}}

	lines, _ := ParseTransactions(header, rows)
	require.Len(t, lines, 1)
	assert.Equal(t, "abc", lines[0].Amount)
	assert.Equal(t, "13/45/2026", lines[0].TransactionDate)
}
