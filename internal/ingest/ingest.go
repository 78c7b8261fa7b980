// Package ingest maps exported spreadsheet rows onto raw input records.
// Header matching is case-insensitive and tolerant of the naming drift
// between export formats.
package ingest

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/consolidate-cli/internal/model"
	"github.com/sells-group/consolidate-cli/internal/revenue"
)

// Stats counts rows handled by a parse pass.
type Stats struct {
	Rows    int
	Skipped int
}

// Column aliases per logical field, first match wins.
var customerColumns = map[string][]string{
	"customer_id":     {"customer id", "customer_id", "id"},
	"customer_name":   {"customer name", "customer_name", "customer"},
	"company_name":    {"company name", "company_name", "company"},
	"main_email":      {"main email", "main_email", "email"},
	"cc_email":        {"cc email", "cc_email"},
	"main_phone":      {"main phone", "main_phone", "phone"},
	"billing_street":  {"billing street", "billing_street", "bill to street"},
	"billing_city":    {"billing city", "billing_city", "bill to city"},
	"billing_state":   {"billing state", "billing_state", "bill to state"},
	"billing_zip":     {"billing zip", "billing_zip", "bill to zip"},
	"current_balance": {"current balance", "current_balance", "balance"},
	"created_at":      {"created at", "created_at", "date created"},
}

var transactionColumns = map[string][]string{
	"customer_name_ref": {"customer", "customer name", "name"},
	"order_id":          {"order id", "order_id", "num", "number"},
	"amount":            {"amount", "total"},
	"transaction_date":  {"date", "transaction date", "transaction_date"},
	"source":            {"type", "source"},
}

// ParseCustomers converts export rows into customer records. Rows without a
// customer_id are skipped and counted; everything else passes through as-is,
// since validation of balances and emails happens downstream.
func ParseCustomers(header []string, rows [][]string) ([]model.CustomerRecord, Stats) {
	idx := newColumnIndex(header, customerColumns)
	stats := Stats{Rows: len(rows)}

	customers := make([]model.CustomerRecord, 0, len(rows))
	for _, row := range rows {
		id := idx.get(row, "customer_id")
		if id == "" {
			stats.Skipped++
			continue
		}
		c := model.CustomerRecord{
			CustomerID:     id,
			CustomerName:   idx.get(row, "customer_name"),
			CompanyName:    idx.get(row, "company_name"),
			MainEmail:      idx.get(row, "main_email"),
			CCEmail:        idx.get(row, "cc_email"),
			MainPhone:      idx.get(row, "main_phone"),
			BillingStreet:  idx.get(row, "billing_street"),
			BillingCity:    idx.get(row, "billing_city"),
			BillingState:   idx.get(row, "billing_state"),
			BillingZip:     idx.get(row, "billing_zip"),
			CurrentBalance: idx.get(row, "current_balance"),
		}
		if raw := idx.get(row, "created_at"); raw != "" {
			if t, err := revenue.ParseDate(raw); err == nil {
				c.CreatedAt = &t
			}
		}
		customers = append(customers, c)
	}

	if stats.Skipped > 0 {
		zap.L().Warn("ingest: customer rows skipped",
			zap.Int("rows", stats.Rows),
			zap.Int("skipped", stats.Skipped),
		)
	}
	return customers, stats
}

// ParseTransactions converts export rows into transaction lines. Rows with
// neither a customer reference nor an amount are skipped; malformed amounts
// and dates survive here and get counted during aggregation.
func ParseTransactions(header []string, rows [][]string) ([]model.TransactionLine, Stats) {
	idx := newColumnIndex(header, transactionColumns)
	stats := Stats{Rows: len(rows)}

	lines := make([]model.TransactionLine, 0, len(rows))
	for _, row := range rows {
		l := model.TransactionLine{
			CustomerNameRef: idx.get(row, "customer_name_ref"),
			OrderID:         idx.get(row, "order_id"),
			Amount:          idx.get(row, "amount"),
			TransactionDate: idx.get(row, "transaction_date"),
			Source:          normalizeSource(idx.get(row, "source")),
		}
		if l.CustomerNameRef == "" && l.Amount == "" {
			stats.Skipped++
			continue
		}
		lines = append(lines, l)
	}

	if stats.Skipped > 0 {
		zap.L().Warn("ingest: transaction rows skipped",
			zap.Int("rows", stats.Rows),
			zap.Int("skipped", stats.Skipped),
		)
	}
	return lines, stats
}

func normalizeSource(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "invoice":
		return model.SourceInvoice
	case "sales receipt", "sales_receipt":
		return model.SourceSalesReceipt
	default:
		return strings.TrimSpace(s)
	}
}

// columnIndex resolves logical field names to row positions.
type columnIndex struct {
	pos map[string]int
}

func newColumnIndex(header []string, aliases map[string][]string) columnIndex {
	byName := make(map[string]int, len(header))
	for i, col := range header {
		byName[strings.ToLower(strings.TrimSpace(col))] = i
	}

	pos := make(map[string]int, len(aliases))
	for field, names := range aliases {
		for _, name := range names {
			if i, ok := byName[name]; ok {
				pos[field] = i
				break
			}
		}
	}
	return columnIndex{pos: pos}
}

func (c columnIndex) get(row []string, field string) string {
	i, ok := c.pos[field]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
