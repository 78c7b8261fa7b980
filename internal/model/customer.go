// Package model defines the input and output entities of the consolidation engine.
package model

import (
	"time"
)

// CustomerRecord is a raw customer row from the accounting export. The engine
// treats it as read-only; ownership stays with the ingestion side.
type CustomerRecord struct {
	CustomerID     string     `json:"customer_id" db:"customer_id"`
	CustomerName   string     `json:"customer_name" db:"customer_name"`
	CompanyName    string     `json:"company_name,omitempty" db:"company_name"`
	MainEmail      string     `json:"main_email,omitempty" db:"main_email"`
	CCEmail        string     `json:"cc_email,omitempty" db:"cc_email"`
	MainPhone      string     `json:"main_phone,omitempty" db:"main_phone"`
	BillingStreet  string     `json:"billing_street,omitempty" db:"billing_street"`
	BillingCity    string     `json:"billing_city,omitempty" db:"billing_city"`
	BillingState   string     `json:"billing_state,omitempty" db:"billing_state"`
	BillingZip     string     `json:"billing_zip,omitempty" db:"billing_zip"`
	CurrentBalance string     `json:"current_balance,omitempty" db:"current_balance"`
	CreatedAt      *time.Time `json:"created_at,omitempty" db:"created_at"`
}

// BillingAddress renders the structured billing fields as a single line.
// Empty components are omitted.
func (c CustomerRecord) BillingAddress() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{c.BillingStreet, c.BillingCity, c.BillingState, c.BillingZip} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}

// Transaction sources.
const (
	SourceInvoice      = "invoice"
	SourceSalesReceipt = "sales_receipt"
)

// TransactionLine is a revenue line item from an invoice or sales receipt.
// Amount and TransactionDate arrive as text and must be validated before use.
// CustomerNameRef joins back to CustomerRecord by exact name, not by ID.
type TransactionLine struct {
	CustomerNameRef string `json:"customer_name_ref" db:"customer_name_ref"`
	OrderID         string `json:"order_id" db:"order_id"`
	Amount          string `json:"amount" db:"amount"`
	TransactionDate string `json:"transaction_date" db:"transaction_date"`
	Source          string `json:"source" db:"source"`
}
