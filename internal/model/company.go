package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DomainType classifies a normalized email domain.
type DomainType string

// Domain types.
const (
	DomainCorporate  DomainType = "corporate"
	DomainIndividual DomainType = "individual"
	DomainSkip       DomainType = "skip"
	DomainNoEmail    DomainType = "no_email"
)

// Sentinel company_domain_key values for customers that form no company.
const (
	KeyNoEmail       = "NO_EMAIL_DOMAIN"
	KeySkippedDomain = "SKIPPED_DOMAIN"
)

// DomainMappingEntry records one normalization decision for auditability.
// The table is rebuilt fresh each run; within a run the mapping is a pure
// function of the original domain and the active ruleset.
type DomainMappingEntry struct {
	OriginalDomain   string     `json:"original_domain" db:"original_domain"`
	NormalizedDomain string     `json:"normalized_domain" db:"normalized_domain"`
	DomainType       DomainType `json:"domain_type" db:"domain_type"`
}

// CompanyEntity is a consolidated company keyed by its normalized domain.
// Fully recomputed each run from its cluster's member customers.
type CompanyEntity struct {
	CompanyDomainKey     string          `json:"company_domain_key" db:"company_domain_key"`
	DomainType           DomainType      `json:"domain_type" db:"domain_type"`
	CompanyName          string          `json:"company_name" db:"company_name"`
	PrimaryEmail         string          `json:"primary_email,omitempty" db:"primary_email"`
	PrimaryPhone         string          `json:"primary_phone,omitempty" db:"primary_phone"`
	PrimaryAddress       string          `json:"primary_address,omitempty" db:"primary_address"`
	CustomerCount        int             `json:"customer_count" db:"customer_count"`
	TotalRevenue         decimal.Decimal `json:"total_revenue" db:"total_revenue"`
	TotalOrders          int             `json:"total_orders" db:"total_orders"`
	FirstOrderDate       *time.Time      `json:"first_order_date,omitempty" db:"first_order_date"`
	LatestOrderDate      *time.Time      `json:"latest_order_date,omitempty" db:"latest_order_date"`
	BusinessSizeCategory string          `json:"business_size_category" db:"business_size_category"`
	RevenueCategory      string          `json:"revenue_category" db:"revenue_category"`
}

// CustomerCompanyLink is the bridge row enabling drill-down from a company
// to its member customers. Every customer gets exactly one link per run,
// including no-email and skip-domain customers (via sentinel keys).
type CustomerCompanyLink struct {
	CustomerID             string          `json:"customer_id" db:"customer_id"`
	CompanyDomainKey       string          `json:"company_domain_key" db:"company_domain_key"`
	CustomerName           string          `json:"customer_name" db:"customer_name"`
	DomainType             DomainType      `json:"domain_type" db:"domain_type"`
	CustomerTotalRevenue   decimal.Decimal `json:"customer_total_revenue" db:"customer_total_revenue"`
	CustomerTotalOrders    int             `json:"customer_total_orders" db:"customer_total_orders"`
	FirstOrderDate         *time.Time      `json:"first_order_date,omitempty" db:"first_order_date"`
	LatestOrderDate        *time.Time      `json:"latest_order_date,omitempty" db:"latest_order_date"`
	CustomerValueTier      string          `json:"customer_value_tier" db:"customer_value_tier"`
	CustomerActivityStatus string          `json:"customer_activity_status" db:"customer_activity_status"`
}

// RunSummary collects per-run data-quality counters. Data-quality issues are
// counted and reported, never fatal; the counters ship with the run log entry.
type RunSummary struct {
	CustomersTotal      int             `json:"customers_total"`
	CompaniesFormed     int             `json:"companies_formed"`
	BridgeRows          int             `json:"bridge_rows"`
	NoEmailCustomers    int             `json:"no_email_customers"`
	SkipDomainCustomers int             `json:"skip_domain_customers"`
	DomainsMapped       int             `json:"domains_mapped"`
	TransactionLines    int             `json:"transaction_lines"`
	SkippedAmounts      int             `json:"skipped_amounts"`
	MalformedDates      int             `json:"malformed_dates"`
	UnattributedLines   int             `json:"unattributed_lines"`
	UnattributedRevenue decimal.Decimal `json:"unattributed_revenue"`
	DuplicateNameJoins  int             `json:"duplicate_name_joins"`
}
