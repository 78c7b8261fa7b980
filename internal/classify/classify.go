// Package classify derives size, revenue, and activity categories for
// consolidated companies and for individual customers. All thresholds are
// configuration, not constants, so tuning needs no code change.
package classify

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sells-group/consolidate-cli/internal/model"
)

// Business size categories.
const (
	SizeIndividual  = "Individual Customer"
	SizeSingle      = "Single Location"
	SizeSmallMulti  = "Small Multi-Location"
	SizeMediumMulti = "Medium Multi-Location"
	SizeLargeMulti  = "Large Multi-Location"
)

// Revenue categories, shared between the company grain and the customer
// value tier.
const (
	RevenueNone    = "No Revenue"
	RevenueLow     = "Low Value"
	RevenueGrowing = "Growing Value"
	RevenueMedium  = "Medium Value"
	RevenueHigh    = "High Value"
)

// Activity statuses derived from order recency.
const (
	ActivityActive   = "Active"
	ActivityRecent   = "Recent"
	ActivityDormant  = "Dormant"
	ActivityInactive = "Inactive"
	ActivityNone     = "No Orders"
)

// Thresholds holds the classification boundaries.
type Thresholds struct {
	// Size boundaries on customer_count: 1 is always Single Location;
	// counts up to SmallMax are Small Multi-Location, up to MediumMax are
	// Medium, above that Large.
	SizeSmallMax  int
	SizeMediumMax int

	// Revenue boundaries, lower-inclusive: [Low, Growing) etc.
	RevenueLowMax     decimal.Decimal
	RevenueGrowingMax decimal.Decimal
	RevenueMediumMax  decimal.Decimal

	// Activity recency windows in days.
	ActiveDays  int
	RecentDays  int
	DormantDays int
}

// DefaultThresholds returns the standard classification boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SizeSmallMax:      5,
		SizeMediumMax:     20,
		RevenueLowMax:     decimal.NewFromInt(5000),
		RevenueGrowingMax: decimal.NewFromInt(25000),
		RevenueMediumMax:  decimal.NewFromInt(100000),
		ActiveDays:        90,
		RecentDays:        365,
		DormantDays:       730,
	}
}

// Classifier applies a fixed set of thresholds.
type Classifier struct {
	t Thresholds
}

// New creates a Classifier with the given thresholds.
func New(t Thresholds) Classifier {
	return Classifier{t: t}
}

// BusinessSize categorizes a company by member count. Individual-type
// companies always classify as Individual Customer regardless of count.
func (c Classifier) BusinessSize(customerCount int, domainType model.DomainType) string {
	if domainType == model.DomainIndividual {
		return SizeIndividual
	}
	switch {
	case customerCount <= 1:
		return SizeSingle
	case customerCount <= c.t.SizeSmallMax:
		return SizeSmallMulti
	case customerCount <= c.t.SizeMediumMax:
		return SizeMediumMulti
	default:
		return SizeLargeMulti
	}
}

// RevenueCategory buckets a total revenue amount.
func (c Classifier) RevenueCategory(total decimal.Decimal) string {
	switch {
	case total.Sign() <= 0:
		return RevenueNone
	case total.LessThan(c.t.RevenueLowMax):
		return RevenueLow
	case total.LessThan(c.t.RevenueGrowingMax):
		return RevenueGrowing
	case total.LessThan(c.t.RevenueMediumMax):
		return RevenueMedium
	default:
		return RevenueHigh
	}
}

// CustomerValueTier mirrors RevenueCategory at the customer grain.
func (c Classifier) CustomerValueTier(total decimal.Decimal) string {
	return c.RevenueCategory(total)
}

// ActivityStatus derives the recency category of a customer's latest order
// relative to asOf. asOf is captured once per run so classification is
// reproducible within a run.
func (c Classifier) ActivityStatus(latestOrder *time.Time, asOf time.Time) string {
	if latestOrder == nil {
		return ActivityNone
	}
	age := asOf.Sub(*latestOrder)
	switch {
	case age <= time.Duration(c.t.ActiveDays)*24*time.Hour:
		return ActivityActive
	case age <= time.Duration(c.t.RecentDays)*24*time.Hour:
		return ActivityRecent
	case age <= time.Duration(c.t.DormantDays)*24*time.Hour:
		return ActivityDormant
	default:
		return ActivityInactive
	}
}
