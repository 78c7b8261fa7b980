package revenue

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/consolidate-cli/internal/model"
)

// CustomerAggregate holds the validated revenue metrics for one customer.
type CustomerAggregate struct {
	Revenue    decimal.Decimal
	Orders     int
	FirstOrder *time.Time
	LastOrder  *time.Time

	orderIDs map[string]struct{}
}

// Stats counts the data-quality issues observed during aggregation. These
// are surfaced in the run summary, never fatal.
type Stats struct {
	Lines               int
	SkippedAmounts      int
	MalformedDates      int
	UnattributedLines   int
	UnattributedRevenue decimal.Decimal
	DuplicateNameJoins  int
}

// Aggregate joins transaction lines to customers by exact case-sensitive
// customer name and sums validated amounts per customer.
//
// Lines with negative or non-numeric amounts are skipped and counted as
// data-quality noise. Lines referencing a name with no matching customer
// are excluded and counted as unattributed revenue. The name join is a
// known weak link inherited from the source data; when several customers
// share one exact name the line is attributed to each of them, preserving
// the join contract, and the collision is counted.
func Aggregate(lines []model.TransactionLine, customers []model.CustomerRecord) (map[string]*CustomerAggregate, Stats) {
	byName := make(map[string][]string, len(customers))
	for _, c := range customers {
		byName[c.CustomerName] = append(byName[c.CustomerName], c.CustomerID)
	}

	aggs := make(map[string]*CustomerAggregate, len(customers))
	stats := Stats{Lines: len(lines), UnattributedRevenue: decimal.Zero}

	for _, line := range lines {
		amount, err := ParseAmount(line.Amount)
		if err != nil || amount.IsNegative() {
			stats.SkippedAmounts++
			continue
		}

		ids, ok := byName[line.CustomerNameRef]
		if !ok {
			stats.UnattributedLines++
			stats.UnattributedRevenue = stats.UnattributedRevenue.Add(amount)
			continue
		}
		if len(ids) > 1 {
			stats.DuplicateNameJoins++
		}

		var txDate *time.Time
		if t, err := ParseDate(line.TransactionDate); err != nil {
			stats.MalformedDates++
		} else {
			txDate = &t
		}

		for _, id := range ids {
			agg := aggs[id]
			if agg == nil {
				agg = &CustomerAggregate{Revenue: decimal.Zero, orderIDs: make(map[string]struct{})}
				aggs[id] = agg
			}
			agg.apply(amount, line.OrderID, txDate)
		}
	}

	if stats.SkippedAmounts > 0 || stats.UnattributedLines > 0 {
		zap.L().Warn("revenue: aggregation quality issues",
			zap.Int("lines", stats.Lines),
			zap.Int("skipped_amounts", stats.SkippedAmounts),
			zap.Int("malformed_dates", stats.MalformedDates),
			zap.Int("unattributed_lines", stats.UnattributedLines),
			zap.String("unattributed_revenue", stats.UnattributedRevenue.String()),
			zap.Int("duplicate_name_joins", stats.DuplicateNameJoins),
		)
	}

	return aggs, stats
}

func (a *CustomerAggregate) apply(amount decimal.Decimal, orderID string, txDate *time.Time) {
	a.Revenue = a.Revenue.Add(amount)

	if orderID != "" {
		if _, seen := a.orderIDs[orderID]; !seen {
			a.orderIDs[orderID] = struct{}{}
			a.Orders++
		}
	}

	if txDate == nil {
		return
	}
	if a.FirstOrder == nil || txDate.Before(*a.FirstOrder) {
		t := *txDate
		a.FirstOrder = &t
	}
	if a.LastOrder == nil || txDate.After(*a.LastOrder) {
		t := *txDate
		a.LastOrder = &t
	}
}
