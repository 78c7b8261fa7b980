// Package revenue joins transaction lines to customers and aggregates
// validated monetary amounts. Sums use decimal arithmetic so the
// company-level totals equal the sum of their customer-level totals exactly.
package revenue

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// ParseAmount parses a numeric-ish export string ("1,234.50", "$200") into
// a decimal. Returns an error for empty or non-numeric input; the caller
// decides whether to skip or count the failure.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, eris.New("revenue: empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, eris.Wrapf(err, "revenue: parse amount %q", raw)
	}
	return d, nil
}

// ParseBalance parses a customer balance field. Unparsable or empty balances
// report ok=false and are ranked lowest by the representative selector.
func ParseBalance(raw string) (decimal.Decimal, bool) {
	d, err := ParseAmount(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// dateLayouts lists the date formats seen in accounting exports, most
// common first.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate parses a date-ish export string using the known layouts.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, eris.New("revenue: empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, eris.Errorf("revenue: unrecognized date %q", raw)
}
