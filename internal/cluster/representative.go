package cluster

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sells-group/consolidate-cli/internal/revenue"
)

// Representative holds the single published name/email/phone/address for a
// company, all sourced from one chosen member record so the result is never
// a mix of attributes from different customers.
type Representative struct {
	CompanyName    string
	PrimaryEmail   string
	PrimaryPhone   string
	PrimaryAddress string
}

// memberRank carries the precomputed sort keys for one member.
type memberRank struct {
	member  Member
	balance decimal.Decimal
	hasBal  bool
}

// SelectRepresentative picks the representative attributes for a cluster.
//
// The ordering is computed once per cluster and applied to every attribute
// pick: highest parsed current_balance first (unparsable balances rank
// lowest), then longest company_name, then lowest customer_id as the stable
// fallback. The top-ranked member supplies email, phone, address, and the
// company name — its company_name field if non-empty, else its
// customer_name. Ranking by balance favors the financially significant
// member whose data is most likely maintained; the id fallback keeps the
// pick fully reproducible.
func SelectRepresentative(c Cluster) Representative {
	if len(c.Members) == 0 {
		return Representative{}
	}

	ranks := make([]memberRank, len(c.Members))
	for i, m := range c.Members {
		bal, ok := revenue.ParseBalance(m.Customer.CurrentBalance)
		ranks[i] = memberRank{member: m, balance: bal, hasBal: ok}
	}

	sort.SliceStable(ranks, func(i, j int) bool {
		a, b := ranks[i], ranks[j]
		if a.hasBal != b.hasBal {
			return a.hasBal
		}
		if a.hasBal && b.hasBal && !a.balance.Equal(b.balance) {
			return a.balance.GreaterThan(b.balance)
		}
		an, bn := len(a.member.Customer.CompanyName), len(b.member.Customer.CompanyName)
		if an != bn {
			return an > bn
		}
		return a.member.Customer.CustomerID < b.member.Customer.CustomerID
	})

	top := ranks[0].member.Customer

	name := top.CompanyName
	if name == "" {
		name = top.CustomerName
	}

	return Representative{
		CompanyName:    name,
		PrimaryEmail:   firstEmail(top.MainEmail, top.CCEmail),
		PrimaryPhone:   top.MainPhone,
		PrimaryAddress: top.BillingAddress(),
	}
}

// firstEmail returns the first address of the main field, falling back to
// the cc field, mirroring domain extraction.
func firstEmail(mainField, ccField string) string {
	for _, field := range []string{mainField, ccField} {
		for _, part := range strings.Split(field, ";") {
			if addr := strings.TrimSpace(part); addr != "" {
				return addr
			}
		}
	}
	return ""
}
