package domain

import (
	"strings"

	"github.com/sells-group/consolidate-cli/internal/model"
)

// Extraction is the per-customer result of domain extraction.
type Extraction struct {
	CustomerID       string
	OriginalDomain   string
	NormalizedDomain string
	Type             model.DomainType
}

// firstAddress returns the first address of a `;`-delimited email field,
// trimmed and lowercased. Returns "" when the field holds no address.
func firstAddress(field string) string {
	for _, part := range strings.Split(field, ";") {
		addr := strings.ToLower(strings.TrimSpace(part))
		if addr != "" {
			return addr
		}
	}
	return ""
}

// domainOf returns the domain part of an address, or "" when the address is
// malformed (no `@`, or an empty domain part). Malformed addresses are
// treated as absent.
func domainOf(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return addr[at+1:]
}

// ExtractDomain parses a customer's email fields into its primary domain.
// The first address of the main email field wins; the cc field is the
// fallback. Customers with no parsable address classify as no_email and are
// excluded from clustering but still appear as standalone bridge rows.
func ExtractDomain(n *Normalizer, c model.CustomerRecord) Extraction {
	ext := Extraction{CustomerID: c.CustomerID}

	for _, field := range []string{c.MainEmail, c.CCEmail} {
		if d := domainOf(firstAddress(field)); d != "" {
			ext.OriginalDomain = d
			ext.NormalizedDomain, ext.Type = n.Normalize(d)
			return ext
		}
	}

	ext.NormalizedDomain = model.KeyNoEmail
	ext.Type = model.DomainNoEmail
	return ext
}
