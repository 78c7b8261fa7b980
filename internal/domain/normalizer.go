package domain

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/consolidate-cli/internal/model"
)

var errNilRuleset = eris.New("domain: nil ruleset")

// individualPrefix marks normalized keys for personal-provider domains.
// Each individual customer keeps a distinct key so free-mail users are never
// merged into one company by virtue of sharing a provider.
const individualPrefix = "INDIVIDUAL_"

// Normalizer maps a raw email domain to its normalized form and
// classification. Safe for concurrent use; all state is read-only after
// construction.
type Normalizer struct {
	rules     []ConsolidationRule
	skip      map[string]struct{}
	personal  map[string]struct{}
	rulesetID string
}

// NewNormalizer compiles a validated ruleset into a Normalizer.
func NewNormalizer(rs *Ruleset) (*Normalizer, error) {
	if rs == nil {
		return nil, errNilRuleset
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}

	n := &Normalizer{
		rules:     make([]ConsolidationRule, 0, len(rs.Consolidation)),
		skip:      make(map[string]struct{}, len(rs.SkipDomains)),
		personal:  make(map[string]struct{}, len(rs.PersonalProviders)),
		rulesetID: rs.Version,
	}
	for _, rule := range rs.Consolidation {
		n.rules = append(n.rules, ConsolidationRule{
			Suffix:    strings.ToLower(strings.TrimSpace(rule.Suffix)),
			Canonical: strings.ToLower(strings.TrimSpace(rule.Canonical)),
		})
	}
	for _, d := range rs.SkipDomains {
		n.skip[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	for _, d := range rs.PersonalProviders {
		n.personal[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return n, nil
}

// RulesetVersion returns the version string of the compiled ruleset.
func (n *Normalizer) RulesetVersion() string { return n.rulesetID }

// Normalize maps a lowercase, trimmed domain to its normalized form and
// type. Rules apply in order, first match wins: explicit consolidation,
// skip blocklist, personal providers, then corporate passthrough.
func (n *Normalizer) Normalize(domain string) (string, model.DomainType) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return model.KeyNoEmail, model.DomainNoEmail
	}

	for _, rule := range n.rules {
		if domain == rule.Suffix || strings.HasSuffix(domain, "."+rule.Suffix) {
			return rule.Canonical, model.DomainCorporate
		}
	}

	if _, ok := n.skip[domain]; ok {
		return domain, model.DomainSkip
	}

	if _, ok := n.personal[domain]; ok {
		return individualPrefix + strings.ToUpper(domain), model.DomainIndividual
	}

	return domain, model.DomainCorporate
}

// Mapping returns the audit entry for one original domain.
func (n *Normalizer) Mapping(domain string) model.DomainMappingEntry {
	normalized, typ := n.Normalize(domain)
	return model.DomainMappingEntry{
		OriginalDomain:   strings.ToLower(strings.TrimSpace(domain)),
		NormalizedDomain: normalized,
		DomainType:       typ,
	}
}
