// Package domain normalizes raw email domains and extracts the primary
// domain from customer email fields. Normalization is a pure function of
// the loaded ruleset, so identical domains always map identically within
// one run.
package domain

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ConsolidationRule maps any domain ending in Suffix (or equal to Canonical)
// onto one canonical corporate domain, e.g. suffix "fastenal.com" folds
// "stores.fastenal.com" into "fastenal.com".
type ConsolidationRule struct {
	Suffix    string `yaml:"suffix"`
	Canonical string `yaml:"canonical"`
}

// Ruleset is the versioned domain-normalization configuration. It is loaded
// once at engine construction and passed in explicitly — never held as
// package-level mutable state — so a run's behavior is fully determined by
// its inputs.
type Ruleset struct {
	Version           string              `yaml:"version"`
	Consolidation     []ConsolidationRule `yaml:"consolidation"`
	SkipDomains       []string            `yaml:"skip_domains"`
	PersonalProviders []string            `yaml:"personal_providers"`
}

// LoadRuleset reads and validates a ruleset YAML file. A missing or invalid
// ruleset is a configuration error: the caller must fail the run before any
// output is written, since silent misclassification would corrupt all
// downstream revenue attribution.
func LoadRuleset(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "domain: read ruleset %s", path)
	}

	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, eris.Wrapf(err, "domain: parse ruleset %s", path)
	}

	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Validate checks structural requirements on the ruleset.
func (rs *Ruleset) Validate() error {
	if rs.Version == "" {
		return eris.New("domain: ruleset missing version")
	}
	for i, rule := range rs.Consolidation {
		if strings.TrimSpace(rule.Suffix) == "" {
			return eris.Errorf("domain: consolidation rule %d has empty suffix", i)
		}
		if strings.TrimSpace(rule.Canonical) == "" {
			return eris.Errorf("domain: consolidation rule %d (%s) has empty canonical domain", i, rule.Suffix)
		}
	}
	for i, d := range rs.SkipDomains {
		if strings.TrimSpace(d) == "" {
			return eris.Errorf("domain: skip entry %d is empty", i)
		}
	}
	for i, d := range rs.PersonalProviders {
		if strings.TrimSpace(d) == "" {
			return eris.Errorf("domain: personal provider entry %d is empty", i)
		}
	}
	return nil
}

// DefaultRuleset returns the baseline ruleset shipped with the tool. Used
// when no ruleset file is configured, and as a template for a custom one.
func DefaultRuleset() *Ruleset {
	return &Ruleset{
		Version: "builtin-1",
		Consolidation: []ConsolidationRule{
			{Suffix: "fastenal.com", Canonical: "fastenal.com"},
		},
		SkipDomains: []string{
			"marketplace.amazon.com",
		},
		PersonalProviders: []string{
			"gmail.com", "yahoo.com", "hotmail.com", "outlook.com",
			"aol.com", "icloud.com", "msn.com", "live.com",
			"comcast.net", "att.net", "sbcglobal.net", "verizon.net",
			"bellsouth.net", "cox.net", "charter.net",
		},
	}
}
