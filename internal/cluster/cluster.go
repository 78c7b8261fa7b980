// Package cluster groups customer records into company clusters by
// normalized email domain and selects each cluster's representative
// attributes deterministically.
package cluster

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/consolidate-cli/internal/domain"
	"github.com/sells-group/consolidate-cli/internal/model"
)

// Member pairs a customer record with its extracted domain.
type Member struct {
	Customer   model.CustomerRecord
	Extraction domain.Extraction
}

// Cluster is the set of customers sharing one normalized domain, destined
// to become one CompanyEntity.
type Cluster struct {
	Key     string
	Type    model.DomainType
	Members []Member
}

// StandaloneReason explains why a customer formed no company.
type StandaloneReason string

// Standalone reasons.
const (
	ReasonNoEmail    StandaloneReason = "no_email"
	ReasonSkipDomain StandaloneReason = "skip_domain"
)

// Standalone is a customer excluded from company formation but preserved
// for the bridge output.
type Standalone struct {
	Member Member
	Reason StandaloneReason
}

// SentinelKey returns the bridge company_domain_key for a standalone customer.
func (s Standalone) SentinelKey() string {
	if s.Reason == ReasonSkipDomain {
		return model.KeySkippedDomain
	}
	return model.KeyNoEmail
}

// Build groups members by normalized domain. Skip-domain and no-email
// customers become standalone outcomes instead of cluster members; an
// individual-type domain still forms exactly one single-bucket cluster so
// high-value individual buyers stay analyzable. Clusters and their members
// come back in deterministic order regardless of input order.
func Build(members []Member) ([]Cluster, []Standalone) {
	grouped := make(map[string]*Cluster)
	var standalone []Standalone

	for _, m := range members {
		switch m.Extraction.Type {
		case model.DomainNoEmail:
			standalone = append(standalone, Standalone{Member: m, Reason: ReasonNoEmail})
			continue
		case model.DomainSkip:
			standalone = append(standalone, Standalone{Member: m, Reason: ReasonSkipDomain})
			continue
		}

		key := m.Extraction.NormalizedDomain
		c := grouped[key]
		if c == nil {
			c = &Cluster{Key: key, Type: m.Extraction.Type}
			grouped[key] = c
		}
		c.Members = append(c.Members, m)
	}

	clusters := make([]Cluster, 0, len(grouped))
	for _, c := range grouped {
		sort.Slice(c.Members, func(i, j int) bool {
			return c.Members[i].Customer.CustomerID < c.Members[j].Customer.CustomerID
		})
		clusters = append(clusters, *c)
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Key < clusters[j].Key })

	sort.Slice(standalone, func(i, j int) bool {
		return standalone[i].Member.Customer.CustomerID < standalone[j].Member.Customer.CustomerID
	})

	zap.L().Debug("cluster: build complete",
		zap.Int("members", len(members)),
		zap.Int("clusters", len(clusters)),
		zap.Int("standalone", len(standalone)),
	)

	return clusters, standalone
}
