package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/consolidate-cli/internal/domain"
	"github.com/sells-group/consolidate-cli/internal/model"
)

func member(id, name, normDomain string, typ model.DomainType) Member {
	return Member{
		Customer: model.CustomerRecord{CustomerID: id, CustomerName: name},
		Extraction: domain.Extraction{
			CustomerID:       id,
			NormalizedDomain: normDomain,
			Type:             typ,
		},
	}
}

func TestBuild_GroupsByNormalizedDomain(t *testing.T) {
	members := []Member{
		member("C1", "Fastenal ILBEV", "fastenal.com", model.DomainCorporate),
		member("C2", "Fastenal Corp", "fastenal.com", model.DomainCorporate),
		member("C3", "Acme", "acme.biz", model.DomainCorporate),
	}

	clusters, standalone := Build(members)
	require.Len(t, clusters, 2)
	assert.Empty(t, standalone)

	// Sorted by key: acme.biz before fastenal.com.
	assert.Equal(t, "acme.biz", clusters[0].Key)
	assert.Equal(t, "fastenal.com", clusters[1].Key)
	assert.Len(t, clusters[1].Members, 2)
}

func TestBuild_SkipDomainGoesStandalone(t *testing.T) {
	members := []Member{
		member("C1", "Amazon Buyer", "marketplace.amazon.com", model.DomainSkip),
	}

	clusters, standalone := Build(members)
	assert.Empty(t, clusters)
	require.Len(t, standalone, 1)
	assert.Equal(t, ReasonSkipDomain, standalone[0].Reason)
	assert.Equal(t, model.KeySkippedDomain, standalone[0].SentinelKey())
}

func TestBuild_NoEmailGoesStandalone(t *testing.T) {
	members := []Member{
		member("C1", "Walk-in", model.KeyNoEmail, model.DomainNoEmail),
	}

	clusters, standalone := Build(members)
	assert.Empty(t, clusters)
	require.Len(t, standalone, 1)
	assert.Equal(t, ReasonNoEmail, standalone[0].Reason)
	assert.Equal(t, model.KeyNoEmail, standalone[0].SentinelKey())
}

func TestBuild_IndividualFormsOwnCluster(t *testing.T) {
	members := []Member{
		member("C1", "Joe", "INDIVIDUAL_GMAIL.COM", model.DomainIndividual),
		member("C2", "Jane", "INDIVIDUAL_YAHOO.COM", model.DomainIndividual),
	}

	clusters, _ := Build(members)
	require.Len(t, clusters, 2)
	assert.Equal(t, model.DomainIndividual, clusters[0].Type)
	assert.Len(t, clusters[0].Members, 1)
}

func TestBuild_DeterministicOrdering(t *testing.T) {
	forward := []Member{
		member("C1", "A", "acme.biz", model.DomainCorporate),
		member("C2", "B", "acme.biz", model.DomainCorporate),
		member("C3", "C", "zeta.com", model.DomainCorporate),
	}
	reversed := []Member{forward[2], forward[1], forward[0]}

	c1, _ := Build(forward)
	c2, _ := Build(reversed)
	require.Equal(t, len(c1), len(c2))
	for i := range c1 {
		assert.Equal(t, c1[i].Key, c2[i].Key)
		require.Equal(t, len(c1[i].Members), len(c2[i].Members))
		for j := range c1[i].Members {
			assert.Equal(t, c1[i].Members[j].Customer.CustomerID, c2[i].Members[j].Customer.CustomerID)
		}
	}
}

func TestBuild_SameDomainSameCluster(t *testing.T) {
	// Two corporate customers on one normalized domain always share a key.
	members := []Member{
		member("C1", "A", "fastenal.com", model.DomainCorporate),
		member("C2", "B", "fastenal.com", model.DomainCorporate),
	}
	clusters, _ := Build(members)
	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0].Members, 2)
}
