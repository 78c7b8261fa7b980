// Package engine orchestrates one consolidation run: extract domains,
// cluster customers into companies, aggregate revenue, classify, and
// publish the output tables atomically.
package engine

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/consolidate-cli/internal/classify"
	"github.com/sells-group/consolidate-cli/internal/cluster"
	"github.com/sells-group/consolidate-cli/internal/domain"
	"github.com/sells-group/consolidate-cli/internal/model"
	"github.com/sells-group/consolidate-cli/internal/revenue"
	"github.com/sells-group/consolidate-cli/internal/store"
)

// Options tunes a run.
type Options struct {
	// Workers bounds the extraction parallelism. Zero means 4.
	Workers int
	// TimeBudget, when positive, caps the whole run. On expiry the run is
	// recorded as failed and the previous output stays in place.
	TimeBudget time.Duration
}

// Engine runs consolidations against a store with a fixed ruleset and
// classifier. Safe to reuse across runs.
type Engine struct {
	store      store.Store
	norm       *domain.Normalizer
	classifier classify.Classifier
	opts       Options
}

// New creates an Engine.
func New(st store.Store, norm *domain.Normalizer, classifier classify.Classifier, opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Engine{store: st, norm: norm, classifier: classifier, opts: opts}
}

// Run executes one full consolidation. Every run is recorded in the run
// log; a failure (including time-budget expiry) marks the run failed and
// leaves the previous published output untouched.
func (e *Engine) Run(ctx context.Context) (*model.RunSummary, error) {
	runID := uuid.New().String()
	startedAt := time.Now().UTC()

	if e.opts.TimeBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.TimeBudget)
		defer cancel()
	}

	if err := e.store.StartRun(ctx, runID, e.norm.RulesetVersion()); err != nil {
		return nil, err
	}

	zap.L().Info("engine: run started",
		zap.String("run_id", runID),
		zap.String("ruleset_version", e.norm.RulesetVersion()),
	)

	summary, err := e.run(ctx, startedAt)
	if err != nil {
		// Record the failure even when ctx itself is what expired.
		if ferr := e.store.FailRun(context.WithoutCancel(ctx), runID, err.Error()); ferr != nil {
			zap.L().Error("engine: record run failure", zap.String("run_id", runID), zap.Error(ferr))
		}
		zap.L().Error("engine: run failed", zap.String("run_id", runID), zap.Error(err))
		return nil, err
	}

	if err := e.store.CompleteRun(ctx, runID, summary); err != nil {
		return nil, err
	}

	zap.L().Info("engine: run complete",
		zap.String("run_id", runID),
		zap.Duration("elapsed", time.Since(startedAt)),
		zap.Int("customers", summary.CustomersTotal),
		zap.Int("companies", summary.CompaniesFormed),
		zap.Int("bridge_rows", summary.BridgeRows),
		zap.Int("unattributed_lines", summary.UnattributedLines),
	)
	return summary, nil
}

func (e *Engine) run(ctx context.Context, asOf time.Time) (*model.RunSummary, error) {
	customers, err := e.store.LoadCustomers(ctx)
	if err != nil {
		return nil, err
	}
	lines, err := e.store.LoadTransactions(ctx)
	if err != nil {
		return nil, err
	}

	extractions, err := e.extractAll(ctx, customers)
	if err != nil {
		return nil, err
	}

	members := make([]cluster.Member, len(customers))
	for i, c := range customers {
		members[i] = cluster.Member{Customer: c, Extraction: extractions[i]}
	}
	clusters, standalone := cluster.Build(members)

	aggs, stats := revenue.Aggregate(lines, customers)

	out := e.assemble(clusters, standalone, extractions, aggs, asOf)

	if err := e.store.PublishOutputs(ctx, out); err != nil {
		return nil, err
	}

	summary := &model.RunSummary{
		CustomersTotal:      len(customers),
		CompaniesFormed:     len(out.Companies),
		BridgeRows:          len(out.Bridge),
		DomainsMapped:       len(out.Mappings),
		TransactionLines:    stats.Lines,
		SkippedAmounts:      stats.SkippedAmounts,
		MalformedDates:      stats.MalformedDates,
		UnattributedLines:   stats.UnattributedLines,
		UnattributedRevenue: stats.UnattributedRevenue,
		DuplicateNameJoins:  stats.DuplicateNameJoins,
	}
	for _, s := range standalone {
		if s.Reason == cluster.ReasonNoEmail {
			summary.NoEmailCustomers++
		} else {
			summary.SkipDomainCustomers++
		}
	}
	return summary, nil
}

// extractAll runs domain extraction across index partitions. Each worker
// writes only its own slice range, so no synchronization is needed beyond
// the errgroup barrier.
func (e *Engine) extractAll(ctx context.Context, customers []model.CustomerRecord) ([]domain.Extraction, error) {
	extractions := make([]domain.Extraction, len(customers))
	if len(customers) == 0 {
		return extractions, nil
	}

	workers := e.opts.Workers
	if workers > len(customers) {
		workers = len(customers)
	}
	chunk := (len(customers) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(customers); start += chunk {
		end := start + chunk
		if end > len(customers) {
			end = len(customers)
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				extractions[i] = domain.ExtractDomain(e.norm, customers[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return extractions, nil
}

// assemble builds the three output tables from clustered customers and
// per-customer revenue aggregates. Output ordering is deterministic: two
// runs over the same inputs and ruleset produce identical rows.
func (e *Engine) assemble(
	clusters []cluster.Cluster,
	standalone []cluster.Standalone,
	extractions []domain.Extraction,
	aggs map[string]*revenue.CustomerAggregate,
	asOf time.Time,
) *store.RunOutput {
	out := &store.RunOutput{}

	for _, cl := range clusters {
		rep := cluster.SelectRepresentative(cl)

		total := decimal.Zero
		orders := 0
		var first, latest *time.Time

		for _, m := range cl.Members {
			link := e.bridgeRow(m, cl.Key, cl.Type, aggs, asOf)
			out.Bridge = append(out.Bridge, link)

			total = total.Add(link.CustomerTotalRevenue)
			orders += link.CustomerTotalOrders
			first = earlierOf(first, link.FirstOrderDate)
			latest = laterOf(latest, link.LatestOrderDate)
		}

		out.Companies = append(out.Companies, model.CompanyEntity{
			CompanyDomainKey:     cl.Key,
			DomainType:           cl.Type,
			CompanyName:          rep.CompanyName,
			PrimaryEmail:         rep.PrimaryEmail,
			PrimaryPhone:         rep.PrimaryPhone,
			PrimaryAddress:       rep.PrimaryAddress,
			CustomerCount:        len(cl.Members),
			TotalRevenue:         total,
			TotalOrders:          orders,
			FirstOrderDate:       first,
			LatestOrderDate:      latest,
			BusinessSizeCategory: e.classifier.BusinessSize(len(cl.Members), cl.Type),
			RevenueCategory:      e.classifier.RevenueCategory(total),
		})
	}

	for _, s := range standalone {
		out.Bridge = append(out.Bridge, e.bridgeRow(s.Member, s.SentinelKey(), s.Member.Extraction.Type, aggs, asOf))
	}

	sort.Slice(out.Bridge, func(i, j int) bool {
		return out.Bridge[i].CustomerID < out.Bridge[j].CustomerID
	})

	out.Mappings = buildMappings(e.norm, extractions)
	return out
}

// bridgeRow builds the link row for one customer, zero-valued when the
// customer has no attributed revenue.
func (e *Engine) bridgeRow(m cluster.Member, key string, typ model.DomainType, aggs map[string]*revenue.CustomerAggregate, asOf time.Time) model.CustomerCompanyLink {
	rev := decimal.Zero
	orders := 0
	var first, latest *time.Time
	if agg := aggs[m.Customer.CustomerID]; agg != nil {
		rev = agg.Revenue
		orders = agg.Orders
		first = agg.FirstOrder
		latest = agg.LastOrder
	}
	return model.CustomerCompanyLink{
		CustomerID:             m.Customer.CustomerID,
		CompanyDomainKey:       key,
		CustomerName:           m.Customer.CustomerName,
		DomainType:             typ,
		CustomerTotalRevenue:   rev,
		CustomerTotalOrders:    orders,
		FirstOrderDate:         first,
		LatestOrderDate:        latest,
		CustomerValueTier:      e.classifier.CustomerValueTier(rev),
		CustomerActivityStatus: e.classifier.ActivityStatus(latest, asOf),
	}
}

// buildMappings returns one audit entry per distinct original domain, in
// lexical order.
func buildMappings(n *domain.Normalizer, extractions []domain.Extraction) []model.DomainMappingEntry {
	seen := make(map[string]struct{})
	var domains []string
	for _, ext := range extractions {
		if ext.OriginalDomain == "" {
			continue
		}
		if _, ok := seen[ext.OriginalDomain]; ok {
			continue
		}
		seen[ext.OriginalDomain] = struct{}{}
		domains = append(domains, ext.OriginalDomain)
	}
	sort.Strings(domains)

	mappings := make([]model.DomainMappingEntry, 0, len(domains))
	for _, d := range domains {
		mappings = append(mappings, n.Mapping(d))
	}
	return mappings
}

func earlierOf(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil || a.Before(*b) {
		return a
	}
	return b
}

func laterOf(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil || a.After(*b) {
		return a
	}
	return b
}
