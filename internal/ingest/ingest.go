// Package ingest runs the daily lead ingest cycle: search every configured
// query, normalize the places into leads, drop the ones already stored and
// append the rest.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadgen-cli/internal/cost"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// MapsClient searches a map provider for businesses matching a query.
type MapsClient interface {
	Search(ctx context.Context, query string) ([]Place, error)
}

// LeadReader reads the ids of every lead already persisted.
type LeadReader interface {
	ReadKnownLeadIDs(ctx context.Context) (model.IDSet, error)
}

// LeadWriter appends leads and ingest run logs.
type LeadWriter interface {
	AppendLeads(ctx context.Context, leads []model.Lead) error
	AppendIngestLog(ctx context.Context, s *model.IngestSummary) error
}

// LeadStore is the persistence needed by an ingest run.
type LeadStore interface {
	LeadReader
	LeadWriter
}

type requestCounter interface {
	Requests() int
}

// Runner executes ingest cycles.
type Runner struct {
	maps        MapsClient
	store       LeadStore
	costs       *cost.Calculator
	concurrency int

	now   func() time.Time
	newID func() string
}

// NewRunner creates a Runner. concurrency bounds in-flight queries.
func NewRunner(maps MapsClient, st LeadStore, costs *cost.Calculator, concurrency int) *Runner {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Runner{
		maps:        maps,
		store:       st,
		costs:       costs,
		concurrency: concurrency,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

type queryResult struct {
	places []Place
	err    error
}

// Run executes one ingest cycle and always returns its summary. The summary
// is appended to the ingest log before Run returns.
func (r *Runner) Run(ctx context.Context, queries []Query) *model.IngestSummary {
	sum := &model.IngestSummary{
		RunTiming:        model.NewRunTiming(r.newID(), r.now()),
		QueriesAttempted: len(queries),
	}
	log := zap.L().With(
		zap.String("component", "ingest"),
		zap.String("run_id", sum.RunID),
	)
	log.Info("ingest run starting", zap.Int("queries", len(queries)))

	defer r.finish(ctx, sum, log)

	results := r.scrape(ctx, queries, log)

	var leads []model.Lead
	for i, res := range results {
		q := queries[i]
		if res.err != nil {
			sum.QueriesFailed++
			sum.AddError(fmt.Sprintf("query %q failed: %v", q.Text, res.err))
			continue
		}
		sum.QueriesSucceeded++
		for _, p := range res.places {
			lead, ok := NormalizeLead(p, q, r.now())
			if !ok {
				sum.Malformed++
				log.Warn("dropping place without id, name or phone",
					zap.String("query", q.Text),
					zap.String("name", p.Name),
				)
				continue
			}
			lead.RunDate = sum.RunDate
			leads = append(leads, lead)
		}
	}
	sum.TotalScraped = len(leads)

	known, err := r.store.ReadKnownLeadIDs(ctx)
	if err != nil {
		sum.Fail(fmt.Sprintf("read existing leads: %v", err))
		return sum
	}
	log.Info("existing leads loaded", zap.Int("known", known.Len()))

	res := Dedupe(leads, known)
	sum.DupesSkipped = res.Dupes
	sum.Malformed += res.Malformed

	if len(res.New) > 0 {
		if err := r.store.AppendLeads(ctx, res.New); err != nil {
			sum.Fail(fmt.Sprintf("append leads: %v", err))
			return sum
		}
	}
	sum.NewAppended = len(res.New)
	return sum
}

// scrape runs every query with bounded concurrency. Results are indexed by
// query so downstream dedupe sees them in plan order.
func (r *Runner) scrape(ctx context.Context, queries []Query, log *zap.Logger) []queryResult {
	results := make([]queryResult, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, q := range queries {
		g.Go(func() error {
			places, err := r.maps.Search(gctx, q.Text)
			results[i] = queryResult{places: places, err: err}
			if err != nil {
				log.Error("query failed", zap.String("query", q.Text), zap.Error(err))
				return nil
			}
			log.Debug("query complete", zap.String("query", q.Text), zap.Int("places", len(places)))
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runner) finish(ctx context.Context, sum *model.IngestSummary, log *zap.Logger) {
	if rc, ok := r.maps.(requestCounter); ok {
		sum.CostUSD = r.costs.PlacesRequests(rc.Requests())
	}
	sum.Finish(r.now())

	if err := r.store.AppendIngestLog(context.WithoutCancel(ctx), sum); err != nil {
		log.Error("failed to write ingest log", zap.Error(err))
	}

	log.Info("ingest run finished",
		zap.String("status", string(sum.Status)),
		zap.Int("total_scraped", sum.TotalScraped),
		zap.Int("new_appended", sum.NewAppended),
		zap.Int("dupes_skipped", sum.DupesSkipped),
		zap.Int("malformed", sum.Malformed),
		zap.Int("queries_succeeded", sum.QueriesSucceeded),
		zap.Int("queries_attempted", sum.QueriesAttempted),
		zap.Duration("duration", sum.Duration()),
	)
}
