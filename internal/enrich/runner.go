// Package enrich finds and reveals decision-maker contacts for stored leads
// under a per-run credit budget. Runs are resumable: every company's rows
// are written as soon as it is done, and the next run skips companies that
// already have settling rows.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/cost"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
)

// SearchClient finds candidate contacts for a company. Searches are free.
type SearchClient interface {
	Search(ctx context.Context, id model.Identity) ([]model.CandidateContact, error)
}

// RevealClient reveals one person's contact details for one credit.
type RevealClient interface {
	Reveal(ctx context.Context, personID string) (*model.EnrichedContact, error)
}

// LeadReader reads the run's input snapshots.
type LeadReader interface {
	ReadLeads(ctx context.Context) ([]model.Lead, error)
	ReadEnrichedIDs(ctx context.Context) (model.IDSet, error)
	ReadRevealedKeys(ctx context.Context) (model.IDSet, error)
}

// ContactWriter appends contact rows and enrichment run logs.
type ContactWriter interface {
	AppendContacts(ctx context.Context, rows []model.ContactRow) error
	AppendEnrichmentLog(ctx context.Context, s *model.EnrichmentSummary) error
}

// Store is the persistence needed by an enrichment run.
type Store interface {
	LeadReader
	ContactWriter
}

// Options are the per-run knobs, usually from config and CLI flags.
type Options struct {
	BatchSize     int
	Budget        int
	RevealRetries int
	DryRun        bool
}

// Runner executes enrichment runs. It processes one company at a time.
type Runner struct {
	search   SearchClient
	reveal   RevealClient
	store    Store
	policy   TitlePolicy
	resolver *Resolver
	costs    *cost.Calculator

	now   func() time.Time
	newID func() string
}

// NewRunner creates a Runner. A nil resolver uses the default blocklist.
func NewRunner(search SearchClient, reveal RevealClient, st Store, policy TitlePolicy, resolver *Resolver, costs *cost.Calculator) *Runner {
	if resolver == nil {
		resolver = defaultResolver
	}
	return &Runner{
		search:   search,
		reveal:   reveal,
		store:    st,
		policy:   policy,
		resolver: resolver,
		costs:    costs,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// errPersist aborts the run after a failed write.
type errPersist struct{ err error }

func (e *errPersist) Error() string { return "write contacts: " + e.err.Error() }
func (e *errPersist) Unwrap() error { return e.err }

// run carries the mutable state of one Run call.
type run struct {
	sum      *model.EnrichmentSummary
	budget   *Budget
	revealed model.IDSet
	settled  int
	log      *zap.Logger
}

// Run executes one enrichment run and always returns its summary, which is
// appended to the enrichment log before Run returns.
func (r *Runner) Run(ctx context.Context, opts Options) *model.EnrichmentSummary {
	sum := &model.EnrichmentSummary{
		RunTiming: model.NewRunTiming(r.newID(), r.now()),
		BatchSize: opts.BatchSize,
		DryRun:    opts.DryRun,
	}
	st := &run{
		sum:    sum,
		budget: NewBudget(opts.Budget),
		log: zap.L().With(
			zap.String("component", "enrich"),
			zap.String("run_id", sum.RunID),
		),
	}
	st.log.Info("enrichment run starting",
		zap.Int("batch_size", opts.BatchSize),
		zap.Int("budget", opts.Budget),
		zap.Bool("dry_run", opts.DryRun),
	)

	var pending []model.Lead
	defer func() { r.finish(ctx, st, len(pending)) }()

	leads, err := r.store.ReadLeads(ctx)
	if err != nil {
		sum.Fail(fmt.Sprintf("read leads: %v", err))
		return sum
	}
	enriched, err := r.store.ReadEnrichedIDs(ctx)
	if err != nil {
		sum.Fail(fmt.Sprintf("read enriched companies: %v", err))
		return sum
	}
	if st.revealed, err = r.store.ReadRevealedKeys(ctx); err != nil {
		sum.Fail(fmt.Sprintf("read revealed contacts: %v", err))
		return sum
	}

	pending = PendingCompanies(leads, enriched)
	st.log.Info("snapshots loaded",
		zap.Int("leads", len(leads)),
		zap.Int("enriched", enriched.Len()),
		zap.Int("pending", len(pending)),
	)

	for taken, lead := range pending {
		if opts.BatchSize > 0 && taken >= opts.BatchSize {
			break
		}
		if !opts.DryRun && st.budget.Remaining() < 1 {
			sum.BudgetExhausted = true
			st.log.Info("credit budget exhausted", zap.Int("companies_left", len(pending)-taken))
			break
		}
		if err := ctx.Err(); err != nil {
			sum.AddError(fmt.Sprintf("run interrupted: %v", err))
			break
		}

		err := r.company(ctx, st, lead, opts)
		var perr *errPersist
		switch {
		case errors.As(err, &perr):
			sum.AddError(fmt.Sprintf("lead %q: %v", lead.BusinessName, err))
			return sum
		case errors.Is(err, ErrUnauthorized):
			sum.Fail(err.Error())
			return sum
		}
	}
	return sum
}

// company searches, ranks and reveals one lead. Only persistence and
// authentication failures are returned; everything else is counted.
func (r *Runner) company(ctx context.Context, st *run, lead model.Lead, opts Options) error {
	sum := st.sum
	log := st.log.With(zap.String("place_id", lead.ID), zap.String("business_name", lead.BusinessName))

	id, ok := r.resolver.Resolve(lead)
	if !ok {
		sum.LeadsSkippedNoData++
		log.Warn("no website or business name, skipping")
		return nil
	}
	sum.LeadsProcessed++
	src := id.Source()

	candidates, err := r.search.Search(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return err
		}
		sum.SearchErrors++
		sum.AddError(fmt.Sprintf("lead %q search failed: %v", lead.BusinessName, err))
		log.Error("search failed", zap.Error(err))
		return nil
	}

	ranked := Rank(candidates, nil, r.policy)
	sum.ContactsFound += len(ranked)
	log.Info("candidates ranked",
		zap.String("identity", id.Value),
		zap.String("source", string(src)),
		zap.Int("found", len(candidates)),
		zap.Int("selected", len(ranked)),
	)

	if opts.DryRun {
		for _, c := range ranked {
			log.Info("dry run: would reveal", zap.String("person_id", c.PersonID), zap.String("title", c.Title))
		}
		return nil
	}

	if len(ranked) == 0 {
		return r.write(ctx, st, []model.ContactRow{model.NoContactsMarker(lead, src, sum.RunDate)}, true)
	}

	todo := make([]model.CandidateContact, 0, len(ranked))
	for _, c := range ranked {
		if !st.revealed.Has(model.ContactKey(lead.ID, c.PersonID)) {
			todo = append(todo, c)
		}
	}
	if len(todo) == 0 {
		return r.write(ctx, st, []model.ContactRow{model.CompletionMarker(lead, src, sum.RunDate)}, true)
	}

	outcome := RevealAll(ctx, todo, st.budget, r.revealFunc(lead), WithRetries(opts.RevealRetries))
	var authErr error
	retry := outcome.Skipped > 0
	for _, f := range outcome.Failures {
		switch {
		case errors.Is(f.Err, ErrUnauthorized):
			authErr = f.Err
			continue
		case errors.Is(f.Err, ErrCreditsExhausted):
			sum.AddError("provider credits exhausted, stopping early")
			continue
		case retryable(f.Err):
			retry = true
		}
		sum.RevealErrors++
		sum.AddError(fmt.Sprintf("lead %q reveal %s failed: %v", lead.BusinessName, f.PersonID, f.Err))
		log.Error("reveal failed", zap.String("person_id", f.PersonID), zap.Error(f.Err))
	}
	if outcome.BudgetExhausted {
		sum.BudgetExhausted = true
	}
	if err := ctx.Err(); err != nil && outcome.Skipped > 0 {
		sum.AddError(fmt.Sprintf("lead %q interrupted: %v", lead.BusinessName, err))
	}
	if authErr != nil {
		retry = true
	}
	sum.ContactsEnriched += len(outcome.Revealed)

	// A company stays pending while candidates are left that a later run
	// could still reveal.
	status := model.ContactRevealed
	if retry {
		status = model.ContactPartial
	}
	rows := make([]model.ContactRow, 0, len(outcome.Revealed))
	for _, c := range outcome.Revealed {
		row := model.NewContactRow(lead, src, sum.RunDate, c)
		row.Status = status
		rows = append(rows, row)
	}
	if len(rows) > 0 {
		if err := r.write(ctx, st, rows, !retry); err != nil {
			return err
		}
	}
	return authErr
}

// retryable reports whether a failed reveal may succeed on a later run.
func retryable(err error) bool {
	return resilience.IsTransient(err) || errors.Is(err, resilience.ErrCircuitOpen)
}

func (r *Runner) revealFunc(lead model.Lead) RevealFunc {
	return func(ctx context.Context, c model.CandidateContact) (*model.EnrichedContact, error) {
		contact, err := r.reveal.Reveal(ctx, c.PersonID)
		if err != nil || contact == nil {
			return contact, err
		}
		if contact.Phone == "" {
			contact.Phone = lead.Phone
		}
		if strings.TrimSpace(contact.CompanyName) == "" {
			contact.CompanyName = lead.BusinessName
		}
		return contact, nil
	}
}

// write appends rows even when ctx is cancelled; the credits behind them are
// already spent.
func (r *Runner) write(ctx context.Context, st *run, rows []model.ContactRow, settles bool) error {
	if err := r.store.AppendContacts(context.WithoutCancel(ctx), rows); err != nil {
		return &errPersist{err: err}
	}
	for _, row := range rows {
		if row.PersonID != "" {
			st.revealed.Add(row.Key())
		}
	}
	if settles {
		st.settled++
	}
	return nil
}

func (r *Runner) finish(ctx context.Context, st *run, pending int) {
	sum := st.sum
	sum.CreditsUsed = st.budget.Spent()
	sum.CostUSD = r.costs.Credits(sum.CreditsUsed)
	sum.CompaniesPending = max(pending-st.settled, 0)
	sum.Finish(r.now())

	if err := r.store.AppendEnrichmentLog(context.WithoutCancel(ctx), sum); err != nil {
		st.log.Error("failed to write enrichment log", zap.Error(err))
	}

	st.log.Info("enrichment run finished",
		zap.String("status", string(sum.Status)),
		zap.Int("leads_processed", sum.LeadsProcessed),
		zap.Int("leads_skipped_no_data", sum.LeadsSkippedNoData),
		zap.Int("companies_pending", sum.CompaniesPending),
		zap.Int("contacts_found", sum.ContactsFound),
		zap.Int("contacts_enriched", sum.ContactsEnriched),
		zap.Int("credits_used", sum.CreditsUsed),
		zap.Bool("budget_exhausted", sum.BudgetExhausted),
		zap.Duration("duration", sum.Duration()),
	)
}
