package enrich

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
)

// ErrCreditsExhausted is returned by a RevealClient when the provider's
// account has no credits left. It ends the run's reveals.
var ErrCreditsExhausted = eris.New("enrich: provider credits exhausted")

// ErrUnauthorized is returned when the provider rejects the API key.
var ErrUnauthorized = eris.New("enrich: provider rejected credentials")

// ErrEmptyReveal is recorded when the provider returns no person.
var ErrEmptyReveal = eris.New("enrich: reveal returned no contact")

// RevealFunc reveals one candidate. It is called at most once per credit.
type RevealFunc func(ctx context.Context, c model.CandidateContact) (*model.EnrichedContact, error)

// RevealFailure is a candidate whose reveal failed.
type RevealFailure struct {
	PersonID string
	Err      error
}

// RevealOutcome is the result of revealing one company's ranked candidates.
type RevealOutcome struct {
	Revealed        []model.EnrichedContact
	Failures        []RevealFailure
	Skipped         int
	BudgetExhausted bool
}

// RevealOption tunes RevealAll.
type RevealOption func(*revealOptions)

type revealOptions struct {
	retries int
}

// WithRetries allows n extra attempts for a candidate whose reveal failed
// transiently. Each attempt spends a credit.
func WithRetries(n int) RevealOption {
	return func(o *revealOptions) {
		o.retries = max(n, 0)
	}
}

// RevealAll reveals ranked candidates in order, spending one credit per
// attempt whatever its result. It stops when the budget cannot cover the
// next attempt or the provider reports ErrCreditsExhausted or
// ErrUnauthorized; the candidates not attempted, and the one refused for
// lack of credits, are counted in Skipped.
// Any other failed candidate does not stop the others.
func RevealAll(ctx context.Context, ranked []model.CandidateContact, budget *Budget, reveal RevealFunc, opts ...RevealOption) RevealOutcome {
	var o revealOptions
	for _, opt := range opts {
		opt(&o)
	}

	var out RevealOutcome
	for i, cand := range ranked {
		if budget.Remaining() < 1 {
			out.BudgetExhausted = true
			out.Skipped = len(ranked) - i
			return out
		}
		if ctx.Err() != nil {
			out.Skipped = len(ranked) - i
			return out
		}

		contact, err := revealOne(ctx, cand, budget, reveal, o.retries)
		switch {
		case errors.Is(err, ErrCreditsExhausted):
			budget.Drain()
			out.Failures = append(out.Failures, RevealFailure{PersonID: cand.PersonID, Err: err})
			out.BudgetExhausted = true
			out.Skipped = len(ranked) - i
			return out
		case errors.Is(err, ErrUnauthorized):
			out.Failures = append(out.Failures, RevealFailure{PersonID: cand.PersonID, Err: err})
			out.Skipped = len(ranked) - i - 1
			return out
		case err != nil:
			out.Failures = append(out.Failures, RevealFailure{PersonID: cand.PersonID, Err: err})
		default:
			out.Revealed = append(out.Revealed, mergeCandidate(cand, contact))
		}
	}
	return out
}

func revealOne(ctx context.Context, cand model.CandidateContact, budget *Budget, reveal RevealFunc, retries int) (*model.EnrichedContact, error) {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 && (!resilience.IsTransient(lastErr) || ctx.Err() != nil) {
			break
		}
		if !budget.Spend() {
			break
		}
		contact, err := reveal(ctx, cand)
		if err == nil && contact == nil {
			err = ErrEmptyReveal
		}
		if err == nil {
			return contact, nil
		}
		if errors.Is(err, ErrCreditsExhausted) || errors.Is(err, ErrUnauthorized) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// mergeCandidate fills identifying fields the reveal response left empty.
func mergeCandidate(cand model.CandidateContact, c *model.EnrichedContact) model.EnrichedContact {
	out := *c
	if out.PersonID == "" {
		out.PersonID = cand.PersonID
	}
	if out.Name == "" {
		out.Name = cand.Name
	}
	if out.Title == "" {
		out.Title = cand.Title
	}
	if out.Seniority == "" {
		out.Seniority = cand.Seniority
	}
	if out.CompanyEmployeeCount == nil {
		out.CompanyEmployeeCount = cand.CompanyEmployeeCount
	}
	if out.Source == "" {
		out.Source = cand.Source
	}
	out.HasEmail = out.HasEmail || cand.HasEmail
	return out
}
