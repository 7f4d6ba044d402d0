package enrich

import (
	"context"
	"errors"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/apollo"
)

// ApolloOptions are the search filters sent with every people search.
type ApolloOptions struct {
	Titles      []string
	Seniorities []string
	PerPage     int
}

// ApolloProvider implements SearchClient and RevealClient over Apollo.
// Searches are free and go through the guard's retry policy; reveals cost a
// credit each and only pass through its circuit breaker.
type ApolloProvider struct {
	client apollo.Client
	guard  *resilience.Guard
	opts   ApolloOptions
}

// NewApolloProvider creates an ApolloProvider. guard may be nil.
func NewApolloProvider(client apollo.Client, guard *resilience.Guard, opts ApolloOptions) *ApolloProvider {
	if opts.PerPage <= 0 {
		opts.PerPage = 10
	}
	return &ApolloProvider{client: client, guard: guard, opts: opts}
}

// Search finds decision-maker candidates for a company identity.
func (p *ApolloProvider) Search(ctx context.Context, id model.Identity) ([]model.CandidateContact, error) {
	req := apollo.SearchRequest{
		PersonTitles:      p.opts.Titles,
		PersonSeniorities: p.opts.Seniorities,
		Page:              1,
		PerPage:           p.opts.PerPage,
	}
	switch id.Mode {
	case model.IdentityModeDomain:
		req.OrganizationDomains = []string{id.Value}
	case model.IdentityModeName:
		req.OrganizationName = id.Value
	default:
		return nil, eris.Errorf("enrich: unknown identity mode %q", id.Mode)
	}

	resp, err := resilience.Call(ctx, p.guard, "search_people", func(ctx context.Context) (*apollo.SearchResponse, error) {
		return p.client.SearchPeople(ctx, req)
	})
	if err != nil {
		return nil, classify(eris.Wrapf(err, "enrich: search %s %q", id.Mode, id.Value))
	}

	out := make([]model.CandidateContact, 0, len(resp.People))
	for _, person := range resp.People {
		if person.ID == "" {
			continue
		}
		c := model.CandidateContact{
			PersonID:  person.ID,
			Name:      person.FullName(),
			Title:     person.Title,
			Seniority: person.Seniority,
			HasEmail:  person.HasEmail,
			Source:    id.Source(),
		}
		if n, ok := person.Organization.EmployeeCount(); ok {
			c.CompanyEmployeeCount = &n
		}
		out = append(out, c)
	}
	return out, nil
}

// Reveal spends one credit to reveal a person's contact details.
func (p *ApolloProvider) Reveal(ctx context.Context, personID string) (*model.EnrichedContact, error) {
	call := func(ctx context.Context) (*apollo.Person, error) {
		return p.client.MatchPerson(ctx, apollo.MatchRequest{ID: personID, RevealPersonalEmails: true})
	}
	var (
		person *apollo.Person
		err    error
	)
	if p.guard != nil {
		person, err = resilience.ExecuteVal(ctx, p.guard.Breaker, call)
	} else {
		person, err = call(ctx)
	}
	if errors.Is(err, apollo.ErrCreditsExhausted) {
		return nil, ErrCreditsExhausted
	}
	if err != nil {
		return nil, classify(eris.Wrapf(err, "enrich: reveal %s", personID))
	}
	return contactFromPerson(person), nil
}

// classify marks authentication failures so the runner can stop the run.
func classify(err error) error {
	var apiErr *apollo.APIError
	if errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		return eris.Wrap(ErrUnauthorized, err.Error())
	}
	return err
}

func contactFromPerson(p *apollo.Person) *model.EnrichedContact {
	email, status := p.BestEmail()
	c := &model.EnrichedContact{
		CandidateContact: model.CandidateContact{
			PersonID:  p.ID,
			Name:      p.FullName(),
			Title:     p.Title,
			Seniority: p.Seniority,
			HasEmail:  email != "",
		},
		Email:       email,
		EmailStatus: model.EmailStatus(status),
		Phone:       p.BestPhone(),
		LinkedInURL: p.LinkedInURL,
	}
	if org := p.Organization; org != nil {
		c.CompanyName = org.Name
		c.CompanyIndustry = org.Industry
		c.CompanyWebsite = org.WebsiteURL
		if n, ok := org.EmployeeCount(); ok {
			c.CompanyEmployeeCount = &n
		}
	}
	return c
}
