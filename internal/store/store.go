// Package store persists leads, contact rows and run logs in SQLite or
// Postgres. Every write is an append; reads return full snapshots that the
// ingest and enrichment cycles recompute their pending work from.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// RunLogFilter specifies criteria for listing run logs.
type RunLogFilter struct {
	Kind   model.RunKind   `json:"kind,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
}

// DefaultRunLogLimit caps ListRunLogs when the filter sets no limit.
const DefaultRunLogLimit = 50

func (f RunLogFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultRunLogLimit
	}
	return f.Limit
}

// Store defines the persistence interface for both cycles.
type Store interface {
	// Leads
	ReadLeads(ctx context.Context) ([]model.Lead, error)
	ReadKnownLeadIDs(ctx context.Context) (model.IDSet, error)
	AppendLeads(ctx context.Context, leads []model.Lead) error

	// Contacts
	ReadContacts(ctx context.Context) ([]model.ContactRow, error)
	ReadEnrichedIDs(ctx context.Context) (model.IDSet, error)
	ReadRevealedKeys(ctx context.Context) (model.IDSet, error)
	AppendContacts(ctx context.Context, rows []model.ContactRow) error

	// Run logs
	AppendIngestLog(ctx context.Context, s *model.IngestSummary) error
	AppendEnrichmentLog(ctx context.Context, s *model.EnrichmentSummary) error
	ListRunLogs(ctx context.Context, filter RunLogFilter) ([]model.RunLog, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// IngestRunLog converts an ingest summary into a stored run-log row.
func IngestRunLog(s *model.IngestSummary) (model.RunLog, error) {
	return newRunLog(model.RunKindIngest, s.RunTiming, s.Status, s)
}

// EnrichmentRunLog converts an enrichment summary into a stored run-log row.
func EnrichmentRunLog(s *model.EnrichmentSummary) (model.RunLog, error) {
	return newRunLog(model.RunKindEnrichment, s.RunTiming, s.Status, s)
}

func newRunLog(kind model.RunKind, t model.RunTiming, status model.RunStatus, summary any) (model.RunLog, error) {
	raw, err := json.Marshal(summary)
	if err != nil {
		return model.RunLog{}, eris.Wrapf(err, "store: marshal %s summary", kind)
	}
	return model.RunLog{
		Kind:      kind,
		RunID:     t.RunID,
		RunDate:   t.RunDate,
		Status:    status,
		StartedAt: t.StartedAt,
		Summary:   raw,
	}, nil
}

var leadColumns = []string{
	"place_id", "business_name", "business_type", "region", "full_address",
	"phone", "email", "website", "rating", "reviews_count",
	"maps_link", "query_used", "pulled_at", "run_date",
}

func leadValues(l model.Lead) []any {
	return []any{
		l.ID, l.BusinessName, l.BusinessType, l.Region, l.FullAddress,
		l.Phone, l.Email, l.Website, l.Rating, l.ReviewsCount,
		l.MapsLink, l.QueryUsed, l.PulledAt.UTC(), l.RunDate,
	}
}

var contactColumns = []string{
	"id", "place_id", "person_id", "business_name", "enrichment_source",
	"run_date", "status", "name", "title", "seniority",
	"employee_count", "has_email", "email", "email_status", "phone",
	"linkedin_url", "company_name", "company_industry", "company_website", "created_at",
}

func contactValues(id string, r model.ContactRow, now time.Time) []any {
	return []any{
		id, r.PlaceID, r.PersonID, r.BusinessName, string(r.EnrichmentSource),
		r.RunDate, string(r.Status), r.Name, r.Title, r.Seniority,
		nullableInt(r.CompanyEmployeeCount), r.HasEmail, r.Email, string(r.EmailStatus), r.Phone,
		r.LinkedInURL, r.CompanyName, r.CompanyIndustry, r.CompanyWebsite, now.UTC(),
	}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLead(row scannable) (model.Lead, error) {
	var l model.Lead
	err := row.Scan(
		&l.ID, &l.BusinessName, &l.BusinessType, &l.Region, &l.FullAddress,
		&l.Phone, &l.Email, &l.Website, &l.Rating, &l.ReviewsCount,
		&l.MapsLink, &l.QueryUsed, &l.PulledAt, &l.RunDate,
	)
	return l, err
}

func scanContact(row scannable) (model.ContactRow, error) {
	var (
		r        model.ContactRow
		id       string
		src      string
		status   string
		emStatus string
		count    *int64
		created  time.Time
	)
	err := row.Scan(
		&id, &r.PlaceID, &r.PersonID, &r.BusinessName, &src,
		&r.RunDate, &status, &r.Name, &r.Title, &r.Seniority,
		&count, &r.HasEmail, &r.Email, &emStatus, &r.Phone,
		&r.LinkedInURL, &r.CompanyName, &r.CompanyIndustry, &r.CompanyWebsite, &created,
	)
	if err != nil {
		return r, err
	}
	r.EnrichmentSource = model.EnrichmentSource(src)
	r.Status = model.ContactRowStatus(status)
	r.EmailStatus = model.EmailStatus(emStatus)
	r.CompanyEmployeeCount = employeeCount(count)
	r.Source = r.EnrichmentSource
	return r, nil
}

// employeeCount unpacks the nullable employee-count column.
func employeeCount(n *int64) *int {
	if n == nil {
		return nil
	}
	v := int(*n)
	return &v
}

func nullableInt(n *int) any {
	if n == nil {
		return nil
	}
	return int64(*n)
}
