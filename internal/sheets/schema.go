package sheets

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Column order of each tab. Rows are read back by header name, so columns
// added by hand to the right of these are ignored.
var (
	leadHeaders = []string{
		"place_id", "business_name", "business_type", "region", "full_address",
		"phone", "email", "website", "rating", "reviews_count",
		"google_maps_link", "query_used", "pulled_at", "run_date",
	}

	contactHeaders = []string{
		"place_id", "apollo_person_id", "business_name", "enrichment_source", "run_date",
		"status", "full_name", "title", "seniority", "company_employee_count",
		"email", "email_status", "phone", "linkedin_url",
		"company_name", "company_industry", "company_website",
	}

	ingestLogHeaders = []string{
		"run_id", "run_date", "started_at", "finished_at", "duration_seconds",
		"total_scraped", "new_appended", "dupes_skipped", "malformed",
		"queries_attempted", "queries_succeeded", "queries_failed",
		"cost_usd", "status", "errors", "summary",
	}

	enrichmentLogHeaders = []string{
		"run_id", "run_date", "started_at", "finished_at", "duration_seconds",
		"leads_processed", "leads_skipped_no_data", "companies_pending",
		"contacts_found", "contacts_enriched", "credits_used",
		"search_errors", "reveal_errors", "budget_exhausted",
		"batch_size", "dry_run", "cost_usd", "status", "errors", "summary",
	}
)

// record is one sheet row keyed by header.
type record map[string]string

// records maps raw sheet values onto the header row. Rows shorter than the
// header read as blank cells.
func records(values [][]any) []record {
	if len(values) == 0 {
		return nil
	}
	header := make([]string, len(values[0]))
	for i, h := range values[0] {
		header[i] = strings.TrimSpace(cell(h))
	}
	out := make([]record, 0, len(values)-1)
	for _, vals := range values[1:] {
		r := make(record, len(header))
		for i, h := range header {
			if i < len(vals) {
				r[h] = strings.TrimSpace(cell(vals[i]))
			}
		}
		out = append(out, r)
	}
	return out
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func (r record) intVal(key string) int {
	n, _ := strconv.Atoi(r[key])
	return n
}

func (r record) floatVal(key string) float64 {
	f, _ := strconv.ParseFloat(r[key], 64)
	return f
}

func (r record) timeVal(key string) time.Time {
	t, _ := time.Parse(time.RFC3339, r[key])
	return t
}

func row(vals ...any) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		switch t := v.(type) {
		case string:
			out[i] = t
		case int:
			out[i] = strconv.Itoa(t)
		case float64:
			out[i] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[i] = strconv.FormatBool(t)
		case time.Time:
			if t.IsZero() {
				out[i] = ""
			} else {
				out[i] = t.UTC().Format(time.RFC3339)
			}
		case *int:
			if t == nil {
				out[i] = ""
			} else {
				out[i] = strconv.Itoa(*t)
			}
		default:
			out[i] = cell(t)
		}
	}
	return out
}

func leadRow(l model.Lead) []any {
	return row(
		l.ID, l.BusinessName, l.BusinessType, l.Region, l.FullAddress,
		l.Phone, l.Email, l.Website, l.Rating, l.ReviewsCount,
		l.MapsLink, l.QueryUsed, l.PulledAt, l.RunDate,
	)
}

func leadFromRecord(r record) model.Lead {
	return model.Lead{
		ID:           r["place_id"],
		BusinessName: r["business_name"],
		BusinessType: r["business_type"],
		Region:       r["region"],
		FullAddress:  r["full_address"],
		Phone:        r["phone"],
		Email:        r["email"],
		Website:      r["website"],
		Rating:       r.floatVal("rating"),
		ReviewsCount: r.intVal("reviews_count"),
		MapsLink:     r["google_maps_link"],
		QueryUsed:    r["query_used"],
		PulledAt:     r.timeVal("pulled_at"),
		RunDate:      r["run_date"],
	}
}

func contactRow(c model.ContactRow) []any {
	return row(
		c.PlaceID, c.PersonID, c.BusinessName, string(c.EnrichmentSource), c.RunDate,
		string(c.Status), c.Name, c.Title, c.Seniority, c.CompanyEmployeeCount,
		c.Email, string(c.EmailStatus), c.Phone, c.LinkedInURL,
		c.CompanyName, c.CompanyIndustry, c.CompanyWebsite,
	)
}

// contactFromRecord reads a contact row. Rows written before the status
// column existed count as revealed contacts.
func contactFromRecord(r record) model.ContactRow {
	c := model.ContactRow{
		PlaceID:          r["place_id"],
		BusinessName:     r["business_name"],
		EnrichmentSource: model.EnrichmentSource(r["enrichment_source"]),
		RunDate:          r["run_date"],
		Status:           model.ContactRowStatus(r["status"]),
	}
	c.PersonID = r["apollo_person_id"]
	c.Name = r["full_name"]
	c.Title = r["title"]
	c.Seniority = r["seniority"]
	c.Source = c.EnrichmentSource
	if n, err := strconv.Atoi(r["company_employee_count"]); err == nil {
		c.CompanyEmployeeCount = &n
	}
	c.Email = r["email"]
	c.HasEmail = c.Email != ""
	c.EmailStatus = model.EmailStatus(r["email_status"])
	c.Phone = r["phone"]
	c.LinkedInURL = r["linkedin_url"]
	c.CompanyName = r["company_name"]
	c.CompanyIndustry = r["company_industry"]
	c.CompanyWebsite = r["company_website"]
	if c.Status == "" {
		c.Status = model.ContactRevealed
		if c.PersonID == "" {
			c.Status = model.ContactNoContacts
		}
	}
	return c
}

func ingestLogRow(s *model.IngestSummary) ([]any, error) {
	summary, err := json.Marshal(s)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: marshal ingest summary")
	}
	return row(
		s.RunID, s.RunDate, s.StartedAt, s.FinishedAt, s.Duration().Seconds(),
		s.TotalScraped, s.NewAppended, s.DupesSkipped, s.Malformed,
		s.QueriesAttempted, s.QueriesSucceeded, s.QueriesFailed,
		s.CostUSD, string(s.Status), s.ErrorText(), string(summary),
	), nil
}

func enrichmentLogRow(s *model.EnrichmentSummary) ([]any, error) {
	summary, err := json.Marshal(s)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: marshal enrichment summary")
	}
	return row(
		s.RunID, s.RunDate, s.StartedAt, s.FinishedAt, s.Duration().Seconds(),
		s.LeadsProcessed, s.LeadsSkippedNoData, s.CompaniesPending,
		s.ContactsFound, s.ContactsEnriched, s.CreditsUsed,
		s.SearchErrors, s.RevealErrors, s.BudgetExhausted,
		s.BatchSize, s.DryRun, s.CostUSD, string(s.Status), s.ErrorText(), string(summary),
	), nil
}

func runLogFromRecord(kind model.RunKind, r record) model.RunLog {
	return model.RunLog{
		Kind:      kind,
		RunID:     r["run_id"],
		RunDate:   r["run_date"],
		Status:    model.RunStatus(r["status"]),
		StartedAt: r.timeVal("started_at"),
		Summary:   []byte(r["summary"]),
	}
}
