package model

// EnrichmentSource records how the company was matched at the people-search
// provider. Domain matches are higher precision than name matches.
type EnrichmentSource string

const (
	SourceDomainSearch EnrichmentSource = "domain_search"
	SourceNameSearch   EnrichmentSource = "name_search"
)

// EmailStatus is the provider's confidence in a revealed email.
type EmailStatus string

const (
	EmailVerified EmailStatus = "verified"
	EmailGuessed  EmailStatus = "guessed"
)

// CandidateContact is an unrevealed match returned by the free search step.
type CandidateContact struct {
	PersonID             string           `json:"person_id"`
	Name                 string           `json:"name"`
	Title                string           `json:"title"`
	Seniority            string           `json:"seniority"`
	CompanyEmployeeCount *int             `json:"company_employee_count,omitempty"`
	HasEmail             bool             `json:"has_email"`
	Source               EnrichmentSource `json:"source"`
}

// EnrichedContact is the result of a paid reveal.
type EnrichedContact struct {
	CandidateContact
	Email           string      `json:"email,omitempty"`
	EmailStatus     EmailStatus `json:"email_status,omitempty"`
	Phone           string      `json:"phone,omitempty"`
	LinkedInURL     string      `json:"linkedin_url,omitempty"`
	CompanyName     string      `json:"company_name,omitempty"`
	CompanyIndustry string      `json:"company_industry,omitempty"`
	CompanyWebsite  string      `json:"company_website,omitempty"`
}

// ContactRowStatus distinguishes revealed contacts from processed-company
// markers.
type ContactRowStatus string

const (
	ContactRevealed ContactRowStatus = "revealed"
	// ContactPartial is a revealed contact of a company that still has
	// candidates to reveal: skipped by the budget, an interrupted run or an
	// auth failure, or failed with a transient error.
	ContactPartial    ContactRowStatus = "partial"
	ContactNoContacts ContactRowStatus = "no_contacts"
	// ContactCompleted closes out a partial company with nothing left to reveal.
	ContactCompleted ContactRowStatus = "completed"
)

// ContactRow is one append-only output row, keyed by (PlaceID, PersonID).
// Marker rows (no_contacts, completed) have an empty PersonID.
type ContactRow struct {
	PlaceID          string           `json:"place_id"`
	BusinessName     string           `json:"business_name"`
	EnrichmentSource EnrichmentSource `json:"enrichment_source"`
	RunDate          string           `json:"run_date"`
	Status           ContactRowStatus `json:"status"`
	EnrichedContact
}

// NewContactRow attaches lead context to a revealed contact.
func NewContactRow(lead Lead, src EnrichmentSource, runDate string, c EnrichedContact) ContactRow {
	return ContactRow{
		PlaceID:          lead.ID,
		BusinessName:     lead.BusinessName,
		EnrichmentSource: src,
		RunDate:          runDate,
		Status:           ContactRevealed,
		EnrichedContact:  c,
	}
}

// NoContactsMarker builds the marker row for a company with no eligible
// contacts, so later runs treat it as processed.
func NoContactsMarker(lead Lead, src EnrichmentSource, runDate string) ContactRow {
	return ContactRow{
		PlaceID:          lead.ID,
		BusinessName:     lead.BusinessName,
		EnrichmentSource: src,
		RunDate:          runDate,
		Status:           ContactNoContacts,
	}
}

// CompletionMarker builds the row that closes out a partial company.
func CompletionMarker(lead Lead, src EnrichmentSource, runDate string) ContactRow {
	row := NoContactsMarker(lead, src, runDate)
	row.Status = ContactCompleted
	return row
}

// Key returns the dedupe key used by downstream verification.
func (r ContactRow) Key() string {
	return ContactKey(r.PlaceID, r.PersonID)
}

// ContactKey joins a place id and person id into a row key.
func ContactKey(placeID, personID string) string {
	return placeID + "|" + personID
}

// Settles reports whether the row marks its company as fully processed.
func (r ContactRow) Settles() bool {
	return r.Status != ContactPartial
}

// EnrichedIDs returns the place ids with at least one settling row.
func EnrichedIDs(rows []ContactRow) IDSet {
	s := make(IDSet)
	for _, r := range rows {
		if r.Settles() {
			s.Add(r.PlaceID)
		}
	}
	return s
}

// RevealedKeys returns the keys of every row that holds a revealed person.
func RevealedKeys(rows []ContactRow) IDSet {
	s := make(IDSet)
	for _, r := range rows {
		if r.PersonID != "" {
			s.Add(r.Key())
		}
	}
	return s
}
