package model

import "time"

// Lead is a business record scraped from the map-search provider.
// Leads are immutable once created; ID is the stable dedupe key.
type Lead struct {
	ID           string    `json:"place_id"`
	BusinessName string    `json:"business_name"`
	BusinessType string    `json:"business_type"`
	Region       string    `json:"region"`
	FullAddress  string    `json:"full_address,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
	Website      string    `json:"website,omitempty"`
	Rating       float64   `json:"rating,omitempty"`
	ReviewsCount int       `json:"reviews_count,omitempty"`
	MapsLink     string    `json:"google_maps_link,omitempty"`
	QueryUsed    string    `json:"query_used,omitempty"`
	PulledAt     time.Time `json:"pulled_at"`
	RunDate      string    `json:"run_date,omitempty"`
}

// IdentityMode says how a company is looked up at the people-search provider.
type IdentityMode string

const (
	IdentityModeDomain IdentityMode = "domain"
	IdentityModeName   IdentityMode = "name"
)

// Identity is a resolved search key for a company.
type Identity struct {
	Mode  IdentityMode `json:"mode"`
	Value string       `json:"value"`
}

// Source returns the enrichment source recorded on contacts found
// through this identity.
func (i Identity) Source() EnrichmentSource {
	if i.Mode == IdentityModeDomain {
		return SourceDomainSearch
	}
	return SourceNameSearch
}

// IDSet is a point-in-time set of identifiers read from persisted output.
type IDSet map[string]struct{}

// NewIDSet builds a set from the given identifiers, ignoring blanks.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id into the set. Blank ids are ignored.
func (s IDSet) Add(id string) {
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of identifiers.
func (s IDSet) Len() int {
	return len(s)
}
