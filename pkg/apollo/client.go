// Package apollo is a client for the Apollo.io people search (free) and
// people match (one credit per call) endpoints.
package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.apollo.io/api/v1"

	// defaultMaxResponseBytes caps how much of a response body is read.
	defaultMaxResponseBytes = 10 << 20
)

// ErrCreditsExhausted is returned when Apollo answers 402 Payment Required.
var ErrCreditsExhausted = eris.New("apollo: credits exhausted")

// Client performs Apollo API operations.
type Client interface {
	SearchPeople(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	MatchPerson(ctx context.Context, req MatchRequest) (*Person, error)
}

// SearchRequest is the body of a mixed_people/api_search call. Exactly one of
// OrganizationDomains or OrganizationName should be set.
type SearchRequest struct {
	OrganizationDomains []string `json:"q_organization_domains_list,omitempty"`
	OrganizationName    string   `json:"q_organization_name,omitempty"`
	PersonTitles        []string `json:"person_titles,omitempty"`
	PersonSeniorities   []string `json:"person_seniorities,omitempty"`
	Page                int      `json:"page"`
	PerPage             int      `json:"per_page"`
}

// SearchResponse holds the people found by a search.
type SearchResponse struct {
	People []Person `json:"people"`
}

// MatchRequest reveals a single person by Apollo id.
type MatchRequest struct {
	ID                   string `json:"id"`
	RevealPersonalEmails bool   `json:"reveal_personal_emails"`
}

type matchResponse struct {
	Person *Person `json:"person"`
}

// Person is an Apollo person record. Search results carry only the
// identifying fields; match results add Contact and Email.
type Person struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	Title        string        `json:"title"`
	Seniority    string        `json:"seniority"`
	Email        string        `json:"email"`
	EmailStatus  string        `json:"email_status"`
	HasEmail     bool          `json:"has_email"`
	LinkedInURL  string        `json:"linkedin_url"`
	Contact      *Contact      `json:"contact,omitempty"`
	Organization *Organization `json:"organization,omitempty"`
}

// Contact is the revealed contact block of a matched person.
type Contact struct {
	ContactEmails []ContactEmail `json:"contact_emails"`
	PhoneNumbers  []PhoneNumber  `json:"phone_numbers"`
}

// ContactEmail is one revealed email address.
type ContactEmail struct {
	Email       string `json:"email"`
	EmailStatus string `json:"email_status"`
}

// PhoneNumber is one revealed phone number.
type PhoneNumber struct {
	RawNumber       string `json:"raw_number"`
	SanitizedNumber string `json:"sanitized_number"`
}

// Organization is the employer attached to a person.
type Organization struct {
	Name                  string          `json:"name"`
	Industry              string          `json:"industry"`
	WebsiteURL            string          `json:"website_url"`
	EstimatedNumEmployees json.RawMessage `json:"estimated_num_employees,omitempty"`
}

// EmployeeCount parses estimated_num_employees, which Apollo sends as a
// number or a numeric string. ok is false when absent or unparseable.
func (o *Organization) EmployeeCount() (n int, ok bool) {
	if o == nil || len(o.EstimatedNumEmployees) == 0 {
		return 0, false
	}
	raw := strings.Trim(string(o.EstimatedNumEmployees), `"`)
	if raw == "" || raw == "null" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FullName returns Name, or first and last name joined.
func (p *Person) FullName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// BestEmail prefers the first revealed contact email over the top-level one.
func (p *Person) BestEmail() (email, status string) {
	if p.Contact != nil && len(p.Contact.ContactEmails) > 0 && p.Contact.ContactEmails[0].Email != "" {
		ce := p.Contact.ContactEmails[0]
		return strings.TrimSpace(ce.Email), ce.EmailStatus
	}
	return strings.TrimSpace(p.Email), p.EmailStatus
}

// BestPhone returns the first revealed phone, sanitized form preferred.
func (p *Person) BestPhone() string {
	if p.Contact == nil || len(p.Contact.PhoneNumbers) == 0 {
		return ""
	}
	pn := p.Contact.PhoneNumbers[0]
	if pn.SanitizedNumber != "" {
		return strings.TrimSpace(pn.SanitizedNumber)
	}
	return strings.TrimSpace(pn.RawNumber)
}

// APIError is a non-200 response other than 402.
type APIError struct {
	StatusCode int
	Body       string
	retryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apollo: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed if retried.
func (e *APIError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// RetryAfter is the server's Retry-After hint, zero if absent.
func (e *APIError) RetryAfter() time.Duration { return e.retryAfter }

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithMaxResponseBytes caps the size of a response body. Larger responses
// fail with an error instead of being read into memory.
func WithMaxResponseBytes(n int64) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithSearchRate caps search calls per second.
func WithSearchRate(perSec float64) Option {
	return func(c *httpClient) {
		if perSec > 0 {
			c.searchLimiter = rate.NewLimiter(rate.Limit(perSec), 1)
		}
	}
}

// WithMatchRate caps match (reveal) calls per hour.
func WithMatchRate(perHour int) Option {
	return func(c *httpClient) {
		if perHour > 0 {
			c.matchLimiter = rate.NewLimiter(rate.Every(time.Hour/time.Duration(perHour)), 1)
		}
	}
}

type httpClient struct {
	apiKey        string
	baseURL       string
	http          *http.Client
	searchLimiter *rate.Limiter
	matchLimiter  *rate.Limiter
	maxBody       int64
}

// NewClient creates an Apollo API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		maxBody: defaultMaxResponseBytes,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchPeople(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if len(req.OrganizationDomains) == 0 && req.OrganizationName == "" {
		return &SearchResponse{}, nil
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	var out SearchResponse
	if err := c.post(ctx, c.searchLimiter, "/mixed_people/api_search", req, &out); err != nil {
		return nil, eris.Wrap(err, "apollo: search people")
	}
	return &out, nil
}

func (c *httpClient) MatchPerson(ctx context.Context, req MatchRequest) (*Person, error) {
	var out matchResponse
	if err := c.post(ctx, c.matchLimiter, "/people/match", req, &out); err != nil {
		return nil, eris.Wrap(err, "apollo: match person")
	}
	if out.Person == nil {
		return &Person{ID: req.ID}, nil
	}
	return out.Person, nil
}

func (c *httpClient) post(ctx context.Context, limiter *rate.Limiter, path string, in, out any) error {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limit wait")
		}
	}

	body, err := json.Marshal(in)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return eris.Wrap(err, "read response")
	}
	if int64(len(respBody)) > c.maxBody {
		return eris.Errorf("response body exceeds %d bytes", c.maxBody)
	}

	switch {
	case resp.StatusCode == http.StatusPaymentRequired:
		return ErrCreditsExhausted
	case resp.StatusCode != http.StatusOK:
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		if secs, perr := strconv.Atoi(resp.Header.Get("Retry-After")); perr == nil && secs > 0 {
			apiErr.retryAfter = time.Duration(secs) * time.Second
		}
		return apiErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
