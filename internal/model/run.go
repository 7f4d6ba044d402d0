package model

import (
	"strings"
	"time"
)

// RunStatus is the terminal status of an ingest or enrichment run.
type RunStatus string

const (
	RunStatusSuccess        RunStatus = "SUCCESS"
	RunStatusPartialFailure RunStatus = "PARTIAL_FAILURE"
	RunStatusFailed         RunStatus = "FAILED"
)

// Exit codes surfaced by the CLI.
const (
	ExitSuccess        = 0
	ExitFailed         = 1
	ExitPartialFailure = 2
)

// ExitCode maps a status to the process exit code.
func (s RunStatus) ExitCode() int {
	switch s {
	case RunStatusSuccess:
		return ExitSuccess
	case RunStatusPartialFailure:
		return ExitPartialFailure
	default:
		return ExitFailed
	}
}

// RunKind identifies which cycle produced a run log.
type RunKind string

const (
	RunKindIngest     RunKind = "ingest"
	RunKindEnrichment RunKind = "enrichment"
)

// RunTiming is shared by both run summaries.
type RunTiming struct {
	RunID      string    `json:"run_id"`
	RunDate    string    `json:"run_date"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns the run's wall-clock duration.
func (t RunTiming) Duration() time.Duration {
	if t.FinishedAt.IsZero() {
		return 0
	}
	return t.FinishedAt.Sub(t.StartedAt)
}

// NewRunTiming stamps the start of a run.
func NewRunTiming(runID string, start time.Time) RunTiming {
	start = start.UTC()
	return RunTiming{
		RunID:     runID,
		RunDate:   start.Format("2006-01-02"),
		StartedAt: start,
	}
}

// errorList accumulates human-readable errors for a run log row.
type errorList []string

func (e errorList) joined() string {
	return strings.Join(e, " | ")
}

// IngestSummary is the run-log row for one ingest cycle.
type IngestSummary struct {
	RunTiming
	TotalScraped     int       `json:"total_scraped"`
	NewAppended      int       `json:"new_appended"`
	DupesSkipped     int       `json:"dupes_skipped"`
	Malformed        int       `json:"malformed"`
	QueriesAttempted int       `json:"queries_attempted"`
	QueriesSucceeded int       `json:"queries_succeeded"`
	QueriesFailed    int       `json:"queries_failed"`
	CostUSD          float64   `json:"cost_usd"`
	Status           RunStatus `json:"status"`
	Errors           []string  `json:"errors,omitempty"`
}

// AddError records a recovered per-item failure.
func (s *IngestSummary) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

// Fail marks the run as a hard failure.
func (s *IngestSummary) Fail(msg string) {
	s.Status = RunStatusFailed
	s.AddError(msg)
}

// Finish stamps the end time and derives the terminal status.
func (s *IngestSummary) Finish(now time.Time) {
	s.FinishedAt = now.UTC()
	if s.Status == RunStatusFailed {
		return
	}
	if s.QueriesFailed > 0 || len(s.Errors) > 0 {
		s.Status = RunStatusPartialFailure
		return
	}
	s.Status = RunStatusSuccess
}

// ErrorText joins the recorded errors for a single log cell.
func (s *IngestSummary) ErrorText() string {
	return errorList(s.Errors).joined()
}

// EnrichmentSummary is the run-log row for one enrichment cycle.
type EnrichmentSummary struct {
	RunTiming
	LeadsProcessed     int       `json:"leads_processed"`
	LeadsSkippedNoData int       `json:"leads_skipped_no_data"`
	CompaniesPending   int       `json:"companies_pending"`
	ContactsFound      int       `json:"contacts_found"`
	ContactsEnriched   int       `json:"contacts_enriched"`
	CreditsUsed        int       `json:"credits_used"`
	SearchErrors       int       `json:"search_errors"`
	RevealErrors       int       `json:"reveal_errors"`
	BudgetExhausted    bool      `json:"budget_exhausted"`
	BatchSize          int       `json:"batch_size"`
	DryRun             bool      `json:"dry_run"`
	CostUSD            float64   `json:"cost_usd"`
	Status             RunStatus `json:"status"`
	Errors             []string  `json:"errors,omitempty"`
}

// AddError records a recovered per-item failure.
func (s *EnrichmentSummary) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

// Fail marks the run as a hard failure.
func (s *EnrichmentSummary) Fail(msg string) {
	s.Status = RunStatusFailed
	s.AddError(msg)
}

// Finish stamps the end time and derives the terminal status. Budget
// exhaustion and per-item errors are partial failures, never hard ones.
func (s *EnrichmentSummary) Finish(now time.Time) {
	s.FinishedAt = now.UTC()
	if s.Status == RunStatusFailed {
		return
	}
	if s.BudgetExhausted || s.SearchErrors > 0 || s.RevealErrors > 0 || len(s.Errors) > 0 {
		s.Status = RunStatusPartialFailure
		return
	}
	s.Status = RunStatusSuccess
}

// ErrorText joins the recorded errors for a single log cell.
func (s *EnrichmentSummary) ErrorText() string {
	return errorList(s.Errors).joined()
}

// RunLog is a stored run-log row of either kind, used for history listing.
type RunLog struct {
	Kind      RunKind   `json:"kind"`
	RunID     string    `json:"run_id"`
	RunDate   string    `json:"run_date"`
	Status    RunStatus `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Summary   []byte    `json:"summary"`
}
