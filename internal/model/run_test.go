package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunStatusExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status RunStatus
		want   int
	}{
		{RunStatusSuccess, ExitSuccess},
		{RunStatusPartialFailure, ExitPartialFailure},
		{RunStatusFailed, ExitFailed},
		{RunStatus(""), ExitFailed},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.status.ExitCode())
		})
	}
}

func TestNewRunTiming(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 4, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	timing := NewRunTiming("run-1", start)

	assert.Equal(t, "run-1", timing.RunID)
	assert.Equal(t, "2026-03-05", timing.RunDate)
	assert.Equal(t, time.UTC, timing.StartedAt.Location())
	assert.Zero(t, timing.Duration())

	timing.FinishedAt = timing.StartedAt.Add(90 * time.Second)
	assert.Equal(t, 90*time.Second, timing.Duration())
}

func TestEnrichmentSummary_Finish(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		summary EnrichmentSummary
		want    RunStatus
	}{
		{"clean", EnrichmentSummary{}, RunStatusSuccess},
		{"budget exhausted", EnrichmentSummary{BudgetExhausted: true}, RunStatusPartialFailure},
		{"search errors", EnrichmentSummary{SearchErrors: 1}, RunStatusPartialFailure},
		{"reveal errors", EnrichmentSummary{RevealErrors: 2}, RunStatusPartialFailure},
		{"recorded errors", EnrichmentSummary{Errors: []string{"x"}}, RunStatusPartialFailure},
		{"failed stays failed", EnrichmentSummary{Status: RunStatusFailed, BudgetExhausted: true}, RunStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := tt.summary
			s.Finish(now)
			assert.Equal(t, tt.want, s.Status)
			assert.Equal(t, now, s.FinishedAt)
		})
	}
}

func TestIngestSummary_Finish(t *testing.T) {
	t.Parallel()

	now := time.Now()

	s := IngestSummary{QueriesAttempted: 2, QueriesSucceeded: 2}
	s.Finish(now)
	assert.Equal(t, RunStatusSuccess, s.Status)

	s = IngestSummary{QueriesAttempted: 2, QueriesSucceeded: 1, QueriesFailed: 1}
	s.AddError("query 'x' failed")
	s.Finish(now)
	assert.Equal(t, RunStatusPartialFailure, s.Status)
	assert.Equal(t, "query 'x' failed", s.ErrorText())

	s = IngestSummary{}
	s.Fail("sheet unreachable")
	s.Finish(now)
	assert.Equal(t, RunStatusFailed, s.Status)
}

func TestErrorText_Joins(t *testing.T) {
	t.Parallel()

	s := EnrichmentSummary{}
	s.AddError("a")
	s.AddError("b")
	assert.Equal(t, "a | b", s.ErrorText())
}
