// Package monitoring summarizes recent run logs for alerting and for the
// Prometheus endpoint of the serve command.
package monitoring

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// RunCount is the number of runs of one kind that ended in one status.
type RunCount struct {
	Kind   model.RunKind   `json:"kind"`
	Status model.RunStatus `json:"status"`
	Count  int             `json:"count"`
}

// Snapshot holds a point-in-time view of recent runs.
type Snapshot struct {
	Runs []RunCount `json:"runs"`

	TotalRuns  int     `json:"total_runs"`
	FailedRuns int     `json:"failed_runs"`
	FailRate   float64 `json:"fail_rate"`

	// Ingest totals within the window.
	LeadsScraped  int `json:"leads_scraped"`
	LeadsAppended int `json:"leads_appended"`

	// Enrichment totals within the window.
	ContactsEnriched    int `json:"contacts_enriched"`
	CreditsUsed         int `json:"credits_used"`
	BudgetExhaustedRuns int `json:"budget_exhausted_runs"`

	CostUSD float64 `json:"cost_usd"`

	LastIngestAt     time.Time `json:"last_ingest_at,omitzero"`
	LastEnrichmentAt time.Time `json:"last_enrichment_at,omitzero"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunCountFor returns the count for kind and status, or 0.
func (s *Snapshot) RunCountFor(kind model.RunKind, status model.RunStatus) int {
	for _, rc := range s.Runs {
		if rc.Kind == kind && rc.Status == status {
			return rc.Count
		}
	}
	return 0
}

// RunLogLister is the slice of store.Store the collector reads.
type RunLogLister interface {
	ListRunLogs(ctx context.Context, filter store.RunLogFilter) ([]model.RunLog, error)
}

// maxRunLogs bounds one collection. A daily ingest plus hourly enrichment
// stays far below it for any sensible lookback.
const maxRunLogs = 10000

// Collector gathers snapshots from stored run logs.
type Collector struct {
	runs RunLogLister
	now  func() time.Time
}

// NewCollector creates a new run-log collector.
func NewCollector(runs RunLogLister) *Collector {
	return &Collector{runs: runs, now: time.Now}
}

// Collect summarizes runs started within the last lookbackHours.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	snap := &Snapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	logs, err := c.runs.ListRunLogs(ctx, store.RunLogFilter{Limit: maxRunLogs})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list run logs")
	}

	counts := map[RunCount]int{}
	for _, rl := range logs {
		if rl.StartedAt.Before(cutoff) {
			continue
		}
		counts[RunCount{Kind: rl.Kind, Status: rl.Status}]++
		snap.TotalRuns++
		if rl.Status == model.RunStatusFailed {
			snap.FailedRuns++
		}

		switch rl.Kind {
		case model.RunKindIngest:
			if rl.StartedAt.After(snap.LastIngestAt) {
				snap.LastIngestAt = rl.StartedAt
			}
			var s model.IngestSummary
			if !decode(rl, &s) {
				continue
			}
			snap.LeadsScraped += s.TotalScraped
			snap.LeadsAppended += s.NewAppended
			snap.CostUSD += s.CostUSD
		case model.RunKindEnrichment:
			if rl.StartedAt.After(snap.LastEnrichmentAt) {
				snap.LastEnrichmentAt = rl.StartedAt
			}
			var s model.EnrichmentSummary
			if !decode(rl, &s) {
				continue
			}
			snap.ContactsEnriched += s.ContactsEnriched
			snap.CreditsUsed += s.CreditsUsed
			snap.CostUSD += s.CostUSD
			if s.BudgetExhausted {
				snap.BudgetExhaustedRuns++
			}
		}
	}

	for k, n := range counts {
		k.Count = n
		snap.Runs = append(snap.Runs, k)
	}
	slices.SortFunc(snap.Runs, func(a, b RunCount) int {
		if a.Kind != b.Kind {
			return cmp.Compare(a.Kind, b.Kind)
		}
		return cmp.Compare(a.Status, b.Status)
	})
	if snap.TotalRuns > 0 {
		snap.FailRate = float64(snap.FailedRuns) / float64(snap.TotalRuns)
	}
	return snap, nil
}

// decode reads a run summary. Logs written by hand into a sheet may carry
// an empty or broken summary cell; those still count as runs.
func decode(rl model.RunLog, into any) bool {
	if len(rl.Summary) == 0 {
		return false
	}
	if err := json.Unmarshal(rl.Summary, into); err != nil {
		zap.L().Debug("monitoring: skipping unreadable run summary",
			zap.String("run_id", rl.RunID),
			zap.Error(err),
		)
		return false
	}
	return true
}
