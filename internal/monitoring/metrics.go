package monitoring

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
)

const namespace = "leadgen"

// collectTimeout bounds the store read behind one scrape.
const collectTimeout = 15 * time.Second

// RunLogMetrics exposes a Snapshot as Prometheus gauges, recomputed from the
// store on every scrape.
type RunLogMetrics struct {
	collector     *Collector
	lookbackHours int

	runs             *prometheus.Desc
	leadsScraped     *prometheus.Desc
	leadsAppended    *prometheus.Desc
	contactsEnriched *prometheus.Desc
	creditsUsed      *prometheus.Desc
	budgetExhausted  *prometheus.Desc
	costUSD          *prometheus.Desc
	lastRun          *prometheus.Desc

	scrapeErrors prometheus.Counter
}

// NewMetrics registers run-log metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer, collector *Collector, lookbackHours int) *RunLogMetrics {
	window := prometheus.Labels{"window_hours": strconv.Itoa(lookbackHours)}
	m := &RunLogMetrics{
		collector:     collector,
		lookbackHours: lookbackHours,
		runs: prometheus.NewDesc(namespace+"_runs",
			"Runs started within the window by kind and final status.",
			[]string{"kind", "status"}, window),
		leadsScraped: prometheus.NewDesc(namespace+"_leads_scraped",
			"Places returned by map search within the window.", nil, window),
		leadsAppended: prometheus.NewDesc(namespace+"_leads_appended",
			"New leads appended within the window.", nil, window),
		contactsEnriched: prometheus.NewDesc(namespace+"_contacts_enriched",
			"Contacts revealed within the window.", nil, window),
		creditsUsed: prometheus.NewDesc(namespace+"_credits_used",
			"Reveal credits spent within the window.", nil, window),
		budgetExhausted: prometheus.NewDesc(namespace+"_budget_exhausted_runs",
			"Enrichment runs that stopped on the credit budget within the window.", nil, window),
		costUSD: prometheus.NewDesc(namespace+"_cost_usd",
			"Estimated provider cost within the window.", nil, window),
		lastRun: prometheus.NewDesc(namespace+"_last_run_timestamp_seconds",
			"Start time of the most recent run by kind.", []string{"kind"}, nil),
		scrapeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metrics_collect_errors_total",
			Help:      "Scrapes that failed to read run logs.",
		}),
	}
	reg.MustRegister(m, m.scrapeErrors)
	return m
}

// Describe implements prometheus.Collector.
func (m *RunLogMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.runs
	ch <- m.leadsScraped
	ch <- m.leadsAppended
	ch <- m.contactsEnriched
	ch <- m.creditsUsed
	ch <- m.budgetExhausted
	ch <- m.costUSD
	ch <- m.lastRun
}

// Collect implements prometheus.Collector.
func (m *RunLogMetrics) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	snap, err := m.collector.Collect(ctx, m.lookbackHours)
	if err != nil {
		m.scrapeErrors.Inc()
		zap.L().Warn("monitoring: metrics scrape failed", zap.Error(err))
		return
	}

	for _, rc := range snap.Runs {
		ch <- prometheus.MustNewConstMetric(m.runs, prometheus.GaugeValue, float64(rc.Count), string(rc.Kind), string(rc.Status))
	}
	ch <- prometheus.MustNewConstMetric(m.leadsScraped, prometheus.GaugeValue, float64(snap.LeadsScraped))
	ch <- prometheus.MustNewConstMetric(m.leadsAppended, prometheus.GaugeValue, float64(snap.LeadsAppended))
	ch <- prometheus.MustNewConstMetric(m.contactsEnriched, prometheus.GaugeValue, float64(snap.ContactsEnriched))
	ch <- prometheus.MustNewConstMetric(m.creditsUsed, prometheus.GaugeValue, float64(snap.CreditsUsed))
	ch <- prometheus.MustNewConstMetric(m.budgetExhausted, prometheus.GaugeValue, float64(snap.BudgetExhaustedRuns))
	ch <- prometheus.MustNewConstMetric(m.costUSD, prometheus.GaugeValue, snap.CostUSD)

	last := map[model.RunKind]time.Time{
		model.RunKindIngest:     snap.LastIngestAt,
		model.RunKindEnrichment: snap.LastEnrichmentAt,
	}
	for kind, at := range last {
		if at.IsZero() {
			continue
		}
		ch <- prometheus.MustNewConstMetric(m.lastRun, prometheus.GaugeValue, float64(at.Unix()), string(kind))
	}
}
