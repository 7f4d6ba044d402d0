// Package api serves run history and health over a read-only HTTP API.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/monitoring"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// RunStore is the slice of store.Store the API reads.
type RunStore interface {
	ListRunLogs(ctx context.Context, filter store.RunLogFilter) ([]model.RunLog, error)
	Ping(ctx context.Context) error
}

// maxListLimit caps the limit query parameter.
const maxListLimit = 500

// API holds dependencies for HTTP handlers.
type API struct {
	runs          RunStore
	collector     *monitoring.Collector
	lookbackHours int
	log           *zap.Logger
}

// New creates a new API handler.
func New(runs RunStore, collector *monitoring.Collector, lookbackHours int) *API {
	if lookbackHours <= 0 {
		lookbackHours = 24
	}
	return &API{
		runs:          runs,
		collector:     collector,
		lookbackHours: lookbackHours,
		log:           zap.L().With(zap.String("component", "api")),
	}
}

// Router builds the full handler: middleware, CORS, API routes and the
// Prometheus endpoint for gatherer. A nil gatherer omits /metrics.
func (a *API) Router(corsOrigins []string, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", a.handleHealth)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	a.RegisterRoutes(r)
	return r
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/runs", a.handleListRuns)
		r.Get("/runs/{id}", a.handleGetRun)
		r.Get("/stats", a.handleStats)
	})
}

// runView renders a stored run with its summary inlined as JSON.
type runView struct {
	Kind      model.RunKind   `json:"kind"`
	RunID     string          `json:"run_id"`
	RunDate   string          `json:"run_date"`
	Status    model.RunStatus `json:"status"`
	StartedAt time.Time       `json:"started_at"`
	Summary   json.RawMessage `json:"summary,omitempty"`
}

func newRunView(rl model.RunLog) runView {
	v := runView{
		Kind:      rl.Kind,
		RunID:     rl.RunID,
		RunDate:   rl.RunDate,
		Status:    rl.Status,
		StartedAt: rl.StartedAt.UTC(),
	}
	if json.Valid(rl.Summary) {
		v.Summary = json.RawMessage(rl.Summary)
	}
	return v
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.runs.Ping(r.Context()); err != nil {
		a.log.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filter, msg := parseFilter(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	logs, err := a.runs.ListRunLogs(r.Context(), filter)
	if err != nil {
		a.log.Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]runView, 0, len(logs))
	for _, rl := range logs {
		out = append(out, newRunView(rl))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	logs, err := a.runs.ListRunLogs(r.Context(), store.RunLogFilter{Limit: maxListLimit})
	if err != nil {
		a.log.Error("get run failed", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	for _, rl := range logs {
		if rl.RunID == id {
			writeJSON(w, http.StatusOK, newRunView(rl))
			return
		}
	}
	writeError(w, http.StatusNotFound, "not found")
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	hours := a.lookbackHours
	if raw := r.URL.Query().Get("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "hours must be a positive integer")
			return
		}
		hours = n
	}

	snap, err := a.collector.Collect(r.Context(), hours)
	if err != nil {
		a.log.Error("collect stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func parseFilter(r *http.Request) (store.RunLogFilter, string) {
	q := r.URL.Query()
	var f store.RunLogFilter

	switch kind := model.RunKind(q.Get("kind")); kind {
	case "", model.RunKindIngest, model.RunKindEnrichment:
		f.Kind = kind
	default:
		return f, "kind must be ingest or enrichment"
	}

	switch status := model.RunStatus(q.Get("status")); status {
	case "", model.RunStatusSuccess, model.RunStatusPartialFailure, model.RunStatusFailed:
		f.Status = status
	default:
		return f, "status must be SUCCESS, PARTIAL_FAILURE or FAILED"
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return f, "limit must be a positive integer"
		}
		f.Limit = min(n, maxListLimit)
	}
	return f, ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
