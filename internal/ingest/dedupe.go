package ingest

import (
	"strings"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// DedupeResult is the outcome of filtering a scrape against persisted leads.
type DedupeResult struct {
	New       []model.Lead
	Dupes     int
	Malformed int
}

// Dedupe returns the leads in fresh whose ID is neither in known nor seen
// earlier in fresh, preserving order. Leads with a blank ID are dropped and
// counted as malformed. Dedupe does not mutate its inputs.
func Dedupe(fresh []model.Lead, known model.IDSet) DedupeResult {
	res := DedupeResult{New: make([]model.Lead, 0, len(fresh))}
	seen := make(model.IDSet, len(fresh))

	for _, lead := range fresh {
		id := strings.TrimSpace(lead.ID)
		switch {
		case id == "":
			res.Malformed++
		case known.Has(id) || seen.Has(id):
			res.Dupes++
		default:
			seen.Add(id)
			res.New = append(res.New, lead)
		}
	}
	return res
}
