package enrich

import "github.com/sells-group/leadgen-cli/internal/model"

// PendingCompanies returns the leads not yet in the enrichment snapshot,
// in input order.
func PendingCompanies(all []model.Lead, enriched model.IDSet) []model.Lead {
	out := make([]model.Lead, 0, len(all))
	for _, lead := range all {
		if lead.ID == "" || enriched.Has(lead.ID) {
			continue
		}
		out = append(out, lead)
	}
	return out
}
