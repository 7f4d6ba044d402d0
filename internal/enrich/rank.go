package enrich

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/leadgen-cli/internal/config"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// TitlePolicy decides which candidates are worth a reveal credit.
type TitlePolicy struct {
	// PrimaryTitles are always eligible (facility and operations roles).
	PrimaryTitles []string
	// SecondaryTitles (owner, CEO) are eligible only at small companies.
	SecondaryTitles       []string
	SmallCompanyThreshold int
	MaxContactsPerCompany int
}

// PolicyFromConfig builds a TitlePolicy from the enrich config section.
func PolicyFromConfig(c config.EnrichConfig) TitlePolicy {
	return TitlePolicy{
		PrimaryTitles:         c.PrimaryTitles,
		SecondaryTitles:       c.SecondaryTitles,
		SmallCompanyThreshold: c.SmallCompanyThreshold,
		MaxContactsPerCompany: c.MaxContactsPerCompany,
	}
}

// SearchTitles returns primary then secondary titles, for the search filter.
func (p TitlePolicy) SearchTitles() []string {
	out := make([]string, 0, len(p.PrimaryTitles)+len(p.SecondaryTitles))
	out = append(out, p.PrimaryTitles...)
	return append(out, p.SecondaryTitles...)
}

// Rank orders candidates for reveal: primary-title matches first, then
// secondary-title matches when the company is small or its size unknown.
// Provider order is kept within each tier; everything else is dropped and
// the result is capped at MaxContactsPerCompany. employeeCount overrides
// the per-candidate CompanyEmployeeCount when non-nil.
func Rank(candidates []model.CandidateContact, employeeCount *int, policy TitlePolicy) []model.CandidateContact {
	if policy.MaxContactsPerCompany <= 0 || len(candidates) == 0 {
		return nil
	}

	fold := cases.Fold()
	primary := foldAll(fold, policy.PrimaryTitles)
	secondary := foldAll(fold, policy.SecondaryTitles)

	var tierA, tierB []model.CandidateContact
	for _, c := range candidates {
		title := fold.String(strings.TrimSpace(c.Title))
		switch {
		case title == "":
		case matchesAny(title, primary):
			tierA = append(tierA, c)
		case matchesAny(title, secondary) && isSmallCompany(employeeCount, c, policy.SmallCompanyThreshold):
			tierB = append(tierB, c)
		}
	}

	ranked := append(tierA, tierB...)
	if len(ranked) > policy.MaxContactsPerCompany {
		ranked = ranked[:policy.MaxContactsPerCompany]
	}
	return ranked
}

func isSmallCompany(override *int, c model.CandidateContact, threshold int) bool {
	count := override
	if count == nil {
		count = c.CompanyEmployeeCount
	}
	return count == nil || *count < threshold
}

func foldAll(fold cases.Caser, titles []string) []string {
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if t = fold.String(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func matchesAny(title string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(title, p) {
			return true
		}
	}
	return false
}
