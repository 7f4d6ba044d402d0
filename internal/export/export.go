// Package export writes leads and their revealed contacts to an XLSX
// workbook for hand-off outside the spreadsheet.
package export

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Sheet names in the exported workbook.
const (
	ContactsSheet  = "Contacts"
	CompaniesSheet = "Companies"
)

// Company status values on the Companies sheet.
const (
	CompanyEnriched   = "enriched"
	CompanyPartial    = "partial"
	CompanyNoContacts = "no_contacts"
	CompanyPending    = "pending"
)

var contactColumns = []string{
	"business_name", "full_name", "title", "seniority", "email", "email_status",
	"phone", "linkedin_url", "company_website", "business_type", "region",
	"full_address", "google_maps_link", "place_id", "enrichment_source", "run_date", "status",
}

var companyColumns = []string{
	"place_id", "business_name", "business_type", "region", "website",
	"phone", "rating", "reviews_count", "contacts", "status",
}

// Options narrows what is exported.
type Options struct {
	// Since keeps contacts revealed on or after this run date (YYYY-MM-DD).
	Since string
	// Region keeps only leads from this region.
	Region string
}

// Stats counts what a workbook holds.
type Stats struct {
	Contacts  int `json:"contacts"`
	Companies int `json:"companies"`
	Pending   int `json:"pending"`
}

// Build lays out the workbook: one row per revealed contact, and one row
// per lead with its enrichment status.
func Build(leads []model.Lead, rows []model.ContactRow, opts Options) (*xlsx.File, Stats, error) {
	var stats Stats
	f := xlsx.NewFile()

	contacts, err := f.AddSheet(ContactsSheet)
	if err != nil {
		return nil, stats, eris.Wrap(err, "export: add contacts sheet")
	}
	companies, err := f.AddSheet(CompaniesSheet)
	if err != nil {
		return nil, stats, eris.Wrap(err, "export: add companies sheet")
	}
	addRow(contacts, anySlice(contactColumns)...)
	addRow(companies, anySlice(companyColumns)...)

	byID := make(map[string]model.Lead, len(leads))
	for _, l := range leads {
		byID[l.ID] = l
	}
	enriched := model.EnrichedIDs(rows)

	perCompany := map[string]int{}
	partial := model.NewIDSet()
	markers := map[string]model.ContactRowStatus{}
	for _, r := range rows {
		lead, ok := byID[r.PlaceID]
		if opts.Region != "" && (!ok || lead.Region != opts.Region) {
			continue
		}
		if r.PersonID == "" {
			markers[r.PlaceID] = r.Status
			continue
		}
		if r.Status == model.ContactPartial {
			partial.Add(r.PlaceID)
		}
		perCompany[r.PlaceID]++
		if opts.Since != "" && r.RunDate < opts.Since {
			continue
		}
		addRow(contacts,
			r.BusinessName, r.Name, r.Title, r.Seniority, r.Email, string(r.EmailStatus),
			r.Phone, r.LinkedInURL, r.CompanyWebsite, lead.BusinessType, lead.Region,
			lead.FullAddress, lead.MapsLink, r.PlaceID, string(r.EnrichmentSource), r.RunDate, string(r.Status),
		)
		stats.Contacts++
	}

	ordered := slices.Clone(leads)
	slices.SortStableFunc(ordered, func(a, b model.Lead) int {
		return strings.Compare(a.BusinessName, b.BusinessName)
	})
	for _, l := range ordered {
		if opts.Region != "" && l.Region != opts.Region {
			continue
		}
		status := companyStatus(l.ID, enriched, partial, markers, perCompany[l.ID])
		if status == CompanyPending {
			stats.Pending++
		}
		addRow(companies,
			l.ID, l.BusinessName, l.BusinessType, l.Region, l.Website,
			l.Phone, l.Rating, l.ReviewsCount, perCompany[l.ID], status,
		)
		stats.Companies++
	}
	return f, stats, nil
}

// Save builds the workbook and writes it to path.
func Save(path string, leads []model.Lead, rows []model.ContactRow, opts Options) (Stats, error) {
	f, stats, err := Build(leads, rows, opts)
	if err != nil {
		return stats, err
	}
	if err := f.Save(path); err != nil {
		return stats, eris.Wrapf(err, "export: save %s", path)
	}
	return stats, nil
}

func companyStatus(id string, enriched, partial model.IDSet, markers map[string]model.ContactRowStatus, contacts int) string {
	switch {
	case !enriched.Has(id) && partial.Has(id):
		return CompanyPartial
	case !enriched.Has(id):
		return CompanyPending
	case contacts == 0 && markers[id] == model.ContactNoContacts:
		return CompanyNoContacts
	default:
		return CompanyEnriched
	}
}

func addRow(sheet *xlsx.Sheet, vals ...any) {
	row := sheet.AddRow()
	for _, v := range vals {
		cell := row.AddCell()
		switch t := v.(type) {
		case string:
			cell.SetString(t)
		case int:
			cell.SetInt(t)
		case float64:
			cell.SetFloat(t)
		default:
			cell.SetValue(t)
		}
	}
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
