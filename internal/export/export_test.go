package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadgen-cli/internal/model"
)

func readSheet(t *testing.T, f *xlsx.File, name string) [][]string {
	t.Helper()
	sheet, ok := f.Sheet[name]
	require.True(t, ok, "sheet %q missing", name)
	var rows [][]string
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows
}

func col(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func contact(placeID, personID, runDate string, status model.ContactRowStatus) model.ContactRow {
	row := model.NewContactRow(model.Lead{ID: placeID, BusinessName: "Biz " + placeID}, model.SourceDomainSearch, runDate,
		model.EnrichedContact{
			CandidateContact: model.CandidateContact{PersonID: personID, Name: "Person " + personID, Title: "Owner"},
			Email:            personID + "@example.com",
			EmailStatus:      model.EmailVerified,
		})
	row.Status = status
	return row
}

func fixture() ([]model.Lead, []model.ContactRow) {
	leads := []model.Lead{
		{ID: "p1", BusinessName: "Acme Cleaning", BusinessType: "cleaning", Region: "Austin", Rating: 4.5, ReviewsCount: 10},
		{ID: "p2", BusinessName: "Bright Dental", BusinessType: "dentist", Region: "Dallas"},
		{ID: "p3", BusinessName: "Core Gym", BusinessType: "gym", Region: "Austin"},
		{ID: "p4", BusinessName: "Delta Storage", BusinessType: "storage", Region: "Austin"},
	}
	rows := []model.ContactRow{
		contact("p1", "a1", "2026-04-01", model.ContactRevealed),
		contact("p1", "a2", "2026-04-02", model.ContactRevealed),
		model.NoContactsMarker(leads[1], model.SourceNameSearch, "2026-04-01"),
		contact("p3", "c1", "2026-04-02", model.ContactPartial),
	}
	return leads, rows
}

func TestBuild(t *testing.T) {
	leads, rows := fixture()

	f, stats, err := Build(leads, rows, Options{})
	require.NoError(t, err)
	assert.Equal(t, Stats{Contacts: 3, Companies: 4, Pending: 1}, stats)

	contacts := readSheet(t, f, ContactsSheet)
	require.Len(t, contacts, 4)
	assert.Equal(t, contactColumns, contacts[0])
	assert.Equal(t, "a1@example.com", contacts[1][col(contacts[0], "email")])
	assert.Equal(t, "cleaning", contacts[1][col(contacts[0], "business_type")])
	assert.Equal(t, "partial", contacts[3][col(contacts[0], "status")])

	companies := readSheet(t, f, CompaniesSheet)
	require.Len(t, companies, 5)
	header := companies[0]
	status := map[string]string{}
	count := map[string]string{}
	for _, r := range companies[1:] {
		status[r[col(header, "place_id")]] = r[col(header, "status")]
		count[r[col(header, "place_id")]] = r[col(header, "contacts")]
	}
	assert.Equal(t, map[string]string{
		"p1": CompanyEnriched,
		"p2": CompanyNoContacts,
		"p3": CompanyPartial,
		"p4": CompanyPending,
	}, status)
	assert.Equal(t, "2", count["p1"])
	assert.Equal(t, "0", count["p2"])
	// sorted by business name
	assert.Equal(t, "Acme Cleaning", companies[1][col(header, "business_name")])
}

func TestBuild_CompletedPartialCountsAsEnriched(t *testing.T) {
	leads, rows := fixture()
	rows = append(rows, model.CompletionMarker(leads[2], model.SourceDomainSearch, "2026-04-03"))

	f, _, err := Build(leads, rows, Options{})
	require.NoError(t, err)

	companies := readSheet(t, f, CompaniesSheet)
	header := companies[0]
	for _, r := range companies[1:] {
		if r[col(header, "place_id")] == "p3" {
			assert.Equal(t, CompanyEnriched, r[col(header, "status")])
		}
	}
}

func TestBuild_Filters(t *testing.T) {
	leads, rows := fixture()

	_, stats, err := Build(leads, rows, Options{Since: "2026-04-02"})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Contacts)
	assert.Equal(t, 4, stats.Companies)

	f, stats, err := Build(leads, rows, Options{Region: "Dallas"})
	require.NoError(t, err)
	assert.Equal(t, Stats{Contacts: 0, Companies: 1, Pending: 0}, stats)
	assert.Len(t, readSheet(t, f, ContactsSheet), 1)
}

func TestSave(t *testing.T) {
	leads, rows := fixture()
	path := filepath.Join(t.TempDir(), "contacts.xlsx")

	stats, err := Save(path, leads, rows, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Contacts)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)
	assert.Equal(t, ContactsSheet, f.Sheets[0].Name)
	assert.Len(t, readSheet(t, f, ContactsSheet), 4)

	_, err = Save(filepath.Join(t.TempDir(), "missing", "x.xlsx"), leads, rows, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export: save")
}
