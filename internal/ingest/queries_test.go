package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQueryPlan(t *testing.T) {
	t.Parallel()

	plan, err := ParseQueryPlan([]byte(`
query_template: "{business_type} near {location}"
regions: ["Austin, TX", "Dallas, TX"]
business_types: ["office building", "medical clinic"]
`))
	require.NoError(t, err)

	assert.Equal(t, []Query{
		{Text: "office building near Austin, TX", Region: "Austin, TX", BusinessType: "office building"},
		{Text: "medical clinic near Austin, TX", Region: "Austin, TX", BusinessType: "medical clinic"},
		{Text: "office building near Dallas, TX", Region: "Dallas, TX", BusinessType: "office building"},
		{Text: "medical clinic near Dallas, TX", Region: "Dallas, TX", BusinessType: "medical clinic"},
	}, plan.Queries())
}

func TestParseQueryPlan_DefaultTemplate(t *testing.T) {
	t.Parallel()

	plan, err := ParseQueryPlan([]byte("regions: [Austin]\nbusiness_types: [gym]\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultQueryTemplate, plan.Template)
	assert.Equal(t, "gym in Austin", plan.Queries()[0].Text)
}

func TestParseQueryPlan_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "regions: [unclosed"},
		{"no regions", "business_types: [gym]"},
		{"no business types", "regions: [Austin]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseQueryPlan([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadQueryPlan(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "queries.yaml")
	require.NoError(t, os.WriteFile(path, []byte("regions: [Austin]\nbusiness_types: [gym, school]\n"), 0o644))

	plan, err := LoadQueryPlan(path)
	require.NoError(t, err)
	assert.Len(t, plan.Queries(), 2)

	_, err = LoadQueryPlan(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
