package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/leadgen-cli/internal/model"
)

func TestExtractDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		website string
		want    string
	}{
		{"https://www.acme-cleaning.com/about", "acme-cleaning.com"},
		{"http://acme-cleaning.com", "acme-cleaning.com"},
		{"www.acme-cleaning.com", "acme-cleaning.com"},
		{"acme-cleaning.com/contact?ref=maps", "acme-cleaning.com"},
		{"HTTPS://WWW.Acme-Cleaning.COM:8443/", "acme-cleaning.com"},
		{"  https://shop.acme.co.uk  ", "shop.acme.co.uk"},
		{"https://acme.com.", "acme.com"},
		{"", ""},
		{"   ", ""},
		{"localhost", ""},
		{"https://", ""},
		{"not a url at all", ""},
	}

	for _, tt := range tests {
		t.Run(tt.website, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExtractDomain(tt.website))
		})
	}
}

func TestResolveIdentity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		lead   model.Lead
		want   model.Identity
		wantOK bool
	}{
		{
			name:   "website domain",
			lead:   model.Lead{BusinessName: "Acme Cleaning", Website: "https://www.acme-cleaning.com/about"},
			want:   model.Identity{Mode: model.IdentityModeDomain, Value: "acme-cleaning.com"},
			wantOK: true,
		},
		{
			name:   "no website falls back to name",
			lead:   model.Lead{BusinessName: "Acme Cleaning"},
			want:   model.Identity{Mode: model.IdentityModeName, Value: "Acme Cleaning"},
			wantOK: true,
		},
		{
			name:   "blocklisted host falls back to name",
			lead:   model.Lead{BusinessName: "Joe's Gym", Website: "https://www.facebook.com/joesgym"},
			want:   model.Identity{Mode: model.IdentityModeName, Value: "Joe's Gym"},
			wantOK: true,
		},
		{
			name:   "unparseable website falls back to name",
			lead:   model.Lead{BusinessName: " Acme ", Website: "n/a"},
			want:   model.Identity{Mode: model.IdentityModeName, Value: "Acme"},
			wantOK: true,
		},
		{
			name: "nothing to search on",
			lead: model.Lead{BusinessName: "  "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ResolveIdentity(tt.lead)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolverCustomBlocklist(t *testing.T) {
	t.Parallel()

	r := NewResolver([]string{" Acme-Cleaning.com "})
	lead := model.Lead{BusinessName: "Acme", Website: "acme-cleaning.com"}

	id, ok := r.Resolve(lead)
	assert.True(t, ok)
	assert.Equal(t, model.IdentityModeName, id.Mode)

	// the default list no longer applies
	id, ok = r.Resolve(model.Lead{BusinessName: "Acme", Website: "yelp.com/biz/acme"})
	assert.True(t, ok)
	assert.Equal(t, model.Identity{Mode: model.IdentityModeDomain, Value: "yelp.com"}, id)
}
