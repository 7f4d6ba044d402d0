package enrich

import (
	"net/url"
	"strings"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// DefaultDomainBlocklist lists social and directory hosts that are never a
// company's own domain.
var DefaultDomainBlocklist = []string{
	"facebook.com", "instagram.com", "twitter.com", "x.com",
	"linkedin.com", "yelp.com", "yellowpages.com", "bbb.org",
	"google.com", "youtube.com", "tiktok.com",
}

// Resolver turns a lead into a people-search identity.
type Resolver struct {
	blocklist model.IDSet
}

// NewResolver creates a Resolver. A nil blocklist uses DefaultDomainBlocklist.
func NewResolver(blocklist []string) *Resolver {
	if blocklist == nil {
		blocklist = DefaultDomainBlocklist
	}
	set := make(model.IDSet, len(blocklist))
	for _, d := range blocklist {
		set.Add(strings.ToLower(strings.TrimSpace(d)))
	}
	return &Resolver{blocklist: set}
}

// ResolveIdentity resolves lead with the default blocklist.
func ResolveIdentity(lead model.Lead) (model.Identity, bool) {
	return defaultResolver.Resolve(lead)
}

var defaultResolver = NewResolver(nil)

// Resolve prefers the website's domain and falls back to the business name.
// ok is false when the lead has neither.
func (r *Resolver) Resolve(lead model.Lead) (id model.Identity, ok bool) {
	if domain := ExtractDomain(lead.Website); domain != "" && !r.blocklist.Has(domain) {
		return model.Identity{Mode: model.IdentityModeDomain, Value: domain}, true
	}
	if name := strings.TrimSpace(lead.BusinessName); name != "" {
		return model.Identity{Mode: model.IdentityModeName, Value: name}, true
	}
	return model.Identity{}, false
}

// ExtractDomain returns the lower-cased host of a website without scheme,
// path, port or a leading "www.". It returns "" when no host can be parsed.
func ExtractDomain(website string) string {
	raw := strings.TrimSpace(website)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	host = strings.TrimPrefix(host, "www.")
	if host == "" || !strings.Contains(host, ".") {
		return ""
	}
	return host
}
