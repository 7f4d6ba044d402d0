package ingest

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/google"
)

// PlacesOptions controls how a query is paged through the Places API.
type PlacesOptions struct {
	ResultsPerQuery int
	MaxPages        int
	Language        string
	Region          string
}

// PlacesSource adapts the Google Places client to MapsClient, following
// page tokens until ResultsPerQuery places or MaxPages pages are collected.
type PlacesSource struct {
	client   google.Client
	guard    *resilience.Guard
	opts     PlacesOptions
	requests atomic.Int64
}

// NewPlacesSource creates a PlacesSource. guard may be nil.
func NewPlacesSource(client google.Client, guard *resilience.Guard, opts PlacesOptions) *PlacesSource {
	if opts.ResultsPerQuery <= 0 {
		opts.ResultsPerQuery = 20
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	return &PlacesSource{client: client, guard: guard, opts: opts}
}

// Search returns up to ResultsPerQuery places for query.
func (s *PlacesSource) Search(ctx context.Context, query string) ([]Place, error) {
	var out []Place
	token := ""
	for page := 0; page < s.opts.MaxPages && len(out) < s.opts.ResultsPerQuery; page++ {
		req := google.TextSearchRequest{
			TextQuery:    query,
			PageSize:     min(s.opts.ResultsPerQuery-len(out), 20),
			PageToken:    token,
			LanguageCode: s.opts.Language,
			RegionCode:   s.opts.Region,
		}
		resp, err := resilience.Call(ctx, s.guard, "text_search", func(ctx context.Context) (*google.TextSearchResponse, error) {
			s.requests.Add(1)
			return s.client.TextSearch(ctx, req)
		})
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: places search %q page %d", query, page+1)
		}
		for _, p := range resp.Places {
			out = append(out, Place{
				ID:           p.ID,
				Name:         p.DisplayName.Text,
				Address:      p.FormattedAddress,
				Phone:        p.Phone(),
				Website:      p.WebsiteURI,
				Rating:       p.Rating,
				ReviewsCount: p.UserRatingCount,
			})
		}
		if resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
	}
	if len(out) > s.opts.ResultsPerQuery {
		out = out[:s.opts.ResultsPerQuery]
	}
	return out, nil
}

// Requests returns the number of API requests issued, retries included.
func (s *PlacesSource) Requests() int {
	return int(s.requests.Load())
}
