package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/google"
	"github.com/sells-group/leadgen-cli/pkg/google/mocks"
)

func TestPlacesSource_Paginates(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("TextSearch", mock.Anything, mock.MatchedBy(func(r google.TextSearchRequest) bool {
		return r.PageToken == ""
	})).Return(&google.TextSearchResponse{
		Places: []google.Place{
			{ID: "p1", DisplayName: google.DisplayName{Text: "One"}, NationalPhoneNumber: "111"},
			{ID: "p2", DisplayName: google.DisplayName{Text: "Two"}},
		},
		NextPageToken: "t2",
	}, nil).Once()
	client.On("TextSearch", mock.Anything, mock.MatchedBy(func(r google.TextSearchRequest) bool {
		return r.PageToken == "t2"
	})).Return(&google.TextSearchResponse{
		Places: []google.Place{{ID: "p3", DisplayName: google.DisplayName{Text: "Three"}, WebsiteURI: "https://three.com"}},
	}, nil).Once()

	src := NewPlacesSource(client, nil, PlacesOptions{ResultsPerQuery: 10, MaxPages: 3, Language: "en", Region: "us"})
	places, err := src.Search(context.Background(), "gym in Austin")

	require.NoError(t, err)
	require.Len(t, places, 3)
	assert.Equal(t, "111", places[0].Phone)
	assert.Equal(t, "https://three.com", places[2].Website)
	assert.Equal(t, 2, src.Requests())
}

func TestPlacesSource_StopsAtResultLimit(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("TextSearch", mock.Anything, mock.MatchedBy(func(r google.TextSearchRequest) bool {
		return r.PageSize == 2
	})).Return(&google.TextSearchResponse{
		Places:        []google.Place{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}},
		NextPageToken: "more",
	}, nil).Once()

	src := NewPlacesSource(client, nil, PlacesOptions{ResultsPerQuery: 2, MaxPages: 5})
	places, err := src.Search(context.Background(), "q")

	require.NoError(t, err)
	assert.Len(t, places, 2)
	assert.Equal(t, 1, src.Requests())
}

func TestPlacesSource_RetriesTransientErrors(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("TextSearch", mock.Anything, mock.Anything).
		Return(nil, &google.APIError{StatusCode: 503}).Once()
	client.On("TextSearch", mock.Anything, mock.Anything).
		Return(&google.TextSearchResponse{Places: []google.Place{{ID: "p1"}}}, nil).Once()

	guard := resilience.NewGuard("places", resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	}, resilience.DefaultCircuitBreakerConfig())

	src := NewPlacesSource(client, guard, PlacesOptions{ResultsPerQuery: 5})
	places, err := src.Search(context.Background(), "q")

	require.NoError(t, err)
	assert.Len(t, places, 1)
	assert.Equal(t, 2, src.Requests())
}

func TestPlacesSource_PermanentError(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("TextSearch", mock.Anything, mock.Anything).
		Return(nil, &google.APIError{StatusCode: 403, Body: "denied"}).Once()

	src := NewPlacesSource(client, resilience.NewGuard("places", resilience.DefaultRetryConfig(), resilience.DefaultCircuitBreakerConfig()), PlacesOptions{})
	_, err := src.Search(context.Background(), "q")

	require.Error(t, err)
	var apiErr *google.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Contains(t, err.Error(), "places search")
}
