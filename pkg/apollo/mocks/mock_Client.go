// Package mocks provides test doubles for the apollo client.
package mocks

import (
	"context"

	apollo "github.com/sells-group/leadgen-cli/pkg/apollo"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// SearchPeople provides a mock function with given fields: ctx, req
func (_m *MockClient) SearchPeople(ctx context.Context, req apollo.SearchRequest) (*apollo.SearchResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for SearchPeople")
	}

	var r0 *apollo.SearchResponse
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*apollo.SearchResponse)
	}
	return r0, ret.Error(1)
}

// MatchPerson provides a mock function with given fields: ctx, req
func (_m *MockClient) MatchPerson(ctx context.Context, req apollo.MatchRequest) (*apollo.Person, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for MatchPerson")
	}

	var r0 *apollo.Person
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*apollo.Person)
	}
	return r0, ret.Error(1)
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
