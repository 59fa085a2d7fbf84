package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rollkit/fastlane/verifier"
)

var _ verifier.RootQuerier = (*MockRootQuerier)(nil)

// MockRootQuerier is a mock implementation of verifier.RootQuerier.
type MockRootQuerier struct {
	mock.Mock
}

// Lookup mock implementation.
func (m *MockRootQuerier) Lookup(ctx context.Context, chainID string, root []byte) (uint64, error) {
	args := m.Called(ctx, chainID, root)
	var age uint64
	if ret := args.Get(0); ret != nil {
		age = ret.(uint64)
	}
	return age, args.Error(1)
}
