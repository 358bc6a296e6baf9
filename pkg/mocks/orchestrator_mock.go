package mocks

import (
	"context"

	"github.com/hirezen/stageflow/pkg/transitions"
	"github.com/stretchr/testify/mock"
)

// MockOrchestrator is a mock of the orchestrator entry point used by receivers and handlers.
type MockOrchestrator struct {
	mock.Mock
}

func (m *MockOrchestrator) Evaluate(ctx context.Context, req transitions.Request) (*transitions.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*transitions.Result), args.Error(1)
}
