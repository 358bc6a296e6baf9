package mocks

import (
	"context"

	"github.com/hirezen/stageflow/pkg/notification"
	"github.com/stretchr/testify/mock"
)

// MockDispatcher is a mock implementation of notification.Dispatcher interface.
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, req notification.Request) (string, error) {
	args := m.Called(ctx, req)

	return args.String(0), args.Error(1)
}
