package task

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockQueue is a mock implementation of Queue using testify/mock.
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, t Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockQueue) Worker(ctx context.Context, taskType Type, handler Handler) error {
	args := m.Called(ctx, taskType, handler)
	return args.Error(0)
}
