package status

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockTracker is a mock implementation of Tracker using testify/mock.
type MockTracker struct {
	mock.Mock
}

func (m *MockTracker) Create(ctx context.Context, id uuid.UUID, filename string) error {
	args := m.Called(ctx, id, filename)
	return args.Error(0)
}

func (m *MockTracker) SetState(ctx context.Context, id uuid.UUID, state State) error {
	args := m.Called(ctx, id, state)
	return args.Error(0)
}

func (m *MockTracker) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Record), args.Error(1)
}

func (m *MockTracker) Close() error {
	args := m.Called()
	return args.Error(0)
}
