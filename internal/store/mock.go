package store

import (
	"github.com/stretchr/testify/mock"

	"github.com/tripmesh/gateway/internal/types"
)

type MockEventStore struct {
	mock.Mock
}

func (m *MockEventStore) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockEventStore) AppendMessage(msg types.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockEventStore) AppendLocationUpdate(update types.LocationUpdate) error {
	args := m.Called(update)
	return args.Error(0)
}

func (m *MockEventStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
