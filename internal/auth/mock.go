package auth

import (
	"github.com/stretchr/testify/mock"

	"github.com/tripmesh/gateway/internal/types"
)

type MockTokenResolver struct {
	mock.Mock
}

func (m *MockTokenResolver) Resolve(token string) (types.Identity, error) {
	args := m.Called(token)
	return args.Get(0).(types.Identity), args.Error(1)
}
