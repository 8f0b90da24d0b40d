package mocks

import "github.com/stretchr/testify/mock"

// MockCredentialManager is a mock implementation of the
// credential.ManagerInterface
type MockCredentialManager struct {
	mock.Mock
}

func (m *MockCredentialManager) Load() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockCredentialManager) Token() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockCredentialManager) IsValid() bool {
	args := m.Called()
	return args.Bool(0)
}
