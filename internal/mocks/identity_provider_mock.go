package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"imagegen-bot/internal/interfaces"
	"imagegen-bot/internal/models"
)

// MockIdentityProvider is a mock type for the IdentityProvider type
type MockIdentityProvider struct {
	mock.Mock
}

// GetIdentity provides a mock function with given fields: ctx
func (_m *MockIdentityProvider) GetIdentity(ctx context.Context) (models.BotIdentity, error) {
	ret := _m.Called(ctx)

	var r0 models.BotIdentity
	if rf, ok := ret.Get(0).(func(context.Context) models.BotIdentity); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Get(0).(models.BotIdentity)
	}

	return r0, ret.Error(1)
}

// NewMockIdentityProvider creates a new instance of MockIdentityProvider. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockIdentityProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockIdentityProvider {
	m := &MockIdentityProvider{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ interfaces.IdentityProvider = (*MockIdentityProvider)(nil)
