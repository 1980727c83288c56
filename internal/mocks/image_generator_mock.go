package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"imagegen-bot/internal/bot"
)

// MockImageGenerator is a mock type for the ImageGenerator type
type MockImageGenerator struct {
	mock.Mock
}

// Generate provides a mock function with given fields: ctx, prompt, destinationPath
func (_m *MockImageGenerator) Generate(ctx context.Context, prompt string, destinationPath string) error {
	ret := _m.Called(ctx, prompt, destinationPath)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) error); ok {
		r0 = rf(ctx, prompt, destinationPath)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockImageGenerator creates a new instance of MockImageGenerator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockImageGenerator(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockImageGenerator {
	m := &MockImageGenerator{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ bot.ImageGenerator = (*MockImageGenerator)(nil)
