package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"imagegen-bot/internal/bot"
)

// MockMessenger is a mock type for the Messenger type
type MockMessenger struct {
	mock.Mock
}

// SendText provides a mock function with given fields: ctx, chatID, text
func (_m *MockMessenger) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	ret := _m.Called(ctx, chatID, text)

	var r0 int
	if rf, ok := ret.Get(0).(func(context.Context, int64, string) int); ok {
		r0 = rf(ctx, chatID, text)
	} else {
		r0 = ret.Int(0)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, int64, string) error); ok {
		r1 = rf(ctx, chatID, text)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// SendTyping provides a mock function with given fields: ctx, chatID
func (_m *MockMessenger) SendTyping(ctx context.Context, chatID int64) error {
	ret := _m.Called(ctx, chatID)
	return ret.Error(0)
}

// SendPhoto provides a mock function with given fields: ctx, chatID, path, caption
func (_m *MockMessenger) SendPhoto(ctx context.Context, chatID int64, path string, caption string) error {
	ret := _m.Called(ctx, chatID, path, caption)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, int64, string, string) error); ok {
		r0 = rf(ctx, chatID, path, caption)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// DeleteMessage provides a mock function with given fields: ctx, chatID, messageID
func (_m *MockMessenger) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	ret := _m.Called(ctx, chatID, messageID)
	return ret.Error(0)
}

// NewMockMessenger creates a new instance of MockMessenger. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockMessenger(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockMessenger {
	m := &MockMessenger{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ bot.Messenger = (*MockMessenger)(nil)
