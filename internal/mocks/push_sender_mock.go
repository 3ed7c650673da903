package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storybook-server/internal/service"
)

// MockPushSender is a mock type for the PushSender type
type MockPushSender struct {
	mock.Mock
}

// Send provides a mock function with given fields: ctx, tokens, title, body, data
func (_m *MockPushSender) Send(ctx context.Context, tokens []string, title string, body string, data map[string]string) error {
	ret := _m.Called(ctx, tokens, title, body, data)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, []string, string, string, map[string]string) error); ok {
		r0 = rf(ctx, tokens, title, body, data)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockPushSender creates a new instance of MockPushSender.
// The first argument is typically a *testing.T value.
func NewMockPushSender(t interface {
	mock.TestingT
	Helper()
}) *MockPushSender {
	m := &MockPushSender{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.PushSender = (*MockPushSender)(nil)
