package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storybook-server/internal/model"
	"storybook-server/internal/service"
)

// MockProfileClient is a mock type for the ProfileClient type
type MockProfileClient struct {
	mock.Mock
}

// Balance provides a mock function with given fields: ctx, ownerID
func (_m *MockProfileClient) Balance(ctx context.Context, ownerID string) (int, error) {
	ret := _m.Called(ctx, ownerID)

	var r0 int
	if rf, ok := ret.Get(0).(func(context.Context, string) int); ok {
		r0 = rf(ctx, ownerID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(int)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, ownerID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Debit provides a mock function with given fields: ctx, ownerID, amount, reason
func (_m *MockProfileClient) Debit(ctx context.Context, ownerID string, amount int, reason string) error {
	ret := _m.Called(ctx, ownerID, amount, reason)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, int, string) error); ok {
		r0 = rf(ctx, ownerID, amount, reason)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Settings provides a mock function with given fields: ctx, ownerID
func (_m *MockProfileClient) Settings(ctx context.Context, ownerID string) (model.OwnerSettings, error) {
	ret := _m.Called(ctx, ownerID)

	var r0 model.OwnerSettings
	if rf, ok := ret.Get(0).(func(context.Context, string) model.OwnerSettings); ok {
		r0 = rf(ctx, ownerID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(model.OwnerSettings)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, ownerID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// DeviceTokens provides a mock function with given fields: ctx, ownerID
func (_m *MockProfileClient) DeviceTokens(ctx context.Context, ownerID string) ([]string, error) {
	ret := _m.Called(ctx, ownerID)

	var r0 []string
	if rf, ok := ret.Get(0).(func(context.Context, string) []string); ok {
		r0 = rf(ctx, ownerID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]string)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, ownerID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockProfileClient creates a new instance of MockProfileClient.
// The first argument is typically a *testing.T value.
func NewMockProfileClient(t interface {
	mock.TestingT
	Helper()
}) *MockProfileClient {
	m := &MockProfileClient{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.ProfileClient = (*MockProfileClient)(nil)
