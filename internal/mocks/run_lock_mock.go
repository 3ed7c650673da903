package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storybook-server/internal/orchestrator"
)

// MockRunLock is a mock type for the RunLock type
type MockRunLock struct {
	mock.Mock
}

// Acquire provides a mock function with given fields: ctx, ownerID
func (_m *MockRunLock) Acquire(ctx context.Context, ownerID string) (bool, error) {
	ret := _m.Called(ctx, ownerID)

	var r0 bool
	if rf, ok := ret.Get(0).(func(context.Context, string) bool); ok {
		r0 = rf(ctx, ownerID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(bool)
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

// Refresh provides a mock function with given fields: ctx, ownerID
func (_m *MockRunLock) Refresh(ctx context.Context, ownerID string) error {
	ret := _m.Called(ctx, ownerID)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string) error); ok {
		r0 = rf(ctx, ownerID)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Release provides a mock function with given fields: ctx, ownerID
func (_m *MockRunLock) Release(ctx context.Context, ownerID string) error {
	ret := _m.Called(ctx, ownerID)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string) error); ok {
		r0 = rf(ctx, ownerID)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockRunLock creates a new instance of MockRunLock.
// The first argument is typically a *testing.T value.
func NewMockRunLock(t interface {
	mock.TestingT
	Helper()
}) *MockRunLock {
	m := &MockRunLock{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ orchestrator.RunLock = (*MockRunLock)(nil)
