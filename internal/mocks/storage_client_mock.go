package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storybook-server/internal/service"
)

// MockStorageClient is a mock type for the StorageClient type
type MockStorageClient struct {
	mock.Mock
}

// Upload provides a mock function with given fields: ctx, data, contentType, ownerID, storyID, fileName
func (_m *MockStorageClient) Upload(ctx context.Context, data []byte, contentType string, ownerID string, storyID string, fileName string) (string, error) {
	ret := _m.Called(ctx, data, contentType, ownerID, storyID, fileName)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, []byte, string, string, string, string) string); ok {
		r0 = rf(ctx, data, contentType, ownerID, storyID, fileName)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(string)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, []byte, string, string, string, string) error); ok {
		r1 = rf(ctx, data, contentType, ownerID, storyID, fileName)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockStorageClient creates a new instance of MockStorageClient.
// The first argument is typically a *testing.T value.
func NewMockStorageClient(t interface {
	mock.TestingT
	Helper()
}) *MockStorageClient {
	m := &MockStorageClient{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.StorageClient = (*MockStorageClient)(nil)
