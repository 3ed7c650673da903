package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storybook-server/internal/model"
	"storybook-server/internal/repository"
)

// MockStoryRepository is a mock type for the StoryRepository type
type MockStoryRepository struct {
	mock.Mock
}

// Upsert provides a mock function with given fields: ctx, story
func (_m *MockStoryRepository) Upsert(ctx context.Context, story *model.Story) error {
	ret := _m.Called(ctx, story)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.Story) error); ok {
		r0 = rf(ctx, story)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// GetByID provides a mock function with given fields: ctx, storyID
func (_m *MockStoryRepository) GetByID(ctx context.Context, storyID string) (*model.Story, error) {
	ret := _m.Called(ctx, storyID)

	var r0 *model.Story
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.Story); ok {
		r0 = rf(ctx, storyID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Story)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, storyID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListByOwner provides a mock function with given fields: ctx, ownerID
func (_m *MockStoryRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.Story, error) {
	ret := _m.Called(ctx, ownerID)

	var r0 []*model.Story
	if rf, ok := ret.Get(0).(func(context.Context, string) []*model.Story); ok {
		r0 = rf(ctx, ownerID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]*model.Story)
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

// CompletedCount provides a mock function with given fields: ctx, ownerID
func (_m *MockStoryRepository) CompletedCount(ctx context.Context, ownerID string) (int, error) {
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

// NewMockStoryRepository creates a new instance of MockStoryRepository.
// The first argument is typically a *testing.T value.
func NewMockStoryRepository(t interface {
	mock.TestingT
	Helper()
}) *MockStoryRepository {
	m := &MockStoryRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.StoryRepository = (*MockStoryRepository)(nil)
