package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storybook-server/internal/model"
	"storybook-server/internal/service"
)

// MockAIClient is a mock type for the AIClient type
type MockAIClient struct {
	mock.Mock
}

// GenerateScript provides a mock function with given fields: ctx, params, pageCount, predefinedCharacterDescription
func (_m *MockAIClient) GenerateScript(ctx context.Context, params model.StoryParams, pageCount int, predefinedCharacterDescription string) (*model.ScriptResult, error) {
	ret := _m.Called(ctx, params, pageCount, predefinedCharacterDescription)

	var r0 *model.ScriptResult
	if rf, ok := ret.Get(0).(func(context.Context, model.StoryParams, int, string) *model.ScriptResult); ok {
		r0 = rf(ctx, params, pageCount, predefinedCharacterDescription)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.ScriptResult)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, model.StoryParams, int, string) error); ok {
		r1 = rf(ctx, params, pageCount, predefinedCharacterDescription)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GenerateIllustration provides a mock function with given fields: ctx, prompt, styleID, aspectRatio
func (_m *MockAIClient) GenerateIllustration(ctx context.Context, prompt string, styleID string, aspectRatio string) ([]byte, error) {
	ret := _m.Called(ctx, prompt, styleID, aspectRatio)

	var r0 []byte
	if rf, ok := ret.Get(0).(func(context.Context, string, string, string) []byte); ok {
		r0 = rf(ctx, prompt, styleID, aspectRatio)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]byte)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, string, string) error); ok {
		r1 = rf(ctx, prompt, styleID, aspectRatio)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GenerateNarration provides a mock function with given fields: ctx, text, voice
func (_m *MockAIClient) GenerateNarration(ctx context.Context, text string, voice model.VoiceType) ([]byte, error) {
	ret := _m.Called(ctx, text, voice)

	var r0 []byte
	if rf, ok := ret.Get(0).(func(context.Context, string, model.VoiceType) []byte); ok {
		r0 = rf(ctx, text, voice)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]byte)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, model.VoiceType) error); ok {
		r1 = rf(ctx, text, voice)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// AnalyzePhoto provides a mock function with given fields: ctx, imageData, mimeType
func (_m *MockAIClient) AnalyzePhoto(ctx context.Context, imageData []byte, mimeType string) (string, error) {
	ret := _m.Called(ctx, imageData, mimeType)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, []byte, string) string); ok {
		r0 = rf(ctx, imageData, mimeType)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(string)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, []byte, string) error); ok {
		r1 = rf(ctx, imageData, mimeType)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockAIClient creates a new instance of MockAIClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockAIClient(t interface {
	mock.TestingT
	Helper()
}) *MockAIClient {
	m := &MockAIClient{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.AIClient = (*MockAIClient)(nil)
