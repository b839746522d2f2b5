package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/degaulle/sorashorts/internal/model"
	"github.com/degaulle/sorashorts/internal/workflow"
)

// MockBackend is a mock type for the workflow.Backend type
type MockBackend struct {
	mock.Mock
}

// DetectGender provides a mock function with given fields: ctx, photo
func (_m *MockBackend) DetectGender(ctx context.Context, photo string) (model.Gender, error) {
	ret := _m.Called(ctx, photo)

	var r0 model.Gender
	if rf, ok := ret.Get(0).(func(context.Context, string) model.Gender); ok {
		r0 = rf(ctx, photo)
	} else {
		r0 = ret.Get(0).(model.Gender)
	}

	return r0, ret.Error(1)
}

// GenerateStoryboard provides a mock function with given fields: ctx, show, gender
func (_m *MockBackend) GenerateStoryboard(ctx context.Context, show string, gender model.Gender) ([]model.Scene, error) {
	ret := _m.Called(ctx, show, gender)

	var r0 []model.Scene
	if rf, ok := ret.Get(0).(func(context.Context, string, model.Gender) []model.Scene); ok {
		r0 = rf(ctx, show, gender)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.Scene)
	}

	return r0, ret.Error(1)
}

// GenerateImage provides a mock function with given fields: ctx, req
func (_m *MockBackend) GenerateImage(ctx context.Context, req model.ImageRequest) (string, error) {
	ret := _m.Called(ctx, req)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, model.ImageRequest) string); ok {
		r0 = rf(ctx, req)
	} else {
		r0 = ret.String(0)
	}

	return r0, ret.Error(1)
}

// GenerateScenePrompt provides a mock function with given fields: ctx, show
func (_m *MockBackend) GenerateScenePrompt(ctx context.Context, show string) (string, error) {
	ret := _m.Called(ctx, show)
	return ret.String(0), ret.Error(1)
}

// GenerateVideo provides a mock function with given fields: ctx, imageURL, prompt
func (_m *MockBackend) GenerateVideo(ctx context.Context, imageURL string, prompt string) (model.VideoJob, error) {
	ret := _m.Called(ctx, imageURL, prompt)
	return ret.Get(0).(model.VideoJob), ret.Error(1)
}

// NewMockBackend creates a new instance of MockBackend. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockBackend(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockBackend {
	m := &MockBackend{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// MockVideoWaiter is a mock type for the workflow.VideoWaiter type
type MockVideoWaiter struct {
	mock.Mock
}

// Wait provides a mock function with given fields: ctx, requestID, onPending
func (_m *MockVideoWaiter) Wait(ctx context.Context, requestID string, onPending func(attempt int)) (string, error) {
	ret := _m.Called(ctx, requestID, onPending)
	return ret.String(0), ret.Error(1)
}

// NewMockVideoWaiter creates a new instance of MockVideoWaiter.
func NewMockVideoWaiter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockVideoWaiter {
	m := &MockVideoWaiter{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var (
	_ workflow.Backend     = (*MockBackend)(nil)
	_ workflow.VideoWaiter = (*MockVideoWaiter)(nil)
)
