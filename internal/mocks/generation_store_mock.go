package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"imagegen-bot/internal/interfaces"
	"imagegen-bot/internal/models"
)

// MockGenerationStore is a mock type for the GenerationStore type
type MockGenerationStore struct {
	mock.Mock
}

// CreateGeneration provides a mock function with given fields: ctx, requesterID, prompt
func (_m *MockGenerationStore) CreateGeneration(ctx context.Context, requesterID string, prompt string) (*models.GenerationRecord, error) {
	ret := _m.Called(ctx, requesterID, prompt)

	var r0 *models.GenerationRecord
	if v := ret.Get(0); v != nil {
		r0 = v.(*models.GenerationRecord)
	}
	return r0, ret.Error(1)
}

// UpdateGeneration provides a mock function with given fields: ctx, id, update
func (_m *MockGenerationStore) UpdateGeneration(ctx context.Context, id string, update models.GenerationUpdate) error {
	ret := _m.Called(ctx, id, update)
	return ret.Error(0)
}

// GetGeneration provides a mock function with given fields: ctx, id
func (_m *MockGenerationStore) GetGeneration(ctx context.Context, id string) (*models.GenerationRecord, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.GenerationRecord
	if v := ret.Get(0); v != nil {
		r0 = v.(*models.GenerationRecord)
	}
	return r0, ret.Error(1)
}

// FindLatestByRequesterAndPrompt provides a mock function with given fields: ctx, requesterID, prompt
func (_m *MockGenerationStore) FindLatestByRequesterAndPrompt(ctx context.Context, requesterID string, prompt string) (*models.GenerationRecord, error) {
	ret := _m.Called(ctx, requesterID, prompt)

	var r0 *models.GenerationRecord
	if v := ret.Get(0); v != nil {
		r0 = v.(*models.GenerationRecord)
	}
	return r0, ret.Error(1)
}

// ListRecent provides a mock function with given fields: ctx, limit
func (_m *MockGenerationStore) ListRecent(ctx context.Context, limit int) ([]*models.GenerationRecord, error) {
	ret := _m.Called(ctx, limit)

	var r0 []*models.GenerationRecord
	if v := ret.Get(0); v != nil {
		r0 = v.([]*models.GenerationRecord)
	}
	return r0, ret.Error(1)
}

// ComputeStats provides a mock function with given fields: ctx
func (_m *MockGenerationStore) ComputeStats(ctx context.Context) (models.BotStats, error) {
	ret := _m.Called(ctx)
	return ret.Get(0).(models.BotStats), ret.Error(1)
}

// NewMockGenerationStore creates a new instance of MockGenerationStore. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockGenerationStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockGenerationStore {
	m := &MockGenerationStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ interfaces.GenerationStore = (*MockGenerationStore)(nil)
