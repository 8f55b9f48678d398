package mocks

import (
	"context"

	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockAircraftRepository is a mock implementation of persistence.AircraftRepository interface.
type MockAircraftRepository struct {
	mock.Mock
}

func (m *MockAircraftRepository) All(ctx context.Context) ([]*models.Aircraft, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Aircraft), args.Error(1)
}

func (m *MockAircraftRepository) ByID(ctx context.Context, id string) (*models.Aircraft, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Aircraft), args.Error(1)
}

func (m *MockAircraftRepository) Save(ctx context.Context, aircraft *models.Aircraft) error {
	args := m.Called(ctx, aircraft)

	return args.Error(0)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
// Repository accessors return the embedded repositories; unset ones fall back to Fallback.
type MockPersistence struct {
	mock.Mock

	Aircraft persistence.AircraftRepository
	Fallback persistence.Persistence
}

func (m *MockPersistence) AircraftRepository() persistence.AircraftRepository {
	if m.Aircraft != nil {
		return m.Aircraft
	}

	return m.Fallback.AircraftRepository()
}

func (m *MockPersistence) WorkflowStateRepository() persistence.WorkflowStateRepository {
	return m.Fallback.WorkflowStateRepository()
}

func (m *MockPersistence) ServicingRepository() persistence.ServicingRepository {
	return m.Fallback.ServicingRepository()
}

func (m *MockPersistence) AcceptanceRepository() persistence.AcceptanceRepository {
	return m.Fallback.AcceptanceRepository()
}

func (m *MockPersistence) PostFlyingRepository() persistence.PostFlyingRepository {
	return m.Fallback.PostFlyingRepository()
}

func (m *MockPersistence) JobCardRepository() persistence.JobCardRepository {
	return m.Fallback.JobCardRepository()
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
