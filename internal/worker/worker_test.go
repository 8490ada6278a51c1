package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"example.com/freightlink/services/marketplace/config"
	"example.com/freightlink/services/marketplace/internal/model"
	"example.com/freightlink/services/marketplace/internal/repository"
)

type MockLoadRepository struct {
	mock.Mock
}

func (m *MockLoadRepository) Create(ctx context.Context, load *model.Load) error {
	args := m.Called(ctx, load)
	return args.Error(0)
}

func (m *MockLoadRepository) Update(ctx context.Context, load *model.Load) error {
	args := m.Called(ctx, load)
	return args.Error(0)
}

func (m *MockLoadRepository) GetByID(ctx context.Context, id string) (*model.Load, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Load), args.Error(1)
}

func (m *MockLoadRepository) GetByIDForUpdate(ctx context.Context, id string) (*model.Load, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Load), args.Error(1)
}

func (m *MockLoadRepository) List(ctx context.Context, filter repository.LoadFilter) ([]*model.Load, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Load), args.Error(1)
}

func (m *MockLoadRepository) FindActiveByAssignedTruck(ctx context.Context, truckID, excludeLoadID string) (*model.Load, error) {
	args := m.Called(ctx, truckID, excludeLoadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Load), args.Error(1)
}

func (m *MockLoadRepository) ClearStaleAssignments(ctx context.Context, truckID string) (int64, error) {
	args := m.Called(ctx, truckID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLoadRepository) ReleaseTerminalAssignments(ctx context.Context, updatedBefore time.Time) (int64, error) {
	args := m.Called(ctx, updatedBefore)
	return args.Get(0).(int64), args.Error(1)
}

type MockSearchClient struct {
	mock.Mock
}

func (m *MockSearchClient) IndexLoad(ctx context.Context, load *model.Load) error {
	args := m.Called(ctx, load)
	return args.Error(0)
}

func (m *MockSearchClient) IndexTruck(ctx context.Context, posting *model.TruckPosting) error {
	args := m.Called(ctx, posting)
	return args.Error(0)
}

func (m *MockSearchClient) SearchLoads(ctx context.Context, query interface{}) ([]json.RawMessage, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]json.RawMessage), args.Error(1)
}

type MockMessage struct {
	mock.Mock
}

func (m *MockMessage) GetID() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockMessage) GetMessage() (map[string]interface{}, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *MockMessage) Complete(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockMessage) Reject(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func testWorker(loads *MockLoadRepository, searchClient *MockSearchClient) *Worker {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return &Worker{
		loads:  loads,
		search: searchClient,
		cfg:    config.WorkerConfig{},
		log:    log,
	}
}

func TestHandleLoadEventIndexesLoad(t *testing.T) {
	loadID := uuid.New().String()
	load := &model.Load{Base: model.Base{ID: loadID}, Status: model.LoadStatusPosted}

	loads := new(MockLoadRepository)
	searchClient := new(MockSearchClient)
	msg := new(MockMessage)

	msg.On("GetID").Return(loadID, nil)
	loads.On("GetByID", mock.Anything, loadID).Return(load, nil)
	searchClient.On("IndexLoad", mock.Anything, load).Return(nil)
	msg.On("Complete", mock.Anything).Return(nil)

	w := testWorker(loads, searchClient)
	w.handleLoadEvent(context.Background(), msg)

	msg.AssertExpectations(t)
	searchClient.AssertExpectations(t)
}

// A load that no longer exists is a permanent condition: the message is
// completed so it never redelivers.
func TestHandleLoadEventUnknownLoadCompletes(t *testing.T) {
	loadID := uuid.New().String()

	loads := new(MockLoadRepository)
	msg := new(MockMessage)

	msg.On("GetID").Return(loadID, nil)
	loads.On("GetByID", mock.Anything, loadID).Return(nil, repository.ErrNotFound)
	msg.On("Complete", mock.Anything).Return(nil)

	w := testWorker(loads, new(MockSearchClient))
	w.handleLoadEvent(context.Background(), msg)

	msg.AssertExpectations(t)
	msg.AssertNotCalled(t, "Reject", mock.Anything)
}

// A transient lookup failure must leave the message for redelivery instead
// of dropping it.
func TestHandleLoadEventTransientErrorRejects(t *testing.T) {
	loadID := uuid.New().String()

	loads := new(MockLoadRepository)
	msg := new(MockMessage)

	msg.On("GetID").Return(loadID, nil)
	loads.On("GetByID", mock.Anything, loadID).Return(nil, errors.New("connection refused"))
	msg.On("Reject", mock.Anything).Return(nil)

	w := testWorker(loads, new(MockSearchClient))
	w.handleLoadEvent(context.Background(), msg)

	msg.AssertExpectations(t)
	msg.AssertNotCalled(t, "Complete", mock.Anything)
}

func TestHandleLoadEventIndexFailureRejects(t *testing.T) {
	loadID := uuid.New().String()
	load := &model.Load{Base: model.Base{ID: loadID}, Status: model.LoadStatusPosted}

	loads := new(MockLoadRepository)
	searchClient := new(MockSearchClient)
	msg := new(MockMessage)

	msg.On("GetID").Return(loadID, nil)
	loads.On("GetByID", mock.Anything, loadID).Return(load, nil)
	searchClient.On("IndexLoad", mock.Anything, load).Return(errors.New("index unavailable"))
	msg.On("Reject", mock.Anything).Return(nil)

	w := testWorker(loads, searchClient)
	w.handleLoadEvent(context.Background(), msg)

	msg.AssertExpectations(t)
	msg.AssertNotCalled(t, "Complete", mock.Anything)
}
