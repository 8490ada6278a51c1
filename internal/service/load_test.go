package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/freightlink/services/marketplace/internal/model"
	"example.com/freightlink/services/marketplace/internal/repository"
)

func testLoadService(repos *repository.TxRepos) *loadService {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return &loadService{
		loads:  repos.Loads,
		events: repos.Events,
		tx:     &fakeTxManager{repos: repos},
		log:    log,
		now:    func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) },
	}
}

func TestCreateLoad(t *testing.T) {
	loadRepo := new(MockLoadRepository)
	eventRepo := new(MockLoadEventRepository)

	loadRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Load")).Return(nil)
	eventRepo.On("Append", mock.Anything, mock.AnythingOfType("*model.LoadEvent")).Return(nil)

	svc := testLoadService(&repository.TxRepos{Loads: loadRepo, Events: eventRepo})

	load, err := svc.CreateLoad(context.Background(), &CreateLoadRequest{
		ShipperID:    uuid.New().String(),
		PickupCity:   "Nairobi",
		DeliveryCity: "Mombasa",
		PickupDate:   time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		DeliveryDate: time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
		TruckType:    model.TruckTypeFlatbed,
		WeightKg:     12000,
	})
	require.NoError(t, err)
	require.Equal(t, model.LoadStatusPosted, load.Status)
	require.Equal(t, model.LoadModeFull, load.Mode)
	require.NotEmpty(t, load.ID)

	loadRepo.AssertExpectations(t)
	eventRepo.AssertExpectations(t)
}

func TestCreateLoadValidation(t *testing.T) {
	svc := testLoadService(&repository.TxRepos{})

	tests := []struct {
		name string
		req  *CreateLoadRequest
	}{
		{"missing cities", &CreateLoadRequest{WeightKg: 100}},
		{"non-positive weight", &CreateLoadRequest{PickupCity: "Nairobi", DeliveryCity: "Mombasa"}},
		{"delivery before pickup", &CreateLoadRequest{
			PickupCity: "Nairobi", DeliveryCity: "Mombasa", WeightKg: 100,
			PickupDate:   time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
			DeliveryDate: time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateLoad(context.Background(), tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestUpdateLoadStatus(t *testing.T) {
	loadID := uuid.New().String()
	load := postedLoad(loadID)
	actor := Actor{ID: load.ShipperID, Role: model.RoleShipper}

	loadRepo := new(MockLoadRepository)
	tripRepo := new(MockTripRepository)
	eventRepo := new(MockLoadEventRepository)

	loadRepo.On("GetByIDForUpdate", mock.Anything, loadID).Return(load, nil)
	loadRepo.On("Update", mock.Anything, load).Return(nil)
	eventRepo.On("Append", mock.Anything, mock.AnythingOfType("*model.LoadEvent")).Return(nil)

	svc := testLoadService(&repository.TxRepos{Loads: loadRepo, Trips: tripRepo, Events: eventRepo})

	updated, err := svc.UpdateLoadStatus(context.Background(), &UpdateLoadStatusRequest{
		LoadID: loadID,
		Target: model.LoadStatusSearching,
		Actor:  actor,
	})
	require.NoError(t, err)
	require.Equal(t, model.LoadStatusSearching, updated.Status)

	// SEARCHING has no trip mirror, so the trip repository stays untouched.
	tripRepo.AssertNotCalled(t, "GetByLoadID", mock.Anything, mock.Anything)
	loadRepo.AssertExpectations(t)
	eventRepo.AssertExpectations(t)
}

func TestUpdateLoadStatusIllegalTransition(t *testing.T) {
	loadID := uuid.New().String()
	load := postedLoad(loadID)

	loadRepo := new(MockLoadRepository)
	loadRepo.On("GetByIDForUpdate", mock.Anything, loadID).Return(load, nil)

	svc := testLoadService(&repository.TxRepos{Loads: loadRepo})

	_, err := svc.UpdateLoadStatus(context.Background(), &UpdateLoadStatusRequest{
		LoadID: loadID,
		Target: model.LoadStatusDelivered,
		Actor:  Actor{ID: load.ShipperID, Role: model.RoleShipper},
	})
	var illegal *model.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	loadRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateLoadStatusRoleDenied(t *testing.T) {
	loadID := uuid.New().String()
	load := postedLoad(loadID)
	load.Status = model.LoadStatusPickupPending

	loadRepo := new(MockLoadRepository)
	loadRepo.On("GetByIDForUpdate", mock.Anything, loadID).Return(load, nil)

	svc := testLoadService(&repository.TxRepos{Loads: loadRepo})

	_, err := svc.UpdateLoadStatus(context.Background(), &UpdateLoadStatusRequest{
		LoadID: loadID,
		Target: model.LoadStatusInTransit,
		Actor:  Actor{ID: uuid.New().String(), Role: model.RoleDispatcher},
	})
	var denied *model.RoleNotAllowedError
	require.ErrorAs(t, err, &denied)
	loadRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateLoadStatusCancelReleasesTruck(t *testing.T) {
	loadID := uuid.New().String()
	truckID := uuid.New().String()
	assignedAt := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	load := postedLoad(loadID)
	load.Status = model.LoadStatusAssigned
	load.AssignedTruckID = &truckID
	load.AssignedAt = &assignedAt

	trip := &model.Trip{
		Base:    model.Base{ID: uuid.New().String()},
		LoadID:  loadID,
		TruckID: truckID,
		Status:  model.TripStatusAssigned,
	}

	loadRepo := new(MockLoadRepository)
	tripRepo := new(MockTripRepository)
	eventRepo := new(MockLoadEventRepository)

	loadRepo.On("GetByIDForUpdate", mock.Anything, loadID).Return(load, nil)
	loadRepo.On("Update", mock.Anything, load).Return(nil)
	tripRepo.On("GetByLoadID", mock.Anything, loadID).Return(trip, nil)
	tripRepo.On("Update", mock.Anything, trip).Return(nil)
	eventRepo.On("Append", mock.Anything, mock.AnythingOfType("*model.LoadEvent")).Return(nil)

	svc := testLoadService(&repository.TxRepos{Loads: loadRepo, Trips: tripRepo, Events: eventRepo})

	updated, err := svc.UpdateLoadStatus(context.Background(), &UpdateLoadStatusRequest{
		LoadID: loadID,
		Target: model.LoadStatusCancelled,
		Actor:  Actor{ID: load.ShipperID, Role: model.RoleShipper},
		Reason: "shipper withdrew the load",
	})
	require.NoError(t, err)
	require.Equal(t, model.LoadStatusCancelled, updated.Status)
	require.Nil(t, updated.AssignedTruckID)
	require.Nil(t, updated.AssignedAt)

	require.Equal(t, model.TripStatusCancelled, trip.Status)
	require.NotNil(t, trip.CancelledAt)

	loadRepo.AssertExpectations(t)
	tripRepo.AssertExpectations(t)
}

func TestUpdateLoadStatusStampsPickup(t *testing.T) {
	loadID := uuid.New().String()
	truckID := uuid.New().String()

	load := postedLoad(loadID)
	load.Status = model.LoadStatusPickupPending
	load.AssignedTruckID = &truckID

	trip := &model.Trip{
		Base:    model.Base{ID: uuid.New().String()},
		LoadID:  loadID,
		TruckID: truckID,
		Status:  model.TripStatusPickupPending,
	}

	loadRepo := new(MockLoadRepository)
	tripRepo := new(MockTripRepository)
	eventRepo := new(MockLoadEventRepository)

	loadRepo.On("GetByIDForUpdate", mock.Anything, loadID).Return(load, nil)
	loadRepo.On("Update", mock.Anything, load).Return(nil)
	tripRepo.On("GetByLoadID", mock.Anything, loadID).Return(trip, nil)
	tripRepo.On("Update", mock.Anything, trip).Return(nil)
	eventRepo.On("Append", mock.Anything, mock.AnythingOfType("*model.LoadEvent")).Return(nil)

	svc := testLoadService(&repository.TxRepos{Loads: loadRepo, Trips: tripRepo, Events: eventRepo})

	_, err := svc.UpdateLoadStatus(context.Background(), &UpdateLoadStatusRequest{
		LoadID: loadID,
		Target: model.LoadStatusInTransit,
		Actor:  Actor{ID: uuid.New().String(), Role: model.RoleCarrier},
	})
	require.NoError(t, err)
	require.Equal(t, model.TripStatusInTransit, trip.Status)
	require.NotNil(t, trip.PickedUpAt)
	require.Equal(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), *trip.PickedUpAt)
}

func TestUpdateLoadStatusNotFound(t *testing.T) {
	loadID := uuid.New().String()

	loadRepo := new(MockLoadRepository)
	loadRepo.On("GetByIDForUpdate", mock.Anything, loadID).Return(nil, repository.ErrNotFound)

	svc := testLoadService(&repository.TxRepos{Loads: loadRepo})

	_, err := svc.UpdateLoadStatus(context.Background(), &UpdateLoadStatusRequest{
		LoadID: loadID,
		Target: model.LoadStatusSearching,
		Actor:  Actor{ID: uuid.New().String(), Role: model.RoleShipper},
	})
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestListLoadEvents(t *testing.T) {
	loadID := uuid.New().String()
	load := postedLoad(loadID)
	events := []*model.LoadEvent{
		{Base: model.Base{ID: uuid.New().String()}, LoadID: loadID, EventType: model.LoadEventCreated},
	}

	loadRepo := new(MockLoadRepository)
	eventRepo := new(MockLoadEventRepository)

	loadRepo.On("GetByID", mock.Anything, loadID).Return(load, nil)
	eventRepo.On("ListByLoad", mock.Anything, loadID, 0).Return(events, nil)

	svc := testLoadService(&repository.TxRepos{Loads: loadRepo, Events: eventRepo})

	got, err := svc.ListLoadEvents(context.Background(), loadID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, model.LoadEventCreated, got[0].EventType)
}
