package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/freightlink/services/marketplace/config"
	"example.com/freightlink/services/marketplace/internal/model"
	"example.com/freightlink/services/marketplace/internal/repository"
)

func testAssignmentService(repos *repository.TxRepos, wallet WalletService) *assignmentService {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return &assignmentService{
		tx:     &fakeTxManager{repos: repos},
		wallet: wallet,
		cfg:    config.ServerConfig{TrackingBaseURL: "https://track.example.com"},
		log:    log,
		now:    func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) },
	}
}

func pendingProposal(loadID, truckID string) *model.MatchProposal {
	return &model.MatchProposal{
		Base:      model.Base{ID: uuid.New().String()},
		LoadID:    loadID,
		TruckID:   truckID,
		CarrierID: uuid.New().String(),
		Status:    model.ProposalStatusPending,
		ExpiresAt: time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC),
	}
}

func postedLoad(id string) *model.Load {
	return &model.Load{
		Base:         model.Base{ID: id},
		ShipperID:    uuid.New().String(),
		Status:       model.LoadStatusPosted,
		PickupCity:   "nairobi",
		DeliveryCity: "mombasa",
		WeightKg:     12000,
		Mode:         model.LoadModeFull,
	}
}

func TestAcceptProposal(t *testing.T) {
	loadID := uuid.New().String()
	truckID := uuid.New().String()
	proposal := pendingProposal(loadID, truckID)
	load := postedLoad(loadID)
	truck := &model.TruckPosting{
		Base:      model.Base{ID: truckID},
		CarrierID: proposal.CarrierID,
		Status:    model.TruckStatusActive,
	}
	actor := Actor{ID: proposal.CarrierID, Role: model.RoleCarrier}

	loadRepo := new(MockLoadRepository)
	truckRepo := new(MockTruckRepository)
	proposalRepo := new(MockProposalRepository)
	tripRepo := new(MockTripRepository)
	eventRepo := new(MockLoadEventRepository)

	loadRepo.On("GetByIDForUpdate", mock.Anything, loadID).Return(load, nil)
	truckRepo.On("GetByID", mock.Anything, truckID).Return(truck, nil)
	loadRepo.On("FindActiveByAssignedTruck", mock.Anything, truckID, loadID).Return(nil, repository.ErrNotFound)
	loadRepo.On("ClearStaleAssignments", mock.Anything, truckID).Return(int64(0), nil)
	proposalRepo.On("SettlePending", mock.Anything, proposal).Return(nil)
	loadRepo.On("Update", mock.Anything, load).Return(nil)
	tripRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Trip")).Return(nil)
	eventRepo.On("Append", mock.Anything, mock.AnythingOfType("*model.LoadEvent")).Return(nil)
	proposalRepo.On("CancelPendingByLoad", mock.Anything, loadID, proposal.ID, mock.Anything).Return(int64(2), nil)

	svc := testAssignmentService(&repository.TxRepos{
		Loads:     loadRepo,
		Trucks:    truckRepo,
		Proposals: proposalRepo,
		Trips:     tripRepo,
		Events:    eventRepo,
	}, nil)

	result, err := svc.AcceptProposal(context.Background(), proposal, actor, "confirmed")
	require.NoError(t, err)
	require.NotNil(t, result)

	require.Equal(t, model.ProposalStatusAccepted, result.Proposal.Status)
	require.Equal(t, actor.ID, *result.Proposal.RespondedByID)
	require.Equal(t, "confirmed", result.Proposal.ResponseNotes)

	require.Equal(t, model.LoadStatusAssigned, result.Load.Status)
	require.NotNil(t, result.Load.AssignedTruckID)
	require.Equal(t, truckID, *result.Load.AssignedTruckID)
	require.NotNil(t, result.Load.AssignedAt)

	require.Equal(t, model.TripStatusAssigned, result.Trip.Status)
	require.Equal(t, loadID, result.Trip.LoadID)
	require.Equal(t, truckID, result.Trip.TruckID)
	require.Equal(t, load.ShipperID, result.Trip.ShipperID)
	require.Contains(t, result.Trip.TrackingURL, "https://track.example.com/t/")
	require.True(t, result.Trip.TrackingEnabled)

	loadRepo.AssertExpectations(t)
	truckRepo.AssertExpectations(t)
	proposalRepo.AssertExpectations(t)
	tripRepo.AssertExpectations(t)
	eventRepo.AssertExpectations(t)
}

func TestAcceptProposalLoadAlreadyAssigned(t *testing.T) {
	loadID := uuid.New().String()
	truckID := uuid.New().String()
	otherTruck := uuid.New().String()

	proposal := pendingProposal(loadID, truckID)
	load := postedLoad(loadID)
	load.Status = model.LoadStatusAssigned
	load.AssignedTruckID = &otherTruck

	loadRepo := new(MockLoadRepository)
	loadRepo.On("GetByIDForUpdate", mock.Anything, loadID).Return(load, nil)

	svc := testAssignmentService(&repository.TxRepos{Loads: loadRepo}, nil)

	_, err := svc.AcceptProposal(context.Background(), proposal, Actor{ID: "u", Role: model.RoleCarrier}, "")
	require.Error(t, err)

	var conflict *LoadAlreadyAssignedError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, otherTruck, conflict.AssignedTruckID)
	require.Equal(t, model.ProposalStatusPending, proposal.Status)
}

func TestAcceptProposalLoadNotAvailable(t *testing.T) {
	loadID := uuid.New().String()
	proposal := pendingProposal(loadID, uuid.New().String())
	load := postedLoad(loadID)
	load.Status = model.LoadStatusCancelled

	loadRepo := new(MockLoadRepository)
	loadRepo.On("GetByIDForUpdate", mock.Anything, loadID).Return(load, nil)

	svc := testAssignmentService(&repository.TxRepos{Loads: loadRepo}, nil)

	_, err := svc.AcceptProposal(context.Background(), proposal, Actor{ID: "u", Role: model.RoleCarrier}, "")
	var notAvailable *LoadNotAvailableError
	require.ErrorAs(t, err, &notAvailable)
	require.Equal(t, model.LoadStatusCancelled, notAvailable.Status)
}

func TestAcceptProposalTruckBusy(t *testing.T) {
	loadID := uuid.New().String()
	truckID := uuid.New().String()
	proposal := pendingProposal(loadID, truckID)
	load := postedLoad(loadID)
	truck := &model.TruckPosting{Base: model.Base{ID: truckID}, CarrierID: proposal.CarrierID}

	rival := postedLoad(uuid.New().String())
	rival.Status = model.LoadStatusInTransit
	rival.AssignedTruckID = &truckID
	rival.PickupCity = "kisumu"
	rival.DeliveryCity = "eldoret"

	loadRepo := new(MockLoadRepository)
	truckRepo := new(MockTruckRepository)
	loadRepo.On("GetByIDForUpdate", mock.Anything, loadID).Return(load, nil)
	truckRepo.On("GetByID", mock.Anything, truckID).Return(truck, nil)
	loadRepo.On("FindActiveByAssignedTruck", mock.Anything, truckID, loadID).Return(rival, nil)

	svc := testAssignmentService(&repository.TxRepos{Loads: loadRepo, Trucks: truckRepo}, nil)

	_, err := svc.AcceptProposal(context.Background(), proposal, Actor{ID: "u", Role: model.RoleCarrier}, "")
	var busy *TruckBusyError
	require.ErrorAs(t, err, &busy)
	require.Equal(t, "kisumu", busy.PickupCity)
	require.Equal(t, "eldoret", busy.DeliveryCity)
}

func TestAcceptProposalInsufficientBalance(t *testing.T) {
	proposal := pendingProposal(uuid.New().String(), uuid.New().String())

	wallet := new(MockWalletService)
	wallet.On("ValidateBalancesForTrip", mock.Anything, proposal.LoadID, proposal.CarrierID).
		Return(&BalanceCheck{Valid: false, Errors: []string{"carrier balance below minimum"}}, nil)

	svc := testAssignmentService(&repository.TxRepos{}, wallet)

	_, err := svc.AcceptProposal(context.Background(), proposal, Actor{ID: "u", Role: model.RoleCarrier}, "")
	var balance *InsufficientBalanceError
	require.ErrorAs(t, err, &balance)
	require.Contains(t, balance.Reasons, "carrier balance below minimum")
	wallet.AssertExpectations(t)
}

// A wallet outage must not block acceptance; the check is advisory.
func TestAcceptProposalWalletUnavailable(t *testing.T) {
	loadID := uuid.New().String()
	truckID := uuid.New().String()
	proposal := pendingProposal(loadID, truckID)
	load := postedLoad(loadID)
	truck := &model.TruckPosting{Base: model.Base{ID: truckID}, CarrierID: proposal.CarrierID}

	wallet := new(MockWalletService)
	wallet.On("ValidateBalancesForTrip", mock.Anything, proposal.LoadID, proposal.CarrierID).
		Return(nil, context.DeadlineExceeded)

	loadRepo := new(MockLoadRepository)
	truckRepo := new(MockTruckRepository)
	proposalRepo := new(MockProposalRepository)
	tripRepo := new(MockTripRepository)
	eventRepo := new(MockLoadEventRepository)

	loadRepo.On("GetByIDForUpdate", mock.Anything, loadID).Return(load, nil)
	truckRepo.On("GetByID", mock.Anything, truckID).Return(truck, nil)
	loadRepo.On("FindActiveByAssignedTruck", mock.Anything, truckID, loadID).Return(nil, repository.ErrNotFound)
	loadRepo.On("ClearStaleAssignments", mock.Anything, truckID).Return(int64(0), nil)
	proposalRepo.On("SettlePending", mock.Anything, proposal).Return(nil)
	loadRepo.On("Update", mock.Anything, load).Return(nil)
	tripRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Trip")).Return(nil)
	eventRepo.On("Append", mock.Anything, mock.AnythingOfType("*model.LoadEvent")).Return(nil)
	proposalRepo.On("CancelPendingByLoad", mock.Anything, loadID, proposal.ID, mock.Anything).Return(int64(0), nil)

	svc := testAssignmentService(&repository.TxRepos{
		Loads:     loadRepo,
		Trucks:    truckRepo,
		Proposals: proposalRepo,
		Trips:     tripRepo,
		Events:    eventRepo,
	}, wallet)

	result, err := svc.AcceptProposal(context.Background(), proposal, Actor{ID: "u", Role: model.RoleCarrier}, "")
	require.NoError(t, err)
	require.Equal(t, model.LoadStatusAssigned, result.Load.Status)
}

// When the unique constraint on trips fires, the caller sees the same
// conflict as losing the row-lock race.
func TestAcceptProposalTripUniqueRace(t *testing.T) {
	loadID := uuid.New().String()
	truckID := uuid.New().String()
	proposal := pendingProposal(loadID, truckID)
	load := postedLoad(loadID)
	truck := &model.TruckPosting{Base: model.Base{ID: truckID}, CarrierID: proposal.CarrierID}

	loadRepo := new(MockLoadRepository)
	truckRepo := new(MockTruckRepository)
	proposalRepo := new(MockProposalRepository)
	tripRepo := new(MockTripRepository)

	loadRepo.On("GetByIDForUpdate", mock.Anything, loadID).Return(load, nil)
	truckRepo.On("GetByID", mock.Anything, truckID).Return(truck, nil)
	loadRepo.On("FindActiveByAssignedTruck", mock.Anything, truckID, loadID).Return(nil, repository.ErrNotFound)
	loadRepo.On("ClearStaleAssignments", mock.Anything, truckID).Return(int64(0), nil)
	proposalRepo.On("SettlePending", mock.Anything, proposal).Return(nil)
	loadRepo.On("Update", mock.Anything, load).Return(nil)
	tripRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Trip")).Return(repository.ErrDuplicateKey)

	svc := testAssignmentService(&repository.TxRepos{
		Loads:     loadRepo,
		Trucks:    truckRepo,
		Proposals: proposalRepo,
		Trips:     tripRepo,
	}, nil)

	_, err := svc.AcceptProposal(context.Background(), proposal, Actor{ID: "u", Role: model.RoleCarrier}, "")
	var conflict *LoadAlreadyAssignedError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, truckID, conflict.AssignedTruckID)
}

// A proposal settled by a rival between the unlocked read and the guarded
// write inside the transaction must surface as a conflict, never overwrite
// the settled row, and must stop before the load is touched.
func TestAcceptProposalSettleLostRace(t *testing.T) {
	loadID := uuid.New().String()
	truckID := uuid.New().String()
	proposal := pendingProposal(loadID, truckID)
	load := postedLoad(loadID)
	truck := &model.TruckPosting{Base: model.Base{ID: truckID}, CarrierID: proposal.CarrierID}

	rejected := *proposal
	rejected.Status = model.ProposalStatusRejected

	loadRepo := new(MockLoadRepository)
	truckRepo := new(MockTruckRepository)
	proposalRepo := new(MockProposalRepository)

	loadRepo.On("GetByIDForUpdate", mock.Anything, loadID).Return(load, nil)
	truckRepo.On("GetByID", mock.Anything, truckID).Return(truck, nil)
	loadRepo.On("FindActiveByAssignedTruck", mock.Anything, truckID, loadID).Return(nil, repository.ErrNotFound)
	loadRepo.On("ClearStaleAssignments", mock.Anything, truckID).Return(int64(0), nil)
	proposalRepo.On("SettlePending", mock.Anything, proposal).Return(repository.ErrStaleUpdate)
	proposalRepo.On("GetByID", mock.Anything, proposal.ID).Return(&rejected, nil)

	svc := testAssignmentService(&repository.TxRepos{
		Loads:     loadRepo,
		Trucks:    truckRepo,
		Proposals: proposalRepo,
	}, nil)

	_, err := svc.AcceptProposal(context.Background(), proposal, Actor{ID: "u", Role: model.RoleCarrier}, "")
	var notPending *ProposalNotPendingError
	require.ErrorAs(t, err, &notPending)
	require.Equal(t, model.ProposalStatusRejected, notPending.Status)
	loadRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	proposalRepo.AssertExpectations(t)
}

// The tracking URL handed out by the GPS provider after commit is persisted
// onto the trip, so the stored record matches the API response.
func TestAcceptProposalPersistsTrackingURL(t *testing.T) {
	loadID := uuid.New().String()
	truckID := uuid.New().String()
	proposal := pendingProposal(loadID, truckID)
	load := postedLoad(loadID)
	truck := &model.TruckPosting{Base: model.Base{ID: truckID}, CarrierID: proposal.CarrierID}

	loadRepo := new(MockLoadRepository)
	truckRepo := new(MockTruckRepository)
	proposalRepo := new(MockProposalRepository)
	tripRepo := new(MockTripRepository)
	eventRepo := new(MockLoadEventRepository)

	loadRepo.On("GetByIDForUpdate", mock.Anything, loadID).Return(load, nil)
	truckRepo.On("GetByID", mock.Anything, truckID).Return(truck, nil)
	loadRepo.On("FindActiveByAssignedTruck", mock.Anything, truckID, loadID).Return(nil, repository.ErrNotFound)
	loadRepo.On("ClearStaleAssignments", mock.Anything, truckID).Return(int64(0), nil)
	proposalRepo.On("SettlePending", mock.Anything, proposal).Return(nil)
	loadRepo.On("Update", mock.Anything, load).Return(nil)
	tripRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Trip")).Return(nil)
	eventRepo.On("Append", mock.Anything, mock.AnythingOfType("*model.LoadEvent")).Return(nil)
	proposalRepo.On("CancelPendingByLoad", mock.Anything, loadID, proposal.ID, mock.Anything).Return(int64(0), nil)

	providerURL := "https://gps.example.com/devices/d-17"
	tracking := new(MockTrackingProvider)
	tracking.On("EnableTrackingForLoad", mock.Anything, loadID, truckID).Return(providerURL, nil)
	tripRepo.On("Update", mock.Anything, mock.MatchedBy(func(tr *model.Trip) bool {
		return tr.LoadID == loadID && tr.TrackingURL == providerURL
	})).Return(nil)

	svc := testAssignmentService(&repository.TxRepos{
		Loads:     loadRepo,
		Trucks:    truckRepo,
		Proposals: proposalRepo,
		Trips:     tripRepo,
		Events:    eventRepo,
	}, nil)
	svc.tracking = tracking
	svc.trips = tripRepo

	result, err := svc.AcceptProposal(context.Background(), proposal, Actor{ID: "u", Role: model.RoleCarrier}, "")
	require.NoError(t, err)
	require.Equal(t, providerURL, result.Trip.TrackingURL)
	tracking.AssertExpectations(t)
	tripRepo.AssertExpectations(t)
}
