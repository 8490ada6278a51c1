package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"example.com/freightlink/services/marketplace/internal/model"
	"example.com/freightlink/services/marketplace/internal/repository"
)

// Mock repositories for testing

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

type MockTruckRepository struct {
	mock.Mock
}

func (m *MockTruckRepository) Create(ctx context.Context, posting *model.TruckPosting) error {
	args := m.Called(ctx, posting)
	return args.Error(0)
}

func (m *MockTruckRepository) Update(ctx context.Context, posting *model.TruckPosting) error {
	args := m.Called(ctx, posting)
	return args.Error(0)
}

func (m *MockTruckRepository) GetByID(ctx context.Context, id string) (*model.TruckPosting, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TruckPosting), args.Error(1)
}

func (m *MockTruckRepository) ListActive(ctx context.Context, limit int) ([]*model.TruckPosting, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.TruckPosting), args.Error(1)
}

func (m *MockTruckRepository) ListByCarrier(ctx context.Context, carrierID string, limit int) ([]*model.TruckPosting, error) {
	args := m.Called(ctx, carrierID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.TruckPosting), args.Error(1)
}

type MockProposalRepository struct {
	mock.Mock
}

func (m *MockProposalRepository) Create(ctx context.Context, proposal *model.MatchProposal) error {
	args := m.Called(ctx, proposal)
	return args.Error(0)
}

func (m *MockProposalRepository) SettlePending(ctx context.Context, proposal *model.MatchProposal) error {
	args := m.Called(ctx, proposal)
	return args.Error(0)
}

func (m *MockProposalRepository) GetByID(ctx context.Context, id string) (*model.MatchProposal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MatchProposal), args.Error(1)
}

func (m *MockProposalRepository) FindPendingByLoadAndTruck(ctx context.Context, loadID, truckID string) (*model.MatchProposal, error) {
	args := m.Called(ctx, loadID, truckID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MatchProposal), args.Error(1)
}

func (m *MockProposalRepository) List(ctx context.Context, filter repository.ProposalFilter) ([]*model.MatchProposal, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.MatchProposal), args.Error(1)
}

func (m *MockProposalRepository) CancelPendingByLoad(ctx context.Context, loadID, excludeID string, now time.Time) (int64, error) {
	args := m.Called(ctx, loadID, excludeID, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockTripRepository struct {
	mock.Mock
}

func (m *MockTripRepository) Create(ctx context.Context, trip *model.Trip) error {
	args := m.Called(ctx, trip)
	return args.Error(0)
}

func (m *MockTripRepository) Update(ctx context.Context, trip *model.Trip) error {
	args := m.Called(ctx, trip)
	return args.Error(0)
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*model.Trip, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Trip), args.Error(1)
}

func (m *MockTripRepository) GetByLoadID(ctx context.Context, loadID string) (*model.Trip, error) {
	args := m.Called(ctx, loadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Trip), args.Error(1)
}

type MockLoadEventRepository struct {
	mock.Mock
}

func (m *MockLoadEventRepository) Append(ctx context.Context, event *model.LoadEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockLoadEventRepository) ListByLoad(ctx context.Context, loadID string, limit int) ([]*model.LoadEvent, error) {
	args := m.Called(ctx, loadID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.LoadEvent), args.Error(1)
}

// fakeTxManager runs the closure directly against the supplied repositories,
// standing in for a real transaction.
type fakeTxManager struct {
	repos *repository.TxRepos
}

func (f *fakeTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context, repos *repository.TxRepos) error) error {
	return fn(ctx, f.repos)
}

// Mock collaborators

type MockAuthorizer struct {
	mock.Mock
}

func (m *MockAuthorizer) HasCapability(ctx context.Context, actor Actor, action Capability, resourceOwnerID string) (bool, error) {
	args := m.Called(ctx, actor, action, resourceOwnerID)
	return args.Bool(0), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, userIDs []string, notifType, title, message string, metadata map[string]interface{}) error {
	args := m.Called(ctx, userIDs, notifType, title, message, metadata)
	return args.Error(0)
}

type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) ValidateBalancesForTrip(ctx context.Context, loadID, carrierID string) (*BalanceCheck, error) {
	args := m.Called(ctx, loadID, carrierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BalanceCheck), args.Error(1)
}

type MockTrackingProvider struct {
	mock.Mock
}

func (m *MockTrackingProvider) EnableTrackingForLoad(ctx context.Context, loadID, truckID string) (string, error) {
	args := m.Called(ctx, loadID, truckID)
	return args.String(0), args.Error(1)
}
