package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"example.com/freightlink/services/marketplace/config"
	"example.com/freightlink/services/marketplace/internal/cache"
	"example.com/freightlink/services/marketplace/internal/metrics"
	"example.com/freightlink/services/marketplace/internal/model"
	"example.com/freightlink/services/marketplace/internal/repository"
	"example.com/freightlink/services/marketplace/internal/search"
)

// AssignmentResult carries the state produced by a committed acceptance
type AssignmentResult struct {
	Proposal *model.MatchProposal `json:"proposal"`
	Load     *model.Load          `json:"load"`
	Trip     *model.Trip          `json:"trip"`
}

// AssignmentService converts an accepted proposal into a binding, race-free
// truck/load assignment with a derived trip record.
type AssignmentService interface {
	AcceptProposal(ctx context.Context, proposal *model.MatchProposal, actor Actor, notes string) (*AssignmentResult, error)
}

type assignmentService struct {
	tx       repository.TxManager
	trips    repository.TripRepository
	wallet   WalletService
	tracking TrackingProvider
	notifier Notifier
	cache    cache.CacheClient
	search   search.Client
	cfg      config.ServerConfig
	log      *logrus.Logger
	now      func() time.Time
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(
	tx repository.TxManager,
	trips repository.TripRepository,
	wallet WalletService,
	tracking TrackingProvider,
	notifier Notifier,
	cacheClient cache.CacheClient,
	searchClient search.Client,
	cfg config.ServerConfig,
	log *logrus.Logger,
) AssignmentService {
	return &assignmentService{
		tx:       tx,
		trips:    trips,
		wallet:   wallet,
		tracking: tracking,
		notifier: notifier,
		cache:    cacheClient,
		search:   searchClient,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// AcceptProposal validates and commits an acceptance atomically. The load is
// re-fetched fresh inside the transaction under a row lock; every earlier
// read of it is discarded. All writes commit together or not at all. Losing
// a race yields a conflict error that is terminal for this proposal.
func (s *assignmentService) AcceptProposal(ctx context.Context, proposal *model.MatchProposal, actor Actor, notes string) (*AssignmentResult, error) {
	startTime := s.now()
	collector := metrics.GetMetricsCollector()
	defer func() {
		collector.RecordOperation(metrics.OperationTypeAssign, time.Since(startTime))
	}()

	// Advisory wallet pre-check. No reservation or hold is made; the
	// transaction below remains the sole authority on the assignment.
	if s.wallet != nil {
		check, err := s.wallet.ValidateBalancesForTrip(ctx, proposal.LoadID, proposal.CarrierID)
		if err != nil {
			s.log.WithError(err).WithField("load_id", proposal.LoadID).
				Warn("Wallet pre-check unavailable, proceeding")
		} else if !check.Valid {
			return nil, &InsufficientBalanceError{Reasons: check.Errors}
		}
	}

	var result *AssignmentResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context, repos *repository.TxRepos) error {
		res, err := s.assignInTx(ctx, repos, proposal, actor, notes)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// The store's uniqueness constraint fired under a weaker
			// isolation level than the in-transaction check assumed.
			// Surface the same conflict family, not an internal error.
			collector.IncrementCounter(metrics.CounterAssignmentRaces)
			return nil, &LoadAlreadyAssignedError{LoadID: proposal.LoadID, AssignedTruckID: proposal.TruckID}
		}
		if IsConflict(err) {
			collector.IncrementCounter(metrics.CounterAssignmentRaces)
		}
		return nil, err
	}

	collector.IncrementCounter(metrics.CounterAssignments)
	collector.IncrementCounter(metrics.CounterProposalsAccepted)

	// Post-commit side effects are advisory. They are logged on failure and
	// never roll back or fail the committed acceptance.
	s.afterCommit(ctx, result)

	return result, nil
}

func (s *assignmentService) assignInTx(ctx context.Context, repos *repository.TxRepos, proposal *model.MatchProposal, actor Actor, notes string) (*AssignmentResult, error) {
	now := s.now()

	// 1-3. Fresh load under lock, slot free, status proposable.
	load, err := repos.Loads.GetByIDForUpdate(ctx, proposal.LoadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "load", ID: proposal.LoadID}
		}
		return nil, err
	}
	if load.AssignedTruckID != nil {
		return nil, &LoadAlreadyAssignedError{LoadID: load.ID, AssignedTruckID: *load.AssignedTruckID}
	}
	if !load.Status.IsProposable() {
		return nil, &LoadNotAvailableError{LoadID: load.ID, Status: load.Status}
	}

	truck, err := repos.Trucks.GetByID(ctx, proposal.TruckID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "truck", ID: proposal.TruckID}
		}
		return nil, err
	}

	// 4. The truck must not be bound to any other active load.
	rival, err := repos.Loads.FindActiveByAssignedTruck(ctx, truck.ID, load.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if rival != nil {
		return nil, &TruckBusyError{
			TruckID:      truck.ID,
			PickupCity:   rival.PickupCity,
			DeliveryCity: rival.DeliveryCity,
		}
	}

	// 5. Release the truck from terminal loads that still reference it.
	if _, err := repos.Loads.ClearStaleAssignments(ctx, truck.ID); err != nil {
		return nil, err
	}

	// 6. Settle the proposal. The write is guarded on the row still being
	// PENDING; the proposal was read without a lock, so a concurrent
	// settlement surfaces here as a conflict instead of being overwritten.
	proposal.Status = model.ProposalStatusAccepted
	proposal.RespondedByID = &actor.ID
	proposal.RespondedAt = &now
	proposal.ResponseNotes = notes
	if err := repos.Proposals.SettlePending(ctx, proposal); err != nil {
		if errors.Is(err, repository.ErrStaleUpdate) {
			status := model.ProposalStatus("settled")
			if fresh, ferr := repos.Proposals.GetByID(ctx, proposal.ID); ferr == nil {
				status = fresh.Status
			}
			return nil, &ProposalNotPendingError{ProposalID: proposal.ID, Status: status}
		}
		return nil, err
	}

	// 7. Bind the load.
	load.AssignedTruckID = &truck.ID
	load.AssignedAt = &now
	load.Status = model.LoadStatusAssigned
	if err := repos.Loads.Update(ctx, load); err != nil {
		return nil, err
	}

	// 8. Derive the trip.
	trip := &model.Trip{
		Base:                model.Base{ID: uuid.New().String()},
		LoadID:              load.ID,
		TruckID:             truck.ID,
		CarrierID:           proposal.CarrierID,
		ShipperID:           load.ShipperID,
		Status:              model.TripStatusAssigned,
		PickupCity:          load.PickupCity,
		DeliveryCity:        load.DeliveryCity,
		EstimatedDistanceKm: load.EstimatedTripKm,
		TrackingURL:         fmt.Sprintf("%s/t/%s", s.cfg.TrackingBaseURL, uuid.New().String()),
		TrackingEnabled:     true,
		StartedAt:           &now,
	}
	if err := repos.Trips.Create(ctx, trip); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, &LoadAlreadyAssignedError{LoadID: load.ID, AssignedTruckID: truck.ID}
		}
		return nil, err
	}

	// 9. Audit trail.
	details, _ := json.Marshal(map[string]interface{}{
		"truck_id":    truck.ID,
		"carrier_id":  proposal.CarrierID,
		"proposal_id": proposal.ID,
		"trip_id":     trip.ID,
	})
	event := &model.LoadEvent{
		Base:      model.Base{ID: uuid.New().String()},
		LoadID:    load.ID,
		ActorID:   actor.ID,
		EventType: model.LoadEventAssigned,
		Details:   details,
	}
	if err := repos.Events.Append(ctx, event); err != nil {
		return nil, err
	}

	// 10. Close out every competing pending proposal for this load.
	if _, err := repos.Proposals.CancelPendingByLoad(ctx, load.ID, proposal.ID, now); err != nil {
		return nil, err
	}

	return &AssignmentResult{Proposal: proposal, Load: load, Trip: trip}, nil
}

// afterCommit runs the best-effort side effects of a committed acceptance
func (s *assignmentService) afterCommit(ctx context.Context, result *AssignmentResult) {
	load := result.Load
	trip := result.Trip

	if s.cache != nil {
		if err := s.cache.InvalidateLoad(ctx, load.ID); err != nil {
			s.log.WithError(err).WithField("load_id", load.ID).Warn("Failed to invalidate load cache")
		}
		if err := s.cache.InvalidateTruck(ctx, trip.TruckID); err != nil {
			s.log.WithError(err).WithField("truck_id", trip.TruckID).Warn("Failed to invalidate truck cache")
		}
	}

	if s.tracking != nil {
		if url, err := s.tracking.EnableTrackingForLoad(ctx, load.ID, trip.TruckID); err != nil {
			s.log.WithError(err).WithField("load_id", load.ID).Warn("Failed to enable GPS tracking")
		} else if url != "" && url != trip.TrackingURL {
			// Keep the stored trip in step with the URL we hand back.
			trip.TrackingURL = url
			if s.trips != nil {
				if err := s.trips.Update(ctx, trip); err != nil {
					s.log.WithError(err).WithField("trip_id", trip.ID).Warn("Failed to persist tracking URL")
				}
			}
		}
	}

	if s.notifier != nil {
		metadata := map[string]interface{}{
			"load_id":  load.ID,
			"truck_id": trip.TruckID,
			"trip_id":  trip.ID,
		}
		err := s.notifier.Notify(ctx,
			[]string{load.ShipperID, trip.CarrierID},
			"load-assigned",
			"Load assigned",
			fmt.Sprintf("Load %s -> %s has been assigned", load.PickupCity, load.DeliveryCity),
			metadata,
		)
		if err != nil {
			s.log.WithError(err).WithField("load_id", load.ID).Warn("Failed to send assignment notification")
		}
	}

	if s.search != nil {
		if err := s.search.IndexLoad(ctx, load); err != nil {
			s.log.WithError(err).WithField("load_id", load.ID).Warn("Failed to reindex load")
		}
	}
}
