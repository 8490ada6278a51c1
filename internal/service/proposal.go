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
	"example.com/freightlink/services/marketplace/internal/matching"
	"example.com/freightlink/services/marketplace/internal/metrics"
	"example.com/freightlink/services/marketplace/internal/model"
	"example.com/freightlink/services/marketplace/internal/repository"
)

// RespondAction is a carrier's answer to a proposal
type RespondAction string

const (
	ActionAccept RespondAction = "ACCEPT"
	ActionReject RespondAction = "REJECT"
)

// CreateProposalRequest defines the request to create a match proposal
type CreateProposalRequest struct {
	LoadID         string
	TruckID        string
	Actor          Actor
	Notes          string
	ProposedRate   *float64
	ExpiresInHours int
}

// RespondToProposalRequest defines a carrier response to a proposal
type RespondToProposalRequest struct {
	ProposalID string
	Actor      Actor
	Action     RespondAction
	Notes      string
}

// ProposalService manages the match proposal lifecycle
type ProposalService interface {
	CreateProposal(ctx context.Context, req *CreateProposalRequest) (*model.MatchProposal, error)
	GetProposal(ctx context.Context, id string) (*model.MatchProposal, error)
	ListProposals(ctx context.Context, filter repository.ProposalFilter) ([]*model.MatchProposal, error)
	// RespondToProposal settles a PENDING proposal. REJECT is terminal for
	// the proposal only; ACCEPT delegates to the assignment transaction and
	// returns its result alongside the updated proposal.
	RespondToProposal(ctx context.Context, req *RespondToProposalRequest) (*model.MatchProposal, *AssignmentResult, error)
}

type proposalService struct {
	loads       repository.LoadRepository
	trucks      repository.TruckRepository
	proposals   repository.ProposalRepository
	events      repository.LoadEventRepository
	authorizer  Authorizer
	notifier    Notifier
	assignments AssignmentService
	cfg         config.MatchingConfig
	log         *logrus.Logger
	now         func() time.Time
}

// NewProposalService creates a new proposal service
func NewProposalService(
	loads repository.LoadRepository,
	trucks repository.TruckRepository,
	proposals repository.ProposalRepository,
	events repository.LoadEventRepository,
	authorizer Authorizer,
	notifier Notifier,
	assignments AssignmentService,
	cfg config.MatchingConfig,
	log *logrus.Logger,
) ProposalService {
	return &proposalService{
		loads:       loads,
		trucks:      trucks,
		proposals:   proposals,
		events:      events,
		authorizer:  authorizer,
		notifier:    notifier,
		assignments: assignments,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

// defaultExpiryHours is applied when a request carries no expiry
const defaultExpiryHours = 24

// CreateProposal creates a PENDING proposal linking one load to one truck
func (s *proposalService) CreateProposal(ctx context.Context, req *CreateProposalRequest) (*model.MatchProposal, error) {
	startTime := s.now()
	collector := metrics.GetMetricsCollector()
	defer func() {
		collector.RecordOperation(metrics.OperationTypePropose, time.Since(startTime))
	}()

	// Proposing is a coordination capability; evaluation is external.
	ok, err := s.authorizer.HasCapability(ctx, req.Actor, CapCreateProposal, "")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ForbiddenError{ActorID: req.Actor.ID, Action: CapCreateProposal}
	}

	load, err := s.loads.GetByID(ctx, req.LoadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "load", ID: req.LoadID}
		}
		return nil, err
	}
	if load.AssignedTruckID != nil {
		return nil, &LoadAlreadyAssignedError{LoadID: load.ID, AssignedTruckID: *load.AssignedTruckID}
	}
	if !load.Status.IsProposable() {
		return nil, &LoadNotAvailableError{LoadID: load.ID, Status: load.Status}
	}

	truck, err := s.trucks.GetByID(ctx, req.TruckID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "truck", ID: req.TruckID}
		}
		return nil, err
	}

	// At most one PENDING proposal per (load, truck) pair.
	existing, err := s.proposals.FindPendingByLoadAndTruck(ctx, load.ID, truck.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, &DuplicateProposalError{ExistingID: existing.ID}
	}

	expiresIn := req.ExpiresInHours
	if expiresIn <= 0 {
		expiresIn = defaultExpiryHours
	}

	breakdown := matching.Score(loadCriteria(load), truckCandidate(truck), s.matchOptions())

	proposal := &model.MatchProposal{
		Base:         model.Base{ID: uuid.New().String()},
		LoadID:       load.ID,
		TruckID:      truck.ID,
		CarrierID:    truck.CarrierID,
		ProposedByID: req.Actor.ID,
		Status:       model.ProposalStatusPending,
		MatchScore:   breakdown.Total,
		ProposedRate: req.ProposedRate,
		Notes:        req.Notes,
		ExpiresAt:    s.now().Add(time.Duration(expiresIn) * time.Hour),
	}

	if err := s.proposals.Create(ctx, proposal); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// Lost a duplicate-submission race; report the winner.
			winner, findErr := s.proposals.FindPendingByLoadAndTruck(ctx, load.ID, truck.ID)
			if findErr == nil && winner != nil {
				return nil, &DuplicateProposalError{ExistingID: winner.ID}
			}
			return nil, &DuplicateProposalError{}
		}
		return nil, err
	}

	collector.IncrementCounter(metrics.CounterProposalsCreated)

	s.appendEvent(ctx, load.ID, req.Actor.ID, model.LoadEventProposalMade, map[string]interface{}{
		"proposal_id": proposal.ID,
		"truck_id":    truck.ID,
		"match_score": breakdown.Total,
	})

	if s.notifier != nil {
		err := s.notifier.Notify(ctx,
			[]string{truck.CarrierID},
			"match-proposed",
			"New load proposal",
			fmt.Sprintf("A load from %s to %s has been proposed for your truck", load.PickupCity, load.DeliveryCity),
			map[string]interface{}{"proposal_id": proposal.ID, "load_id": load.ID},
		)
		if err != nil {
			s.log.WithError(err).WithField("proposal_id", proposal.ID).Warn("Failed to notify carrier")
		}
	}

	return proposal, nil
}

// GetProposal fetches a proposal, lazily persisting expiry when the deadline
// has passed
func (s *proposalService) GetProposal(ctx context.Context, id string) (*model.MatchProposal, error) {
	proposal, err := s.proposals.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "proposal", ID: id}
		}
		return nil, err
	}
	s.expireIfDue(ctx, proposal)
	return proposal, nil
}

// ListProposals lists proposals matching the filter
func (s *proposalService) ListProposals(ctx context.Context, filter repository.ProposalFilter) ([]*model.MatchProposal, error) {
	proposals, err := s.proposals.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, p := range proposals {
		s.expireIfDue(ctx, p)
	}
	return proposals, nil
}

// RespondToProposal settles a PENDING proposal with ACCEPT or REJECT
func (s *proposalService) RespondToProposal(ctx context.Context, req *RespondToProposalRequest) (*model.MatchProposal, *AssignmentResult, error) {
	startTime := s.now()
	collector := metrics.GetMetricsCollector()
	defer func() {
		collector.RecordOperation(metrics.OperationTypeRespond, time.Since(startTime))
	}()

	proposal, err := s.proposals.GetByID(ctx, req.ProposalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, &NotFoundError{Resource: "proposal", ID: req.ProposalID}
		}
		return nil, nil, err
	}

	if proposal.Status != model.ProposalStatusPending {
		return nil, nil, &ProposalNotPendingError{ProposalID: proposal.ID, Status: proposal.Status}
	}

	// Expiry is checked lazily here, not by a background timer. Marking an
	// already-expired proposal again is a no-op.
	if proposal.IsExpired(s.now()) {
		s.expireIfDue(ctx, proposal)
		return nil, nil, &ProposalExpiredError{ProposalID: proposal.ID, ExpiresAt: proposal.ExpiresAt}
	}

	// Only the carrier that owns the truck may respond.
	ok, err := s.authorizer.HasCapability(ctx, req.Actor, CapRespondProposal, proposal.CarrierID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, &ForbiddenError{ActorID: req.Actor.ID, Action: CapRespondProposal}
	}

	switch req.Action {
	case ActionReject:
		now := s.now()
		proposal.Status = model.ProposalStatusRejected
		proposal.RespondedByID = &req.Actor.ID
		proposal.RespondedAt = &now
		proposal.ResponseNotes = req.Notes
		if err := s.proposals.SettlePending(ctx, proposal); err != nil {
			if errors.Is(err, repository.ErrStaleUpdate) {
				// Settled concurrently between our read and this write;
				// report whatever outcome won.
				status := model.ProposalStatus("settled")
				if fresh, ferr := s.proposals.GetByID(ctx, proposal.ID); ferr == nil {
					status = fresh.Status
				}
				return nil, nil, &ProposalNotPendingError{ProposalID: proposal.ID, Status: status}
			}
			return nil, nil, err
		}
		collector.IncrementCounter(metrics.CounterProposalsRejected)
		s.appendEvent(ctx, proposal.LoadID, req.Actor.ID, model.LoadEventProposalClosed, map[string]interface{}{
			"proposal_id": proposal.ID,
			"outcome":     string(model.ProposalStatusRejected),
		})
		return proposal, nil, nil

	case ActionAccept:
		result, err := s.assignments.AcceptProposal(ctx, proposal, req.Actor, req.Notes)
		if err != nil {
			return nil, nil, err
		}
		return result.Proposal, result, nil

	default:
		return nil, nil, &ValidationError{Message: fmt.Sprintf("unknown action %q", req.Action)}
	}
}

// expireIfDue persists the PENDING -> EXPIRED transition when the deadline
// has passed. The write is guarded on the row still being PENDING so a
// concurrent settlement is never overwritten; failures are logged and
// swallowed so reads stay available.
func (s *proposalService) expireIfDue(ctx context.Context, proposal *model.MatchProposal) {
	if proposal.Status != model.ProposalStatusPending || !proposal.IsExpired(s.now()) {
		return
	}
	expired := *proposal
	expired.Status = model.ProposalStatusExpired
	err := s.proposals.SettlePending(ctx, &expired)
	switch {
	case err == nil:
		proposal.Status = model.ProposalStatusExpired
		metrics.GetMetricsCollector().IncrementCounter(metrics.CounterProposalsExpired)
	case errors.Is(err, repository.ErrStaleUpdate):
		// Someone settled the proposal between our read and this write;
		// surface their outcome instead of ours.
		if fresh, ferr := s.proposals.GetByID(ctx, proposal.ID); ferr == nil {
			*proposal = *fresh
		}
	default:
		s.log.WithError(err).WithField("proposal_id", proposal.ID).Warn("Failed to persist proposal expiry")
	}
}

func (s *proposalService) appendEvent(ctx context.Context, loadID, actorID string, eventType model.LoadEventType, details map[string]interface{}) {
	payload, _ := json.Marshal(details)
	event := &model.LoadEvent{
		Base:      model.Base{ID: uuid.New().String()},
		LoadID:    loadID,
		ActorID:   actorID,
		EventType: eventType,
		Details:   payload,
	}
	if err := s.events.Append(ctx, event); err != nil {
		s.log.WithError(err).WithField("load_id", loadID).Warn("Failed to append load event")
	}
}

func (s *proposalService) matchOptions() matching.Options {
	opts := matching.DefaultOptions()
	if s.cfg.RouteWeight > 0 || s.cfg.TimeWeight > 0 || s.cfg.CapacityWeight > 0 || s.cfg.DeadheadWeight > 0 {
		opts.Weights = matching.Weights{
			Route:    s.cfg.RouteWeight,
			Time:     s.cfg.TimeWeight,
			Capacity: s.cfg.CapacityWeight,
			Deadhead: s.cfg.DeadheadWeight,
		}
	}
	if s.cfg.MaxEarlyDays > 0 {
		opts.MaxEarlyDays = s.cfg.MaxEarlyDays
	}
	if s.cfg.DeadheadMaxKm > 0 {
		opts.DeadheadMaxKm = s.cfg.DeadheadMaxKm
	}
	return opts
}
