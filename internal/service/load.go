package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"example.com/freightlink/services/marketplace/config"
	"example.com/freightlink/services/marketplace/internal/cache"
	"example.com/freightlink/services/marketplace/internal/messagebus"
	"example.com/freightlink/services/marketplace/internal/metrics"
	"example.com/freightlink/services/marketplace/internal/model"
	"example.com/freightlink/services/marketplace/internal/repository"
	"example.com/freightlink/services/marketplace/internal/search"
)

// CreateLoadRequest defines the request to post a new load
type CreateLoadRequest struct {
	ShipperID    string
	PickupCity   string
	PickupLat    *float64
	PickupLon    *float64
	DeliveryCity string
	DeliveryLat  *float64
	DeliveryLon  *float64
	PickupDate   time.Time
	DeliveryDate time.Time
	TruckType    model.TruckType
	WeightKg     float64
	LengthM      *float64
	Mode         model.LoadMode
}

// UpdateLoadStatusRequest defines a status transition request for a load
type UpdateLoadStatusRequest struct {
	LoadID string
	Target model.LoadStatus
	Actor  Actor
	Reason string
}

// LoadService manages the load lifecycle
type LoadService interface {
	CreateLoad(ctx context.Context, req *CreateLoadRequest) (*model.Load, error)
	GetLoad(ctx context.Context, id string) (*model.Load, error)
	ListLoads(ctx context.Context, filter repository.LoadFilter) ([]*model.Load, error)
	UpdateLoadStatus(ctx context.Context, req *UpdateLoadStatusRequest) (*model.Load, error)
	ListLoadEvents(ctx context.Context, loadID string) ([]*model.LoadEvent, error)
}

type loadService struct {
	loads     repository.LoadRepository
	events    repository.LoadEventRepository
	tx        repository.TxManager
	cache     cache.CacheClient
	search    search.Client
	bus       messagebus.Client
	notifier  Notifier
	busQueues config.MessageBusConfig
	log       *logrus.Logger
	now       func() time.Time
}

// NewLoadService creates a new load service
func NewLoadService(
	loads repository.LoadRepository,
	events repository.LoadEventRepository,
	tx repository.TxManager,
	cacheClient cache.CacheClient,
	searchClient search.Client,
	bus messagebus.Client,
	notifier Notifier,
	busQueues config.MessageBusConfig,
	log *logrus.Logger,
) LoadService {
	return &loadService{
		loads:     loads,
		events:    events,
		tx:        tx,
		cache:     cacheClient,
		search:    searchClient,
		bus:       bus,
		notifier:  notifier,
		busQueues: busQueues,
		log:       log,
		now:       time.Now,
	}
}

// CreateLoad posts a new load in POSTED status
func (s *loadService) CreateLoad(ctx context.Context, req *CreateLoadRequest) (*model.Load, error) {
	if req.PickupCity == "" || req.DeliveryCity == "" {
		return nil, &ValidationError{Message: "pickup_city and delivery_city are required"}
	}
	if req.WeightKg <= 0 {
		return nil, &ValidationError{Message: "weight_kg must be positive"}
	}
	if req.DeliveryDate.Before(req.PickupDate) {
		return nil, &ValidationError{Message: "delivery_date must not precede pickup_date"}
	}

	mode := req.Mode
	if mode == "" {
		mode = model.LoadModeFull
	}

	load := &model.Load{
		Base:         model.Base{ID: uuid.New().String()},
		ShipperID:    req.ShipperID,
		Status:       model.LoadStatusPosted,
		PickupCity:   req.PickupCity,
		PickupLat:    req.PickupLat,
		PickupLon:    req.PickupLon,
		DeliveryCity: req.DeliveryCity,
		DeliveryLat:  req.DeliveryLat,
		DeliveryLon:  req.DeliveryLon,
		PickupDate:   req.PickupDate,
		DeliveryDate: req.DeliveryDate,
		TruckType:    req.TruckType,
		WeightKg:     req.WeightKg,
		LengthM:      req.LengthM,
		Mode:         mode,
	}

	if err := s.loads.Create(ctx, load); err != nil {
		return nil, err
	}

	s.appendEvent(ctx, load.ID, req.ShipperID, model.LoadEventCreated, map[string]interface{}{
		"pickup_city":   load.PickupCity,
		"delivery_city": load.DeliveryCity,
	})
	s.publishLoadEvent(ctx, load, string(model.LoadEventCreated))

	if s.search != nil {
		if err := s.search.IndexLoad(ctx, load); err != nil {
			s.log.WithError(err).WithField("load_id", load.ID).Warn("Failed to index load")
		}
	}

	return load, nil
}

// GetLoad fetches a load, preferring the cache
func (s *loadService) GetLoad(ctx context.Context, id string) (*model.Load, error) {
	collector := metrics.GetMetricsCollector()

	if s.cache != nil {
		cached, err := s.cache.GetLoad(ctx, id)
		if err == nil && cached != nil {
			collector.IncrementCounter(metrics.CounterCacheHits)
			return cached, nil
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			s.log.WithError(err).WithField("load_id", id).Warn("Cache lookup failed")
		}
		collector.IncrementCounter(metrics.CounterCacheMisses)
	}

	load, err := s.loads.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "load", ID: id}
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetLoad(ctx, load); err != nil {
			s.log.WithError(err).WithField("load_id", id).Warn("Failed to cache load")
		}
	}
	return load, nil
}

// ListLoads lists loads matching the filter
func (s *loadService) ListLoads(ctx context.Context, filter repository.LoadFilter) ([]*model.Load, error) {
	return s.loads.List(ctx, filter)
}

// ListLoadEvents returns the audit trail for a load, oldest first
func (s *loadService) ListLoadEvents(ctx context.Context, loadID string) ([]*model.LoadEvent, error) {
	if _, err := s.GetLoad(ctx, loadID); err != nil {
		return nil, err
	}
	return s.events.ListByLoad(ctx, loadID, 0)
}

// UpdateLoadStatus moves a load through its state machine. The transition is
// validated against the current status under a row lock, and the trip record,
// when one exists, is kept in step within the same transaction.
func (s *loadService) UpdateLoadStatus(ctx context.Context, req *UpdateLoadStatusRequest) (*model.Load, error) {
	var updated *model.Load

	err := s.tx.RunInTx(ctx, func(ctx context.Context, repos *repository.TxRepos) error {
		load, err := repos.Loads.GetByIDForUpdate(ctx, req.LoadID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return &NotFoundError{Resource: "load", ID: req.LoadID}
			}
			return err
		}

		if err := model.ValidateLoadTransition(load.Status, req.Target, req.Actor.Role); err != nil {
			return err
		}

		previous := load.Status
		load.Status = req.Target

		// A cancelled or expired load releases its truck so the truck can
		// carry other freight.
		if req.Target == model.LoadStatusCancelled || req.Target == model.LoadStatusExpired {
			load.AssignedTruckID = nil
			load.AssignedAt = nil
		}

		if err := repos.Loads.Update(ctx, load); err != nil {
			return err
		}

		if err := s.syncTrip(ctx, repos, load); err != nil {
			return err
		}

		details, _ := json.Marshal(map[string]interface{}{
			"from":   string(previous),
			"to":     string(req.Target),
			"reason": req.Reason,
		})
		event := &model.LoadEvent{
			Base:      model.Base{ID: uuid.New().String()},
			LoadID:    load.ID,
			ActorID:   req.Actor.ID,
			EventType: model.LoadEventStatusChanged,
			Details:   details,
		}
		if err := repos.Events.Append(ctx, event); err != nil {
			return err
		}

		updated = load
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterStatusChange(ctx, updated, req)
	return updated, nil
}

// syncTrip mirrors the load status onto its trip record, stamping the
// matching timestamp. Loads without a trip (never assigned) are skipped.
func (s *loadService) syncTrip(ctx context.Context, repos *repository.TxRepos, load *model.Load) error {
	tripStatus, ok := model.TripStatusForLoad(load.Status)
	if !ok {
		return nil
	}
	trip, err := repos.Trips.GetByLoadID(ctx, load.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	now := s.now()
	trip.Status = tripStatus
	switch tripStatus {
	case model.TripStatusPickupPending:
		if trip.StartedAt == nil {
			trip.StartedAt = &now
		}
	case model.TripStatusInTransit:
		if trip.PickedUpAt == nil {
			trip.PickedUpAt = &now
		}
	case model.TripStatusDelivered:
		if trip.DeliveredAt == nil {
			trip.DeliveredAt = &now
		}
	case model.TripStatusCompleted:
		if trip.CompletedAt == nil {
			trip.CompletedAt = &now
		}
	case model.TripStatusCancelled:
		if trip.CancelledAt == nil {
			trip.CancelledAt = &now
		}
	}
	return repos.Trips.Update(ctx, trip)
}

// afterStatusChange runs the best-effort side effects of a committed
// transition. Failures are logged, never surfaced.
func (s *loadService) afterStatusChange(ctx context.Context, load *model.Load, req *UpdateLoadStatusRequest) {
	if s.cache != nil {
		if err := s.cache.InvalidateLoad(ctx, load.ID); err != nil {
			s.log.WithError(err).WithField("load_id", load.ID).Warn("Failed to invalidate load cache")
		}
	}
	if s.search != nil {
		if err := s.search.IndexLoad(ctx, load); err != nil {
			s.log.WithError(err).WithField("load_id", load.ID).Warn("Failed to reindex load")
		}
	}
	s.publishLoadEvent(ctx, load, string(model.LoadEventStatusChanged))

	if s.notifier != nil && load.Status.IsTerminal() {
		recipients := []string{load.ShipperID}
		err := s.notifier.Notify(ctx, recipients,
			"load-"+string(load.Status),
			"Load "+string(load.Status),
			"Load from "+load.PickupCity+" to "+load.DeliveryCity+" is now "+string(load.Status),
			map[string]interface{}{"load_id": load.ID, "reason": req.Reason},
		)
		if err != nil {
			s.log.WithError(err).WithField("load_id", load.ID).Warn("Failed to notify shipper")
		}
	}
}

func (s *loadService) publishLoadEvent(ctx context.Context, load *model.Load, eventType string) {
	if s.bus == nil {
		return
	}
	payload := map[string]interface{}{
		"event_id":    uuid.New().String(),
		"event_type":  eventType,
		"load_id":     load.ID,
		"status":      string(load.Status),
		"occurred_at": s.now().UTC().Format(time.RFC3339),
	}
	if err := s.bus.PublishMessage(ctx, payload, s.busQueues.LoadEventsQueue); err != nil {
		s.log.WithError(err).WithField("load_id", load.ID).Warn("Failed to publish load event")
	}
}

func (s *loadService) appendEvent(ctx context.Context, loadID, actorID string, eventType model.LoadEventType, details map[string]interface{}) {
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
