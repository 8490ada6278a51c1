package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"example.com/freightlink/services/marketplace/internal/cache"
	"example.com/freightlink/services/marketplace/internal/metrics"
	"example.com/freightlink/services/marketplace/internal/model"
	"example.com/freightlink/services/marketplace/internal/repository"
	"example.com/freightlink/services/marketplace/internal/search"
)

// CreatePostingRequest defines the request to post available truck capacity
type CreatePostingRequest struct {
	CarrierID       string
	CurrentCity     string
	CurrentLat      *float64
	CurrentLon      *float64
	DestinationCity string
	DestinationLat  *float64
	DestinationLon  *float64
	TruckType       model.TruckType
	MaxWeightKg     float64
	LengthM         *float64
	Mode            model.LoadMode
	AvailableFrom   time.Time
	AvailableUntil  *time.Time
	HasGPSDevice    bool
}

// TruckService manages truck capacity postings
type TruckService interface {
	CreatePosting(ctx context.Context, req *CreatePostingRequest) (*model.TruckPosting, error)
	GetPosting(ctx context.Context, id string) (*model.TruckPosting, error)
	ListActive(ctx context.Context, limit int) ([]*model.TruckPosting, error)
	ListByCarrier(ctx context.Context, carrierID string) ([]*model.TruckPosting, error)
	UpdatePostingStatus(ctx context.Context, id string, status model.TruckStatus) (*model.TruckPosting, error)
}

type truckService struct {
	trucks repository.TruckRepository
	cache  cache.CacheClient
	search search.Client
	log    *logrus.Logger
}

// NewTruckService creates a new truck service
func NewTruckService(trucks repository.TruckRepository, cacheClient cache.CacheClient, searchClient search.Client, log *logrus.Logger) TruckService {
	return &truckService{
		trucks: trucks,
		cache:  cacheClient,
		search: searchClient,
		log:    log,
	}
}

// CreatePosting posts new truck capacity in ACTIVE status
func (s *truckService) CreatePosting(ctx context.Context, req *CreatePostingRequest) (*model.TruckPosting, error) {
	if req.CurrentCity == "" {
		return nil, &ValidationError{Message: "current_city is required"}
	}
	if req.MaxWeightKg <= 0 {
		return nil, &ValidationError{Message: "max_weight_kg must be positive"}
	}
	if req.AvailableUntil != nil && req.AvailableUntil.Before(req.AvailableFrom) {
		return nil, &ValidationError{Message: "available_until must not precede available_from"}
	}

	mode := req.Mode
	if mode == "" {
		mode = model.LoadModeFull
	}

	posting := &model.TruckPosting{
		Base:            model.Base{ID: uuid.New().String()},
		CarrierID:       req.CarrierID,
		CurrentCity:     req.CurrentCity,
		CurrentLat:      req.CurrentLat,
		CurrentLon:      req.CurrentLon,
		DestinationCity: req.DestinationCity,
		DestinationLat:  req.DestinationLat,
		DestinationLon:  req.DestinationLon,
		TruckType:       req.TruckType,
		MaxWeightKg:     req.MaxWeightKg,
		LengthM:         req.LengthM,
		Mode:            mode,
		AvailableFrom:   req.AvailableFrom,
		AvailableUntil:  req.AvailableUntil,
		Status:          model.TruckStatusActive,
		HasGPSDevice:    req.HasGPSDevice,
	}

	if err := s.trucks.Create(ctx, posting); err != nil {
		return nil, err
	}

	if s.search != nil {
		if err := s.search.IndexTruck(ctx, posting); err != nil {
			s.log.WithError(err).WithField("truck_id", posting.ID).Warn("Failed to index truck posting")
		}
	}
	return posting, nil
}

// GetPosting fetches a truck posting, preferring the cache
func (s *truckService) GetPosting(ctx context.Context, id string) (*model.TruckPosting, error) {
	collector := metrics.GetMetricsCollector()

	if s.cache != nil {
		cached, err := s.cache.GetTruck(ctx, id)
		if err == nil && cached != nil {
			collector.IncrementCounter(metrics.CounterCacheHits)
			return cached, nil
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			s.log.WithError(err).WithField("truck_id", id).Warn("Cache lookup failed")
		}
		collector.IncrementCounter(metrics.CounterCacheMisses)
	}

	posting, err := s.trucks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "truck", ID: id}
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetTruck(ctx, posting); err != nil {
			s.log.WithError(err).WithField("truck_id", id).Warn("Failed to cache truck posting")
		}
	}
	return posting, nil
}

// ListActive lists ACTIVE postings, newest first
func (s *truckService) ListActive(ctx context.Context, limit int) ([]*model.TruckPosting, error) {
	return s.trucks.ListActive(ctx, limit)
}

// ListByCarrier lists all postings for a carrier
func (s *truckService) ListByCarrier(ctx context.Context, carrierID string) ([]*model.TruckPosting, error) {
	return s.trucks.ListByCarrier(ctx, carrierID, 0)
}

// UpdatePostingStatus toggles a posting between ACTIVE and INACTIVE
func (s *truckService) UpdatePostingStatus(ctx context.Context, id string, status model.TruckStatus) (*model.TruckPosting, error) {
	if status != model.TruckStatusActive && status != model.TruckStatusInactive {
		return nil, &ValidationError{Message: "status must be ACTIVE or INACTIVE"}
	}

	posting, err := s.trucks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "truck", ID: id}
		}
		return nil, err
	}

	posting.Status = status
	if err := s.trucks.Update(ctx, posting); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateTruck(ctx, id); err != nil {
			s.log.WithError(err).WithField("truck_id", id).Warn("Failed to invalidate truck cache")
		}
	}
	if s.search != nil {
		if err := s.search.IndexTruck(ctx, posting); err != nil {
			s.log.WithError(err).WithField("truck_id", posting.ID).Warn("Failed to reindex truck posting")
		}
	}
	return posting, nil
}
