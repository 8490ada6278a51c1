package service

import (
	"context"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"example.com/freightlink/services/marketplace/config"
	"example.com/freightlink/services/marketplace/internal/cache"
	"example.com/freightlink/services/marketplace/internal/matching"
	"example.com/freightlink/services/marketplace/internal/metrics"
	"example.com/freightlink/services/marketplace/internal/model"
	"example.com/freightlink/services/marketplace/internal/repository"
)

// FindOptions tunes a candidate search
type FindOptions struct {
	// MinScore overrides the configured default threshold when non-nil
	MinScore *int
	// Limit caps the result count; clamped to the configured maximum
	Limit int
	// UseRoadDistance re-scores the deadhead component through the external
	// road-distance provider. It refines the number only and never changes
	// which candidates are eligible.
	UseRoadDistance bool
}

// MatchResult pairs a truck posting with its score breakdown
type MatchResult struct {
	Truck *model.TruckPosting `json:"truck"`
	Score matching.Breakdown  `json:"score"`
}

// MatchingService finds and ranks candidate trucks for loads
type MatchingService interface {
	FindMatchingTrucksForLoad(ctx context.Context, loadID string, opts FindOptions) ([]MatchResult, error)
}

type matchingService struct {
	loads    repository.LoadRepository
	trucks   repository.TruckRepository
	cache    cache.CacheClient
	distance DistanceProvider
	cfg      config.MatchingConfig
	log      *logrus.Logger
}

// NewMatchingService creates a new matching service
func NewMatchingService(
	loads repository.LoadRepository,
	trucks repository.TruckRepository,
	cacheClient cache.CacheClient,
	distance DistanceProvider,
	cfg config.MatchingConfig,
	log *logrus.Logger,
) MatchingService {
	return &matchingService{
		loads:    loads,
		trucks:   trucks,
		cache:    cacheClient,
		distance: distance,
		cfg:      cfg,
		log:      log,
	}
}

// FindMatchingTrucksForLoad scores every active posting against the load,
// filters by the minimum score and returns the best candidates. Ties keep
// posting fetch order: a deliberate, simple tie-break with no secondary key.
func (s *matchingService) FindMatchingTrucksForLoad(ctx context.Context, loadID string, opts FindOptions) ([]MatchResult, error) {
	startTime := time.Now()
	collector := metrics.GetMetricsCollector()
	defer func() {
		collector.RecordOperation(metrics.OperationTypeFindMatches, time.Since(startTime))
	}()

	load, err := s.getLoad(ctx, loadID)
	if err != nil {
		return nil, err
	}
	if !load.HasGeography() {
		return nil, &ValidationError{Message: "load has no pickup/delivery location data"}
	}

	minScore := s.cfg.DefaultMinScore
	if minScore <= 0 {
		minScore = matching.DefaultMinScore
	}
	if opts.MinScore != nil {
		minScore = *opts.MinScore
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit <= 0 {
		limit = matching.DefaultLimit
	}
	maxLimit := s.cfg.MaxLimit
	if maxLimit <= 0 {
		maxLimit = matching.MaxLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	postings, err := s.trucks.ListActive(ctx, s.cfg.CandidateFetch)
	if err != nil {
		return nil, err
	}

	criteria := loadCriteria(load)
	scoreOpts := s.scoreOptions()

	results := make([]MatchResult, 0, len(postings))
	for _, posting := range postings {
		candidate := truckCandidate(posting)
		candOpts := scoreOpts
		if opts.UseRoadDistance {
			if km, ok := s.roadDeadhead(ctx, load, posting); ok {
				candOpts.RoadDeadheadKm = &km
			}
		}
		breakdown := matching.Score(criteria, candidate, candOpts)
		collector.IncrementCounter(metrics.CounterMatchesScored)
		if breakdown.Total < minScore {
			continue
		}
		results = append(results, MatchResult{Truck: posting, Score: breakdown})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score.Total > results[j].Score.Total
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// roadDeadhead asks the external provider for the road distance to pickup.
// Any failure falls back to the haversine estimate.
func (s *matchingService) roadDeadhead(ctx context.Context, load *model.Load, posting *model.TruckPosting) (float64, bool) {
	if s.distance == nil ||
		posting.CurrentLat == nil || posting.CurrentLon == nil ||
		load.PickupLat == nil || load.PickupLon == nil {
		return 0, false
	}
	km, err := s.distance.RoadDistanceKm(ctx, *posting.CurrentLat, *posting.CurrentLon, *load.PickupLat, *load.PickupLon)
	if err != nil {
		s.log.WithError(err).WithField("truck_id", posting.ID).
			Warn("Road distance lookup failed, falling back to haversine")
		return 0, false
	}
	return km, true
}

func (s *matchingService) getLoad(ctx context.Context, loadID string) (*model.Load, error) {
	if s.cache != nil {
		load, err := s.cache.GetLoad(ctx, loadID)
		if err == nil {
			metrics.GetMetricsCollector().IncrementCounter(metrics.CounterCacheHits)
			return load, nil
		}
		if err != redis.Nil {
			s.log.WithError(err).Warn("Failed to get load from cache")
		}
		metrics.GetMetricsCollector().IncrementCounter(metrics.CounterCacheMisses)
	}

	load, err := s.loads.GetByID(ctx, loadID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, &NotFoundError{Resource: "load", ID: loadID}
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetLoad(ctx, load); err != nil {
			s.log.WithError(err).Warn("Failed to cache load")
		}
	}
	return load, nil
}

func (s *matchingService) scoreOptions() matching.Options {
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

func loadCriteria(load *model.Load) matching.LoadCriteria {
	return matching.LoadCriteria{
		PickupCity:   load.PickupCity,
		PickupLat:    load.PickupLat,
		PickupLon:    load.PickupLon,
		DeliveryCity: load.DeliveryCity,
		DeliveryLat:  load.DeliveryLat,
		DeliveryLon:  load.DeliveryLon,
		PickupDate:   load.PickupDate,
		DeliveryDate: load.DeliveryDate,
		TruckType:    load.TruckType,
		WeightKg:     load.WeightKg,
		LengthM:      load.LengthM,
		Mode:         load.Mode,
	}
}

func truckCandidate(posting *model.TruckPosting) matching.TruckCandidate {
	return matching.TruckCandidate{
		CurrentCity:     posting.CurrentCity,
		CurrentLat:      posting.CurrentLat,
		CurrentLon:      posting.CurrentLon,
		DestinationCity: posting.DestinationCity,
		DestinationLat:  posting.DestinationLat,
		DestinationLon:  posting.DestinationLon,
		AvailableFrom:   posting.AvailableFrom,
		AvailableUntil:  posting.AvailableUntil,
		TruckType:       posting.TruckType,
		MaxWeightKg:     posting.MaxWeightKg,
		LengthM:         posting.LengthM,
		Mode:            posting.Mode,
	}
}
