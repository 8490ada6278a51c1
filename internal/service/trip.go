package service

import (
	"context"
	"errors"

	"example.com/freightlink/services/marketplace/internal/model"
	"example.com/freightlink/services/marketplace/internal/repository"
)

// TripService reads trip records. Trips are created by acceptance and move
// only through load status transitions, so there are no write operations here.
type TripService interface {
	GetTrip(ctx context.Context, id string) (*model.Trip, error)
	GetTripByLoad(ctx context.Context, loadID string) (*model.Trip, error)
}

type tripService struct {
	trips repository.TripRepository
}

// NewTripService creates a new trip service
func NewTripService(trips repository.TripRepository) TripService {
	return &tripService{trips: trips}
}

func (s *tripService) GetTrip(ctx context.Context, id string) (*model.Trip, error) {
	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "trip", ID: id}
		}
		return nil, err
	}
	return trip, nil
}

func (s *tripService) GetTripByLoad(ctx context.Context, loadID string) (*model.Trip, error) {
	trip, err := s.trips.GetByLoadID(ctx, loadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "trip", ID: loadID}
		}
		return nil, err
	}
	return trip, nil
}
