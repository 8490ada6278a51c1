package repository

import (
	"context"

	"gorm.io/gorm"

	"example.com/freightlink/services/marketplace/internal/db"
	"example.com/freightlink/services/marketplace/internal/model"
)

// TripRepository defines the interface for trip persistence
type TripRepository interface {
	Create(ctx context.Context, trip *model.Trip) error
	Update(ctx context.Context, trip *model.Trip) error
	GetByID(ctx context.Context, id string) (*model.Trip, error)
	GetByLoadID(ctx context.Context, loadID string) (*model.Trip, error)
}

type tripRepository struct {
	db *gorm.DB
}

// NewTripRepository creates a new trip repository
func NewTripRepository(db *gorm.DB) TripRepository {
	return &tripRepository{db: db}
}

func (r *tripRepository) Create(ctx context.Context, trip *model.Trip) error {
	if err := r.db.WithContext(ctx).Create(trip).Error; err != nil {
		if db.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (r *tripRepository) Update(ctx context.Context, trip *model.Trip) error {
	return r.db.WithContext(ctx).Save(trip).Error
}

func (r *tripRepository) GetByID(ctx context.Context, id string) (*model.Trip, error) {
	var trip model.Trip
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&trip).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &trip, nil
}

func (r *tripRepository) GetByLoadID(ctx context.Context, loadID string) (*model.Trip, error) {
	var trip model.Trip
	err := r.db.WithContext(ctx).Where("load_id = ?", loadID).First(&trip).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &trip, nil
}
