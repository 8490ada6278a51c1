package repository

import (
	"context"

	"gorm.io/gorm"

	"example.com/freightlink/services/marketplace/internal/db"
	"example.com/freightlink/services/marketplace/internal/model"
)

// TruckRepository defines the interface for truck posting persistence
type TruckRepository interface {
	Create(ctx context.Context, posting *model.TruckPosting) error
	Update(ctx context.Context, posting *model.TruckPosting) error
	GetByID(ctx context.Context, id string) (*model.TruckPosting, error)
	// ListActive returns ACTIVE postings, newest first, bounded by limit.
	ListActive(ctx context.Context, limit int) ([]*model.TruckPosting, error)
	ListByCarrier(ctx context.Context, carrierID string, limit int) ([]*model.TruckPosting, error)
}

type truckRepository struct {
	db *gorm.DB
}

// NewTruckRepository creates a new truck posting repository
func NewTruckRepository(db *gorm.DB) TruckRepository {
	return &truckRepository{db: db}
}

func (r *truckRepository) Create(ctx context.Context, posting *model.TruckPosting) error {
	return r.db.WithContext(ctx).Create(posting).Error
}

func (r *truckRepository) Update(ctx context.Context, posting *model.TruckPosting) error {
	return r.db.WithContext(ctx).Save(posting).Error
}

func (r *truckRepository) GetByID(ctx context.Context, id string) (*model.TruckPosting, error) {
	var posting model.TruckPosting
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&posting).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &posting, nil
}

func (r *truckRepository) ListActive(ctx context.Context, limit int) ([]*model.TruckPosting, error) {
	var postings []*model.TruckPosting
	q := r.db.WithContext(ctx).
		Where("status = ?", model.TruckStatusActive).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&postings).Error; err != nil {
		return nil, err
	}
	return postings, nil
}

func (r *truckRepository) ListByCarrier(ctx context.Context, carrierID string, limit int) ([]*model.TruckPosting, error) {
	var postings []*model.TruckPosting
	q := r.db.WithContext(ctx).
		Where("carrier_id = ?", carrierID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&postings).Error; err != nil {
		return nil, err
	}
	return postings, nil
}
