package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/freightlink/services/marketplace/internal/db"
	"example.com/freightlink/services/marketplace/internal/model"
)

// LoadFilter narrows load listings
type LoadFilter struct {
	ShipperID string
	Status    model.LoadStatus
	Limit     int
	Offset    int
}

// LoadRepository defines the interface for load persistence
type LoadRepository interface {
	Create(ctx context.Context, load *model.Load) error
	Update(ctx context.Context, load *model.Load) error
	GetByID(ctx context.Context, id string) (*model.Load, error)
	// GetByIDForUpdate fetches a load under a row lock. Only meaningful
	// inside a transaction.
	GetByIDForUpdate(ctx context.Context, id string) (*model.Load, error)
	List(ctx context.Context, filter LoadFilter) ([]*model.Load, error)
	// FindActiveByAssignedTruck returns a non-terminal load currently
	// holding the truck, excluding excludeLoadID. Nil when the truck is free.
	FindActiveByAssignedTruck(ctx context.Context, truckID, excludeLoadID string) (*model.Load, error)
	// ClearStaleAssignments releases the truck from loads that already
	// reached a terminal status but still reference it.
	ClearStaleAssignments(ctx context.Context, truckID string) (int64, error)
	// ReleaseTerminalAssignments sweeps all terminal loads still holding a
	// truck, regardless of which truck. Used by the background worker.
	ReleaseTerminalAssignments(ctx context.Context, updatedBefore time.Time) (int64, error)
}

type loadRepository struct {
	db *gorm.DB
}

// NewLoadRepository creates a new load repository
func NewLoadRepository(db *gorm.DB) LoadRepository {
	return &loadRepository{db: db}
}

func (r *loadRepository) Create(ctx context.Context, load *model.Load) error {
	if err := r.db.WithContext(ctx).Create(load).Error; err != nil {
		if db.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (r *loadRepository) Update(ctx context.Context, load *model.Load) error {
	if err := r.db.WithContext(ctx).Save(load).Error; err != nil {
		if db.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (r *loadRepository) GetByID(ctx context.Context, id string) (*model.Load, error) {
	var load model.Load
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&load).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &load, nil
}

func (r *loadRepository) GetByIDForUpdate(ctx context.Context, id string) (*model.Load, error) {
	var load model.Load
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&load).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &load, nil
}

func (r *loadRepository) List(ctx context.Context, filter LoadFilter) ([]*model.Load, error) {
	q := r.db.WithContext(ctx).Model(&model.Load{})
	if filter.ShipperID != "" {
		q = q.Where("shipper_id = ?", filter.ShipperID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var loads []*model.Load
	if err := q.Order("created_at DESC").Find(&loads).Error; err != nil {
		return nil, err
	}
	return loads, nil
}

func (r *loadRepository) FindActiveByAssignedTruck(ctx context.Context, truckID, excludeLoadID string) (*model.Load, error) {
	var load model.Load
	q := r.db.WithContext(ctx).
		Where("assigned_truck_id = ?", truckID).
		Where("status NOT IN ?", terminalLoadStatuses())
	if excludeLoadID != "" {
		q = q.Where("id <> ?", excludeLoadID)
	}
	err := q.First(&load).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &load, nil
}

func (r *loadRepository) ClearStaleAssignments(ctx context.Context, truckID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Load{}).
		Where("assigned_truck_id = ?", truckID).
		Where("status IN ?", terminalLoadStatuses()).
		Update("assigned_truck_id", nil)
	return res.RowsAffected, res.Error
}

func (r *loadRepository) ReleaseTerminalAssignments(ctx context.Context, updatedBefore time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Load{}).
		Where("assigned_truck_id IS NOT NULL").
		Where("status IN ?", terminalLoadStatuses()).
		Where("updated_at < ?", updatedBefore).
		Update("assigned_truck_id", nil)
	return res.RowsAffected, res.Error
}

func terminalLoadStatuses() []model.LoadStatus {
	return []model.LoadStatus{
		model.LoadStatusDelivered,
		model.LoadStatusCompleted,
		model.LoadStatusCancelled,
		model.LoadStatusExpired,
	}
}
