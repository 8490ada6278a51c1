package repository

import (
	"context"

	"gorm.io/gorm"

	"example.com/freightlink/services/marketplace/internal/model"
)

// LoadEventRepository appends audit trail entries for loads. The trail is
// append-only; there is deliberately no update or delete method.
type LoadEventRepository interface {
	Append(ctx context.Context, event *model.LoadEvent) error
	ListByLoad(ctx context.Context, loadID string, limit int) ([]*model.LoadEvent, error)
}

type loadEventRepository struct {
	db *gorm.DB
}

// NewLoadEventRepository creates a new load event repository
func NewLoadEventRepository(db *gorm.DB) LoadEventRepository {
	return &loadEventRepository{db: db}
}

func (r *loadEventRepository) Append(ctx context.Context, event *model.LoadEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *loadEventRepository) ListByLoad(ctx context.Context, loadID string, limit int) ([]*model.LoadEvent, error) {
	var events []*model.LoadEvent
	q := r.db.WithContext(ctx).
		Where("load_id = ?", loadID).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
