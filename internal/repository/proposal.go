package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"example.com/freightlink/services/marketplace/internal/db"
	"example.com/freightlink/services/marketplace/internal/model"
)

// ProposalFilter narrows proposal listings
type ProposalFilter struct {
	LoadID    string
	TruckID   string
	CarrierID string
	Status    model.ProposalStatus
	Limit     int
	Offset    int
}

// ProposalRepository defines the interface for match proposal persistence
type ProposalRepository interface {
	Create(ctx context.Context, proposal *model.MatchProposal) error
	// SettlePending writes the settled state of a proposal only while the
	// row is still PENDING, so a terminal status is never re-opened or
	// overwritten. Returns ErrStaleUpdate when a concurrent writer settled
	// the proposal first.
	SettlePending(ctx context.Context, proposal *model.MatchProposal) error
	GetByID(ctx context.Context, id string) (*model.MatchProposal, error)
	// FindPendingByLoadAndTruck returns the PENDING proposal for the exact
	// (load, truck) pair, if one exists.
	FindPendingByLoadAndTruck(ctx context.Context, loadID, truckID string) (*model.MatchProposal, error)
	List(ctx context.Context, filter ProposalFilter) ([]*model.MatchProposal, error)
	// CancelPendingByLoad marks every PENDING proposal for the load as
	// CANCELLED, excluding excludeID. Returns the number cancelled.
	CancelPendingByLoad(ctx context.Context, loadID, excludeID string, now time.Time) (int64, error)
}

type proposalRepository struct {
	db *gorm.DB
}

// NewProposalRepository creates a new proposal repository
func NewProposalRepository(db *gorm.DB) ProposalRepository {
	return &proposalRepository{db: db}
}

func (r *proposalRepository) Create(ctx context.Context, proposal *model.MatchProposal) error {
	if err := r.db.WithContext(ctx).Create(proposal).Error; err != nil {
		if db.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (r *proposalRepository) SettlePending(ctx context.Context, proposal *model.MatchProposal) error {
	res := r.db.WithContext(ctx).
		Model(&model.MatchProposal{}).
		Where("id = ? AND status = ?", proposal.ID, model.ProposalStatusPending).
		Updates(map[string]interface{}{
			"status":          proposal.Status,
			"responded_by_id": proposal.RespondedByID,
			"responded_at":    proposal.RespondedAt,
			"response_notes":  proposal.ResponseNotes,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleUpdate
	}
	return nil
}

func (r *proposalRepository) GetByID(ctx context.Context, id string) (*model.MatchProposal, error) {
	var proposal model.MatchProposal
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&proposal).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &proposal, nil
}

func (r *proposalRepository) FindPendingByLoadAndTruck(ctx context.Context, loadID, truckID string) (*model.MatchProposal, error) {
	var proposal model.MatchProposal
	err := r.db.WithContext(ctx).
		Where("load_id = ? AND truck_id = ? AND status = ?", loadID, truckID, model.ProposalStatusPending).
		First(&proposal).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &proposal, nil
}

func (r *proposalRepository) List(ctx context.Context, filter ProposalFilter) ([]*model.MatchProposal, error) {
	q := r.db.WithContext(ctx).Model(&model.MatchProposal{})
	if filter.LoadID != "" {
		q = q.Where("load_id = ?", filter.LoadID)
	}
	if filter.TruckID != "" {
		q = q.Where("truck_id = ?", filter.TruckID)
	}
	if filter.CarrierID != "" {
		q = q.Where("carrier_id = ?", filter.CarrierID)
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

	var proposals []*model.MatchProposal
	if err := q.Order("created_at DESC").Find(&proposals).Error; err != nil {
		return nil, err
	}
	return proposals, nil
}

func (r *proposalRepository) CancelPendingByLoad(ctx context.Context, loadID, excludeID string, now time.Time) (int64, error) {
	q := r.db.WithContext(ctx).
		Model(&model.MatchProposal{}).
		Where("load_id = ? AND status = ?", loadID, model.ProposalStatusPending)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	res := q.Updates(map[string]interface{}{
		"status":       model.ProposalStatusCancelled,
		"responded_at": now,
	})
	return res.RowsAffected, res.Error
}
