package repository

import (
	"context"

	"gorm.io/gorm"
)

// TxRepos bundles repositories bound to a single transaction
type TxRepos struct {
	Loads     LoadRepository
	Trucks    TruckRepository
	Proposals ProposalRepository
	Trips     TripRepository
	Events    LoadEventRepository
}

// TxManager runs a function inside a database transaction. Every repository
// call made through the supplied TxRepos sees and writes uncommitted state;
// a returned error rolls the whole transaction back.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, repos *TxRepos) error) error
}

type gormTxManager struct {
	db *gorm.DB
}

// NewTxManager creates a TxManager over a gorm connection
func NewTxManager(db *gorm.DB) TxManager {
	return &gormTxManager{db: db}
}

func (m *gormTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context, repos *TxRepos) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &TxRepos{
			Loads:     NewLoadRepository(tx),
			Trucks:    NewTruckRepository(tx),
			Proposals: NewProposalRepository(tx),
			Trips:     NewTripRepository(tx),
			Events:    NewLoadEventRepository(tx),
		})
	})
}
