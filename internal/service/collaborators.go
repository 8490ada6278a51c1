package service

import (
	"context"

	"example.com/freightlink/services/marketplace/internal/model"
)

// Actor identifies the authenticated user performing an operation. Identity
// and role are established upstream; this core only consumes them.
type Actor struct {
	ID   string
	Role model.ActorRole
}

// Capability names an action checked against the authorization collaborator
type Capability string

const (
	// CapCreateProposal allows proposing a match (coordination capability)
	CapCreateProposal Capability = "proposal.create"
	// CapRespondProposal allows accepting or rejecting a proposal on behalf
	// of the carrier that owns the truck
	CapRespondProposal Capability = "proposal.respond"
)

// Authorizer evaluates roles and permissions. Evaluation is entirely
// external; the core never re-implements permission logic.
type Authorizer interface {
	HasCapability(ctx context.Context, actor Actor, action Capability, resourceOwnerID string) (bool, error)
}

// Notifier delivers user notifications. Fire-and-forget: failures are logged
// by callers, never propagated.
type Notifier interface {
	Notify(ctx context.Context, userIDs []string, notifType, title, message string, metadata map[string]interface{}) error
}

// BalanceCheck is the advisory result of a wallet pre-check
type BalanceCheck struct {
	Valid      bool     `json:"valid"`
	ShipperFee float64  `json:"shipper_fee"`
	CarrierFee float64  `json:"carrier_fee"`
	Errors     []string `json:"errors"`
}

// WalletService checks balances ahead of an assignment. Advisory only; no
// funds are reserved and real deduction happens elsewhere at trip completion.
type WalletService interface {
	ValidateBalancesForTrip(ctx context.Context, loadID, carrierID string) (*BalanceCheck, error)
}

// TrackingProvider enables GPS tracking for an assigned load. Best-effort,
// post-commit only.
type TrackingProvider interface {
	EnableTrackingForLoad(ctx context.Context, loadID, truckID string) (string, error)
}

// DistanceProvider returns road distances between coordinate pairs. Used only
// to refine the deadhead sub-score; never required.
type DistanceProvider interface {
	RoadDistanceKm(ctx context.Context, fromLat, fromLon, toLat, toLon float64) (float64, error)
}
