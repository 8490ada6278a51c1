package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"example.com/freightlink/services/marketplace/internal/model"
)

// NotFoundError indicates an absent load, truck, proposal or trip
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ValidationError indicates malformed or incomplete input
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ForbiddenError indicates a failed capability or ownership check
type ForbiddenError struct {
	ActorID string
	Action  Capability
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("actor %s lacks capability %s", e.ActorID, e.Action)
}

// LoadNotAvailableError indicates a load outside the proposable statuses
type LoadNotAvailableError struct {
	LoadID string
	Status model.LoadStatus
}

func (e *LoadNotAvailableError) Error() string {
	return fmt.Sprintf("load %s is not available in status %s", e.LoadID, e.Status)
}

// LoadAlreadyAssignedError indicates the load's assignment slot is taken.
// Terminal for the losing proposal: retry by creating a new proposal, never
// by replaying the same acceptance.
type LoadAlreadyAssignedError struct {
	LoadID          string
	AssignedTruckID string
}

func (e *LoadAlreadyAssignedError) Error() string {
	return fmt.Sprintf("load %s is already assigned to truck %s", e.LoadID, e.AssignedTruckID)
}

// TruckBusyError indicates the truck is bound to another active load. The
// rival load's route is carried so an operator can diagnose the race without
// further lookups.
type TruckBusyError struct {
	TruckID      string
	PickupCity   string
	DeliveryCity string
}

func (e *TruckBusyError) Error() string {
	return fmt.Sprintf("truck %s is busy on a load from %s to %s", e.TruckID, e.PickupCity, e.DeliveryCity)
}

// DuplicateProposalError indicates a PENDING proposal already exists for the
// (load, truck) pair
type DuplicateProposalError struct {
	ExistingID string
}

func (e *DuplicateProposalError) Error() string {
	return fmt.Sprintf("a pending proposal %s already exists for this load and truck", e.ExistingID)
}

// ProposalExpiredError indicates the proposal passed its expiry deadline
type ProposalExpiredError struct {
	ProposalID string
	ExpiresAt  time.Time
}

func (e *ProposalExpiredError) Error() string {
	return fmt.Sprintf("proposal %s expired at %s", e.ProposalID, e.ExpiresAt.Format(time.RFC3339))
}

// ProposalNotPendingError indicates a response to an already-settled proposal
type ProposalNotPendingError struct {
	ProposalID string
	Status     model.ProposalStatus
}

func (e *ProposalNotPendingError) Error() string {
	return fmt.Sprintf("proposal %s is %s and cannot be responded to", e.ProposalID, e.Status)
}

// InsufficientBalanceError indicates the advisory wallet pre-check rejected
// the acceptance
type InsufficientBalanceError struct {
	Reasons []string
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for trip: %s", strings.Join(e.Reasons, "; "))
}

// IsConflict reports whether the error is a racy conflict a caller may
// resolve by creating a new proposal
func IsConflict(err error) bool {
	var assigned *LoadAlreadyAssignedError
	var busy *TruckBusyError
	var dup *DuplicateProposalError
	return errors.As(err, &assigned) || errors.As(err, &busy) || errors.As(err, &dup)
}
