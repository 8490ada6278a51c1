package model

import "fmt"

// LoadStatus defines the lifecycle status of a load
type LoadStatus string

const (
	LoadStatusDraft         LoadStatus = "DRAFT"
	LoadStatusPosted        LoadStatus = "POSTED"
	LoadStatusUnposted      LoadStatus = "UNPOSTED"
	LoadStatusSearching     LoadStatus = "SEARCHING"
	LoadStatusOffered       LoadStatus = "OFFERED"
	LoadStatusAssigned      LoadStatus = "ASSIGNED"
	LoadStatusPickupPending LoadStatus = "PICKUP_PENDING"
	LoadStatusInTransit     LoadStatus = "IN_TRANSIT"
	LoadStatusDelivered     LoadStatus = "DELIVERED"
	LoadStatusCompleted     LoadStatus = "COMPLETED"
	LoadStatusCancelled     LoadStatus = "CANCELLED"
	LoadStatusExpired       LoadStatus = "EXPIRED"
	LoadStatusException     LoadStatus = "EXCEPTION"
)

// LoadStatusFromString converts a string to a LoadStatus
func LoadStatusFromString(status string) LoadStatus {
	switch status {
	case "DRAFT":
		return LoadStatusDraft
	case "POSTED":
		return LoadStatusPosted
	case "UNPOSTED":
		return LoadStatusUnposted
	case "SEARCHING":
		return LoadStatusSearching
	case "OFFERED":
		return LoadStatusOffered
	case "ASSIGNED":
		return LoadStatusAssigned
	case "PICKUP_PENDING":
		return LoadStatusPickupPending
	case "IN_TRANSIT":
		return LoadStatusInTransit
	case "DELIVERED":
		return LoadStatusDelivered
	case "COMPLETED":
		return LoadStatusCompleted
	case "CANCELLED":
		return LoadStatusCancelled
	case "EXPIRED":
		return LoadStatusExpired
	case "EXCEPTION":
		return LoadStatusException
	default:
		return ""
	}
}

// IsTerminal reports whether the status accepts no further transitions
func (s LoadStatus) IsTerminal() bool {
	switch s {
	case LoadStatusDelivered, LoadStatusCompleted, LoadStatusCancelled, LoadStatusExpired:
		return true
	}
	return false
}

// IsProposable reports whether a load in this status may receive proposals
func (s LoadStatus) IsProposable() bool {
	switch s {
	case LoadStatusPosted, LoadStatusSearching, LoadStatusOffered:
		return true
	}
	return false
}

// loadTransitions is the fixed table of legal load status transitions.
// Terminal statuses have no entry and reject everything.
var loadTransitions = map[LoadStatus][]LoadStatus{
	LoadStatusDraft:         {LoadStatusPosted, LoadStatusCancelled},
	LoadStatusPosted:        {LoadStatusSearching, LoadStatusAssigned, LoadStatusUnposted, LoadStatusCancelled, LoadStatusExpired},
	LoadStatusUnposted:      {LoadStatusPosted, LoadStatusCancelled},
	LoadStatusSearching:     {LoadStatusOffered, LoadStatusAssigned, LoadStatusUnposted, LoadStatusCancelled, LoadStatusExpired},
	LoadStatusOffered:       {LoadStatusSearching, LoadStatusAssigned, LoadStatusCancelled, LoadStatusExpired},
	LoadStatusAssigned:      {LoadStatusPickupPending, LoadStatusCancelled, LoadStatusException},
	LoadStatusPickupPending: {LoadStatusInTransit, LoadStatusCancelled, LoadStatusException},
	LoadStatusInTransit:     {LoadStatusDelivered, LoadStatusException},
	LoadStatusException:     {LoadStatusAssigned, LoadStatusPickupPending, LoadStatusInTransit, LoadStatusCancelled},
}

// transitionRoles restricts specific transitions to specific roles. The zero
// entry means any authenticated role may perform the transition.
type transitionKey struct {
	from LoadStatus
	to   LoadStatus
}

var transitionRoles = map[transitionKey][]ActorRole{
	// Only the carrier actually moving the load advances operational statuses.
	{LoadStatusAssigned, LoadStatusPickupPending}:  {RoleCarrier, RoleDispatcher, RoleAdmin, RoleSuperAdmin},
	{LoadStatusPickupPending, LoadStatusInTransit}: {RoleCarrier},
	{LoadStatusInTransit, LoadStatusDelivered}:     {RoleCarrier, RoleDispatcher, RoleAdmin, RoleSuperAdmin},
	// Forcing an exception is a coordination action.
	{LoadStatusAssigned, LoadStatusException}:      {RoleDispatcher, RoleAdmin, RoleSuperAdmin},
	{LoadStatusPickupPending, LoadStatusException}: {RoleDispatcher, RoleAdmin, RoleSuperAdmin},
	{LoadStatusInTransit, LoadStatusException}:     {RoleDispatcher, RoleAdmin, RoleSuperAdmin},
}

// Recovering from an exception is also a coordination action.
func init() {
	for _, to := range loadTransitions[LoadStatusException] {
		transitionRoles[transitionKey{LoadStatusException, to}] = []ActorRole{RoleDispatcher, RoleAdmin, RoleSuperAdmin}
	}
}

// TerminalStatusError indicates a transition out of a terminal status
type TerminalStatusError struct {
	Status LoadStatus
}

func (e *TerminalStatusError) Error() string {
	return fmt.Sprintf("load status %s is terminal and accepts no transitions", e.Status)
}

// IllegalTransitionError indicates a transition absent from the table
type IllegalTransitionError struct {
	From LoadStatus
	To   LoadStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal load status transition %s -> %s", e.From, e.To)
}

// RoleNotAllowedError indicates the actor role may not perform the transition
type RoleNotAllowedError struct {
	From LoadStatus
	To   LoadStatus
	Role ActorRole
}

func (e *RoleNotAllowedError) Error() string {
	return fmt.Sprintf("role %s may not transition load %s -> %s", e.Role, e.From, e.To)
}

// ValidateLoadTransition decides whether moving a load from current to target
// is legal for the given actor role. Pure; consults only the fixed tables.
func ValidateLoadTransition(current, target LoadStatus, role ActorRole) error {
	if current.IsTerminal() {
		return &TerminalStatusError{Status: current}
	}
	allowed := false
	for _, t := range loadTransitions[current] {
		if t == target {
			allowed = true
			break
		}
	}
	if !allowed {
		return &IllegalTransitionError{From: current, To: target}
	}
	roles, restricted := transitionRoles[transitionKey{current, target}]
	if !restricted {
		return nil
	}
	for _, r := range roles {
		if r == role {
			return nil
		}
	}
	return &RoleNotAllowedError{From: current, To: target, Role: role}
}

// TripStatus defines the lifecycle status of a trip. It is a strict subset of
// load statuses and is only ever changed in lock-step with the owning load.
type TripStatus string

const (
	TripStatusAssigned      TripStatus = "ASSIGNED"
	TripStatusPickupPending TripStatus = "PICKUP_PENDING"
	TripStatusInTransit     TripStatus = "IN_TRANSIT"
	TripStatusDelivered     TripStatus = "DELIVERED"
	TripStatusCompleted     TripStatus = "COMPLETED"
	TripStatusCancelled     TripStatus = "CANCELLED"
)

// TripStatusForLoad maps a load status onto the trip status mirror. The second
// return is false for load statuses with no trip counterpart.
func TripStatusForLoad(status LoadStatus) (TripStatus, bool) {
	switch status {
	case LoadStatusAssigned:
		return TripStatusAssigned, true
	case LoadStatusPickupPending:
		return TripStatusPickupPending, true
	case LoadStatusInTransit:
		return TripStatusInTransit, true
	case LoadStatusDelivered:
		return TripStatusDelivered, true
	case LoadStatusCompleted:
		return TripStatusCompleted, true
	case LoadStatusCancelled:
		return TripStatusCancelled, true
	}
	return "", false
}
