package model

import (
	"time"
)

// Base model fields shared by all models
type Base struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActorRole defines the role of the acting user
type ActorRole string

const (
	// RoleShipper represents a shipper organization member
	RoleShipper ActorRole = "SHIPPER"
	// RoleCarrier represents a carrier organization member
	RoleCarrier ActorRole = "CARRIER"
	// RoleDispatcher represents a platform dispatcher
	RoleDispatcher ActorRole = "DISPATCHER"
	// RoleAdmin represents a platform administrator
	RoleAdmin ActorRole = "ADMIN"
	// RoleSuperAdmin represents a platform super administrator
	RoleSuperAdmin ActorRole = "SUPER_ADMIN"
)

// RoleFromString converts a string to an ActorRole
func RoleFromString(role string) ActorRole {
	switch role {
	case "SHIPPER":
		return RoleShipper
	case "CARRIER":
		return RoleCarrier
	case "DISPATCHER":
		return RoleDispatcher
	case "ADMIN":
		return RoleAdmin
	case "SUPER_ADMIN":
		return RoleSuperAdmin
	default:
		return ""
	}
}

// TruckType defines the equipment type of a truck
type TruckType string

const (
	TruckTypeFlatbed      TruckType = "FLATBED"
	TruckTypeBox          TruckType = "BOX"
	TruckTypeRefrigerated TruckType = "REFRIGERATED"
	TruckTypeTanker       TruckType = "TANKER"
	TruckTypeContainer    TruckType = "CONTAINER"
)

// LoadMode defines whether a load fills a truck or shares it
type LoadMode string

const (
	// LoadModeFull occupies a full truck
	LoadModeFull LoadMode = "FULL"
	// LoadModePartial can share truck capacity
	LoadModePartial LoadMode = "PARTIAL"
)

// Load represents a shipment a shipper wants moved
type Load struct {
	Base
	ShipperID       string     `json:"shipper_id" gorm:"column:shipper_id;type:uuid;index"`
	Status          LoadStatus `json:"status" gorm:"column:status;index"`
	PickupCity      string     `json:"pickup_city"`
	PickupLat       *float64   `json:"pickup_lat"`
	PickupLon       *float64   `json:"pickup_lon"`
	DeliveryCity    string     `json:"delivery_city"`
	DeliveryLat     *float64   `json:"delivery_lat"`
	DeliveryLon     *float64   `json:"delivery_lon"`
	PickupDate      time.Time  `json:"pickup_date"`
	DeliveryDate    time.Time  `json:"delivery_date"`
	TruckType       TruckType  `json:"truck_type"`
	WeightKg        float64    `json:"weight_kg"`
	LengthM         *float64   `json:"length_m"`
	Mode            LoadMode   `json:"mode"`
	AssignedTruckID *string    `json:"assigned_truck_id" gorm:"column:assigned_truck_id;type:uuid;index"`
	AssignedAt      *time.Time `json:"assigned_at"`
	TripKm          *float64   `json:"trip_km"`
	EstimatedTripKm *float64   `json:"estimated_trip_km"`
}

// HasGeography reports whether the load carries pickup and delivery locations
func (l *Load) HasGeography() bool {
	return l.PickupCity != "" && l.DeliveryCity != ""
}

// TruckStatus defines the status of a truck posting
type TruckStatus string

const (
	TruckStatusActive   TruckStatus = "ACTIVE"
	TruckStatusInactive TruckStatus = "INACTIVE"
)

// TruckPosting represents a carrier's declared available capacity and route
type TruckPosting struct {
	Base
	CarrierID       string      `json:"carrier_id" gorm:"column:carrier_id;type:uuid;index"`
	CurrentCity     string      `json:"current_city"`
	CurrentLat      *float64    `json:"current_lat"`
	CurrentLon      *float64    `json:"current_lon"`
	DestinationCity string      `json:"destination_city"`
	DestinationLat  *float64    `json:"destination_lat"`
	DestinationLon  *float64    `json:"destination_lon"`
	TruckType       TruckType   `json:"truck_type"`
	MaxWeightKg     float64     `json:"max_weight_kg"`
	LengthM         *float64    `json:"length_m"`
	Mode            LoadMode    `json:"mode"`
	AvailableFrom   time.Time   `json:"available_from"`
	AvailableUntil  *time.Time  `json:"available_until"`
	Status          TruckStatus `json:"status" gorm:"column:status;index"`
	HasGPSDevice    bool        `json:"has_gps_device"`
}

// ProposalStatus defines the status of a match proposal
type ProposalStatus string

const (
	ProposalStatusPending   ProposalStatus = "PENDING"
	ProposalStatusAccepted  ProposalStatus = "ACCEPTED"
	ProposalStatusRejected  ProposalStatus = "REJECTED"
	ProposalStatusExpired   ProposalStatus = "EXPIRED"
	ProposalStatusCancelled ProposalStatus = "CANCELLED"
)

// ProposalStatusFromString converts a string to a ProposalStatus
func ProposalStatusFromString(status string) ProposalStatus {
	switch status {
	case "PENDING":
		return ProposalStatusPending
	case "ACCEPTED":
		return ProposalStatusAccepted
	case "REJECTED":
		return ProposalStatusRejected
	case "EXPIRED":
		return ProposalStatusExpired
	case "CANCELLED":
		return ProposalStatusCancelled
	default:
		return ""
	}
}

// IsTerminal reports whether the proposal status accepts no response
func (s ProposalStatus) IsTerminal() bool {
	return s != ProposalStatusPending
}

// MatchProposal links one load to one truck pending carrier approval.
// At most one PENDING proposal may exist per (load, truck) pair; a partial
// unique index enforces this in the store.
type MatchProposal struct {
	Base
	LoadID        string         `json:"load_id" gorm:"column:load_id;type:uuid;index"`
	TruckID       string         `json:"truck_id" gorm:"column:truck_id;type:uuid;index"`
	CarrierID     string         `json:"carrier_id" gorm:"column:carrier_id;type:uuid;index"`
	ProposedByID  string         `json:"proposed_by_id" gorm:"column:proposed_by_id;type:uuid"`
	Status        ProposalStatus `json:"status" gorm:"column:status;index"`
	MatchScore    int            `json:"match_score"`
	ProposedRate  *float64       `json:"proposed_rate"`
	Notes         string         `json:"notes"`
	ExpiresAt     time.Time      `json:"expires_at"`
	RespondedByID *string        `json:"responded_by_id" gorm:"column:responded_by_id;type:uuid"`
	RespondedAt   *time.Time     `json:"responded_at"`
	ResponseNotes string         `json:"response_notes"`
}

// IsExpired reports whether the proposal is past its expiry deadline
func (p *MatchProposal) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// Trip is the operational record of a load once assigned
type Trip struct {
	Base
	LoadID              string     `json:"load_id" gorm:"column:load_id;type:uuid;uniqueIndex"`
	TruckID             string     `json:"truck_id" gorm:"column:truck_id;type:uuid;index"`
	CarrierID           string     `json:"carrier_id" gorm:"column:carrier_id;type:uuid;index"`
	ShipperID           string     `json:"shipper_id" gorm:"column:shipper_id;type:uuid;index"`
	Status              TripStatus `json:"status" gorm:"column:status"`
	PickupCity          string     `json:"pickup_city"`
	DeliveryCity        string     `json:"delivery_city"`
	EstimatedDistanceKm *float64   `json:"estimated_distance_km"`
	TrackingURL         string     `json:"tracking_url"`
	TrackingEnabled     bool       `json:"tracking_enabled"`
	StartedAt           *time.Time `json:"started_at"`
	PickedUpAt          *time.Time `json:"picked_up_at"`
	DeliveredAt         *time.Time `json:"delivered_at"`
	CompletedAt         *time.Time `json:"completed_at"`
	CancelledAt         *time.Time `json:"cancelled_at"`
}

// LoadEventType defines the type of a load audit event
type LoadEventType string

const (
	LoadEventCreated        LoadEventType = "load-created"
	LoadEventStatusChanged  LoadEventType = "load-status-changed"
	LoadEventProposalMade   LoadEventType = "load-proposal-made"
	LoadEventProposalClosed LoadEventType = "load-proposal-closed"
	LoadEventAssigned       LoadEventType = "load-assigned"
)

// LoadEvent is an append-only audit trail entry tied to a load.
// Events are immutable once written.
type LoadEvent struct {
	Base
	LoadID    string        `json:"load_id" gorm:"column:load_id;type:uuid;index"`
	ActorID   string        `json:"actor_id" gorm:"column:actor_id;type:uuid"`
	EventType LoadEventType `json:"event_type"`
	Details   []byte        `json:"details" gorm:"type:jsonb"`
}
