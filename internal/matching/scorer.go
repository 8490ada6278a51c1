package matching

import (
	"math"
	"strings"
	"time"

	"example.com/freightlink/services/marketplace/internal/model"
)

// Weights configures the relative contribution of each sub-score
type Weights struct {
	Route    float64
	Time     float64
	Capacity float64
	Deadhead float64
}

// DefaultWeights are used when a caller supplies no weights
var DefaultWeights = Weights{
	Route:    0.35,
	Time:     0.20,
	Capacity: 0.25,
	Deadhead: 0.20,
}

// Options tunes the scorer behaviour
type Options struct {
	Weights Weights
	// MaxEarlyDays is the furthest ahead of pickup a truck may become
	// available and still score on time.
	MaxEarlyDays int
	// DeadheadMaxKm is the empty-running distance at which the deadhead
	// sub-score reaches zero.
	DeadheadMaxKm float64
	// RoadDeadheadKm, when non-nil, replaces the haversine estimate for the
	// deadhead sub-score. It refines the number only; it never changes
	// which pairs count as matches beyond that.
	RoadDeadheadKm *float64
}

// DefaultOptions returns scorer options with the documented defaults
func DefaultOptions() Options {
	return Options{
		Weights:       DefaultWeights,
		MaxEarlyDays:  7,
		DeadheadMaxKm: 500,
	}
}

// LoadCriteria is the load side of a scoring input
type LoadCriteria struct {
	PickupCity   string
	PickupLat    *float64
	PickupLon    *float64
	DeliveryCity string
	DeliveryLat  *float64
	DeliveryLon  *float64
	PickupDate   time.Time
	DeliveryDate time.Time
	TruckType    model.TruckType
	WeightKg     float64
	LengthM      *float64
	Mode         model.LoadMode
}

// TruckCandidate is the truck side of a scoring input
type TruckCandidate struct {
	CurrentCity     string
	CurrentLat      *float64
	CurrentLon      *float64
	DestinationCity string
	DestinationLat  *float64
	DestinationLon  *float64
	AvailableFrom   time.Time
	AvailableUntil  *time.Time
	TruckType       model.TruckType
	MaxWeightKg     float64
	LengthM         *float64
	Mode            model.LoadMode
}

// Breakdown carries the total score and its four components, each 0-100
type Breakdown struct {
	Total      int     `json:"total"`
	Route      int     `json:"route"`
	Time       int     `json:"time"`
	Capacity   int     `json:"capacity"`
	Deadhead   int     `json:"deadhead"`
	DeadheadKm float64 `json:"deadhead_km"`
}

// DefaultMinScore is the match threshold applied when callers pass none
const DefaultMinScore = 40

// Candidate list bounds applied when the configuration leaves them unset
const (
	DefaultLimit = 20
	MaxLimit     = 50
)

const (
	// destination-proximity partial credit band for the route sub-score
	routeNearKm = 50
	routeFarKm  = 300
	// neutral deadhead score when no coordinates are available
	deadheadNeutral = 50
)

// Score rates a truck candidate against a load's needs. It is pure and
// deterministic: identical inputs always produce an identical breakdown.
func Score(load LoadCriteria, truck TruckCandidate, opts Options) Breakdown {
	b := Breakdown{
		Route:    routeScore(load, truck),
		Time:     timeScore(load, truck, opts.MaxEarlyDays),
		Capacity: capacityScore(load, truck),
	}
	b.Deadhead, b.DeadheadKm = deadheadScore(load, truck, opts)

	w := opts.Weights
	sum := w.Route + w.Time + w.Capacity + w.Deadhead
	if sum <= 0 {
		w = DefaultWeights
		sum = w.Route + w.Time + w.Capacity + w.Deadhead
	}
	total := (float64(b.Route)*w.Route +
		float64(b.Time)*w.Time +
		float64(b.Capacity)*w.Capacity +
		float64(b.Deadhead)*w.Deadhead) / sum
	b.Total = clampScore(int(math.Round(total)))
	return b
}

// routeScore gives full credit for a normalized origin/pickup city match,
// partial credit for destination proximity, zero when neither aligns.
// Matching is exact-string or coordinate-proximity only; no fuzzy matching.
func routeScore(load LoadCriteria, truck TruckCandidate) int {
	if NormalizeCity(truck.CurrentCity) != "" &&
		NormalizeCity(truck.CurrentCity) == NormalizeCity(load.PickupCity) {
		return 100
	}
	if NormalizeCity(truck.DestinationCity) != "" &&
		NormalizeCity(truck.DestinationCity) == NormalizeCity(load.DeliveryCity) {
		return 60
	}
	// Partial credit scaled by destination proximity when coordinates exist.
	if truck.DestinationLat != nil && truck.DestinationLon != nil &&
		load.DeliveryLat != nil && load.DeliveryLon != nil {
		km := HaversineKm(*truck.DestinationLat, *truck.DestinationLon, *load.DeliveryLat, *load.DeliveryLon)
		if km <= routeNearKm {
			return 60
		}
		if km < routeFarKm {
			return int(math.Round(60 * (routeFarKm - km) / (routeFarKm - routeNearKm)))
		}
	}
	return 0
}

// timeScore credits the overlap between truck availability and pickup date
func timeScore(load LoadCriteria, truck TruckCandidate, maxEarlyDays int) int {
	if maxEarlyDays <= 0 {
		maxEarlyDays = 7
	}
	// Unavailable before the delivery deadline.
	if truck.AvailableFrom.After(load.DeliveryDate) {
		return 0
	}
	// Availability window already closed before pickup.
	if truck.AvailableUntil != nil && truck.AvailableUntil.Before(load.PickupDate) {
		return 0
	}
	lead := load.PickupDate.Sub(truck.AvailableFrom)
	if lead < 0 {
		// Available after pickup but before delivery: degrade by lateness.
		late := -lead
		window := load.DeliveryDate.Sub(load.PickupDate)
		if window <= 0 {
			return 0
		}
		frac := 1 - float64(late)/float64(window)
		if frac < 0 {
			frac = 0
		}
		return int(math.Round(100 * frac))
	}
	maxLead := time.Duration(maxEarlyDays) * 24 * time.Hour
	if lead > maxLead {
		return 0
	}
	// Full credit within two days of pickup, linear falloff beyond.
	twoDays := 48 * time.Hour
	if lead <= twoDays {
		return 100
	}
	frac := 1 - float64(lead-twoDays)/float64(maxLead-twoDays)
	return int(math.Round(100 * frac))
}

// capacityScore is zero on any weight shortfall, scales down on length
// shortfall and mode mismatch
func capacityScore(load LoadCriteria, truck TruckCandidate) int {
	if truck.MaxWeightKg < load.WeightKg {
		return 0
	}
	// A FULL-only truck cannot take a PARTIAL load; a PARTIAL-capable truck
	// satisfies either mode.
	if truck.Mode == model.LoadModeFull && load.Mode == model.LoadModePartial {
		return 0
	}
	score := 100.0
	if load.TruckType != "" && truck.TruckType != "" && load.TruckType != truck.TruckType {
		score *= 0.5
	}
	if load.LengthM != nil && truck.LengthM != nil && *truck.LengthM < *load.LengthM {
		if *load.LengthM <= 0 {
			return 0
		}
		score *= *truck.LengthM / *load.LengthM
	}
	return clampScore(int(math.Round(score)))
}

// deadheadScore is inversely proportional to the empty distance from the
// truck's position to the pickup point. Neutral when coordinates are missing.
func deadheadScore(load LoadCriteria, truck TruckCandidate, opts Options) (int, float64) {
	maxKm := opts.DeadheadMaxKm
	if maxKm <= 0 {
		maxKm = 500
	}
	var km float64
	switch {
	case opts.RoadDeadheadKm != nil:
		km = *opts.RoadDeadheadKm
	case truck.CurrentLat != nil && truck.CurrentLon != nil &&
		load.PickupLat != nil && load.PickupLon != nil:
		km = HaversineKm(*truck.CurrentLat, *truck.CurrentLon, *load.PickupLat, *load.PickupLon)
	default:
		return deadheadNeutral, 0
	}
	if km >= maxKm {
		return 0, km
	}
	return int(math.Round(100 * (maxKm - km) / maxKm)), km
}

// NormalizeCity lowercases, trims and collapses internal whitespace so that
// lexically identical city names compare equal
func NormalizeCity(city string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(city))), " ")
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
