package core

import "time"

// NavigationState is the per-vehicle navigation machine state.
// IDLE is both the initial and the terminal state of a cycle.
type NavigationState string

const (
	NavIdle             NavigationState = "IDLE"
	NavEngineStarting   NavigationState = "ENGINE_STARTING"
	NavDeparting        NavigationState = "DEPARTING"
	NavEnRoute          NavigationState = "EN_ROUTE"
	NavAtStop           NavigationState = "AT_STOP"
	NavAtDestination    NavigationState = "AT_DESTINATION"
	NavLoitering        NavigationState = "LOITERING"
	NavReturning        NavigationState = "RETURNING"
	NavApproachingDepot NavigationState = "APPROACHING_DEPOT"
	NavEngineStopping   NavigationState = "ENGINE_STOPPING"
)

// navGraph holds the forward edges of the cycle. AT_STOP is an
// outbound-only excursion from EN_ROUTE.
var navGraph = map[NavigationState][]NavigationState{
	NavIdle:             {NavEngineStarting},
	NavEngineStarting:   {NavDeparting},
	NavDeparting:        {NavEnRoute},
	NavEnRoute:          {NavAtStop, NavAtDestination},
	NavAtStop:           {NavEnRoute},
	NavAtDestination:    {NavLoitering},
	NavLoitering:        {NavReturning},
	NavReturning:        {NavApproachingDepot},
	NavApproachingDepot: {NavEngineStopping},
	NavEngineStopping:   {NavIdle},
}

// CanTransitionTo reports whether moving from s to next follows the cycle
// graph. A stop request may enter ENGINE_STOPPING from any active state.
func (s NavigationState) CanTransitionTo(next NavigationState) bool {
	if next == NavEngineStopping && s != NavIdle {
		return true
	}
	for _, n := range navGraph[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Active reports whether the state belongs to a running cycle.
func (s NavigationState) Active() bool {
	return s != NavIdle
}

// StateTransition is emitted for every navigation state change.
type StateTransition struct {
	VehicleID string
	From      NavigationState
	To        NavigationState
	At        time.Time
}

// Journey legs.
const (
	LegOutbound = "outbound"
	LegReturn   = "return"
)

// PositionSample is one interpolated GPS fix along a route. Tick is the
// engine's cycle-local tick counter, the key position records are stored
// under.
type PositionSample struct {
	VehicleID  string    `json:"vehicle_id"`
	Tick       uint64    `json:"tick"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	BearingDeg float64   `json:"bearing_deg"`
	Progress   float64   `json:"progress"` // 0..1 along the active leg
	SpeedKph   float64   `json:"speed_kph"`
	DistanceKm float64   `json:"distance_km"` // along the active leg
	Leg        string    `json:"leg"`
	Time       time.Time `json:"time"`
}

// KinematicSample is the latest reading from the kinematic collaborator.
// CumulativeDistanceKm only ever grows within a cycle.
type KinematicSample struct {
	CumulativeDistanceKm float64
	SpeedKph             float64
	Timestamp            time.Time
}

// JourneySummary is emitted exactly once per completed cycle.
// Forced marks a cycle ended by the forced-close path rather than a full
// return to the depot.
type JourneySummary struct {
	VehicleID   string    `json:"vehicle_id"`
	RouteID     string    `json:"route_id"`
	RouteName   string    `json:"route_name"`
	Destination string    `json:"destination"`
	DepartedAt  time.Time `json:"departed_at"`
	ArrivedAt   time.Time `json:"arrived_at"`
	CompletedAt time.Time `json:"completed_at"`
	Passengers  int       `json:"passengers"`
	DistanceKm  float64   `json:"distance_km"`
	Forced      bool      `json:"forced,omitempty"`
}
