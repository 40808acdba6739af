package core

import "time"

// VehicleFullNotice tells the dispatch authority a vehicle reached capacity.
// Ephemeral; never persisted.
type VehicleFullNotice struct {
	VehicleID  string    `json:"vehicle_id"`
	Passengers int       `json:"passenger_count"`
	Capacity   int       `json:"capacity"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// RouteRequest is the pull alternative to the vehicle-full push.
type RouteRequest struct {
	VehicleID   string    `json:"vehicle_id"`
	VehicleType string    `json:"vehicle_type"`
	Timestamp   time.Time `json:"timestamp"`
}

// StateUpdate is best-effort telemetry sent on navigation state changes.
type StateUpdate struct {
	VehicleID  string          `json:"vehicle_id"`
	State      VehicleState    `json:"state"`
	NavState   NavigationState `json:"nav_state"`
	Passengers int             `json:"passengers"`
	Lat        float64         `json:"lat,omitempty"`
	Lon        float64         `json:"lon,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// JourneyReport is best-effort telemetry sent when a cycle completes.
type JourneyReport struct {
	VehicleID   string    `json:"vehicle_id"`
	Status      string    `json:"status"`
	RouteID     string    `json:"route_id"`
	Passengers  int       `json:"passengers"`
	DepartedAt  time.Time `json:"departed_at"`
	CompletedAt time.Time `json:"completed_at"`
	Timestamp   time.Time `json:"timestamp"`
}

// DepotStatus aggregates the queue and per-vehicle navigation snapshots for
// external observability.
type DepotStatus struct {
	Depot         string                     `json:"depot"`
	GeneratedAt   time.Time                  `json:"generated_at"`
	QueueLength   int                        `json:"queue_length"`
	ActiveLoading string                     `json:"active_loading,omitempty"`
	Vehicles      []VehicleStatus            `json:"vehicles"`
	Navigation    map[string]NavigationState `json:"navigation"`
	Positions     map[string]PositionSample  `json:"positions,omitempty"`
	TotalBoarded  int                        `json:"total_boarded"`
	TotalJourneys int                        `json:"total_journeys"`
}
