package core

import "time"

// VehicleState tracks a vehicle through one depot cycle.
// QUEUED is the initial state; DISEMBARKING is terminal per cycle and is
// immediately followed by re-entry at the queue tail as QUEUED.
type VehicleState string

const (
	StateQueued        VehicleState = "QUEUED"
	StateLoading       VehicleState = "LOADING"
	StateFull          VehicleState = "FULL"
	StateDispatched    VehicleState = "DISPATCHED"
	StateEnRoute       VehicleState = "EN_ROUTE"
	StateAtDestination VehicleState = "AT_DESTINATION"
	StateReturning     VehicleState = "RETURNING"
	StateCompleting    VehicleState = "COMPLETING"
	StateDisembarking  VehicleState = "DISEMBARKING"
)

// Vehicle identifies a ZR van registered at the depot.
// Registration is the plate, e.g. "ZR-101", and is the key used on the wire.
type Vehicle struct {
	Registration string `json:"registration"`
	Callsign     string `json:"callsign"`
	Capacity     int    `json:"capacity"`
}

// VehicleStatus is the depot's view of one vehicle at a point in time.
// Owned exclusively by the depot queue manager; mutated only through its
// operations.
type VehicleStatus struct {
	VehicleID              string       `json:"vehicle_id"`
	State                  VehicleState `json:"state"`
	Passengers             int          `json:"passengers"`
	Capacity               int          `json:"capacity"`
	QueuePosition          int          `json:"queue_position"` // 1-based, 0 when not queued
	RouteID                string       `json:"route_id,omitempty"`
	Destination            string       `json:"destination,omitempty"`
	EngineOn               bool         `json:"engine_on"`
	JourneyStartTime       time.Time    `json:"journey_start_time"`
	DestinationArrivalTime time.Time    `json:"destination_arrival_time"`
	LastUpdated            time.Time    `json:"last_updated"`
}
