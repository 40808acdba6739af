// Package depot tracks the vehicles waiting at one depot: a FIFO queue,
// per-vehicle status, and the single active loading slot. All mutating
// operations share one mutex; "at most one LOADING vehicle" holds because
// nothing else ever touches the activeLoading pointer.
package depot

import (
	"log/slog"
	"sync"
	"time"

	"github.com/zrfleet/depotsim/pkg/core"
)

// Manager owns the queue and status map for one depot. Invalid operations
// (unknown vehicle, wrong state) return false and never panic.
type Manager struct {
	mu            sync.Mutex
	name          string
	queue         []string // registrations in queue order
	statuses      map[string]*core.VehicleStatus
	activeLoading string // registration of the LOADING vehicle, "" when none

	logger *slog.Logger
}

// NewManager creates an empty depot queue manager.
func NewManager(name string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		name:     name,
		statuses: make(map[string]*core.VehicleStatus),
		logger:   logger,
	}
}

// Name returns the depot name.
func (m *Manager) Name() string {
	return m.name
}

// AddVehicle appends a vehicle to the queue tail and returns its 1-based
// queue position. If nothing is loading, the queue head is promoted to
// LOADING immediately. Duplicate registrations and non-positive capacities
// are rejected.
func (m *Manager) AddVehicle(id string, capacity int) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if capacity < 1 {
		m.logger.Warn("Rejecting vehicle with invalid capacity", "vehicle", id, "capacity", capacity)
		return 0, false
	}
	if _, exists := m.statuses[id]; exists {
		m.logger.Warn("Vehicle already known to depot", "vehicle", id)
		return 0, false
	}

	m.queue = append(m.queue, id)
	m.statuses[id] = &core.VehicleStatus{
		VehicleID:   id,
		State:       core.StateQueued,
		Capacity:    capacity,
		LastUpdated: time.Now(),
	}
	m.recomputePositions()
	m.promoteNextLocked()

	m.logger.Info("Vehicle joined queue",
		"vehicle", id,
		"position", m.statuses[id].QueuePosition,
		"queueLength", len(m.queue))
	return m.statuses[id].QueuePosition, true
}

// BoardPassengers adds up to count passengers to the active loading
// vehicle. Boarding beyond capacity is capped, not an error. Returns true
// exactly when the vehicle reaches capacity; that call also transitions it
// to FULL, the ready-for-dispatch signal, and hands the loading slot to
// the next queued vehicle so boarding continues while the full vehicle
// waits for its route.
func (m *Manager) BoardPassengers(id string, count int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.statuses[id]
	if !ok || id != m.activeLoading || status.State != core.StateLoading {
		m.logger.Debug("Boarding refused", "vehicle", id, "activeLoading", m.activeLoading)
		return false
	}
	if count < 0 {
		return false
	}

	space := status.Capacity - status.Passengers
	if count > space {
		count = space
	}
	status.Passengers += count
	status.LastUpdated = time.Now()

	if status.Passengers >= status.Capacity {
		status.State = core.StateFull
		m.activeLoading = ""
		m.promoteNextLocked()
		m.logger.Info("Vehicle full", "vehicle", id, "passengers", status.Passengers)
		return true
	}
	return false
}

// DispatchVehicle moves a FULL vehicle to DISPATCHED: engine on, route and
// destination stamped, removed from the queue, and the next queued vehicle
// promoted to LOADING.
func (m *Manager) DispatchVehicle(id string, route *core.RouteDescriptor) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.statuses[id]
	if !ok || status.State != core.StateFull || route == nil {
		m.logger.Debug("Dispatch refused", "vehicle", id)
		return false
	}

	status.State = core.StateDispatched
	status.EngineOn = true
	status.RouteID = route.RouteID
	status.Destination = route.Destination
	status.JourneyStartTime = time.Now()
	status.DestinationArrivalTime = time.Time{}
	status.LastUpdated = status.JourneyStartTime
	status.QueuePosition = 0

	m.removeFromQueueLocked(id)
	if m.activeLoading == id {
		m.activeLoading = ""
	}
	m.recomputePositions()
	m.promoteNextLocked()

	m.logger.Info("Vehicle dispatched",
		"vehicle", id,
		"route", route.RouteID,
		"destination", route.Destination)
	return true
}

// VehicleCompletedJourney resets a vehicle at the end of a cycle:
// passengers disembark, then the vehicle re-enters the queue tail as a
// fresh QUEUED entry with a new, highest position.
func (m *Manager) VehicleCompletedJourney(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.statuses[id]
	if !ok {
		return false
	}
	switch status.State {
	case core.StateDispatched, core.StateEnRoute, core.StateAtDestination,
		core.StateReturning, core.StateCompleting:
	default:
		m.logger.Debug("Completion refused", "vehicle", id, "state", status.State)
		return false
	}

	status.State = core.StateDisembarking
	status.Passengers = 0
	status.EngineOn = false
	status.RouteID = ""
	status.Destination = ""
	status.LastUpdated = time.Now()

	// Re-enter the queue immediately; DISEMBARKING is transient.
	status.State = core.StateQueued
	m.queue = append(m.queue, id)
	m.recomputePositions()
	m.promoteNextLocked()

	m.logger.Info("Vehicle completed journey, rejoined queue",
		"vehicle", id,
		"position", status.QueuePosition)
	return true
}

// ApplyNavigationState maps a navigation state onto the vehicle state per
// the consistency rules. IDLE and ENGINE_STARTING leave the vehicle state
// untouched; the queue owns those phases. Only vehicles out on a journey
// are affected: once a vehicle has rejoined the queue, stale transitions
// still buffered from the finished cycle must not drag it out of QUEUED.
func (m *Manager) ApplyNavigationState(id string, nav core.NavigationState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.statuses[id]
	if !ok {
		return false
	}
	switch status.State {
	case core.StateDispatched, core.StateEnRoute, core.StateAtDestination,
		core.StateReturning, core.StateCompleting:
	default:
		m.logger.Debug("Ignoring navigation state for vehicle not on a journey",
			"vehicle", id, "state", status.State, "nav", nav)
		return false
	}

	var next core.VehicleState
	switch nav {
	case core.NavDeparting, core.NavEnRoute, core.NavAtStop:
		next = core.StateEnRoute
	case core.NavAtDestination, core.NavLoitering:
		next = core.StateAtDestination
	case core.NavReturning, core.NavApproachingDepot:
		next = core.StateReturning
	case core.NavEngineStopping:
		next = core.StateCompleting
	default:
		return true
	}

	if status.State == next {
		return true
	}
	status.State = next
	if next == core.StateCompleting {
		status.EngineOn = false
	}
	status.LastUpdated = time.Now()
	return true
}

// DestinationArrived stamps the destination arrival time.
func (m *Manager) DestinationArrived(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.statuses[id]
	if !ok {
		return false
	}
	status.DestinationArrivalTime = time.Now()
	status.LastUpdated = status.DestinationArrivalTime
	return true
}

// Status returns a copy of one vehicle's status.
func (m *Manager) Status(id string) (core.VehicleStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.statuses[id]
	if !ok {
		return core.VehicleStatus{}, false
	}
	return *status, true
}

// ActiveLoadingVehicle returns the registration of the vehicle currently
// loading, or "" when no vehicle is queued.
func (m *Manager) ActiveLoadingVehicle() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLoading
}

// QueueLength returns the number of queued vehicles.
func (m *Manager) QueueLength() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Snapshot returns all vehicle statuses, queued vehicles first in queue
// order, then the vehicles out on routes.
func (m *Manager) Snapshot() []core.VehicleStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]core.VehicleStatus, 0, len(m.statuses))
	queued := make(map[string]bool, len(m.queue))
	for _, id := range m.queue {
		queued[id] = true
		out = append(out, *m.statuses[id])
	}
	for id, status := range m.statuses {
		if !queued[id] {
			out = append(out, *status)
		}
	}
	return out
}

// removeFromQueueLocked drops id from the queue slice. Caller holds mu.
func (m *Manager) removeFromQueueLocked(id string) {
	for i, qid := range m.queue {
		if qid == id {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}

// recomputePositions re-stamps 1-based queue positions. Caller holds mu.
func (m *Manager) recomputePositions() {
	for i, id := range m.queue {
		m.statuses[id].QueuePosition = i + 1
	}
}

// promoteNextLocked promotes the first QUEUED vehicle to LOADING when no
// vehicle holds the loading slot. FULL vehicles stay in the queue until
// dispatched, so the scan skips past them. Caller holds mu.
func (m *Manager) promoteNextLocked() {
	if m.activeLoading != "" {
		return
	}
	for _, id := range m.queue {
		status := m.statuses[id]
		if status.State != core.StateQueued {
			continue
		}
		status.State = core.StateLoading
		status.LastUpdated = time.Now()
		m.activeLoading = id
		m.logger.Info("Vehicle now loading", "vehicle", id)
		return
	}
}
