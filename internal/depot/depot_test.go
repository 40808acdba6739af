package depot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zrfleet/depotsim/pkg/core"
)

func testRoute() *core.RouteDescriptor {
	return &core.RouteDescriptor{
		RouteID:     "RT-1",
		RouteName:   "Bridgetown - Oistins",
		Destination: "Oistins",
		Coordinates: []core.LonLat{
			{Lon: -59.6132, Lat: 13.0969},
			{Lon: -59.5430, Lat: 13.0670},
		},
		DistanceKm: 8.2,
	}
}

func TestAddVehiclePromotesHead(t *testing.T) {
	m := NewManager("test-depot", nil)

	pos, ok := m.AddVehicle("ZR-101", 11)
	require.True(t, ok)
	assert.Equal(t, 1, pos)

	status, ok := m.Status("ZR-101")
	require.True(t, ok)
	assert.Equal(t, core.StateLoading, status.State)
	assert.Equal(t, "ZR-101", m.ActiveLoadingVehicle())

	pos, ok = m.AddVehicle("ZR-102", 11)
	require.True(t, ok)
	assert.Equal(t, 2, pos)

	status, _ = m.Status("ZR-102")
	assert.Equal(t, core.StateQueued, status.State)
}

func TestAddVehicleRejectsDuplicatesAndBadCapacity(t *testing.T) {
	m := NewManager("test-depot", nil)

	_, ok := m.AddVehicle("ZR-101", 11)
	require.True(t, ok)

	_, ok = m.AddVehicle("ZR-101", 11)
	assert.False(t, ok)

	_, ok = m.AddVehicle("ZR-102", 0)
	assert.False(t, ok)
}

func TestBoardPassengersCapsAtCapacity(t *testing.T) {
	m := NewManager("test-depot", nil)
	m.AddVehicle("ZR-101", 11)

	full := m.BoardPassengers("ZR-101", 8)
	assert.False(t, full)

	// 8 + 9 would overflow; excess is discarded.
	full = m.BoardPassengers("ZR-101", 9)
	assert.True(t, full)

	status, _ := m.Status("ZR-101")
	assert.Equal(t, 11, status.Passengers)
	assert.Equal(t, core.StateFull, status.State)
}

func TestBoardPassengersOnlyActiveLoading(t *testing.T) {
	m := NewManager("test-depot", nil)
	m.AddVehicle("ZR-101", 11)
	m.AddVehicle("ZR-102", 11)

	assert.False(t, m.BoardPassengers("ZR-102", 3), "queued vehicle must not board")
	assert.False(t, m.BoardPassengers("ZR-999", 3), "unknown vehicle must not board")
	assert.False(t, m.BoardPassengers("ZR-101", -1))
}

// Scenario from the depot loading procedure: three vans of 11 seats,
// boarded in batches of 4, 4 and 3.
func TestLoadingHandoverSequence(t *testing.T) {
	m := NewManager("test-depot", nil)
	m.AddVehicle("ZR-101", 11)
	m.AddVehicle("ZR-102", 11)
	m.AddVehicle("ZR-103", 11)

	assert.Equal(t, "ZR-101", m.ActiveLoadingVehicle())
	assert.False(t, m.BoardPassengers("ZR-101", 4))
	assert.False(t, m.BoardPassengers("ZR-101", 4))
	assert.True(t, m.BoardPassengers("ZR-101", 3))

	// The filling call hands the loading slot straight to the next queued
	// vehicle; the FULL vehicle waits in the queue for its route.
	assert.Equal(t, "ZR-102", m.ActiveLoadingVehicle())
	status, _ := m.Status("ZR-101")
	assert.Equal(t, core.StateFull, status.State)
	assert.Equal(t, 1, status.QueuePosition)

	// Boarding continues on the new loading vehicle during the dispatch
	// round-trip.
	assert.False(t, m.BoardPassengers("ZR-102", 5))
	assert.False(t, m.BoardPassengers("ZR-101", 1), "full vehicle must not board")

	require.True(t, m.DispatchVehicle("ZR-101", testRoute()))
	assert.Equal(t, "ZR-102", m.ActiveLoadingVehicle())

	status, _ = m.Status("ZR-102")
	assert.Equal(t, core.StateLoading, status.State)
	assert.Equal(t, 5, status.Passengers)
	assert.Equal(t, 1, status.QueuePosition)
}

func TestDispatchVehicleRequiresFull(t *testing.T) {
	m := NewManager("test-depot", nil)
	m.AddVehicle("ZR-101", 11)

	assert.False(t, m.DispatchVehicle("ZR-101", testRoute()), "loading vehicle is not dispatchable")
	assert.False(t, m.DispatchVehicle("ZR-999", testRoute()))

	m.BoardPassengers("ZR-101", 11)
	assert.False(t, m.DispatchVehicle("ZR-101", nil), "dispatch needs a route")
	require.True(t, m.DispatchVehicle("ZR-101", testRoute()))

	status, _ := m.Status("ZR-101")
	assert.Equal(t, core.StateDispatched, status.State)
	assert.True(t, status.EngineOn)
	assert.Equal(t, "RT-1", status.RouteID)
	assert.Equal(t, "Oistins", status.Destination)
	assert.Equal(t, 0, status.QueuePosition)
	assert.False(t, status.JourneyStartTime.IsZero())
	assert.Equal(t, 0, m.QueueLength())
}

func TestVehicleCompletedJourneyRequeuesAtTail(t *testing.T) {
	m := NewManager("test-depot", nil)
	m.AddVehicle("ZR-101", 11)
	m.AddVehicle("ZR-102", 11)
	m.AddVehicle("ZR-103", 11)

	m.BoardPassengers("ZR-101", 11)
	require.True(t, m.DispatchVehicle("ZR-101", testRoute()))

	require.True(t, m.VehicleCompletedJourney("ZR-101"))

	status, _ := m.Status("ZR-101")
	assert.Equal(t, core.StateQueued, status.State)
	assert.Equal(t, 0, status.Passengers)
	assert.False(t, status.EngineOn)
	assert.Empty(t, status.RouteID)

	// New position is higher than every vehicle that was already queued.
	for _, other := range []string{"ZR-102", "ZR-103"} {
		otherStatus, _ := m.Status(other)
		assert.Greater(t, status.QueuePosition, otherStatus.QueuePosition)
	}
}

func TestVehicleCompletedJourneyInvalidStates(t *testing.T) {
	m := NewManager("test-depot", nil)
	m.AddVehicle("ZR-101", 11)

	assert.False(t, m.VehicleCompletedJourney("ZR-101"), "loading vehicle cannot complete")
	assert.False(t, m.VehicleCompletedJourney("ZR-999"))
}

func TestApplyNavigationStateMapping(t *testing.T) {
	m := NewManager("test-depot", nil)
	m.AddVehicle("ZR-101", 11)
	m.BoardPassengers("ZR-101", 11)
	require.True(t, m.DispatchVehicle("ZR-101", testRoute()))

	cases := []struct {
		nav  core.NavigationState
		want core.VehicleState
	}{
		{core.NavEnRoute, core.StateEnRoute},
		{core.NavAtStop, core.StateEnRoute},
		{core.NavAtDestination, core.StateAtDestination},
		{core.NavLoitering, core.StateAtDestination},
		{core.NavReturning, core.StateReturning},
		{core.NavApproachingDepot, core.StateReturning},
		{core.NavEngineStopping, core.StateCompleting},
	}
	for _, tc := range cases {
		require.True(t, m.ApplyNavigationState("ZR-101", tc.nav))
		status, _ := m.Status("ZR-101")
		assert.Equal(t, tc.want, status.State, "nav state %s", tc.nav)
	}

	status, _ := m.Status("ZR-101")
	assert.False(t, status.EngineOn, "COMPLETING clears engine_on")
}

// Transitions from a finished cycle can still arrive after the vehicle
// has rejoined the queue; they must not drag it out of the queue states
// or wedge the loading slot.
func TestApplyNavigationStateIgnoresRequeuedVehicle(t *testing.T) {
	m := NewManager("test-depot", nil)
	m.AddVehicle("ZR-101", 11)
	m.AddVehicle("ZR-102", 11)

	m.BoardPassengers("ZR-101", 11)
	require.True(t, m.DispatchVehicle("ZR-101", testRoute()))
	require.True(t, m.VehicleCompletedJourney("ZR-101"))

	for _, nav := range []core.NavigationState{
		core.NavEngineStopping, core.NavReturning, core.NavEnRoute,
	} {
		assert.False(t, m.ApplyNavigationState("ZR-101", nav), "nav state %s", nav)
	}

	status, _ := m.Status("ZR-101")
	assert.Equal(t, core.StateQueued, status.State)
	assert.Equal(t, "ZR-102", m.ActiveLoadingVehicle())

	// The stale transitions must not block the vehicle's next cycle.
	m.BoardPassengers("ZR-102", 11)
	require.True(t, m.DispatchVehicle("ZR-102", testRoute()))
	assert.Equal(t, "ZR-101", m.ActiveLoadingVehicle())
}

// A vehicle stuck in FULL (e.g. after an undeliverable full notice) must
// not block the rest of the queue from loading.
func TestFullVehicleDoesNotStallBoarding(t *testing.T) {
	m := NewManager("test-depot", nil)
	m.AddVehicle("ZR-101", 11)
	m.AddVehicle("ZR-102", 11)
	m.AddVehicle("ZR-103", 11)

	m.BoardPassengers("ZR-101", 11)
	assert.Equal(t, "ZR-102", m.ActiveLoadingVehicle())

	// Second vehicle fills too while the first still awaits a route.
	m.BoardPassengers("ZR-102", 11)
	assert.Equal(t, "ZR-103", m.ActiveLoadingVehicle())

	status, _ := m.Status("ZR-101")
	assert.Equal(t, core.StateFull, status.State)
	status, _ = m.Status("ZR-102")
	assert.Equal(t, core.StateFull, status.State)

	// Routes arrive out of order; each dispatch leaves the slot with the
	// still-loading vehicle.
	require.True(t, m.DispatchVehicle("ZR-102", testRoute()))
	require.True(t, m.DispatchVehicle("ZR-101", testRoute()))
	assert.Equal(t, "ZR-103", m.ActiveLoadingVehicle())
	assert.Equal(t, 1, m.QueueLength())
}

func TestAtMostOneLoadingInvariant(t *testing.T) {
	m := NewManager("test-depot", nil)
	for _, id := range []string{"ZR-101", "ZR-102", "ZR-103", "ZR-104"} {
		m.AddVehicle(id, 11)
	}

	// Cycle two vehicles through full lifecycles and check the invariant
	// at every snapshot.
	for cycle := 0; cycle < 2; cycle++ {
		active := m.ActiveLoadingVehicle()
		m.BoardPassengers(active, 11)
		m.DispatchVehicle(active, testRoute())
		m.VehicleCompletedJourney(active)

		loading := 0
		for _, status := range m.Snapshot() {
			if status.State == core.StateLoading {
				loading++
			}
		}
		assert.LessOrEqual(t, loading, 1)
	}
}

func TestSnapshotQueueOrder(t *testing.T) {
	m := NewManager("test-depot", nil)
	m.AddVehicle("ZR-101", 11)
	m.AddVehicle("ZR-102", 11)
	m.BoardPassengers("ZR-101", 11)
	m.DispatchVehicle("ZR-101", testRoute())

	snap := m.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "ZR-102", snap[0].VehicleID, "queued vehicles come first")
	assert.Equal(t, "ZR-101", snap[1].VehicleID)
}
