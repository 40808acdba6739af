package convert

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zrfleet/depotsim/pkg/core"
)

func TestRouteToModel(t *testing.T) {
	route := core.RouteDescriptor{
		RouteID:     "ZR-11",
		RouteName:   "Bridgetown - Oistins",
		Origin:      "Bridgetown River Terminal",
		Destination: "Oistins",
		Coordinates: []core.LonLat{
			{Lon: -59.6132, Lat: 13.0969},
			{Lon: -59.5430, Lat: 13.0670},
		},
		Stops:      []core.Stop{{Name: "Hastings", Lat: 13.081, Lon: -59.59}},
		DistanceKm: 9.1,
	}

	row := RouteToModel(route)
	assert.Equal(t, "ZR-11", row.RouteID)
	assert.Equal(t, "Oistins", row.Destination)
	assert.InDelta(t, 9.1, row.DistanceKm, 1e-9)

	// Polyline JSON must round-trip as [lon,lat] pairs.
	var pairs [][]float64
	require.NoError(t, json.Unmarshal(row.Polyline, &pairs))
	require.Len(t, pairs, 2)
	assert.Equal(t, -59.6132, pairs[0][0])
	assert.Equal(t, 13.0969, pairs[0][1])

	var stops []core.Stop
	require.NoError(t, json.Unmarshal(row.Stops, &stops))
	require.Len(t, stops, 1)
	assert.Equal(t, "Hastings", stops[0].Name)
}

func TestStatusToStateRow(t *testing.T) {
	status := core.VehicleStatus{
		VehicleID:     "ZR-101",
		State:         core.StateLoading,
		Passengers:    5,
		Capacity:      14,
		QueuePosition: 1,
		EngineOn:      false,
	}

	row := StatusToStateRow(status, core.NavIdle, 7)
	assert.Equal(t, uint(7), row.ServiceDayID)
	assert.Equal(t, "ZR-101", row.Registration)
	assert.Equal(t, "LOADING", row.State)
	assert.Equal(t, "IDLE", row.NavState)
	assert.Equal(t, 1, row.QueuePosition)

	// Unqueued vehicles store -1, not 0.
	status.QueuePosition = 0
	row = StatusToStateRow(status, core.NavEnRoute, 7)
	assert.Equal(t, -1, row.QueuePosition)
}

func TestSampleToPositionRecord(t *testing.T) {
	sample := core.PositionSample{
		VehicleID:  "ZR-102",
		Tick:       42,
		Lat:        13.0969,
		Lon:        -59.6132,
		BearingDeg: 118.4,
		Progress:   0.25,
		SpeedKph:   38.5,
		DistanceKm: 2.3,
		Leg:        core.LegOutbound,
		Time:       time.Now().UTC(),
	}

	row, err := SampleToPositionRecord(sample, "ZR-11", core.NavEnRoute, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), row.Tick)
	assert.Equal(t, uint16(118), row.BearingDeg)
	assert.Equal(t, "outbound", row.Leg)
	assert.Equal(t, "EN_ROUTE", row.NavState)

	// Projected, so well outside lon/lat ranges.
	coord, ok := row.Position.Coordinates()
	require.True(t, ok)
	assert.Less(t, coord.XY.X, -6_000_000.0)
	assert.Greater(t, coord.XY.Y, 1_000_000.0)
}

func TestSummaryToJourney(t *testing.T) {
	departed := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	completed := departed.Add(42 * time.Minute)

	row := SummaryToJourney(core.JourneySummary{
		VehicleID:   "ZR-103",
		RouteID:     "ZR-1",
		Passengers:  14,
		DepartedAt:  departed,
		CompletedAt: completed,
		Forced:      false,
	}, 9)

	assert.Equal(t, "ZR-103", row.Registration)
	assert.InDelta(t, 2520, row.DurationSec, 1e-9)
	assert.False(t, row.Forced)
}

func TestBoardingToModel(t *testing.T) {
	row := BoardingToModel("ZR-104", 3, 14, 14, 2)
	assert.Equal(t, 3, row.Count)
	assert.True(t, row.BecameFull)

	row = BoardingToModel("ZR-104", 2, 9, 14, 2)
	assert.False(t, row.BecameFull)
}
