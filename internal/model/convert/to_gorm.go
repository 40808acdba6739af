// Package convert provides functions to convert runtime core values into
// GORM models for the storage sinks.
package convert

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/zrfleet/depotsim/internal/geo"
	"github.com/zrfleet/depotsim/internal/model"
	"github.com/zrfleet/depotsim/pkg/core"
)

// jsonOrEmpty marshals v, falling back to an empty JSON array.
func jsonOrEmpty(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(data)
}

// CoreToVehicle converts a registered core.Vehicle to a GORM model.Vehicle.
func CoreToVehicle(v core.Vehicle, serviceDayID uint, joinTime time.Time) model.Vehicle {
	return model.Vehicle{
		ServiceDayID: serviceDayID,
		Registration: v.Registration,
		JoinTime:     joinTime,
		Callsign:     v.Callsign,
		Capacity:     v.Capacity,
	}
}

// RouteToModel converts an authority route descriptor to a GORM model.Route.
// Polyline and stops are stored as JSON documents.
func RouteToModel(r core.RouteDescriptor) model.Route {
	return model.Route{
		RouteID:     r.RouteID,
		RouteName:   r.RouteName,
		Origin:      r.Origin,
		Destination: r.Destination,
		Polyline:    jsonOrEmpty(r.Coordinates),
		Stops:       jsonOrEmpty(r.Stops),
		DistanceKm:  r.DistanceKm,
	}
}

// StatusToStateRow converts a depot vehicle status into a state row.
func StatusToStateRow(status core.VehicleStatus, nav core.NavigationState, serviceDayID uint) model.VehicleStateRow {
	pos := status.QueuePosition
	if pos == 0 {
		pos = -1
	}
	return model.VehicleStateRow{
		Time:          time.Now().UTC(),
		ServiceDayID:  serviceDayID,
		Registration:  status.VehicleID,
		State:         string(status.State),
		NavState:      string(nav),
		Passengers:    status.Passengers,
		EngineOn:      status.EngineOn,
		QueuePosition: pos,
		RouteID:       status.RouteID,
	}
}

// SampleToPositionRecord converts a navigation position sample into a
// position record, projecting the fix from EPSG:4326 to EPSG:3857.
func SampleToPositionRecord(sample core.PositionSample, routeID string, nav core.NavigationState, serviceDayID uint) (model.PositionRecord, error) {
	point, err := geo.Coords3857From4326(sample.Lon, sample.Lat)
	if err != nil {
		return model.PositionRecord{}, err
	}
	return model.PositionRecord{
		Time:         sample.Time,
		ServiceDayID: serviceDayID,
		Registration: sample.VehicleID,
		Tick:         sample.Tick,
		Position:     point,
		BearingDeg:   uint16(sample.BearingDeg),
		SpeedKph:     float32(sample.SpeedKph),
		DistanceKm:   float32(sample.DistanceKm),
		Progress:     float32(sample.Progress),
		Leg:          sample.Leg,
		RouteID:      routeID,
		NavState:     string(nav),
	}, nil
}

// SummaryToJourney converts a journey summary into a journey row.
func SummaryToJourney(summary core.JourneySummary, serviceDayID uint) model.Journey {
	return model.Journey{
		Time:         summary.CompletedAt,
		ServiceDayID: serviceDayID,
		Registration: summary.VehicleID,
		RouteID:      summary.RouteID,
		Passengers:   summary.Passengers,
		DepartedAt:   summary.DepartedAt,
		CompletedAt:  summary.CompletedAt,
		DurationSec:  summary.CompletedAt.Sub(summary.DepartedAt).Seconds(),
		Forced:       summary.Forced,
	}
}

// BoardingToModel builds a boarding event row.
func BoardingToModel(vehicleID string, count, totalOnBoard, capacity int, serviceDayID uint) model.BoardingEvent {
	return model.BoardingEvent{
		Time:         time.Now().UTC(),
		ServiceDayID: serviceDayID,
		Registration: vehicleID,
		Count:        count,
		TotalOnBoard: totalOnBoard,
		Capacity:     capacity,
		BecameFull:   totalOnBoard >= capacity,
	}
}
