package core

import (
	"encoding/json"
	"fmt"
)

// LonLat is a polyline vertex. The wire form is a two-element array with
// longitude first, matching the dispatch authority's route_data shape.
type LonLat struct {
	Lon float64
	Lat float64
}

// MarshalJSON encodes the vertex as [lon, lat].
func (p LonLat) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lon, p.Lat})
}

// UnmarshalJSON decodes a [lon, lat] array.
func (p *LonLat) UnmarshalJSON(data []byte) error {
	var a []float64
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("coordinate pair: %w", err)
	}
	if len(a) < 2 {
		return fmt.Errorf("coordinate pair has %d elements, want 2", len(a))
	}
	p.Lon, p.Lat = a[0], a[1]
	return nil
}

// Stop is a named boarding point along a route.
type Stop struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// RouteDescriptor describes one assignable route. Supplied by the dispatch
// authority; immutable once loaded into a navigation engine for the
// duration of a cycle.
type RouteDescriptor struct {
	RouteID     string   `json:"route_id"`
	RouteName   string   `json:"route_name"`
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	Coordinates []LonLat `json:"coordinates"`
	Stops       []Stop   `json:"stops,omitempty"`
	DistanceKm  float64  `json:"distance_km"`
}
