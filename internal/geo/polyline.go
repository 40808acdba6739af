package geo

import (
	"encoding/json"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/zrfleet/depotsim/pkg/core"
)

// ParsePolyline parses a JSON array of coordinates into a geom.LineString.
// Input format: "[[lon1,lat1],[lon2,lat2],...]"
func ParsePolyline(input string) (geom.LineString, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return geom.LineString{}, fmt.Errorf("failed to parse polyline JSON: %w", err)
	}

	if len(coords) < 2 {
		return geom.LineString{}, fmt.Errorf("polyline must have at least 2 points, got %d", len(coords))
	}

	// Build coordinate sequence for LineString
	flatCoords := make([]float64, 0, len(coords)*2)
	for i, coord := range coords {
		if len(coord) < 2 {
			return geom.LineString{}, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		flatCoords = append(flatCoords, coord[0], coord[1])
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	ls := geom.NewLineString(seq)

	return ls, nil
}

// ParsePolylineLonLat parses a JSON array of coordinates into an ordered
// []core.LonLat, longitude first.
// Input format: "[[lon1,lat1],[lon2,lat2],...]"
func ParsePolylineLonLat(input string) ([]core.LonLat, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse polyline JSON: %w", err)
	}

	if len(coords) < 2 {
		return nil, fmt.Errorf("polyline must have at least 2 points, got %d", len(coords))
	}

	polyline := make([]core.LonLat, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		polyline[i] = core.LonLat{Lon: coord[0], Lat: coord[1]}
	}

	return polyline, nil
}
