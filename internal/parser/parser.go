// Package parser decodes route_data payloads from the dispatch authority.
// The wire format is loose: numbers may arrive as JSON numbers or as
// quoted numeric strings, so every numeric field goes through a tolerant
// parse before validation.
package parser

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/zrfleet/depotsim/internal/util"
	"github.com/zrfleet/depotsim/pkg/core"
)

// looseFloat accepts a JSON number or a numeric string ("11", "11.00").
type looseFloat float64

// UnmarshalJSON implements the tolerant decode.
func (f *looseFloat) UnmarshalJSON(data []byte) error {
	v, err := parseFloatLoose(string(data))
	if err != nil {
		return err
	}
	*f = looseFloat(v)
	return nil
}

// parseFloatLoose parses a raw JSON token that is either a number or a
// quoted numeric string.
func parseFloatLoose(s string) (float64, error) {
	s = util.TrimQuotes(util.FixEscapeQuotes(s))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parseFloatLoose: %q is not numeric", s)
	}
	return v, nil
}

// rawRoute mirrors the authority's route_data shape before validation.
type rawRoute struct {
	RouteID     string         `json:"route_id"`
	RouteName   string         `json:"route_name"`
	Origin      string         `json:"origin"`
	Destination string         `json:"destination"`
	Coordinates [][]looseFloat `json:"coordinates"`
	Stops       []rawStop      `json:"stops"`
	DistanceKm  looseFloat     `json:"distance_km"`
}

type rawStop struct {
	Name string     `json:"name"`
	Lat  looseFloat `json:"lat"`
	Lon  looseFloat `json:"lon"`
}

// Service converts route_data payloads into validated route descriptors.
type Service struct {
	logger *slog.Logger
}

// NewService creates a parser service.
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ParseRouteData decodes and validates one route_data document. Rejected
// documents never produce a partial route.
func (s *Service) ParseRouteData(data []byte) (*core.RouteDescriptor, error) {
	var raw rawRoute
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error unmarshalling route_data: %w", err)
	}

	if raw.RouteID == "" {
		return nil, fmt.Errorf("route_data missing route_id")
	}
	if len(raw.Coordinates) < 2 {
		return nil, fmt.Errorf("route %s polyline has %d points, need at least 2", raw.RouteID, len(raw.Coordinates))
	}

	coords := make([]core.LonLat, len(raw.Coordinates))
	for i, pair := range raw.Coordinates {
		if len(pair) < 2 {
			return nil, fmt.Errorf("route %s coordinate %d has %d elements, want 2", raw.RouteID, i, len(pair))
		}
		coords[i] = core.LonLat{Lon: float64(pair[0]), Lat: float64(pair[1])}
	}

	stops := make([]core.Stop, 0, len(raw.Stops))
	for _, st := range raw.Stops {
		stops = append(stops, core.Stop{
			Name: st.Name,
			Lat:  float64(st.Lat),
			Lon:  float64(st.Lon),
		})
	}

	route := &core.RouteDescriptor{
		RouteID:     raw.RouteID,
		RouteName:   raw.RouteName,
		Origin:      raw.Origin,
		Destination: raw.Destination,
		Coordinates: coords,
		Stops:       stops,
		DistanceKm:  float64(raw.DistanceKm),
	}

	s.logger.Debug("Parsed route data",
		"route", route.RouteID,
		"points", len(route.Coordinates),
		"stops", len(route.Stops))
	return route, nil
}
