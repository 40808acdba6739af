package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRouteData(t *testing.T) {
	svc := NewService(nil)

	data := []byte(`{
		"route_id": "RT-1",
		"route_name": "Bridgetown - Oistins",
		"origin": "Bridgetown River Terminal",
		"destination": "Oistins",
		"coordinates": [[-59.6132, 13.0969], [-59.5800, 13.0800], [-59.5430, 13.0670]],
		"stops": [{"name": "Hastings", "lat": 13.0800, "lon": -59.5800}],
		"distance_km": 11.4
	}`)

	route, err := svc.ParseRouteData(data)
	require.NoError(t, err)
	assert.Equal(t, "RT-1", route.RouteID)
	assert.Equal(t, "Oistins", route.Destination)
	require.Len(t, route.Coordinates, 3)
	assert.Equal(t, -59.6132, route.Coordinates[0].Lon)
	assert.Equal(t, 13.0969, route.Coordinates[0].Lat)
	require.Len(t, route.Stops, 1)
	assert.Equal(t, "Hastings", route.Stops[0].Name)
	assert.InDelta(t, 11.4, route.DistanceKm, 1e-9)
}

// The authority's serializer sometimes quotes numbers; decoding must
// tolerate both forms in the same document.
func TestParseRouteDataNumericStrings(t *testing.T) {
	svc := NewService(nil)

	data := []byte(`{
		"route_id": "RT-2",
		"coordinates": [["-59.61", "13.09"], [-59.54, "13.067"]],
		"stops": [{"name": "Gap", "lat": "13.07", "lon": "-59.58"}],
		"distance_km": "8.00"
	}`)

	route, err := svc.ParseRouteData(data)
	require.NoError(t, err)
	assert.Equal(t, -59.61, route.Coordinates[0].Lon)
	assert.Equal(t, 13.067, route.Coordinates[1].Lat)
	assert.Equal(t, 8.0, route.DistanceKm)
	assert.Equal(t, -59.58, route.Stops[0].Lon)
}

func TestParseRouteDataRejections(t *testing.T) {
	svc := NewService(nil)

	cases := []struct {
		name string
		data string
	}{
		{"not json", `{{`},
		{"missing route_id", `{"coordinates": [[-59.6, 13.0], [-59.5, 13.1]]}`},
		{"single point", `{"route_id": "RT-3", "coordinates": [[-59.6, 13.0]]}`},
		{"short pair", `{"route_id": "RT-4", "coordinates": [[-59.6, 13.0], [-59.5]]}`},
		{"non-numeric", `{"route_id": "RT-5", "coordinates": [[-59.6, 13.0], [-59.5, "north"]]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			route, err := svc.ParseRouteData([]byte(tc.data))
			assert.Error(t, err)
			assert.Nil(t, route)
		})
	}
}

func TestParseFloatLoose(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want float64
	}{
		{"11", 11},
		{"11.00", 11},
		{`"11.00"`, 11},
		{`"-59.6132"`, -59.6132},
	} {
		got, err := parseFloatLoose(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := parseFloatLoose(`"oistins"`)
	assert.Error(t, err)
}
