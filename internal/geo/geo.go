package geo

import (
	"errors"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/zrfleet/depotsim/pkg/core"
)

// GEO POINTS
// Stored positions always use EPSG:3857, because SQLite has no spatial
// awareness and we need to be able to interpret point data from strings
// during backup migrations using the inherent Scan function. Geometry data
// is stored in the WKB format.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Coord3857FromString parses a string in the format "x,y" or "x,y,elev"
// (already projected) into a point, and returns the elevation separately
func Coord3857FromString(
	coords string,
) (
	point geom.Point,
	elev float64,
	err error,
) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return geom.NewEmptyPoint(geom.DimXYZ), 0, ErrInvalidCoordinates
	}
	x, err := strconv.ParseFloat(coordsSplit[0], 64)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXYZ), 0, ErrInvalidCoordinates
	}
	y, err := strconv.ParseFloat(coordsSplit[1], 64)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXYZ), 0, ErrInvalidCoordinates
	}
	if len(coordsSplit) > 2 {
		elev, err = strconv.ParseFloat(coordsSplit[2], 64)
		if err != nil {
			return geom.NewEmptyPoint(geom.DimXYZ), 0, ErrInvalidCoordinates
		}
	}
	point = geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: x, Y: y},
			Z:    elev,
			Type: geom.CoordinatesType(geom.DimXYZ),
		},
	)
	return point, elev, nil
}

// LonLatFromString parses a "lon,lat" string into a core.LonLat. Used for
// configured fixed positions such as the depot terminal.
func LonLatFromString(coords string) (core.LonLat, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return core.LonLat{}, ErrInvalidCoordinates
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.LonLat{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.LonLat{}, ErrInvalidCoordinates
	}
	return core.LonLat{Lon: lon, Lat: lat}, nil
}

// Coords3857From4326 creates a stored point from a longitude and latitude
func Coords3857From4326(
	longitude float64,
	latitude float64,
) (
	point geom.Point,
	err error,
) {
	var x, y float64
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ = f(longitude, latitude, 0)
	point = geom.NewPoint(
		geom.Coordinates{
			XY: geom.XY{X: x, Y: y},
			Z:  0,
		},
	)
	return point, nil
}
