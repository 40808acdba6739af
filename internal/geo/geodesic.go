package geo

import (
	"math"

	"github.com/zrfleet/depotsim/pkg/core"
)

// earthRadiusKm is the mean Earth radius used for all great-circle math.
const earthRadiusKm = 6371.0

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Haversine returns the great-circle distance in kilometers between two
// points.
func Haversine(a, b core.LonLat) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// InitialBearing returns the initial great-circle bearing in degrees
// (0..360, clockwise from north) from a to b.
func InitialBearing(a, b core.LonLat) float64 {
	phi1 := toRad(a.Lat)
	phi2 := toRad(b.Lat)
	deltaLon := toRad(b.Lon - a.Lon)

	y := math.Sin(deltaLon) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(deltaLon)

	theta := math.Atan2(y, x)
	return math.Mod(toDeg(theta)+360, 360)
}

// CumulativeDistances returns the running distance in kilometers at each
// vertex of the polyline. Index 0 is always 0; the last entry is the total
// length.
func CumulativeDistances(vertices []core.LonLat) []float64 {
	cum := make([]float64, len(vertices))
	for i := 1; i < len(vertices); i++ {
		cum[i] = cum[i-1] + Haversine(vertices[i-1], vertices[i])
	}
	return cum
}

// Interpolate returns the point a fraction f (0..1) of the way along the
// great circle from a to b. Near-coincident endpoints fall back to a linear
// blend, since the spherical formula divides by the sine of the angular
// distance.
func Interpolate(a, b core.LonLat, f float64) core.LonLat {
	if f <= 0 {
		return a
	}
	if f >= 1 {
		return b
	}

	phi1 := toRad(a.Lat)
	lam1 := toRad(a.Lon)
	phi2 := toRad(b.Lat)
	lam2 := toRad(b.Lon)

	// Angular distance between the endpoints
	d := Haversine(a, b) / earthRadiusKm
	sinD := math.Sin(d)
	if sinD < 1e-9 {
		return core.LonLat{
			Lon: a.Lon + (b.Lon-a.Lon)*f,
			Lat: a.Lat + (b.Lat-a.Lat)*f,
		}
	}

	fA := math.Sin((1-f)*d) / sinD
	fB := math.Sin(f*d) / sinD

	x := fA*math.Cos(phi1)*math.Cos(lam1) + fB*math.Cos(phi2)*math.Cos(lam2)
	y := fA*math.Cos(phi1)*math.Sin(lam1) + fB*math.Cos(phi2)*math.Sin(lam2)
	z := fA*math.Sin(phi1) + fB*math.Sin(phi2)

	lat := math.Atan2(z, math.Sqrt(x*x+y*y))
	lon := math.Atan2(y, x)

	return core.LonLat{Lon: toDeg(lon), Lat: toDeg(lat)}
}
