package geo

import (
	"fmt"

	"github.com/zrfleet/depotsim/pkg/core"
)

// Path is a precomputed route polyline: vertices with cumulative distances
// at each vertex. A Path is immutable after construction.
type Path struct {
	vertices []core.LonLat
	cum      []float64
	totalKm  float64
}

// NewPath builds a Path from an ordered polyline. Polylines with fewer than
// 2 vertices are rejected.
func NewPath(vertices []core.LonLat) (*Path, error) {
	if len(vertices) < 2 {
		return nil, fmt.Errorf("polyline must have at least 2 points, got %d", len(vertices))
	}
	owned := make([]core.LonLat, len(vertices))
	copy(owned, vertices)
	cum := CumulativeDistances(owned)
	return &Path{
		vertices: owned,
		cum:      cum,
		totalKm:  cum[len(cum)-1],
	}, nil
}

// TotalKm returns the total length of the path.
func (p *Path) TotalKm() float64 {
	return p.totalKm
}

// Start returns the first vertex.
func (p *Path) Start() core.LonLat {
	return p.vertices[0]
}

// End returns the last vertex.
func (p *Path) End() core.LonLat {
	return p.vertices[len(p.vertices)-1]
}

// Locate maps a distance along the path to an interpolated position, the
// bearing of the active segment, the segment index, and whether the end of
// the path has been reached. Distances beyond the total clamp to the final
// vertex. Monotonically increasing distance maps to non-decreasing
// positions.
func (p *Path) Locate(distanceKm float64) (pos core.LonLat, bearingDeg float64, segment int, complete bool) {
	last := len(p.vertices) - 1
	if distanceKm >= p.totalKm {
		return p.vertices[last], InitialBearing(p.vertices[last-1], p.vertices[last]), last - 1, true
	}
	if distanceKm <= 0 {
		return p.vertices[0], InitialBearing(p.vertices[0], p.vertices[1]), 0, false
	}

	// Find the segment containing distanceKm. Zero-length segments are
	// skipped by the strict comparison.
	seg := 0
	for i := 1; i <= last; i++ {
		if distanceKm < p.cum[i] {
			seg = i - 1
			break
		}
	}

	a, b := p.vertices[seg], p.vertices[seg+1]
	segLen := p.cum[seg+1] - p.cum[seg]
	f := 0.0
	if segLen > 0 {
		f = (distanceKm - p.cum[seg]) / segLen
	}
	return Interpolate(a, b, f), InitialBearing(a, b), seg, false
}

// Progress returns the fraction of the path covered at distanceKm, clamped
// to [0, 1].
func (p *Path) Progress(distanceKm float64) float64 {
	if p.totalKm <= 0 || distanceKm >= p.totalKm {
		return 1
	}
	if distanceKm <= 0 {
		return 0
	}
	return distanceKm / p.totalKm
}

// Reverse returns a new Path with the vertex order reversed, the return leg
// of an out-and-back journey.
func (p *Path) Reverse() *Path {
	rev := make([]core.LonLat, len(p.vertices))
	for i, v := range p.vertices {
		rev[len(p.vertices)-1-i] = v
	}
	cum := CumulativeDistances(rev)
	return &Path{
		vertices: rev,
		cum:      cum,
		totalKm:  cum[len(cum)-1],
	}
}

// NearestStop returns the index of the stop closest to p and its distance
// in kilometers. Returns -1 when the stop list is empty.
func NearestStop(p core.LonLat, stops []core.Stop) (int, float64) {
	minIdx, minDist := -1, 0.0
	for i, s := range stops {
		d := Haversine(p, core.LonLat{Lon: s.Lon, Lat: s.Lat})
		if minIdx == -1 || d < minDist {
			minIdx = i
			minDist = d
		}
	}
	return minIdx, minDist
}
