// Package geometry is the kernel every spatial computation goes through.
//
// Geometries are orb values in WGS84 longitude/latitude order. Topological
// predicates (Intersects, Covers) are evaluated in coordinate space, the way a
// spatial database evaluates them on geometry columns. Metric operations
// (distance, area, buffering) are geodesic on a sphere of radius orb.EarthRadius,
// so a buffer near the pole has the same metric radius as one at the equator.
//
// Geometries crossing the antimeridian are not supported.
package geometry

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/mr1hm/go-disaster-impact/internal/engineerr"
)

// Validate reports an InvalidGeometry error for anything the kernel cannot
// compute on: nil or empty geometries, NaN or out-of-range coordinates,
// rings that are too short, not closed or self-intersecting, and multipolygons
// whose parts overlap. Parts may touch along edges or at vertices.
func Validate(g orb.Geometry) error {
	switch g := g.(type) {
	case nil:
		return engineerr.InvalidGeometry("validate", "geometry is nil")
	case orb.Point:
		return validatePoint(g)
	case orb.MultiPoint:
		if len(g) == 0 {
			return engineerr.InvalidGeometry("validate", "empty multipoint")
		}
		for _, p := range g {
			if err := validatePoint(p); err != nil {
				return err
			}
		}
		return nil
	case orb.Polygon:
		return validatePolygon(g)
	case orb.MultiPolygon:
		if len(g) == 0 {
			return engineerr.InvalidGeometry("validate", "empty multipolygon")
		}
		for _, p := range g {
			if err := validatePolygon(p); err != nil {
				return err
			}
		}
		for i := range g {
			for j := i + 1; j < len(g); j++ {
				if polygonsOverlap(g[i], g[j]) {
					return engineerr.InvalidGeometry("validate", "multipolygon parts %d and %d overlap", i, j)
				}
			}
		}
		return nil
	default:
		return engineerr.InvalidGeometry("validate", "unsupported geometry type %s", g.GeoJSONType())
	}
}

func validatePoint(p orb.Point) error {
	lon, lat := p[0], p[1]
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return engineerr.InvalidGeometry("validate", "non-finite coordinate %v", p)
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return engineerr.InvalidGeometry("validate", "coordinate out of range %v", p)
	}
	return nil
}

func validatePolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return engineerr.InvalidGeometry("validate", "polygon has no rings")
	}
	for i, r := range p {
		if err := validateRing(r); err != nil {
			if i > 0 {
				return engineerr.InvalidGeometry("validate", "hole %d: %v", i, err)
			}
			return err
		}
	}
	return nil
}

func validateRing(r orb.Ring) error {
	if len(r) < 4 {
		return engineerr.InvalidGeometry("validate", "ring has %d points, need at least 4", len(r))
	}
	for _, pt := range r {
		if err := validatePoint(pt); err != nil {
			return err
		}
	}
	if r[0] != r[len(r)-1] {
		return engineerr.InvalidGeometry("validate", "ring is not closed")
	}

	// Edges i and j share a vertex when adjacent; every other pair must be disjoint.
	edges := len(r) - 1
	for i := 0; i < edges; i++ {
		a1, a2 := r[i], r[i+1]
		for j := i + 1; j < edges; j++ {
			if j == i+1 || (i == 0 && j == edges-1) {
				continue
			}
			if segmentsIntersect(a1, a2, r[j], r[j+1]) {
				return engineerr.InvalidGeometry("validate", "ring self-intersects at edges %d and %d", i, j)
			}
		}
	}
	return nil
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }

// orient is twice the signed area of triangle abc; positive when c lies left of ab.
func orient(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// onSegment assumes p is collinear with ab.
func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

// segmentsIntersect includes touching endpoints and collinear overlap.
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := sign(orient(q1, q2, p1))
	d2 := sign(orient(q1, q2, p2))
	d3 := sign(orient(p1, p2, q1))
	d4 := sign(orient(p1, p2, q2))

	if d1*d2 < 0 && d3*d4 < 0 {
		return true
	}
	switch {
	case d1 == 0 && onSegment(q1, q2, p1):
		return true
	case d2 == 0 && onSegment(q1, q2, p2):
		return true
	case d3 == 0 && onSegment(p1, p2, q1):
		return true
	case d4 == 0 && onSegment(p1, p2, q2):
		return true
	}
	return false
}

// segmentsCross is true only for a proper crossing at a single interior point.
func segmentsCross(p1, p2, q1, q2 orb.Point) bool {
	d1 := sign(orient(q1, q2, p1))
	d2 := sign(orient(q1, q2, p2))
	d3 := sign(orient(p1, p2, q1))
	d4 := sign(orient(p1, p2, q2))
	return d1*d2 < 0 && d3*d4 < 0
}
