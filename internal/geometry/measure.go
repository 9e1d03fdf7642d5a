package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	"github.com/mr1hm/go-disaster-impact/internal/engineerr"
)

// boundSlack widens computed bounds so floating point error never turns a
// true candidate into a miss.
const boundSlack = 1e-9

// DistanceMeters is the great-circle distance between two points.
func DistanceMeters(p1, p2 orb.Point) float64 {
	return geo.DistanceHaversine(p1, p2)
}

// DistanceToGeometry returns the geodesic distance from p to the closest
// point of g. Points inside or on a polygon are at distance zero.
func DistanceToGeometry(p orb.Point, g orb.Geometry) (float64, error) {
	if err := validatePoint(p); err != nil {
		return 0, err
	}
	prepared, err := Prepare(g)
	if err != nil {
		return 0, err
	}
	return prepared.DistanceFrom(p), nil
}

// segmentDistance measures from p to the great-circle arc ab using the
// cross-track and along-track distances.
func segmentDistance(p, a, b orb.Point) float64 {
	dAB := DistanceMeters(a, b)
	dAP := DistanceMeters(a, p)
	if dAB == 0 || dAP == 0 {
		return dAP
	}

	d13 := dAP / orb.EarthRadius
	delta := deg2rad(geo.Bearing(a, p) - geo.Bearing(a, b))
	if math.Cos(delta) <= 0 {
		return dAP
	}

	xt := math.Asin(math.Sin(d13) * math.Sin(delta))
	at := math.Acos(clamp(math.Cos(d13)/math.Cos(xt), -1, 1)) * orb.EarthRadius
	if at >= dAB {
		return DistanceMeters(p, b)
	}
	return math.Abs(xt) * orb.EarthRadius
}

// AreaSqMeters is the spherical area of polygonal geometries with holes
// subtracted. Points have zero area.
func AreaSqMeters(g orb.Geometry) (float64, error) {
	if err := Validate(g); err != nil {
		return 0, err
	}
	switch g.(type) {
	case orb.Point, orb.MultiPoint:
		return 0, nil
	}
	return math.Max(geo.Area(g), 0), nil
}

// Centroid is the area-weighted centroid for polygons and the mean position
// for points.
func Centroid(g orb.Geometry) (orb.Point, error) {
	if err := Validate(g); err != nil {
		return orb.Point{}, err
	}
	if p, ok := g.(orb.Point); ok {
		return p, nil
	}
	c, _ := planar.CentroidArea(g)
	if math.IsNaN(c[0]) || math.IsNaN(c[1]) {
		return orb.Point{}, engineerr.ComputationFailure("centroid", "degenerate %s", g.GeoJSONType())
	}
	return c, nil
}

// BoundAroundPoint returns a lon/lat box containing every point within meters
// of p. It covers the exact spherical cap, widening to all longitudes when the
// cap reaches a pole or the antimeridian.
func BoundAroundPoint(p orb.Point, meters float64) orb.Bound {
	return PadBound(orb.Bound{Min: p, Max: p}, meters)
}

// PadBound grows b so it contains every point within meters of any point of b.
func PadBound(b orb.Bound, meters float64) orb.Bound {
	world := orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

	ang := math.Max(meters, 0) / orb.EarthRadius
	if ang >= math.Pi/2 {
		return world
	}

	dLat := rad2deg(ang) + boundSlack
	minLat, maxLat := b.Min[1]-dLat, b.Max[1]+dLat
	if minLat <= -90 || maxLat >= 90 {
		return orb.Bound{
			Min: orb.Point{-180, math.Max(minLat, -90)},
			Max: orb.Point{180, math.Min(maxLat, 90)},
		}
	}

	// The cap's longitude half-width grows with latitude; use the worst case in b.
	phi := math.Max(math.Abs(b.Min[1]), math.Abs(b.Max[1]))
	s := math.Sin(ang) / math.Cos(deg2rad(phi))
	if s >= 1 {
		return orb.Bound{Min: orb.Point{-180, minLat}, Max: orb.Point{180, maxLat}}
	}
	dLon := rad2deg(math.Asin(s)) + boundSlack

	minLon, maxLon := b.Min[0]-dLon, b.Max[0]+dLon
	if minLon < -180 || maxLon > 180 {
		minLon, maxLon = -180, 180
	}
	return orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
