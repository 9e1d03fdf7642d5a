package geometry

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/mr1hm/go-disaster-impact/internal/engineerr"
)

// Intersects reports whether a and b share at least one point. Boundary
// contact counts: two polygons touching at a single vertex intersect.
func Intersects(a, b orb.Geometry) (bool, error) {
	pa, err := Prepare(a)
	if err != nil {
		return false, err
	}
	if err := Validate(b); err != nil {
		return false, err
	}
	return pa.Intersects(b), nil
}

// Prepared is a validated geometry split into parts once, for evaluating
// many predicates against it.
type Prepared struct {
	g      orb.Geometry
	bound  orb.Bound
	points []orb.Point
	polys  []orb.Polygon
}

func Prepare(g orb.Geometry) (*Prepared, error) {
	if err := Validate(g); err != nil {
		return nil, err
	}
	points, polys := decompose(g)
	return &Prepared{g: g, bound: g.Bound(), points: points, polys: polys}, nil
}

func (p *Prepared) Geometry() orb.Geometry { return p.g }
func (p *Prepared) Bound() orb.Bound       { return p.bound }

// Intersects evaluates against other without validating it; other must
// already have passed Validate.
func (p *Prepared) Intersects(other orb.Geometry) bool {
	if !p.bound.Intersects(other.Bound()) {
		return false
	}
	bp, bpolys := decompose(other)

	for _, pt := range p.points {
		for _, q := range bp {
			if pt == q {
				return true
			}
		}
		for _, poly := range bpolys {
			if polygonCovers(poly, pt) {
				return true
			}
		}
	}
	for _, poly := range p.polys {
		for _, q := range bp {
			if polygonCovers(poly, q) {
				return true
			}
		}
		for _, o := range bpolys {
			if polygonsIntersect(poly, o) {
				return true
			}
		}
	}
	return false
}

// DistanceFrom returns the geodesic distance from pt to the closest point of
// the geometry; zero inside or on a polygon.
func (p *Prepared) DistanceFrom(pt orb.Point) float64 {
	best := math.Inf(1)
	for _, q := range p.points {
		best = math.Min(best, DistanceMeters(pt, q))
	}
	for _, poly := range p.polys {
		if polygonCovers(poly, pt) {
			return 0
		}
		for _, r := range poly {
			for i := 0; i+1 < len(r); i++ {
				best = math.Min(best, segmentDistance(pt, r[i], r[i+1]))
			}
		}
	}
	return best
}

// Covers reports whether every point of inner lies in outer (interior or
// boundary). outer must be a polygon or multipolygon.
func Covers(outer, inner orb.Geometry) (bool, error) {
	if err := Validate(outer); err != nil {
		return false, err
	}
	if err := Validate(inner); err != nil {
		return false, err
	}
	_, outerPolys := decompose(outer)
	if len(outerPolys) == 0 {
		return false, engineerr.InvalidArgument("covers", "outer geometry must be areal, got %s", outer.GeoJSONType())
	}

	covered := func(p orb.Point) bool {
		for _, poly := range outerPolys {
			if polygonCovers(poly, p) {
				return true
			}
		}
		return false
	}

	points, polys := decompose(inner)
	for _, p := range points {
		if !covered(p) {
			return false, nil
		}
	}
	for _, poly := range polys {
		for _, v := range poly[0] {
			if !covered(v) {
				return false, nil
			}
		}
		for _, op := range outerPolys {
			if ringsCross(poly[0], op) {
				return false, nil
			}
		}
	}

	// A hole of outer reaching into inner leaves part of inner uncovered even
	// when every vertex of inner is.
	for _, op := range outerPolys {
		for _, hole := range op[1:] {
			for _, poly := range polys {
				if reachesInterior(orb.Polygon{hole}, poly) {
					return false, nil
				}
			}
		}
	}
	return true, nil
}

func decompose(g orb.Geometry) ([]orb.Point, []orb.Polygon) {
	switch g := g.(type) {
	case orb.Point:
		return []orb.Point{g}, nil
	case orb.MultiPoint:
		return g, nil
	case orb.Polygon:
		return nil, []orb.Polygon{g}
	case orb.MultiPolygon:
		return nil, g
	}
	return nil, nil
}

// locateRing classifies p against ring r by ray casting.
func locateRing(r orb.Ring, p orb.Point) (inside, onBoundary bool) {
	n := len(r)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := r[j], r[i]
		if orient(a, b, p) == 0 && onSegment(a, b, p) {
			return false, true
		}
		if (a[1] > p[1]) != (b[1] > p[1]) {
			x := (b[0]-a[0])*(p[1]-a[1])/(b[1]-a[1]) + a[0]
			if p[0] < x {
				inside = !inside
			}
		}
	}
	return inside, false
}

// polygonCovers is true for points in the interior or on any ring, hole rings included.
func polygonCovers(poly orb.Polygon, p orb.Point) bool {
	if !poly.Bound().Contains(p) {
		return false
	}
	inside, boundary := locateRing(poly[0], p)
	if boundary {
		return true
	}
	if !inside {
		return false
	}
	for _, hole := range poly[1:] {
		in, on := locateRing(hole, p)
		if on {
			return true
		}
		if in {
			return false
		}
	}
	return true
}

// polygonContains is true only for points strictly inside poly: off every
// ring and outside every hole.
func polygonContains(poly orb.Polygon, p orb.Point) bool {
	if !poly.Bound().Contains(p) {
		return false
	}
	if inside, _ := locateRing(poly[0], p); !inside {
		return false
	}
	for _, hole := range poly[1:] {
		in, on := locateRing(hole, p)
		if in || on {
			return false
		}
	}
	return true
}

// polygonsOverlap reports whether the interiors of a and b share area.
// Touching along edges or at vertices is not an overlap.
func polygonsOverlap(a, b orb.Polygon) bool {
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}
	for _, r := range a {
		if ringsCross(r, b) {
			return true
		}
	}
	return reachesInterior(a, b) || reachesInterior(b, a)
}

// reachesInterior samples a at its vertices, edge midpoints and a point just
// inside its first edge, and reports whether any sample lies strictly inside b.
// Without proper crossings between the rings that is enough to detect shared
// area, including identical polygons.
func reachesInterior(a, b orb.Polygon) bool {
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}
	for _, r := range a {
		for i := 0; i+1 < len(r); i++ {
			mid := orb.Point{(r[i][0] + r[i+1][0]) / 2, (r[i][1] + r[i+1][1]) / 2}
			if polygonContains(b, r[i]) || polygonContains(b, mid) {
				return true
			}
		}
	}
	p, ok := interiorSample(a)
	return ok && polygonContains(b, p)
}

// interiorSample returns a point strictly inside a, next to the midpoint of
// the first non-degenerate edge of its outer ring.
func interiorSample(a orb.Polygon) (orb.Point, bool) {
	r := a[0]
	var twiceArea float64
	for i := 0; i+1 < len(r); i++ {
		twiceArea += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	if twiceArea == 0 {
		return orb.Point{}, false
	}

	for i := 0; i+1 < len(r); i++ {
		dx, dy := r[i+1][0]-r[i][0], r[i+1][1]-r[i][1]
		if dx == 0 && dy == 0 {
			continue
		}
		// The interior is left of each edge on a counter-clockwise ring.
		nx, ny := -dy, dx
		if twiceArea < 0 {
			nx, ny = dy, -dx
		}
		const eps = 1e-6
		p := orb.Point{
			(r[i][0]+r[i+1][0])/2 + eps*nx,
			(r[i][1]+r[i+1][1])/2 + eps*ny,
		}
		if polygonContains(a, p) {
			return p, true
		}
	}
	return orb.Point{}, false
}

func polygonsIntersect(a, b orb.Polygon) bool {
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}
	for _, ra := range a {
		for _, rb := range b {
			if ringsTouch(ra, rb) {
				return true
			}
		}
	}
	// No boundary contact: either one contains the other or they are disjoint.
	return polygonCovers(b, a[0][0]) || polygonCovers(a, b[0][0])
}

func ringsTouch(ra, rb orb.Ring) bool {
	bb := rb.Bound()
	for i := 0; i+1 < len(ra); i++ {
		a1, a2 := ra[i], ra[i+1]
		if !segmentBound(a1, a2).Intersects(bb) {
			continue
		}
		for j := 0; j+1 < len(rb); j++ {
			if segmentsIntersect(a1, a2, rb[j], rb[j+1]) {
				return true
			}
		}
	}
	return false
}

func ringsCross(r orb.Ring, poly orb.Polygon) bool {
	for _, other := range poly {
		bb := other.Bound()
		for i := 0; i+1 < len(r); i++ {
			a1, a2 := r[i], r[i+1]
			if !segmentBound(a1, a2).Intersects(bb) {
				continue
			}
			for j := 0; j+1 < len(other); j++ {
				if segmentsCross(a1, a2, other[j], other[j+1]) {
					return true
				}
			}
		}
	}
	return false
}

func segmentBound(a, b orb.Point) orb.Bound {
	return orb.Bound{Min: a, Max: a}.Extend(b)
}
