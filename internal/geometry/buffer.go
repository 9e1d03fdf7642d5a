package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/mr1hm/go-disaster-impact/internal/engineerr"
)

const (
	// DefaultTolerance bounds chord error as a fraction of the buffer radius.
	DefaultTolerance = 0.01

	MinBufferVertices = 32
	MaxBufferVertices = 1 << 14

	// Rays that miss the buffered shape entirely keep a small positive extent
	// so the output ring stays simple.
	minRadialFraction = 0.01
)

// BufferGeodesic returns the polygon covering every point within radiusMeters
// of g, sampled finely enough to keep chord error under DefaultTolerance.
// Multipolygon parts whose buffers could meet are buffered together, so the
// result never holds overlapping polygons.
//
// Buffers that reach the antimeridian are not supported: their vertices leave
// the valid longitude range and the computation fails with a
// ComputationFailure.
func BufferGeodesic(g orb.Geometry, radiusMeters float64) (orb.Geometry, error) {
	n, err := VertexCount(g, radiusMeters, DefaultTolerance)
	if err != nil {
		return nil, err
	}
	return BufferWithVertices(g, radiusMeters, n)
}

// VertexCount returns how many bearings a buffer of g needs so the sagitta
// between neighbouring samples stays below tolerance*radius.
func VertexCount(g orb.Geometry, radiusMeters, tolerance float64) (int, error) {
	if err := Validate(g); err != nil {
		return 0, err
	}
	if err := checkRadius(radiusMeters); err != nil {
		return 0, err
	}
	if err := checkTolerance(tolerance); err != nil {
		return 0, err
	}
	return vertexCount(bufferGroups(g, radiusMeters), radiusMeters, tolerance)
}

// BufferWithVertices buffers g using n evenly spaced bearings around the
// centroid of each buffer group. The vertex at each bearing sits at the
// farthest distance along that geodesic ray that is still within radiusMeters
// of the group.
//
// For geometries whose buffer is not star-shaped about the centroid (deep
// concavities, separate parts buffered together) the result is the radial
// hull of the buffer: a superset.
func BufferWithVertices(g orb.Geometry, radiusMeters float64, n int) (orb.Geometry, error) {
	if err := Validate(g); err != nil {
		return nil, err
	}
	if err := checkRadius(radiusMeters); err != nil {
		return nil, err
	}
	if n < 3 || n > MaxBufferVertices {
		return nil, engineerr.InvalidArgument("buffer", "vertex count %d outside [3,%d]", n, MaxBufferVertices)
	}
	return bufferGroupsAt(bufferGroups(g, radiusMeters), radiusMeters, n)
}

// NestedBuffers buffers g at each of the strictly increasing radii. Parts of
// a multipolygon are grouped once, by whether their buffers at the largest
// radius could meet, and every radius reuses that grouping and the bearing
// set the smallest radius needs. Each buffer then contains the previous one
// and the polygons within one buffer are disjoint.
//
// The antimeridian restriction of BufferGeodesic applies.
func NestedBuffers(g orb.Geometry, radii []float64, tolerance float64) ([]orb.Geometry, error) {
	if err := Validate(g); err != nil {
		return nil, err
	}
	if len(radii) == 0 {
		return nil, engineerr.InvalidArgument("buffer", "no radii given")
	}
	for i, r := range radii {
		if err := checkRadius(r); err != nil {
			return nil, err
		}
		if i > 0 && r <= radii[i-1] {
			return nil, engineerr.InvalidArgument("buffer", "radii must be strictly increasing, got %v after %v", r, radii[i-1])
		}
	}
	if err := checkTolerance(tolerance); err != nil {
		return nil, err
	}

	groups := bufferGroups(g, radii[len(radii)-1])
	n, err := vertexCount(groups, radii[0], tolerance)
	if err != nil {
		return nil, err
	}

	out := make([]orb.Geometry, 0, len(radii))
	for _, r := range radii {
		buf, err := bufferGroupsAt(groups, r, n)
		if err != nil {
			return nil, err
		}
		out = append(out, buf)
	}
	return out, nil
}

func vertexCount(groups []orb.Geometry, radiusMeters, tolerance float64) (int, error) {
	n := MinBufferVertices
	for _, group := range groups {
		c, err := Centroid(group)
		if err != nil {
			return 0, err
		}
		reach := maxVertexDistance(c, group) + radiusMeters

		// A chord of length s across a curve of radius r deviates by s²/8r.
		step := math.Sqrt(8*tolerance) * radiusMeters / reach
		need := int(math.Ceil(2 * math.Pi / step))
		if need > MaxBufferVertices {
			return 0, engineerr.ComputationFailure("buffer",
				"radius %.1fm needs %d vertices for a %.1fkm geometry (max %d)",
				radiusMeters, need, reach/1000, MaxBufferVertices)
		}
		n = max(n, need)
	}
	return n, nil
}

func bufferGroupsAt(groups []orb.Geometry, radiusMeters float64, n int) (orb.Geometry, error) {
	if len(groups) == 1 {
		return radialBuffer(groups[0], radiusMeters, n)
	}
	mp := make(orb.MultiPolygon, 0, len(groups))
	for _, group := range groups {
		poly, err := radialBuffer(group, radiusMeters, n)
		if err != nil {
			return nil, err
		}
		mp = append(mp, poly)
	}
	return mp, nil
}

func checkTolerance(tolerance float64) error {
	if !(tolerance > 0 && tolerance < 1) {
		return engineerr.InvalidArgument("buffer", "tolerance %v outside (0,1)", tolerance)
	}
	return nil
}

func checkRadius(r float64) error {
	if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
		return engineerr.InvalidArgument("buffer", "radius must be positive, got %v", r)
	}
	if r >= math.Pi*orb.EarthRadius/2 {
		return engineerr.InvalidArgument("buffer", "radius %.0fm exceeds a quarter great circle", r)
	}
	return nil
}

// bufferGroups splits a multipolygon into clusters of parts whose bounds,
// padded by reachMeters, overlap. Buffers of parts in different clusters stay
// inside disjoint boxes for any radius up to reachMeters. Other geometries
// form a single group.
func bufferGroups(g orb.Geometry, reachMeters float64) []orb.Geometry {
	mp, ok := g.(orb.MultiPolygon)
	if !ok {
		return []orb.Geometry{g}
	}

	type cluster struct {
		parts orb.MultiPolygon
		bound orb.Bound
	}
	clusters := make([]*cluster, len(mp))
	for i, p := range mp {
		clusters[i] = &cluster{parts: orb.MultiPolygon{p}, bound: p.Bound()}
	}

	for merged := true; merged; {
		merged = false
	scan:
		for i := 0; i < len(clusters); i++ {
			pi := PadBound(clusters[i].bound, reachMeters)
			for j := i + 1; j < len(clusters); j++ {
				if !pi.Intersects(PadBound(clusters[j].bound, reachMeters)) {
					continue
				}
				clusters[i].parts = append(clusters[i].parts, clusters[j].parts...)
				clusters[i].bound = clusters[i].bound.Union(clusters[j].bound)
				clusters = append(clusters[:j], clusters[j+1:]...)
				merged = true
				break scan
			}
		}
	}

	groups := make([]orb.Geometry, len(clusters))
	for i, c := range clusters {
		if len(c.parts) == 1 {
			groups[i] = c.parts[0]
		} else {
			groups[i] = c.parts
		}
	}
	return groups
}

func maxVertexDistance(c orb.Point, g orb.Geometry) float64 {
	var d float64
	points, polys := decompose(g)
	for _, p := range points {
		d = math.Max(d, DistanceMeters(c, p))
	}
	for _, poly := range polys {
		for _, v := range poly[0] {
			d = math.Max(d, DistanceMeters(c, v))
		}
	}
	return d
}

// vec is a position in the azimuthal equidistant plane around a centre, in
// meters east (x) and north (y).
type vec struct{ x, y float64 }

func (a vec) sub(b vec) vec       { return vec{a.x - b.x, a.y - b.y} }
func (a vec) dot(b vec) float64   { return a.x*b.x + a.y*b.y }
func (a vec) scale(s float64) vec { return vec{a.x * s, a.y * s} }

func project(c, p orb.Point) vec {
	d := DistanceMeters(c, p)
	if d == 0 {
		return vec{}
	}
	b := deg2rad(geo.Bearing(c, p))
	return vec{d * math.Sin(b), d * math.Cos(b)}
}

type segment struct{ a, b vec }

// radialBuffer buffers every part of group around the group centroid with one
// bearing set.
func radialBuffer(group orb.Geometry, radius float64, n int) (orb.Polygon, error) {
	c, err := Centroid(group)
	if err != nil {
		return nil, err
	}

	var (
		disks []vec
		segs  []segment
	)
	points, polys := decompose(group)
	for _, p := range points {
		disks = append(disks, project(c, p))
	}
	for _, poly := range polys {
		for _, r := range poly {
			prev := project(c, r[0])
			disks = append(disks, prev)
			for _, v := range r[1:] {
				cur := project(c, v)
				segs = append(segs, segment{prev, cur})
				disks = append(disks, cur)
				prev = cur
			}
		}
	}

	floor := radius * minRadialFraction
	ring := make(orb.Ring, 0, n+1)
	for i := 0; i < n; i++ {
		// Decreasing bearings walk the ring counter-clockwise.
		bearing := 360 - 360*float64(i)/float64(n)
		if i == 0 {
			bearing = 0
		}
		rad := deg2rad(bearing)
		u := vec{math.Sin(rad), math.Cos(rad)}

		rho := math.Max(farthestHit(u, disks, segs, radius), floor)
		v := geo.PointAtBearingAndDistance(c, bearing, rho)
		if math.IsNaN(v[0]) || math.IsNaN(v[1]) {
			return nil, engineerr.ComputationFailure("buffer", "non-finite vertex at bearing %.3f", bearing)
		}
		if v[0] < -180 || v[0] > 180 {
			return nil, engineerr.ComputationFailure("buffer", "vertex at bearing %.3f crosses the antimeridian", bearing)
		}
		ring = append(ring, v)
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}, nil
}

// farthestHit returns the largest t >= 0 such that t*u lies within radius of
// a disk centre or segment, or -1 when the ray misses every capsule.
func farthestHit(u vec, disks []vec, segs []segment, radius float64) float64 {
	best := -1.0
	r2 := radius * radius

	for _, p := range disks {
		b := u.dot(p)
		disc := b*b - (p.dot(p) - r2)
		if disc < 0 {
			continue
		}
		if t := b + math.Sqrt(disc); t > best {
			best = t
		}
	}

	for _, s := range segs {
		d := s.b.sub(s.a)
		length := math.Sqrt(d.dot(d))
		if length == 0 {
			continue
		}
		d = d.scale(1 / length)
		normal := vec{-d.y, d.x}
		un := u.dot(normal)
		if math.Abs(un) < 1e-12 {
			continue
		}
		an := s.a.dot(normal)
		for _, off := range [2]float64{radius, -radius} {
			t := (an + off) / un
			if t < 0 || t <= best {
				continue
			}
			along := u.scale(t).sub(s.a).dot(d)
			if along >= 0 && along <= length {
				best = t
			}
		}
	}
	return best
}
