// Package hotspot groups disaster centroids into k geographic clusters.
//
// Clustering runs k-means with k-means++ seeding in a Lambert cylindrical
// equal-area projection centred on the input, so Euclidean distances there
// track ground distance for regional data sets. The random source is seeded
// with a fixed value: the same input always yields the same clusters.
package hotspot

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/floats"

	"github.com/mr1hm/go-disaster-impact/internal/engineerr"
	"github.com/mr1hm/go-disaster-impact/internal/geometry"
	"github.com/mr1hm/go-disaster-impact/internal/models"
)

const (
	DefaultK             = 5
	DefaultMaxIterations = 100
	DefaultSeed          = 20240615
	DefaultLookback      = 5 * 365 * 24 * time.Hour
)

type Options struct {
	Seed          uint64 // zero means DefaultSeed
	MaxIterations int    // zero means DefaultMaxIterations
}

func (o Options) withDefaults() Options {
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	return o
}

// Hotspots clusters the centroids of disasters of category that started
// within lookback of now. A non-positive lookback means DefaultLookback.
func Hotspots(disasters []*models.Disaster, category string, k int, now time.Time, lookback time.Duration, opts Options) ([]models.ClusterResult, error) {
	cat, ok := models.ParseCategory(category)
	if !ok {
		return nil, engineerr.InvalidArgument("hotspots", "unknown disaster category %q", category)
	}
	if k < 1 {
		return nil, engineerr.InvalidArgument("hotspots", "k must be at least 1, got %d", k)
	}
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	since := now.Add(-lookback)

	var points []orb.Point
	for _, d := range disasters {
		if d.Category != cat || d.StartTime.Before(since) {
			continue
		}
		points = append(points, d.Centroid)
	}
	return Cluster(points, k, opts)
}

// Cluster partitions points into at most k clusters. Results are ordered by
// count, largest first. When k is at least the number of distinct points,
// every distinct point is its own cluster.
func Cluster(points []orb.Point, k int, opts Options) ([]models.ClusterResult, error) {
	if k < 1 {
		return nil, engineerr.InvalidArgument("cluster", "k must be at least 1, got %d", k)
	}
	for _, p := range points {
		if err := geometry.Validate(p); err != nil {
			return nil, err
		}
	}
	if len(points) == 0 {
		return []models.ClusterResult{}, nil
	}
	opts = opts.withDefaults()

	distinct, weights := dedupe(points)
	if k >= len(distinct) {
		out := make([]models.ClusterResult, len(distinct))
		for i, p := range distinct {
			out[i] = models.ClusterResult{Center: p, Count: int(weights[i])}
		}
		sortResults(out)
		return out, nil
	}

	proj := newEqualArea(distinct)
	xs := make([]float64, len(distinct))
	ys := make([]float64, len(distinct))
	for i, p := range distinct {
		xs[i], ys[i] = proj.forward(p)
	}

	km := &kmeans{xs: xs, ys: ys, w: weights, k: k}
	km.seed(rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)))
	km.run(opts.MaxIterations)

	out := make([]models.ClusterResult, 0, k)
	for c := 0; c < k; c++ {
		n := km.count(c)
		if n == 0 {
			continue
		}
		out = append(out, models.ClusterResult{Center: proj.inverse(km.cx[c], km.cy[c]), Count: n})
	}
	sortResults(out)
	return out, nil
}

// dedupe returns the distinct points in lon/lat order with their multiplicity.
func dedupe(points []orb.Point) ([]orb.Point, []float64) {
	counts := make(map[orb.Point]int, len(points))
	for _, p := range points {
		counts[p]++
	}
	distinct := make([]orb.Point, 0, len(counts))
	for p := range counts {
		distinct = append(distinct, p)
	}
	sort.Slice(distinct, func(i, j int) bool { return lessPoint(distinct[i], distinct[j]) })

	weights := make([]float64, len(distinct))
	for i, p := range distinct {
		weights[i] = float64(counts[p])
	}
	return distinct, weights
}

func lessPoint(a, b orb.Point) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

func sortResults(r []models.ClusterResult) {
	sort.Slice(r, func(i, j int) bool {
		if r[i].Count != r[j].Count {
			return r[i].Count > r[j].Count
		}
		return lessPoint(r[i].Center, r[j].Center)
	})
}

// equalArea is a Lambert cylindrical equal-area projection with its
// standard parallel and central meridian at the mean input position.
type equalArea struct {
	lon0, cosLat0 float64
}

func newEqualArea(points []orb.Point) equalArea {
	var lon, lat float64
	for _, p := range points {
		lon += p[0]
		lat += p[1]
	}
	n := float64(len(points))
	return equalArea{lon0: lon / n, cosLat0: math.Cos(lat / n * math.Pi / 180)}
}

func (e equalArea) forward(p orb.Point) (float64, float64) {
	x := orb.EarthRadius * (p[0] - e.lon0) * math.Pi / 180 * e.cosLat0
	y := orb.EarthRadius * math.Sin(p[1]*math.Pi/180) / e.cosLat0
	return x, y
}

func (e equalArea) inverse(x, y float64) orb.Point {
	lon := e.lon0 + x/(orb.EarthRadius*e.cosLat0)*180/math.Pi
	s := math.Max(-1, math.Min(1, y*e.cosLat0/orb.EarthRadius))
	return orb.Point{lon, math.Asin(s) * 180 / math.Pi}
}

type kmeans struct {
	xs, ys, w []float64
	k         int

	cx, cy []float64
	assign []int
}

func (m *kmeans) dist2(i, c int) float64 {
	dx, dy := m.xs[i]-m.cx[c], m.ys[i]-m.cy[c]
	return dx*dx + dy*dy
}

// seed picks initial centres with k-means++: each new centre is drawn with
// probability proportional to weight times squared distance to the nearest
// centre so far.
func (m *kmeans) seed(rng *rand.Rand) {
	n := len(m.xs)
	m.cx = make([]float64, 0, m.k)
	m.cy = make([]float64, 0, m.k)
	m.assign = make([]int, n)

	pick := func(score []float64) int {
		target := rng.Float64() * floats.Sum(score)
		for i, s := range score {
			target -= s
			if target < 0 {
				return i
			}
		}
		return floats.MaxIdx(score)
	}

	first := pick(m.w)
	m.cx = append(m.cx, m.xs[first])
	m.cy = append(m.cy, m.ys[first])

	nearest := make([]float64, n)
	for i := range nearest {
		nearest[i] = m.dist2(i, 0)
	}
	score := make([]float64, n)
	for len(m.cx) < m.k {
		floats.MulTo(score, nearest, m.w)
		next := pick(score)
		m.cx = append(m.cx, m.xs[next])
		m.cy = append(m.cy, m.ys[next])
		c := len(m.cx) - 1
		for i := range nearest {
			nearest[i] = math.Min(nearest[i], m.dist2(i, c))
		}
	}
}

// run alternates assignment and update until no point changes cluster or
// maxIter rounds have run.
func (m *kmeans) run(maxIter int) {
	d := make([]float64, m.k)
	mask := make([]float64, len(m.xs))
	for i := range m.assign {
		m.assign[i] = -1
	}

	for iter := 0; iter < maxIter; iter++ {
		churn := 0
		for i := range m.xs {
			for c := range d {
				d[c] = m.dist2(i, c)
			}
			if best := floats.MinIdx(d); best != m.assign[i] {
				m.assign[i] = best
				churn++
			}
		}
		if churn == 0 {
			return
		}

		for c := 0; c < m.k; c++ {
			for i, a := range m.assign {
				mask[i] = 0
				if a == c {
					mask[i] = m.w[i]
				}
			}
			total := floats.Sum(mask)
			if total == 0 {
				m.reseed(c)
				continue
			}
			m.cx[c] = floats.Dot(mask, m.xs) / total
			m.cy[c] = floats.Dot(mask, m.ys) / total
		}
	}
}

// reseed moves an empty cluster onto the point farthest from its centre,
// taken from a cluster that keeps at least one other member.
func (m *kmeans) reseed(c int) {
	members := make([]int, m.k)
	for _, a := range m.assign {
		members[a]++
	}
	far, farD := -1, -1.0
	for i, a := range m.assign {
		if members[a] <= 1 {
			continue
		}
		if d := m.dist2(i, a); d > farD {
			far, farD = i, d
		}
	}
	if far < 0 {
		return
	}
	m.cx[c], m.cy[c] = m.xs[far], m.ys[far]
	m.assign[far] = c
}

func (m *kmeans) count(c int) int {
	var n float64
	for i, a := range m.assign {
		if a == c {
			n += m.w[i]
		}
	}
	return int(n)
}
