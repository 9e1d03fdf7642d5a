// Package detection turns satellite fire detections into wildfire disasters.
package detection

import (
	"fmt"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"

	"github.com/mr1hm/go-disaster-impact/internal/engineerr"
	"github.com/mr1hm/go-disaster-impact/internal/geometry"
	"github.com/mr1hm/go-disaster-impact/internal/models"
)

const (
	DefaultClusterMeters = 5000
	Source               = "NASA_FIRMS"

	kelvinOffset = 273.15
)

type detectionPoint struct {
	idx int
	p   orb.Point
}

func (d detectionPoint) Point() orb.Point { return d.p }

// Cluster groups detections greedily: a cluster starts at the first
// unassigned detection and absorbs every unassigned detection within
// maxMeters of its running centroid until it stops growing. Detections are
// taken in input order.
func Cluster(detections []models.FireDetection, maxMeters float64) ([][]models.FireDetection, error) {
	if maxMeters <= 0 {
		return nil, engineerr.InvalidArgument("cluster detections", "distance must be positive, got %v", maxMeters)
	}

	qt := quadtree.New(orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}})
	points := make([]orb.Point, len(detections))
	for i, d := range detections {
		points[i] = orb.Point{d.Longitude, d.Latitude}
		if err := geometry.Validate(points[i]); err != nil {
			return nil, fmt.Errorf("detection %d: %w", i, err)
		}
		if err := qt.Add(detectionPoint{idx: i, p: points[i]}); err != nil {
			return nil, engineerr.ComputationFailure("cluster detections", "index detection %d: %v", i, err)
		}
	}

	assigned := make([]bool, len(detections))
	unassigned := func(p orb.Pointer) bool { return !assigned[p.(detectionPoint).idx] }

	var clusters [][]models.FireDetection
	var buf []orb.Pointer
	for start := range detections {
		if assigned[start] {
			continue
		}
		assigned[start] = true
		members := []int{start}
		sumLon, sumLat := points[start][0], points[start][1]

		for {
			n := float64(len(members))
			centroid := orb.Point{sumLon / n, sumLat / n}

			buf = qt.InBoundMatching(buf[:0], geometry.BoundAroundPoint(centroid, maxMeters), unassigned)
			var added []int
			for _, c := range buf {
				dp := c.(detectionPoint)
				if geometry.DistanceMeters(centroid, dp.p) < maxMeters {
					added = append(added, dp.idx)
				}
			}
			if len(added) == 0 {
				break
			}
			sort.Ints(added)
			for _, i := range added {
				assigned[i] = true
				members = append(members, i)
				sumLon += points[i][0]
				sumLat += points[i][1]
			}
		}

		sort.Ints(members)
		cluster := make([]models.FireDetection, len(members))
		for j, i := range members {
			cluster[j] = detections[i]
		}
		clusters = append(clusters, cluster)
	}
	return clusters, nil
}

// ToDisasters clusters detections and converts every cluster to an active
// wildfire. Ids are "firms_<yyyymmdd of latest detection>_<cluster index>".
func ToDisasters(detections []models.FireDetection, maxMeters float64, now time.Time) ([]models.Disaster, error) {
	clusters, err := Cluster(detections, maxMeters)
	if err != nil {
		return nil, err
	}

	out := make([]models.Disaster, 0, len(clusters))
	for i, c := range clusters {
		d, err := toDisaster(c, i, now)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func toDisaster(cluster []models.FireDetection, idx int, now time.Time) (models.Disaster, error) {
	var (
		latest     time.Time
		maxFRP     float64
		brightness float64
		maxSize    float64
		outOfCtl   bool
	)
	points := make(orb.MultiPoint, len(cluster))
	for i, f := range cluster {
		points[i] = orb.Point{f.Longitude, f.Latitude}
		if f.AcquiredAt.After(latest) {
			latest = f.AcquiredAt
		}
		maxFRP = max(maxFRP, f.FRP)
		brightness += f.Brightness
		maxSize = max(maxSize, f.SizeHectares)
		outOfCtl = outOfCtl || f.OutOfControl
	}
	if latest.IsZero() {
		latest = now
	}

	severity := SeverityFromFRP(maxFRP)
	if maxSize > 0 {
		if s := SeverityFromBurnedArea(maxSize, outOfCtl); s.Rank() > severity.Rank() {
			severity = s
		}
	}

	d := models.Disaster{
		ID:        fmt.Sprintf("firms_%s_%d", latest.UTC().Format("20060102"), idx),
		Name:      fmt.Sprintf("Wildfire cluster %d", idx),
		Source:    Source,
		Category:  models.CategoryWildfire,
		Severity:  severity,
		StartTime: latest,
		Active:    true,
		Attributes: models.FireAttributes{
			TemperatureCelsius: brightness/float64(len(cluster)) - kelvinOffset,
			FireRadiativePower: maxFRP,
		},
		CreatedAt: now,
	}

	var g orb.Geometry = points
	if len(points) == 1 {
		g = points[0]
	}
	if err := d.SetGeometry(g); err != nil {
		return models.Disaster{}, fmt.Errorf("cluster %d: %w", idx, err)
	}
	return d, nil
}

// SeverityFromFRP grades a fire by its peak radiative power in MW.
func SeverityFromFRP(frp float64) models.Severity {
	switch {
	case frp < 10:
		return models.SeverityMinor
	case frp < 50:
		return models.SeverityModerate
	case frp < 100:
		return models.SeveritySevere
	default:
		return models.SeverityExtreme
	}
}

// SeverityFromBurnedArea grades a fire by reported size. A fire out of
// control is raised one level, but never to extreme on that account alone.
func SeverityFromBurnedArea(hectares float64, outOfControl bool) models.Severity {
	var s models.Severity
	switch {
	case hectares < 10:
		s = models.SeverityMinor
	case hectares < 100:
		s = models.SeverityModerate
	case hectares < 1000:
		s = models.SeveritySevere
	default:
		s = models.SeverityExtreme
	}
	if outOfControl && s.Rank() < models.SeveritySevere.Rank() {
		s = s.Escalate()
	}
	return s
}
