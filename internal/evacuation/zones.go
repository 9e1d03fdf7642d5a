// Package evacuation builds nested evacuation zones around a disaster.
package evacuation

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/mr1hm/go-disaster-impact/internal/engineerr"
	"github.com/mr1hm/go-disaster-impact/internal/geometry"
	"github.com/mr1hm/go-disaster-impact/internal/models"
)

// DefaultRadii are the immediate, warning and watch zones in meters.
var DefaultRadii = []float64{1000, 5000, 10000}

type Result struct {
	Zones []models.EvacuationZone
}

// Generate buffers g at each radius. Radii must be positive and strictly
// increasing. Every zone is sampled on the bearing set required by the
// smallest radius, which makes zone(r1) a subset of zone(r2) for r1 < r2.
// Multipolygon parts whose outermost zones could meet share one zone polygon
// per radius, so zone areas never count the same ground twice.
//
// Disasters whose zones reach the antimeridian are not supported: the zone
// vertices fall outside [-180,180] and Generate returns a ComputationFailure.
func Generate(g orb.Geometry, radii []float64, tolerance float64) (Result, error) {
	if len(radii) == 0 {
		return Result{}, engineerr.InvalidArgument("evacuation zones", "no radii given")
	}
	for i, r := range radii {
		if math.IsNaN(r) || r <= 0 {
			return Result{}, engineerr.InvalidArgument("evacuation zones", "radius %v must be positive", r)
		}
		if i > 0 && r <= radii[i-1] {
			return Result{}, engineerr.InvalidArgument("evacuation zones", "radii must be strictly increasing, got %v after %v", r, radii[i-1])
		}
	}
	if tolerance <= 0 {
		tolerance = geometry.DefaultTolerance
	}

	bufs, err := geometry.NestedBuffers(g, radii, tolerance)
	if err != nil {
		return Result{}, err
	}

	zones := make([]models.EvacuationZone, 0, len(radii))
	for i, r := range radii {
		buf := bufs[i]
		area, err := geometry.AreaSqMeters(buf)
		if err != nil {
			return Result{}, engineerr.ComputationFailure("evacuation zones", "zone %.0fm: %v", r, err)
		}
		zones = append(zones, models.EvacuationZone{
			RadiusMeters: r,
			Geometry:     buf,
			AreaSqKm:     area / 1e6,
		})
	}
	return Result{Zones: zones}, nil
}
