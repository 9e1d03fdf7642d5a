// Package proximity answers nearest-k and within-radius questions over
// infrastructure sites.
package proximity

import (
	"context"
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/mr1hm/go-disaster-impact/internal/engineerr"
	"github.com/mr1hm/go-disaster-impact/internal/geometry"
	"github.com/mr1hm/go-disaster-impact/internal/models"
)

const (
	DefaultRadiusMeters = 10000
	MaxNearest          = 100

	initialSearchMeters = 2000
	growthFactor        = 4
)

// halfCircumference is the largest possible great-circle distance.
var halfCircumference = math.Pi * orb.EarthRadius

// SiteIndex returns candidate sites located inside a bound.
type SiteIndex interface {
	SitesInBound(b orb.Bound) []*models.InfrastructureSite
}

type Match struct {
	Site           *models.InfrastructureSite
	DistanceMeters float64
}

// Nearest returns up to k operational sites of category, closest first,
// ties broken by site id. The search box grows until k sites are confirmed
// inside the searched radius or the whole globe has been searched.
func Nearest(ctx context.Context, sites SiteIndex, p orb.Point, category string, k int) ([]Match, error) {
	if category == "" {
		return nil, engineerr.InvalidArgument("nearest", "category is required")
	}
	cat, ok := models.ParseSiteCategory(category)
	if !ok {
		return nil, engineerr.InvalidArgument("nearest", "unknown infrastructure category %q", category)
	}
	if k < 1 || k > MaxNearest {
		return nil, engineerr.InvalidArgument("nearest", "k must be in [1,%d], got %d", MaxNearest, k)
	}
	if err := geometry.Validate(p); err != nil {
		return nil, err
	}

	radius := float64(initialSearchMeters)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var found []Match
		for _, s := range sites.SitesInBound(geometry.BoundAroundPoint(p, radius)) {
			if s.Category != cat || !s.Operational {
				continue
			}
			d := geometry.DistanceMeters(p, s.Location)
			if d <= radius {
				found = append(found, Match{Site: s, DistanceMeters: d})
			}
		}

		// Sites beyond radius may be closer than unconfirmed ones, so only a
		// full set inside the searched cap is final.
		if len(found) >= k || radius >= halfCircumference {
			sortMatches(found)
			if len(found) > k {
				found = found[:k]
			}
			return found, nil
		}
		radius = math.Min(radius*growthFactor, halfCircumference)
	}
}

type RadiusOptions struct {
	// Category restricts results to one infrastructure category when set.
	Category models.SiteCategory
	// OperationalOnly drops sites that are out of service.
	OperationalOnly bool
}

// WithinRadius returns every site within radiusMeters of g itself (not its
// centroid). Each match reports the distance to g's centroid, and matches are
// ordered by that distance then by id.
func WithinRadius(ctx context.Context, sites SiteIndex, g orb.Geometry, radiusMeters float64, opts RadiusOptions) ([]Match, error) {
	if math.IsNaN(radiusMeters) || radiusMeters <= 0 {
		return nil, engineerr.InvalidArgument("within radius", "radius must be positive, got %v", radiusMeters)
	}
	if opts.Category != "" {
		if _, ok := models.ParseSiteCategory(string(opts.Category)); !ok {
			return nil, engineerr.InvalidArgument("within radius", "unknown infrastructure category %q", opts.Category)
		}
	}
	prepared, err := geometry.Prepare(g)
	if err != nil {
		return nil, err
	}
	centroid, err := geometry.Centroid(g)
	if err != nil {
		return nil, err
	}

	var out []Match
	for i, s := range sites.SitesInBound(geometry.PadBound(prepared.Bound(), radiusMeters)) {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if opts.Category != "" && s.Category != opts.Category {
			continue
		}
		if opts.OperationalOnly && !s.Operational {
			continue
		}
		if prepared.DistanceFrom(s.Location) > radiusMeters {
			continue
		}
		out = append(out, Match{Site: s, DistanceMeters: geometry.DistanceMeters(centroid, s.Location)})
	}
	sortMatches(out)
	return out, nil
}

// CountByCategory tallies matches per infrastructure category.
func CountByCategory(matches []Match) map[models.SiteCategory]int {
	counts := make(map[models.SiteCategory]int)
	for _, m := range matches {
		counts[m.Site.Category]++
	}
	return counts
}

func sortMatches(m []Match) {
	sort.Slice(m, func(i, j int) bool {
		if m[i].DistanceMeters != m[j].DistanceMeters {
			return m[i].DistanceMeters < m[j].DistanceMeters
		}
		return m[i].Site.ID < m[j].Site.ID
	})
}
