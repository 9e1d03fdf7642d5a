package models

import (
	"github.com/paulmach/orb"

	"github.com/mr1hm/go-disaster-impact/internal/engineerr"
	"github.com/mr1hm/go-disaster-impact/internal/geometry"
)

type CensusBlock struct {
	ID         string
	Geometry   orb.Geometry // Polygon or MultiPolygon
	Centroid   orb.Point
	Population int
	Households int
	Elderly    int // 65+
	Children   int // under 18
	Disabled   int
	LowIncome  int
	Year       int     // data vintage
	Density    float64 // people per km²
	areaSqKm   float64
}

// SetGeometry validates g and recomputes centroid and density.
func (b *CensusBlock) SetGeometry(g orb.Geometry) error {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		if g == nil {
			return engineerr.InvalidGeometry("census block", "%s: geometry is nil", b.ID)
		}
		return engineerr.InvalidGeometry("census block", "%s: %s is not areal", b.ID, g.GeoJSONType())
	}
	c, err := geometry.Centroid(g)
	if err != nil {
		return err
	}
	area, err := geometry.AreaSqMeters(g)
	if err != nil {
		return err
	}
	b.Geometry = g
	b.Centroid = c
	b.areaSqKm = area / 1e6
	b.updateDensity()
	return nil
}

func (b *CensusBlock) SetPopulation(n int) {
	b.Population = n
	b.updateDensity()
}

func (b *CensusBlock) updateDensity() {
	if b.areaSqKm > 0 {
		b.Density = float64(b.Population) / b.areaSqKm
	} else {
		b.Density = 0
	}
}

func (b *CensusBlock) Validate() error {
	if b.ID == "" {
		return engineerr.InvalidArgument("census block", "id is required")
	}
	if b.Population < 0 || b.Households < 0 {
		return engineerr.InvalidArgument("census block", "%s: negative population or households", b.ID)
	}
	for name, n := range map[string]int{
		"elderly": b.Elderly, "children": b.Children, "disabled": b.Disabled, "low_income": b.LowIncome,
	} {
		if n < 0 || n > b.Population {
			return engineerr.InvalidArgument("census block", "%s: %s count %d outside [0,%d]", b.ID, name, n, b.Population)
		}
	}
	return geometry.Validate(b.Geometry)
}
