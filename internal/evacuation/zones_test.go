package evacuation

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-disaster-impact/internal/engineerr"
	"github.com/mr1hm/go-disaster-impact/internal/geometry"
)

func square(minLon, minLat, size float64) orb.Polygon {
	return orb.Polygon{{
		{minLon, minLat},
		{minLon + size, minLat},
		{minLon + size, minLat + size},
		{minLon, minLat + size},
		{minLon, minLat},
	}}
}

func TestGenerate_NestedZones(t *testing.T) {
	geometries := map[string]orb.Geometry{
		"point":   orb.Point{-122.27, 37.87},
		"polar":   orb.Point{15.6, 78.2},
		"polygon": orb.Polygon{{{-121.0, 39.0}, {-120.9, 39.02}, {-120.85, 39.1}, {-120.95, 39.12}, {-121.0, 39.0}}},
		"multipolygon": orb.MultiPolygon{
			{{{-90.1, 29.9}, {-90.0, 29.9}, {-90.0, 30.0}, {-90.1, 30.0}, {-90.1, 29.9}}},
			{{{-89.5, 30.2}, {-89.4, 30.2}, {-89.4, 30.3}, {-89.5, 30.3}, {-89.5, 30.2}}},
		},
		"close multipolygon": orb.MultiPolygon{square(0, 0, .001), square(.02, 0, .001)},
	}

	for name, g := range geometries {
		t.Run(name, func(t *testing.T) {
			res, err := Generate(g, DefaultRadii, 0)
			require.NoError(t, err)
			require.Len(t, res.Zones, 3)

			for i := 1; i < len(res.Zones); i++ {
				inner, outer := res.Zones[i-1], res.Zones[i]
				assert.Less(t, inner.AreaSqKm, outer.AreaSqKm)

				covers, err := geometry.Covers(outer.Geometry, inner.Geometry)
				require.NoError(t, err)
				assert.True(t, covers, "zone %.0fm must contain zone %.0fm", outer.RadiusMeters, inner.RadiusMeters)
			}

			covers, err := geometry.Covers(res.Zones[0].Geometry, g)
			require.NoError(t, err)
			assert.True(t, covers, "innermost zone contains the disaster")
		})
	}
}

func TestGenerate_PointZoneAreas(t *testing.T) {
	res, err := Generate(orb.Point{0, 0}, []float64{1000, 5000, 10000}, 0)
	require.NoError(t, err)

	for _, z := range res.Zones {
		ideal := 3.14159 * z.RadiusMeters * z.RadiusMeters / 1e6
		assert.InEpsilon(t, ideal, z.AreaSqKm, 0.02)
	}
}

func TestGenerate_ClosePartsShareOneZone(t *testing.T) {
	// Two small burn scars about 2.2 km apart: their 5 km and 10 km zones
	// overlap and must be counted once.
	g := orb.MultiPolygon{square(0, 0, .001), square(.02, 0, .001)}

	res, err := Generate(g, []float64{1000, 5000, 10000}, 0)
	require.NoError(t, err)
	require.Len(t, res.Zones, 3)

	single, err := Generate(square(0, 0, .001), []float64{10000}, 0)
	require.NoError(t, err)
	disc := single.Zones[0].AreaSqKm

	for _, z := range res.Zones {
		_, ok := z.Geometry.(orb.Polygon)
		assert.True(t, ok, "zone %.0fm is one polygon, got %T", z.RadiusMeters, z.Geometry)
		require.NoError(t, geometry.Validate(z.Geometry))
	}

	outer := res.Zones[2].AreaSqKm
	assert.Greater(t, outer, disc)
	assert.Less(t, outer, 400.0, "union of two 10 km discs 2.2 km apart is about 360 km²")
	assert.Less(t, outer, 1.5*disc)
}

func TestGenerate_DistantPartsKeepSeparateZones(t *testing.T) {
	g := orb.MultiPolygon{square(0, 0, .001), square(1, 0, .001)}

	res, err := Generate(g, []float64{1000, 10000}, 0)
	require.NoError(t, err)

	single, err := Generate(square(0, 0, .001), []float64{1000, 10000}, 0)
	require.NoError(t, err)

	for i, z := range res.Zones {
		mp, ok := z.Geometry.(orb.MultiPolygon)
		require.True(t, ok, "zone %.0fm, got %T", z.RadiusMeters, z.Geometry)
		assert.Len(t, mp, 2)
		assert.InEpsilon(t, 2*single.Zones[i].AreaSqKm, z.AreaSqKm, 0.01)
	}
}

func TestGenerate_AntimeridianFails(t *testing.T) {
	_, err := Generate(orb.Point{179.99, 0}, DefaultRadii, 0)
	assert.True(t, errors.Is(err, engineerr.ErrComputationFailure))
}

func TestGenerate_InvalidRadii(t *testing.T) {
	for _, radii := range [][]float64{nil, {0, 1000}, {5000, 1000}, {1000, 1000}} {
		_, err := Generate(orb.Point{0, 0}, radii, 0)
		assert.True(t, errors.Is(err, engineerr.ErrInvalidArgument), "radii %v", radii)
	}
}

func TestGenerate_InvalidGeometry(t *testing.T) {
	_, err := Generate(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}}}, DefaultRadii, 0)
	assert.True(t, errors.Is(err, engineerr.ErrInvalidGeometry))
}
