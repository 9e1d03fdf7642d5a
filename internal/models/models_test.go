package models

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-disaster-impact/internal/engineerr"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"wildfire", CategoryWildfire, true},
		{"Severe Weather", CategorySevereWeather, true},
		{"winter-storm", CategoryWinterStorm, true},
		{"volcano", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCategory(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSeverity_Escalate(t *testing.T) {
	assert.Equal(t, SeverityModerate, SeverityMinor.Escalate())
	assert.Equal(t, SeverityExtreme, SeveritySevere.Escalate())
	assert.Equal(t, SeverityExtreme, SeverityExtreme.Escalate())
	assert.Greater(t, SeverityExtreme.Rank(), SeverityMinor.Rank())
}

func TestDisaster_SetGeometryRecomputesCentroid(t *testing.T) {
	d := &Disaster{ID: "wf_1", Category: CategoryWildfire}
	require.NoError(t, d.SetGeometry(orb.Point{-120, 38}))
	assert.Equal(t, orb.Point{-120, 38}, d.Centroid)

	require.NoError(t, d.SetGeometry(orb.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}}))
	assert.InDelta(t, 1.0, d.Centroid.Lon(), 1e-9)
	assert.InDelta(t, 1.0, d.Centroid.Lat(), 1e-9)

	err := d.SetGeometry(orb.Point{0, 200})
	assert.True(t, errors.Is(err, engineerr.ErrInvalidGeometry))
	assert.InDelta(t, 1.0, d.Centroid.Lon(), 1e-9, "failed update keeps previous geometry")
}

func TestDisaster_ValidateAttributesMatchCategory(t *testing.T) {
	d := &Disaster{
		ID:         "eq_1",
		Category:   CategoryEarthquake,
		Geometry:   orb.Point{139.7, 35.7},
		Attributes: WindAttributes{WindSpeedKph: 150},
	}
	err := d.Validate()
	assert.True(t, errors.Is(err, engineerr.ErrInvalidArgument))

	d.Attributes = EarthquakeAttributes{Magnitude: 6.1}
	assert.NoError(t, d.Validate())

	d.Category = CategoryTornado
	d.Attributes = WindAttributes{WindSpeedKph: 250}
	assert.NoError(t, d.Validate())
}

func TestAttributesEnvelope(t *testing.T) {
	depth := 10.5
	data, err := MarshalAttributes(EarthquakeAttributes{Magnitude: 6.4, DepthKm: &depth})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"earthquake","data":{"magnitude":6.4,"depth_km":10.5}}`, string(data))

	a, err := UnmarshalAttributes(data)
	require.NoError(t, err)
	eq, ok := a.(EarthquakeAttributes)
	require.True(t, ok)
	assert.Equal(t, 6.4, eq.Magnitude)

	a, err = UnmarshalAttributes(nil)
	require.NoError(t, err)
	assert.Nil(t, a)

	_, err = UnmarshalAttributes([]byte(`{"kind":"tsunami","data":{}}`))
	assert.Error(t, err)
}

func TestCensusBlock_Density(t *testing.T) {
	b := &CensusBlock{ID: "b1"}
	// Roughly 1.1 km x 1.1 km at the equator.
	require.NoError(t, b.SetGeometry(orb.Polygon{{{0, 0}, {0.01, 0}, {0.01, 0.01}, {0, 0.01}, {0, 0}}}))
	b.SetPopulation(1240)

	assert.InEpsilon(t, 1240/1.2391, b.Density, 0.01)

	b.SetPopulation(0)
	assert.Zero(t, b.Density)

	assert.Error(t, b.SetGeometry(orb.Point{0, 0}))
}

func TestCensusBlock_Validate(t *testing.T) {
	b := &CensusBlock{ID: "b1", Population: 100, Elderly: 101}
	require.NoError(t, b.SetGeometry(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}))
	assert.True(t, errors.Is(b.Validate(), engineerr.ErrInvalidArgument))

	b.Elderly = 40
	assert.NoError(t, b.Validate())
}
