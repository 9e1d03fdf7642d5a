package detection

import (
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-disaster-impact/internal/engineerr"
	"github.com/mr1hm/go-disaster-impact/internal/models"
)

func detectionAt(p orb.Point, frp float64, at time.Time) models.FireDetection {
	return models.FireDetection{Longitude: p[0], Latitude: p[1], Brightness: 330, FRP: frp, AcquiredAt: at}
}

func TestCluster_GroupsNearbyDetections(t *testing.T) {
	base := orb.Point{-121.5, 39.7}
	t0 := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

	detections := []models.FireDetection{
		detectionAt(base, 5, t0),
		detectionAt(geo.PointAtBearingAndDistance(base, 90, 40000), 20, t0),
		detectionAt(geo.PointAtBearingAndDistance(base, 0, 2000), 8, t0),
		detectionAt(geo.PointAtBearingAndDistance(base, 180, 3000), 12, t0),
	}

	clusters, err := Cluster(detections, DefaultClusterMeters)
	require.NoError(t, err)
	require.Len(t, clusters, 2)
	assert.Len(t, clusters[0], 3)
	assert.Len(t, clusters[1], 1)
	assert.Equal(t, 20.0, clusters[1][0].FRP)
}

func TestCluster_ChainsThroughRunningCentroid(t *testing.T) {
	base := orb.Point{-100, 45}
	// A 6 km line of detections 2 km apart: the far end is only in reach of
	// the centroid once the cluster has grown towards it.
	var detections []models.FireDetection
	for i := 0; i < 4; i++ {
		detections = append(detections, detectionAt(geo.PointAtBearingAndDistance(base, 90, float64(i)*2000), 1, time.Time{}))
	}

	clusters, err := Cluster(detections, DefaultClusterMeters)
	require.NoError(t, err)
	assert.Len(t, clusters, 1)
}

func TestCluster_InvalidInput(t *testing.T) {
	_, err := Cluster(nil, 0)
	assert.True(t, errors.Is(err, engineerr.ErrInvalidArgument))

	_, err = Cluster([]models.FireDetection{{Latitude: 120}}, DefaultClusterMeters)
	assert.True(t, errors.Is(err, engineerr.ErrInvalidGeometry))
}

func TestToDisasters(t *testing.T) {
	base := orb.Point{-121.5, 39.7}
	early := time.Date(2024, 6, 14, 23, 0, 0, 0, time.UTC)
	late := time.Date(2024, 6, 15, 2, 0, 0, 0, time.UTC)
	now := late.Add(time.Hour)

	detections := []models.FireDetection{
		{Longitude: base[0], Latitude: base[1], Brightness: 320, FRP: 40, AcquiredAt: early},
		{Longitude: base[0] + 0.01, Latitude: base[1], Brightness: 340, FRP: 75, AcquiredAt: late},
		{Longitude: -80, Latitude: 27, Brightness: 300, FRP: 3, AcquiredAt: early},
	}

	got, err := ToDisasters(detections, DefaultClusterMeters, now)
	require.NoError(t, err)
	require.Len(t, got, 2)

	fire := got[0]
	assert.Equal(t, "firms_20240615_0", fire.ID)
	assert.Equal(t, models.CategoryWildfire, fire.Category)
	assert.Equal(t, models.SeveritySevere, fire.Severity)
	assert.Equal(t, late, fire.StartTime)
	assert.True(t, fire.Active)
	assert.IsType(t, orb.MultiPoint{}, fire.Geometry)
	assert.InDelta(t, base[0]+0.005, fire.Centroid.Lon(), 1e-9)

	attrs, ok := fire.Attributes.(models.FireAttributes)
	require.True(t, ok)
	assert.InDelta(t, 330-273.15, attrs.TemperatureCelsius, 1e-9)
	assert.Equal(t, 75.0, attrs.FireRadiativePower)
	require.NoError(t, fire.Validate())

	single := got[1]
	assert.Equal(t, "firms_20240614_1", single.ID)
	assert.Equal(t, models.SeverityMinor, single.Severity)
	assert.Equal(t, orb.Point{-80, 27}, single.Geometry)
}

func TestToDisasters_BurnedAreaRaisesSeverity(t *testing.T) {
	detections := []models.FireDetection{
		{Longitude: -115, Latitude: 55, FRP: 2, SizeHectares: 250, OutOfControl: true},
	}

	got, err := ToDisasters(detections, DefaultClusterMeters, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.SeveritySevere, got[0].Severity)
	assert.Equal(t, "firms_20240701_0", got[0].ID)
}

func TestSeverityFromFRP(t *testing.T) {
	assert.Equal(t, models.SeverityMinor, SeverityFromFRP(9.9))
	assert.Equal(t, models.SeverityModerate, SeverityFromFRP(10))
	assert.Equal(t, models.SeveritySevere, SeverityFromFRP(99))
	assert.Equal(t, models.SeverityExtreme, SeverityFromFRP(100))
}

func TestSeverityFromBurnedArea(t *testing.T) {
	tests := []struct {
		hectares     float64
		outOfControl bool
		want         models.Severity
	}{
		{5, false, models.SeverityMinor},
		{5, true, models.SeverityModerate},
		{50, true, models.SeveritySevere},
		{500, false, models.SeveritySevere},
		{500, true, models.SeveritySevere},
		{5000, false, models.SeverityExtreme},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SeverityFromBurnedArea(tt.hectares, tt.outOfControl), "%v ha out of control=%v", tt.hectares, tt.outOfControl)
	}
}
