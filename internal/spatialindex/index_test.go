package spatialindex

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_PointsAndBoxes(t *testing.T) {
	idx, err := Build([]Entry{
		{ID: "hospital", Bound: orb.Bound{Min: orb.Point{-122.4, 37.7}, Max: orb.Point{-122.4, 37.7}}},
		{ID: "block", Bound: orb.Bound{Min: orb.Point{-122.5, 37.6}, Max: orb.Point{-122.3, 37.8}}},
		{ID: "far", Bound: orb.Bound{Min: orb.Point{10, 10}, Max: orb.Point{11, 11}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	got := idx.Query(orb.Bound{Min: orb.Point{-122.41, 37.69}, Max: orb.Point{-122.39, 37.71}})
	assert.Equal(t, []string{"block", "hospital"}, got)

	// Touching the box edge still counts.
	got = idx.Query(orb.Bound{Min: orb.Point{11, 11}, Max: orb.Point{12, 12}})
	assert.Equal(t, []string{"far"}, got)

	assert.Empty(t, idx.Query(orb.Bound{Min: orb.Point{50, 50}, Max: orb.Point{51, 51}}))
}

func TestQuery_NoFalseNegatives(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	var entries []Entry
	for i := 0; i < 2000; i++ {
		lon := rng.Float64()*40 - 130
		lat := rng.Float64()*20 + 25
		size := rng.Float64() * 0.5
		entries = append(entries, Entry{
			ID:    fmt.Sprintf("e%04d", i),
			Bound: orb.Bound{Min: orb.Point{lon, lat}, Max: orb.Point{lon + size, lat + size}},
		})
	}
	idx, err := Build(entries)
	require.NoError(t, err)

	for q := 0; q < 50; q++ {
		lon := rng.Float64()*40 - 130
		lat := rng.Float64()*20 + 25
		query := orb.Bound{Min: orb.Point{lon, lat}, Max: orb.Point{lon + 1, lat + 1}}

		got := make(map[string]bool)
		for _, id := range idx.Query(query) {
			got[id] = true
		}
		for _, e := range entries {
			if e.Bound.Intersects(query) {
				assert.True(t, got[e.ID], "missing %s for query %v", e.ID, query)
			}
		}
	}
}

func TestBuild_Empty(t *testing.T) {
	idx, err := Build(nil)
	require.NoError(t, err)
	assert.Zero(t, idx.Len())
	assert.Nil(t, idx.Query(orb.Bound{Max: orb.Point{1, 1}}))
}

func TestBuild_InvertedBound(t *testing.T) {
	_, err := Build([]Entry{{ID: "bad", Bound: orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{0, 0}}}})
	assert.Error(t, err)
}
