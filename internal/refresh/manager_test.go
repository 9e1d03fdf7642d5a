package refresh

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mr1hm/go-disaster-impact/internal/config"
	"github.com/mr1hm/go-disaster-impact/internal/models"
	"github.com/mr1hm/go-disaster-impact/internal/observability"
	"github.com/mr1hm/go-disaster-impact/internal/snapshot"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSource struct {
	mu        sync.Mutex
	disasters []models.Disaster
	err       error
}

func (f *fakeSource) LoadDisasters(context.Context) ([]models.Disaster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Disaster(nil), f.disasters...), f.err
}

func (f *fakeSource) LoadCensusBlocks(context.Context) ([]models.CensusBlock, error) {
	return []models.CensusBlock{{
		ID:         "blk1",
		Population: 250,
		Geometry:   orb.Polygon{{{-118, 34}, {-117.99, 34}, {-117.99, 34.01}, {-118, 34.01}, {-118, 34}}},
	}}, nil
}

func (f *fakeSource) LoadSites(context.Context) ([]models.InfrastructureSite, error) {
	return nil, nil
}

func (f *fakeSource) set(ds []models.Disaster, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disasters, f.err = ds, err
}

type fakeAssessor struct {
	mu  sync.Mutex
	ids []string
	hit chan struct{}
}

func (a *fakeAssessor) Assess(_ context.Context, id string) (*models.ImpactAssessment, error) {
	a.mu.Lock()
	a.ids = append(a.ids, id)
	a.mu.Unlock()
	a.hit <- struct{}{}
	return &models.ImpactAssessment{DisasterID: id}, nil
}

func disaster(id string, active bool) models.Disaster {
	return models.Disaster{
		ID:       id,
		Category: models.CategoryEarthquake,
		Geometry: orb.Point{-118, 34},
		Active:   active,
	}
}

func testConfig(enabled, reassess bool) *config.Config {
	return &config.Config{
		Worker:  config.WorkerConfig{Count: 2, BufferSize: 10},
		Refresh: config.RefreshConfig{Enabled: enabled, Schedule: "*/15 * * * *", Reassess: reassess},
	}
}

func TestRefresh_PublishesSnapshot(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC))
	src := &fakeSource{disasters: []models.Disaster{disaster("eq-1", true)}}
	store := snapshot.NewStore()
	m := observability.NewMetricsForTesting()

	var observed *snapshot.Snapshot
	mgr := NewManager(testConfig(false, false), src, store, nil,
		WithClock(clock),
		WithMetrics(m),
		OnPublish(func(s *snapshot.Snapshot) { observed = s }))
	require.NoError(t, mgr.Refresh(context.Background()))

	snap := store.Current()
	assert.Same(t, snap, observed)
	assert.Equal(t, snapshot.Counts{Disasters: 1, CensusBlocks: 1}, snap.Counts())
	assert.Equal(t, clock.Now(), snap.BuiltAt())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Refreshes.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotRecords.WithLabelValues("disasters")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotRecords.WithLabelValues("census_blocks")))
	assert.Equal(t, float64(clock.Now().Unix()), testutil.ToFloat64(m.SnapshotAge))
}

func TestRefresh_FailureKeepsPreviousSnapshot(t *testing.T) {
	src := &fakeSource{disasters: []models.Disaster{disaster("eq-1", true)}}
	store := snapshot.NewStore()
	m := observability.NewMetricsForTesting()
	mgr := NewManager(testConfig(false, false), src, store, nil, WithMetrics(m))

	require.NoError(t, mgr.Refresh(context.Background()))
	before := store.Current()

	src.set(nil, errors.New("database is locked"))
	err := mgr.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.Same(t, before, store.Current())

	// An invalid record fails the build the same way.
	src.set([]models.Disaster{{ID: "bad", Category: models.CategoryFlood, Geometry: orb.Point{200, 0}}}, nil)
	require.Error(t, mgr.Refresh(context.Background()))
	assert.Same(t, before, store.Current())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Refreshes.WithLabelValues("error")))
}

func TestStart_ReassessesActiveDisasters(t *testing.T) {
	src := &fakeSource{disasters: []models.Disaster{
		disaster("eq-1", true),
		disaster("eq-2", false),
		disaster("eq-3", true),
	}}
	assessor := &fakeAssessor{hit: make(chan struct{}, 10)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := NewManager(testConfig(false, true), src, snapshot.NewStore(), assessor)
	require.NoError(t, mgr.Start(ctx))

	for i := 0; i < 2; i++ {
		select {
		case <-assessor.hit:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for reassessment")
		}
	}
	mgr.Stop()

	assessor.mu.Lock()
	ids := append([]string(nil), assessor.ids...)
	assessor.mu.Unlock()
	sort.Strings(ids)
	assert.Equal(t, []string{"eq-1", "eq-3"}, ids)
}

func TestStart_SchedulesAndStops(t *testing.T) {
	src := &fakeSource{disasters: []models.Disaster{disaster("eq-1", true)}}
	store := snapshot.NewStore()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := NewManager(testConfig(true, false), src, store, nil)
	require.NoError(t, mgr.Start(ctx))
	assert.Equal(t, 1, store.Current().Counts().Disasters, "initial load runs before the schedule")

	mgr.Stop()
}

func TestStart_InvalidSchedule(t *testing.T) {
	cfg := testConfig(true, false)
	cfg.Refresh.Schedule = "whenever"

	mgr := NewManager(cfg, &fakeSource{}, snapshot.NewStore(), nil)
	err := mgr.Start(context.Background())
	require.Error(t, err)
	mgr.Stop()
}
