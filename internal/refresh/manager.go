// Package refresh keeps the published snapshot in step with the repository
// on a cron schedule and optionally reassesses active disasters after each
// reload.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"github.com/mr1hm/go-disaster-impact/internal/config"
	"github.com/mr1hm/go-disaster-impact/internal/models"
	"github.com/mr1hm/go-disaster-impact/internal/observability"
	"github.com/mr1hm/go-disaster-impact/internal/snapshot"
	"github.com/mr1hm/go-disaster-impact/internal/worker"
)

type Assessor interface {
	Assess(ctx context.Context, disasterID string) (*models.ImpactAssessment, error)
}

type Manager struct {
	cfg       *config.Config
	source    snapshot.Source
	store     *snapshot.Store
	assessor  Assessor
	clock     clockwork.Clock
	metrics   *observability.Metrics
	onPublish []func(*snapshot.Snapshot)

	mu   sync.Mutex // serializes Refresh
	cron *cron.Cron
	pool *worker.WorkerPool[string]
}

type Option func(*Manager)

// OnPublish registers f to run after every successful reload.
func OnPublish(f func(*snapshot.Snapshot)) Option {
	return func(m *Manager) { m.onPublish = append(m.onPublish, f) }
}

func WithClock(c clockwork.Clock) Option           { return func(m *Manager) { m.clock = c } }
func WithMetrics(mt *observability.Metrics) Option { return func(m *Manager) { m.metrics = mt } }

// NewManager wires a refresher; assessor may be nil when reassessment is off.
func NewManager(cfg *config.Config, src snapshot.Source, store *snapshot.Store, assessor Assessor, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		source:   src,
		store:    store,
		assessor: assessor,
		clock:    clockwork.NewRealClock(),
		metrics:  observability.New(nil),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start performs an initial load and then schedules further reloads. A
// failed initial load is logged and leaves the empty snapshot in place.
func (m *Manager) Start(ctx context.Context) error {
	if m.cfg.Refresh.Reassess && m.assessor != nil {
		m.pool = worker.NewWorkerPool("reassess", m.cfg.Worker.Count, m.cfg.Worker.BufferSize, m.reassess)
		m.pool.Start(ctx)
	}

	if err := m.Refresh(ctx); err != nil {
		slog.Error("initial snapshot load failed", "error", err)
	}

	if !m.cfg.Refresh.Enabled {
		return nil
	}

	m.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := m.cron.AddFunc(m.cfg.Refresh.Schedule, func() {
		if err := m.Refresh(ctx); err != nil {
			slog.Error("scheduled refresh failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("scheduling refresh %q: %w", m.cfg.Refresh.Schedule, err)
	}
	m.cron.Start()

	slog.Info("snapshot refresh scheduled", "schedule", m.cfg.Refresh.Schedule, "reassess", m.pool != nil)
	return nil
}

// Refresh reloads the snapshot and publishes it. On any error the
// previous snapshot stays current.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, err := snapshot.Load(ctx, m.source, m.clock)
	if err != nil {
		m.metrics.Refreshes.WithLabelValues("error").Inc()
		return fmt.Errorf("refreshing snapshot: %w", err)
	}
	m.store.Publish(snap)
	for _, f := range m.onPublish {
		f(snap)
	}

	counts := snap.Counts()
	m.metrics.Refreshes.WithLabelValues("success").Inc()
	m.metrics.SnapshotRecords.WithLabelValues("disasters").Set(float64(counts.Disasters))
	m.metrics.SnapshotRecords.WithLabelValues("census_blocks").Set(float64(counts.CensusBlocks))
	m.metrics.SnapshotRecords.WithLabelValues("sites").Set(float64(counts.Sites))
	m.metrics.SnapshotAge.Set(float64(snap.BuiltAt().Unix()))

	slog.Info("snapshot published",
		"disasters", counts.Disasters,
		"census_blocks", counts.CensusBlocks,
		"sites", counts.Sites)

	if m.pool == nil {
		return nil
	}

	queued := 0
	for _, d := range snap.Disasters() {
		if !d.Active {
			continue
		}
		if err := m.pool.Submit(ctx, d.ID); err != nil {
			slog.Warn("reassessment not queued", "disaster_id", d.ID, "error", err)
			break
		}
		queued++
	}
	slog.Debug("reassessments queued", "count", queued)
	return nil
}

func (m *Manager) reassess(ctx context.Context, disasterID string) error {
	_, err := m.assessor.Assess(ctx, disasterID)
	return err
}

// Stop halts the schedule, waits for a running refresh and drains queued
// reassessments.
func (m *Manager) Stop() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
	if m.pool != nil {
		m.pool.Stop()
	}
	slog.Info("refresh manager stopped")
}
