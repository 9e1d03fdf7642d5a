// Package impact orchestrates a full impact assessment for one disaster:
// affected population, nearby infrastructure, evacuation zones and scores,
// all computed against a single snapshot.
package impact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/mr1hm/go-disaster-impact/internal/detection"
	"github.com/mr1hm/go-disaster-impact/internal/engineerr"
	"github.com/mr1hm/go-disaster-impact/internal/evacuation"
	"github.com/mr1hm/go-disaster-impact/internal/geometry"
	"github.com/mr1hm/go-disaster-impact/internal/hotspot"
	"github.com/mr1hm/go-disaster-impact/internal/models"
	"github.com/mr1hm/go-disaster-impact/internal/observability"
	"github.com/mr1hm/go-disaster-impact/internal/population"
	"github.com/mr1hm/go-disaster-impact/internal/proximity"
	"github.com/mr1hm/go-disaster-impact/internal/scoring"
	"github.com/mr1hm/go-disaster-impact/internal/snapshot"
)

// Snapshots hands out the snapshot an operation runs against.
type Snapshots interface {
	Current() *snapshot.Snapshot
}

// Recorder persists finished assessments.
type Recorder interface {
	SaveAssessment(ctx context.Context, a *models.ImpactAssessment) error
}

// Publisher receives every persisted assessment.
type Publisher interface {
	Broadcast(a *models.ImpactAssessment)
}

type Config struct {
	ProximityRadiusMeters float64
	ZoneRadii             []float64
	BufferTolerance       float64
	HotspotLookback       time.Duration
	DetectionMeters       float64
	Tables                *scoring.Tables
}

func DefaultConfig() Config {
	return Config{
		ProximityRadiusMeters: proximity.DefaultRadiusMeters,
		ZoneRadii:             evacuation.DefaultRadii,
		BufferTolerance:       geometry.DefaultTolerance,
		HotspotLookback:       hotspot.DefaultLookback,
		DetectionMeters:       detection.DefaultClusterMeters,
		Tables:                scoring.DefaultTables(),
	}
}

type Engine struct {
	cfg       Config
	snapshots Snapshots
	clock     clockwork.Clock
	recorder  Recorder
	publisher Publisher
	metrics   *observability.Metrics
	newID     func() string
}

type Option func(*Engine)

func WithClock(c clockwork.Clock) Option { return func(e *Engine) { e.clock = c } }
func WithRecorder(r Recorder) Option     { return func(e *Engine) { e.recorder = r } }
func WithPublisher(p Publisher) Option   { return func(e *Engine) { e.publisher = p } }

func WithMetrics(m *observability.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithIDGenerator replaces the uuid assessment ids.
func WithIDGenerator(f func() string) Option { return func(e *Engine) { e.newID = f } }

// NewEngine fills zero Config fields with DefaultConfig values.
func NewEngine(snapshots Snapshots, cfg Config, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.ProximityRadiusMeters <= 0 {
		cfg.ProximityRadiusMeters = def.ProximityRadiusMeters
	}
	if len(cfg.ZoneRadii) == 0 {
		cfg.ZoneRadii = def.ZoneRadii
	}
	if cfg.BufferTolerance <= 0 {
		cfg.BufferTolerance = def.BufferTolerance
	}
	if cfg.HotspotLookback <= 0 {
		cfg.HotspotLookback = def.HotspotLookback
	}
	if cfg.DetectionMeters <= 0 {
		cfg.DetectionMeters = def.DetectionMeters
	}
	if cfg.Tables == nil {
		cfg.Tables = def.Tables
	}

	e := &Engine{
		cfg:       cfg,
		snapshots: snapshots,
		clock:     clockwork.NewRealClock(),
		metrics:   observability.New(nil),
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) disaster(snap *snapshot.Snapshot, op, id string) (*models.Disaster, error) {
	d, ok := snap.Disaster(id)
	if !ok {
		return nil, engineerr.NotFound(op, "disaster %q", id)
	}
	return d, nil
}

// Assess computes, records and publishes a new assessment. Nothing is
// recorded or published unless every step succeeds.
func (e *Engine) Assess(ctx context.Context, disasterID string) (*models.ImpactAssessment, error) {
	start := e.clock.Now()
	a, err := e.assess(ctx, disasterID)
	e.metrics.AssessmentDuration.Observe(e.clock.Since(start).Seconds())
	e.metrics.Assessments.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		slog.Warn("assessment failed", "disaster_id", disasterID, "error", err)
		return nil, err
	}
	e.metrics.AffectedPopulation.Observe(float64(a.AffectedPopulation))
	slog.Info("assessment complete",
		"disaster_id", disasterID,
		"assessment_id", a.ID,
		"population", a.AffectedPopulation,
		"sites", len(a.NearbySites),
		"loss", a.EstimatedLoss)
	return a, nil
}

func (e *Engine) assess(ctx context.Context, disasterID string) (*models.ImpactAssessment, error) {
	snap := e.snapshots.Current()
	d, err := e.disaster(snap, "assess", disasterID)
	if err != nil {
		return nil, err
	}

	var (
		pop     population.Result
		matches []proximity.Match
		zones   evacuation.Result
		areaSqM float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pop, err = population.Aggregate(gctx, d.Geometry, snap)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = proximity.WithinRadius(gctx, snap, d.Geometry, e.cfg.ProximityRadiusMeters, proximity.RadiusOptions{})
		return err
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		var err error
		zones, err = evacuation.Generate(d.Geometry, e.cfg.ZoneRadii, e.cfg.BufferTolerance)
		return err
	})
	g.Go(func() error {
		var err error
		areaSqM, err = geometry.AreaSqMeters(d.Geometry)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("assessing %s: %w", d.ID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	areaSqKm := areaSqM / 1e6
	loss, err := e.cfg.Tables.EstimateLoss(d.Category, d.Severity, pop.TotalPopulation, areaSqKm)
	if err != nil {
		return nil, fmt.Errorf("assessing %s: %w", d.ID, err)
	}

	a := &models.ImpactAssessment{
		ID:                   e.newID(),
		DisasterID:           d.ID,
		Category:             d.Category,
		Severity:             d.Severity,
		AssessedAt:           e.clock.Now().UTC(),
		AffectedPopulation:   pop.TotalPopulation,
		AffectedHouseholds:   pop.Households,
		Elderly:              pop.Elderly,
		Children:             pop.Children,
		Disabled:             pop.Disabled,
		LowIncome:            pop.LowIncome,
		BlockCount:           pop.BlockCount,
		InfrastructureCounts: proximity.CountByCategory(matches),
		NearbySites:          SiteDistances(matches),
		EstimatedLoss:        loss,
		VulnerabilityScore: e.cfg.Tables.VulnerabilityScore(scoring.Demographics{
			Population: pop.TotalPopulation,
			Elderly:    pop.Elderly,
			Children:   pop.Children,
			Disabled:   pop.Disabled,
			LowIncome:  pop.LowIncome,
		}),
		AffectedAreaSqKm: areaSqKm,
		Zones:            zones.Zones,
	}

	if e.recorder != nil {
		if err := e.recorder.SaveAssessment(ctx, a); err != nil {
			return nil, fmt.Errorf("recording assessment for %s: %w", d.ID, err)
		}
	}
	if e.publisher != nil {
		e.publisher.Broadcast(a)
	}
	return a, nil
}

// SiteDistances flattens proximity matches into their reported form.
func SiteDistances(matches []proximity.Match) []models.SiteDistance {
	out := make([]models.SiteDistance, len(matches))
	for i, m := range matches {
		out[i] = models.SiteDistance{
			SiteID:         m.Site.ID,
			Name:           m.Site.Name,
			Category:       m.Site.Category,
			Operational:    m.Site.Operational,
			DistanceMeters: m.DistanceMeters,
		}
	}
	return out
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, engineerr.ErrNotFound):
		return "not_found"
	case errors.Is(err, engineerr.ErrInvalidArgument), errors.Is(err, engineerr.ErrInvalidGeometry):
		return "invalid"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "failure"
	}
}

// Population aggregates the census blocks touched by a disaster.
func (e *Engine) Population(ctx context.Context, disasterID string) (population.Result, error) {
	snap := e.snapshots.Current()
	d, err := e.disaster(snap, "population", disasterID)
	if err != nil {
		return population.Result{}, err
	}
	return population.Aggregate(ctx, d.Geometry, snap)
}

// EvacuationZones generates the configured zones for a disaster.
func (e *Engine) EvacuationZones(ctx context.Context, disasterID string) (evacuation.Result, error) {
	d, err := e.disaster(e.snapshots.Current(), "evacuation zones", disasterID)
	if err != nil {
		return evacuation.Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return evacuation.Result{}, err
	}
	return evacuation.Generate(d.Geometry, e.cfg.ZoneRadii, e.cfg.BufferTolerance)
}

// InfrastructureWithin lists sites near a disaster. A non-positive radius
// uses the configured proximity radius; an empty category means all.
func (e *Engine) InfrastructureWithin(ctx context.Context, disasterID string, radiusMeters float64, category string) ([]proximity.Match, error) {
	snap := e.snapshots.Current()
	d, err := e.disaster(snap, "infrastructure within", disasterID)
	if err != nil {
		return nil, err
	}
	if radiusMeters <= 0 {
		radiusMeters = e.cfg.ProximityRadiusMeters
	}
	var opts proximity.RadiusOptions
	if category != "" {
		cat, ok := models.ParseSiteCategory(category)
		if !ok {
			return nil, engineerr.InvalidArgument("infrastructure within", "unknown infrastructure category %q", category)
		}
		opts.Category = cat
	}
	return proximity.WithinRadius(ctx, snap, d.Geometry, radiusMeters, opts)
}

func (e *Engine) Nearest(ctx context.Context, p orb.Point, category string, k int) ([]proximity.Match, error) {
	return proximity.Nearest(ctx, e.snapshots.Current(), p, category, k)
}

// Hotspots clusters recent disasters of one category.
func (e *Engine) Hotspots(category string, k int) ([]models.ClusterResult, error) {
	e.metrics.HotspotRuns.Inc()
	return hotspot.Hotspots(e.snapshots.Current().Disasters(), category, k, e.clock.Now(), e.cfg.HotspotLookback, hotspot.Options{})
}

// ClusterDetections turns raw fire detections into wildfire disasters. The
// result is not added to any snapshot.
func (e *Engine) ClusterDetections(detections []models.FireDetection) ([]models.Disaster, error) {
	out, err := detection.ToDisasters(detections, e.cfg.DetectionMeters, e.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	e.metrics.DetectionClusters.Add(float64(len(out)))
	return out, nil
}

// Snapshot is the snapshot new operations currently run against.
func (e *Engine) Snapshot() *snapshot.Snapshot { return e.snapshots.Current() }
