package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"

	"github.com/mr1hm/go-disaster-impact/internal/config"
	"github.com/mr1hm/go-disaster-impact/internal/impact"
	"github.com/mr1hm/go-disaster-impact/internal/logging"
	"github.com/mr1hm/go-disaster-impact/internal/models"
	"github.com/mr1hm/go-disaster-impact/internal/repository"
	"github.com/mr1hm/go-disaster-impact/internal/seed"
	"github.com/mr1hm/go-disaster-impact/internal/snapshot"
)

type globalOptions struct {
	dbPath string
	json   bool
}

// session is an open database plus an engine over a snapshot loaded from it.
type session struct {
	db     *repository.SQLiteDB
	engine *impact.Engine
}

func openDB(opts *globalOptions) (*config.Config, *repository.SQLiteDB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logging.Setup(cfg.Logging.Level, "text")

	path := cfg.DB.Path
	if opts.dbPath != "" {
		path = opts.dbPath
	}
	db, err := repository.NewSQLiteDB(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return cfg, db, nil
}

func openSession(ctx context.Context, opts *globalOptions, record bool) (*session, error) {
	cfg, db, err := openDB(opts)
	if err != nil {
		return nil, err
	}

	engineCfg, err := impact.ConfigFromEnv(cfg.Engine)
	if err != nil {
		db.Close()
		return nil, err
	}

	clock := clockwork.NewRealClock()
	snap, err := snapshot.Load(ctx, db, clock)
	if err != nil {
		db.Close()
		return nil, err
	}
	store := snapshot.NewStore()
	store.Publish(snap)

	engineOpts := []impact.Option{impact.WithClock(clock)}
	if record {
		engineOpts = append(engineOpts, impact.WithRecorder(db))
	}
	return &session{db: db, engine: impact.NewEngine(store, engineCfg, engineOpts...)}, nil
}

func (s *session) Close() error { return s.db.Close() }

func runImport(ctx context.Context, opts *globalOptions, path string) error {
	_, db, err := openDB(opts)
	if err != nil {
		return err
	}
	defer db.Close()

	summary, err := seed.NewImporter(db, nil).ImportFile(ctx, path)
	if err != nil {
		return err
	}
	if opts.json {
		return printJSON(summary)
	}
	printImportSummary(summary)
	return nil
}

func runAssess(ctx context.Context, opts *globalOptions, disasterID string, save bool) error {
	s, err := openSession(ctx, opts, save)
	if err != nil {
		return err
	}
	defer s.Close()

	a, err := s.engine.Assess(ctx, disasterID)
	if err != nil {
		return err
	}
	if opts.json {
		return printJSON(a)
	}
	printAssessment(a)
	return nil
}

func runHotspots(ctx context.Context, opts *globalOptions, category string, k int) error {
	s, err := openSession(ctx, opts, false)
	if err != nil {
		return err
	}
	defer s.Close()

	clusters, err := s.engine.Hotspots(category, k)
	if err != nil {
		return err
	}
	if opts.json {
		return printJSON(clusters)
	}
	printClusters(category, clusters)
	return nil
}

func runNearest(ctx context.Context, opts *globalOptions, lat, lng float64, category string, limit int) error {
	s, err := openSession(ctx, opts, false)
	if err != nil {
		return err
	}
	defer s.Close()

	matches, err := s.engine.Nearest(ctx, orb.Point{lng, lat}, category, limit)
	if err != nil {
		return err
	}
	sites := impact.SiteDistances(matches)
	if opts.json {
		return printJSON(sites)
	}
	printSites(sites)
	return nil
}

func runDetections(ctx context.Context, opts *globalOptions, path string, save bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	var detections []models.FireDetection
	if err := json.Unmarshal(data, &detections); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	s, err := openSession(ctx, opts, false)
	if err != nil {
		return err
	}
	defer s.Close()

	fires, err := s.engine.ClusterDetections(detections)
	if err != nil {
		return err
	}

	if save {
		added, skipped, err := seed.NewImporter(s.db, nil).AddDisasters(ctx, fires)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "stored %d wildfires (%d already known)\n", added, skipped)
	}

	if opts.json {
		return printJSON(fires)
	}
	printFires(fires)
	return nil
}
