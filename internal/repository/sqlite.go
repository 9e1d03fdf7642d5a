package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	_ "modernc.org/sqlite"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// One connection keeps PRAGMAs and :memory: databases consistent.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return nil, fmt.Errorf("error enabling foreign keys: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS disasters (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			source TEXT NOT NULL,
			category TEXT NOT NULL,
			severity TEXT NOT NULL,
			severity_rank INTEGER NOT NULL,
			geometry TEXT NOT NULL,
			centroid_lon REAL NOT NULL,
			centroid_lat REAL NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME,
			active INTEGER NOT NULL,
			attributes TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS census_blocks (
			id TEXT PRIMARY KEY,
			year INTEGER NOT NULL,
			population INTEGER NOT NULL,
			households INTEGER NOT NULL,
			elderly INTEGER NOT NULL,
			children INTEGER NOT NULL,
			disabled INTEGER NOT NULL,
			low_income INTEGER NOT NULL,
			geometry TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS infrastructure (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			longitude REAL NOT NULL,
			latitude REAL NOT NULL,
			capacity INTEGER,
			operational INTEGER NOT NULL,
			phone TEXT,
			email TEXT,
			address TEXT
		);

		CREATE TABLE IF NOT EXISTS impact_assessments (
			id TEXT PRIMARY KEY,
			disaster_id TEXT NOT NULL,
			assessed_at DATETIME NOT NULL,
			affected_population INTEGER NOT NULL,
			estimated_loss INTEGER NOT NULL,
			vulnerability_score REAL NOT NULL,
			body TEXT NOT NULL,
			FOREIGN KEY (disaster_id) REFERENCES disasters(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_disasters_start_time ON disasters(start_time);
		CREATE INDEX IF NOT EXISTS idx_disasters_category ON disasters(category);
		CREATE INDEX IF NOT EXISTS idx_census_blocks_year ON census_blocks(year);
		CREATE INDEX IF NOT EXISTS idx_infrastructure_category ON infrastructure(category);
		CREATE INDEX IF NOT EXISTS idx_assessments_disaster_id ON impact_assessments(disaster_id, assessed_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func encodeGeometry(g orb.Geometry) (string, error) {
	b, err := geojson.NewGeometry(g).MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("encoding geometry: %w", err)
	}
	return string(b), nil
}

func decodeGeometry(s string) (orb.Geometry, error) {
	g, err := geojson.UnmarshalGeometry([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("decoding geometry: %w", err)
	}
	return g.Geometry(), nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
