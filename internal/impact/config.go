package impact

import (
	"github.com/mr1hm/go-disaster-impact/internal/config"
	"github.com/mr1hm/go-disaster-impact/internal/scoring"
)

// ConfigFromEnv maps the service's engine settings onto Config, loading the
// scoring tables override when a path is set.
func ConfigFromEnv(ec config.EngineConfig) (Config, error) {
	cfg := Config{
		ProximityRadiusMeters: ec.ProximityRadiusMeters,
		ZoneRadii:             append([]float64(nil), ec.ZoneRadiiMeters...),
		BufferTolerance:       ec.BufferTolerance,
		HotspotLookback:       ec.HotspotLookback,
		DetectionMeters:       ec.DetectionMeters,
		Tables:                scoring.DefaultTables(),
	}
	if ec.ScoringTablesPath != "" {
		tables, err := scoring.LoadTables(ec.ScoringTablesPath)
		if err != nil {
			return Config{}, err
		}
		cfg.Tables = tables
	}
	return cfg, nil
}
