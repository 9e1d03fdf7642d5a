// Package seed imports disasters, census blocks and infrastructure from a
// GeoJSON FeatureCollection. Every feature carries a "kind" property naming
// which of the three it is.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mr1hm/go-disaster-impact/internal/detection"
	"github.com/mr1hm/go-disaster-impact/internal/models"
)

const (
	KindDisaster       = "disaster"
	KindCensusBlock    = "census_block"
	KindInfrastructure = "infrastructure"
)

type Store interface {
	Exists(ctx context.Context, id string) (bool, error)
	AddDisaster(ctx context.Context, d *models.Disaster) error
	AddCensusBlocks(ctx context.Context, blocks []models.CensusBlock) (int, error)
	UpsertSite(ctx context.Context, s *models.InfrastructureSite) error
}

type Summary struct {
	Disasters    int `json:"disasters"`
	CensusBlocks int `json:"census_blocks"`
	Sites        int `json:"sites"`
	Skipped      int `json:"skipped"` // disasters already stored
}

type Importer struct {
	store Store
	now   func() time.Time
}

func NewImporter(store Store, now func() time.Time) *Importer {
	if now == nil {
		now = time.Now
	}
	return &Importer{store: store, now: now}
}

func (im *Importer) ImportFile(ctx context.Context, path string) (Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return im.Import(ctx, data)
}

// Import parses every feature before writing anything, so a malformed
// feature aborts the whole import.
func (im *Importer) Import(ctx context.Context, data []byte) (Summary, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return Summary{}, fmt.Errorf("parsing feature collection: %w", err)
	}

	var (
		disasters []models.Disaster
		blocks    []models.CensusBlock
		sites     []models.InfrastructureSite
	)
	for i, f := range fc.Features {
		kind := f.Properties.MustString("kind", "")
		switch kind {
		case KindDisaster:
			d, err := im.disaster(f)
			if err != nil {
				return Summary{}, fmt.Errorf("feature %d: %w", i, err)
			}
			disasters = append(disasters, d)
		case KindCensusBlock:
			b, err := censusBlock(f)
			if err != nil {
				return Summary{}, fmt.Errorf("feature %d: %w", i, err)
			}
			blocks = append(blocks, b)
		case KindInfrastructure:
			s, err := site(f)
			if err != nil {
				return Summary{}, fmt.Errorf("feature %d: %w", i, err)
			}
			sites = append(sites, s)
		default:
			return Summary{}, fmt.Errorf("feature %d: unknown kind %q", i, kind)
		}
	}

	var sum Summary
	added, skipped, err := im.AddDisasters(ctx, disasters)
	sum.Disasters, sum.Skipped = added, skipped
	if err != nil {
		return sum, err
	}
	if len(blocks) > 0 {
		if sum.CensusBlocks, err = im.store.AddCensusBlocks(ctx, blocks); err != nil {
			return sum, err
		}
	}
	for i := range sites {
		if err := im.store.UpsertSite(ctx, &sites[i]); err != nil {
			return sum, err
		}
		sum.Sites++
	}

	slog.Info("import complete",
		"disasters", sum.Disasters,
		"census_blocks", sum.CensusBlocks,
		"sites", sum.Sites,
		"skipped", sum.Skipped)
	return sum, nil
}

// AddDisasters stores disasters whose ids are not stored yet.
func (im *Importer) AddDisasters(ctx context.Context, disasters []models.Disaster) (added, skipped int, err error) {
	for i := range disasters {
		d := &disasters[i]
		exists, err := im.store.Exists(ctx, d.ID)
		if err != nil {
			return added, skipped, err
		}
		if exists {
			slog.Debug("disaster already stored", "disaster_id", d.ID)
			skipped++
			continue
		}
		if err := im.store.AddDisaster(ctx, d); err != nil {
			return added, skipped, err
		}
		added++
	}
	return added, skipped, nil
}

// disaster reads a disaster feature. Weather alerts that carry a "title" but
// no "category" are classified from the title, which also supplies the
// severity when none is given.
func (im *Importer) disaster(f *geojson.Feature) (models.Disaster, error) {
	p := f.Properties
	id := p.MustString("id", "")
	title := p.MustString("title", "")
	catName := p.MustString("category", "")
	sevName := p.MustString("severity", "")
	if catName == "" && title != "" {
		c, s := detection.ClassifyAlert(title)
		catName = string(c)
		if sevName == "" {
			sevName = string(s)
		}
	}

	cat, ok := models.ParseCategory(catName)
	if !ok {
		return models.Disaster{}, fmt.Errorf("disaster %q: unknown category %q", id, catName)
	}
	sev, ok := models.ParseSeverity(sevName)
	if !ok {
		return models.Disaster{}, fmt.Errorf("disaster %q: unknown severity %q", id, sevName)
	}

	name := id
	if title != "" {
		name = title
	}
	now := im.now().UTC()
	d := models.Disaster{
		ID:        id,
		Name:      p.MustString("name", name),
		Source:    p.MustString("source", "import"),
		Category:  cat,
		Severity:  sev,
		StartTime: now,
		Active:    p.MustBool("active", true),
		CreatedAt: now,
	}
	if s := p.MustString("start_time", ""); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return models.Disaster{}, fmt.Errorf("disaster %q: start_time: %w", id, err)
		}
		d.StartTime = t
	}
	if s := p.MustString("end_time", ""); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return models.Disaster{}, fmt.Errorf("disaster %q: end_time: %w", id, err)
		}
		d.EndTime = &t
	}
	d.Attributes = attributesFor(cat, p)

	if err := d.SetGeometry(f.Geometry); err != nil {
		return models.Disaster{}, fmt.Errorf("disaster %q: %w", id, err)
	}
	return d, d.Validate()
}

// attributesFor reads the category's measurement properties; nil when none
// are present.
func attributesFor(cat models.Category, p geojson.Properties) models.Attributes {
	has := func(key string) bool { _, ok := p[key]; return ok }

	switch cat {
	case models.CategoryEarthquake:
		if !has("magnitude") {
			return nil
		}
		a := models.EarthquakeAttributes{Magnitude: p.MustFloat64("magnitude")}
		if has("depth_km") {
			depth := p.MustFloat64("depth_km")
			a.DepthKm = &depth
		}
		return a
	case models.CategoryWildfire:
		if !has("temperature_celsius") && !has("frp") {
			return nil
		}
		return models.FireAttributes{
			TemperatureCelsius: p.MustFloat64("temperature_celsius", 0),
			FireRadiativePower: p.MustFloat64("frp", 0),
		}
	case models.CategoryFlood:
		if !has("water_level_meters") {
			return nil
		}
		return models.FloodAttributes{WaterLevelMeters: p.MustFloat64("water_level_meters")}
	case models.CategoryHurricane, models.CategoryTornado, models.CategorySevereWeather, models.CategoryWinterStorm:
		if !has("wind_speed_kph") {
			return nil
		}
		return models.WindAttributes{WindSpeedKph: p.MustFloat64("wind_speed_kph")}
	}
	return nil
}

func censusBlock(f *geojson.Feature) (models.CensusBlock, error) {
	p := f.Properties
	b := models.CensusBlock{
		ID:         p.MustString("id", ""),
		Households: p.MustInt("households", 0),
		Elderly:    p.MustInt("elderly", 0),
		Children:   p.MustInt("children", 0),
		Disabled:   p.MustInt("disabled", 0),
		LowIncome:  p.MustInt("low_income", 0),
		Year:       p.MustInt("year", 0),
	}
	if err := b.SetGeometry(f.Geometry); err != nil {
		return models.CensusBlock{}, err
	}
	b.SetPopulation(p.MustInt("population", 0))
	return b, b.Validate()
}

func site(f *geojson.Feature) (models.InfrastructureSite, error) {
	p := f.Properties
	s := models.InfrastructureSite{
		ID:          p.MustString("id", ""),
		Name:        p.MustString("name", ""),
		Operational: p.MustBool("operational", true),
		Contact: models.Contact{
			Phone:   p.MustString("phone", ""),
			Email:   p.MustString("email", ""),
			Address: p.MustString("address", ""),
		},
	}
	cat, ok := models.ParseSiteCategory(p.MustString("category", ""))
	if !ok {
		return models.InfrastructureSite{}, fmt.Errorf("site %q: unknown category %q", s.ID, p.MustString("category", ""))
	}
	s.Category = cat
	if _, ok := p["capacity"]; ok {
		c := p.MustInt("capacity", 0)
		s.Capacity = &c
	}

	loc, ok := f.Geometry.(orb.Point)
	if !ok {
		return models.InfrastructureSite{}, fmt.Errorf("site %q: location must be a Point", s.ID)
	}
	s.Location = loc
	return s, s.Validate()
}
