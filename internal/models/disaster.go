package models

import (
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/mr1hm/go-disaster-impact/internal/engineerr"
	"github.com/mr1hm/go-disaster-impact/internal/geometry"
)

type Category string

const (
	CategoryWildfire      Category = "wildfire"
	CategoryEarthquake    Category = "earthquake"
	CategoryFlood         Category = "flood"
	CategoryHurricane     Category = "hurricane"
	CategoryTornado       Category = "tornado"
	CategorySevereWeather Category = "severe_weather"
	CategoryDrought       Category = "drought"
	CategoryWinterStorm   Category = "winter_storm"
)

var Categories = []Category{
	CategoryWildfire, CategoryEarthquake, CategoryFlood, CategoryHurricane,
	CategoryTornado, CategorySevereWeather, CategoryDrought, CategoryWinterStorm,
}

// ParseCategory accepts the canonical names case-insensitively, with spaces
// or dashes in place of underscores.
func ParseCategory(s string) (Category, bool) {
	norm := strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, c := range Categories {
		if string(c) == norm {
			return c, true
		}
	}
	return "", false
}

type Severity string

const (
	SeverityNone     Severity = ""
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityExtreme  Severity = "extreme"
)

var severityRank = map[Severity]int{
	SeverityMinor:    1,
	SeverityModerate: 2,
	SeveritySevere:   3,
	SeverityExtreme:  4,
}

func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if sev == SeverityNone {
		return SeverityNone, true
	}
	_, ok := severityRank[sev]
	return sev, ok
}

// Rank orders severities; unknown and absent severities rank 0.
func (s Severity) Rank() int { return severityRank[s] }

// Escalate returns the next severity up, capped at extreme.
func (s Severity) Escalate() Severity {
	switch s {
	case SeverityMinor:
		return SeverityModerate
	case SeverityModerate:
		return SeveritySevere
	case SeveritySevere, SeverityExtreme:
		return SeverityExtreme
	}
	return s
}

type Disaster struct {
	ID         string // source-scoped id, e.g. "usgs_ci40811" or "firms_20240615_3"
	Name       string
	Source     string
	Category   Category
	Severity   Severity
	Geometry   orb.Geometry // Point, MultiPoint, Polygon or MultiPolygon
	Centroid   orb.Point    // derived from Geometry by SetGeometry
	StartTime  time.Time
	EndTime    *time.Time
	Active     bool
	Attributes Attributes // nil when the source reported none
	CreatedAt  time.Time
}

// SetGeometry validates g and recomputes the centroid.
func (d *Disaster) SetGeometry(g orb.Geometry) error {
	c, err := geometry.Centroid(g)
	if err != nil {
		return err
	}
	d.Geometry = g
	d.Centroid = c
	return nil
}

// Validate checks everything a snapshot relies on.
func (d *Disaster) Validate() error {
	if d.ID == "" {
		return engineerr.InvalidArgument("disaster", "id is required")
	}
	if _, ok := ParseCategory(string(d.Category)); !ok {
		return engineerr.InvalidArgument("disaster", "%s: unknown category %q", d.ID, d.Category)
	}
	if _, ok := ParseSeverity(string(d.Severity)); !ok {
		return engineerr.InvalidArgument("disaster", "%s: unknown severity %q", d.ID, d.Severity)
	}
	if d.Attributes != nil && !d.Attributes.AppliesTo(d.Category) {
		return engineerr.InvalidArgument("disaster", "%s: %s attributes on a %s", d.ID, d.Attributes.Kind(), d.Category)
	}
	if err := geometry.Validate(d.Geometry); err != nil {
		return err
	}
	switch d.Geometry.(type) {
	case orb.Point, orb.MultiPoint, orb.Polygon, orb.MultiPolygon:
	default:
		return engineerr.InvalidGeometry("disaster", "%s: unsupported %s", d.ID, d.Geometry.GeoJSONType())
	}
	return nil
}
