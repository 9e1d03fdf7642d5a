package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type EvacuationZone struct {
	RadiusMeters float64
	Geometry     orb.Geometry // Polygon, or MultiPolygon for multipolygon disasters
	AreaSqKm     float64
}

type evacuationZoneJSON struct {
	RadiusMeters float64           `json:"radius_meters"`
	AreaSqKm     float64           `json:"area_sq_km"`
	Geometry     *geojson.Geometry `json:"geometry"`
}

func (z EvacuationZone) MarshalJSON() ([]byte, error) {
	return json.Marshal(evacuationZoneJSON{
		RadiusMeters: z.RadiusMeters,
		AreaSqKm:     z.AreaSqKm,
		Geometry:     geojson.NewGeometry(z.Geometry),
	})
}

func (z *EvacuationZone) UnmarshalJSON(b []byte) error {
	var v evacuationZoneJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v.Geometry == nil {
		return fmt.Errorf("evacuation zone %vm has no geometry", v.RadiusMeters)
	}
	*z = EvacuationZone{RadiusMeters: v.RadiusMeters, AreaSqKm: v.AreaSqKm, Geometry: v.Geometry.Geometry()}
	return nil
}

// SiteDistance is an infrastructure site with its distance to a reference point.
type SiteDistance struct {
	SiteID         string       `json:"site_id"`
	Name           string       `json:"name"`
	Category       SiteCategory `json:"category"`
	Operational    bool         `json:"operational"`
	DistanceMeters float64      `json:"distance_meters"`
}

// ImpactAssessment is written once per assessment run and never mutated.
type ImpactAssessment struct {
	ID                   string               `json:"id"`
	DisasterID           string               `json:"disaster_id"`
	Category             Category             `json:"category"`
	Severity             Severity             `json:"severity,omitempty"`
	AssessedAt           time.Time            `json:"assessed_at"`
	AffectedPopulation   int                  `json:"affected_population"`
	AffectedHouseholds   int                  `json:"affected_households"`
	Elderly              int                  `json:"elderly"`
	Children             int                  `json:"children"`
	Disabled             int                  `json:"disabled"`
	LowIncome            int                  `json:"low_income"`
	BlockCount           int                  `json:"block_count"`
	InfrastructureCounts map[SiteCategory]int `json:"infrastructure_counts"`
	NearbySites          []SiteDistance       `json:"nearby_sites"` // within the proximity radius, nearest first
	EstimatedLoss        int64                `json:"estimated_loss"`
	VulnerabilityScore   float64              `json:"vulnerability_score"` // 0-100
	AffectedAreaSqKm     float64              `json:"affected_area_sq_km"`
	Zones                []EvacuationZone     `json:"evacuation_zones"`
}

type ClusterResult struct {
	Center orb.Point `json:"center"`
	Count  int       `json:"count"`
}
