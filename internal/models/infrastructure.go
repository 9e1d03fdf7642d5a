package models

import (
	"strings"

	"github.com/paulmach/orb"

	"github.com/mr1hm/go-disaster-impact/internal/engineerr"
	"github.com/mr1hm/go-disaster-impact/internal/geometry"
)

type SiteCategory string

const (
	SiteHospital       SiteCategory = "hospital"
	SiteShelter        SiteCategory = "shelter"
	SiteFireStation    SiteCategory = "fire_station"
	SitePoliceStation  SiteCategory = "police_station"
	SitePowerPlant     SiteCategory = "power_plant"
	SiteWaterTreatment SiteCategory = "water_treatment"
	SiteSchool         SiteCategory = "school"
	SiteAirport        SiteCategory = "airport"
	SiteBridge         SiteCategory = "bridge"
)

var SiteCategories = []SiteCategory{
	SiteHospital, SiteShelter, SiteFireStation, SitePoliceStation, SitePowerPlant,
	SiteWaterTreatment, SiteSchool, SiteAirport, SiteBridge,
}

func ParseSiteCategory(s string) (SiteCategory, bool) {
	norm := strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, c := range SiteCategories {
		if string(c) == norm {
			return c, true
		}
	}
	return "", false
}

type Contact struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

type InfrastructureSite struct {
	ID          string
	Name        string
	Category    SiteCategory
	Location    orb.Point
	Capacity    *int // beds, shelter spaces; nil when unknown
	Operational bool
	Contact     Contact
}

func (s *InfrastructureSite) Validate() error {
	if s.ID == "" {
		return engineerr.InvalidArgument("infrastructure", "id is required")
	}
	if _, ok := ParseSiteCategory(string(s.Category)); !ok {
		return engineerr.InvalidArgument("infrastructure", "%s: unknown category %q", s.ID, s.Category)
	}
	if s.Capacity != nil && *s.Capacity < 0 {
		return engineerr.InvalidArgument("infrastructure", "%s: negative capacity", s.ID)
	}
	return geometry.Validate(s.Location)
}
