package api

import (
	"github.com/paulmach/orb/geojson"

	"github.com/mr1hm/go-disaster-impact/internal/models"
)

// zonesToGeoJSON emits zones innermost first, one feature per radius.
func zonesToGeoJSON(disasterID string, zones []models.EvacuationZone) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, z := range zones {
		f := geojson.NewFeature(z.Geometry)
		f.Properties = geojson.Properties{
			"disaster_id":   disasterID,
			"radius_meters": z.RadiusMeters,
			"area_sq_km":    z.AreaSqKm,
		}
		fc.Append(f)
	}
	return fc
}

func disastersToGeoJSON(disasters []models.Disaster) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, d := range disasters {
		f := geojson.NewFeature(d.Geometry)
		f.ID = d.ID
		f.Properties = geojson.Properties{
			"id":         d.ID,
			"name":       d.Name,
			"source":     d.Source,
			"category":   string(d.Category),
			"severity":   string(d.Severity),
			"start_time": d.StartTime,
			"active":     d.Active,
			"centroid":   []float64{d.Centroid.Lon(), d.Centroid.Lat()},
		}
		if d.Attributes != nil {
			f.Properties["attributes"] = d.Attributes
		}
		fc.Append(f)
	}
	return fc
}
