package models

import (
	"encoding/json"
	"fmt"
)

// Attributes holds the measurements that only make sense for some
// categories. Each variant declares which categories it applies to.
type Attributes interface {
	Kind() string
	AppliesTo(c Category) bool
}

type EarthquakeAttributes struct {
	Magnitude float64  `json:"magnitude"`
	DepthKm   *float64 `json:"depth_km,omitempty"`
}

type FireAttributes struct {
	TemperatureCelsius float64 `json:"temperature_celsius"`
	FireRadiativePower float64 `json:"frp,omitempty"` // MW, max over detections
}

// WindAttributes covers hurricanes, tornadoes, severe weather and winter storms.
type WindAttributes struct {
	WindSpeedKph float64 `json:"wind_speed_kph"`
}

type FloodAttributes struct {
	WaterLevelMeters float64 `json:"water_level_meters"`
}

func (EarthquakeAttributes) Kind() string { return "earthquake" }
func (FireAttributes) Kind() string       { return "fire" }
func (WindAttributes) Kind() string       { return "wind" }
func (FloodAttributes) Kind() string      { return "flood" }

func (EarthquakeAttributes) AppliesTo(c Category) bool { return c == CategoryEarthquake }
func (FireAttributes) AppliesTo(c Category) bool       { return c == CategoryWildfire }
func (FloodAttributes) AppliesTo(c Category) bool      { return c == CategoryFlood }

func (WindAttributes) AppliesTo(c Category) bool {
	switch c {
	case CategoryHurricane, CategoryTornado, CategorySevereWeather, CategoryWinterStorm:
		return true
	}
	return false
}

type attributesEnvelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalAttributes encodes a variant with its kind tag. Nil encodes to nil.
func MarshalAttributes(a Attributes) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return json.Marshal(attributesEnvelope{Kind: a.Kind(), Data: data})
}

func UnmarshalAttributes(b []byte) (Attributes, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var env attributesEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decoding attributes: %w", err)
	}

	var a Attributes
	var err error
	switch env.Kind {
	case "earthquake":
		var v EarthquakeAttributes
		err = json.Unmarshal(env.Data, &v)
		a = v
	case "fire":
		var v FireAttributes
		err = json.Unmarshal(env.Data, &v)
		a = v
	case "wind":
		var v WindAttributes
		err = json.Unmarshal(env.Data, &v)
		a = v
	case "flood":
		var v FloodAttributes
		err = json.Unmarshal(env.Data, &v)
		a = v
	default:
		return nil, fmt.Errorf("unknown attributes kind %q", env.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s attributes: %w", env.Kind, err)
	}
	return a, nil
}
