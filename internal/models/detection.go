package models

import "time"

// FireDetection is a single satellite hotspot observation.
type FireDetection struct {
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Brightness   float64   `json:"brightness"` // kelvin
	FRP          float64   `json:"frp"`        // fire radiative power, MW
	Confidence   string    `json:"confidence,omitempty"`
	AcquiredAt   time.Time `json:"acquired_at"`
	SizeHectares float64   `json:"size_hectares,omitempty"` // reported burned area, when known
	OutOfControl bool      `json:"out_of_control,omitempty"`
}
