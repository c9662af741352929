package types

import "time"

// PlantConfig describes one plant of the fleet. It is created from the fleet
// configuration at startup and never mutated.
type PlantConfig struct {
	ID          string  `json:"id" yaml:"id"`
	Source      string  `json:"source" yaml:"source"`
	CapacityKWp float64 `json:"capacityKWp" yaml:"capacityKWp"`
	Latitude    float64 `json:"latitude" yaml:"latitude"`
	Longitude   float64 `json:"longitude" yaml:"longitude"`
}

// DailyYield is the metered production of a plant for one calendar date,
// after same-day readings were summed.
type DailyYield struct {
	Date time.Time `json:"date"`
	KWh  float64   `json:"kWh"`
}

// DailyIrradiance is the shortwave radiation sum for one calendar date at a
// plant's coordinates.
type DailyIrradiance struct {
	Date     time.Time `json:"date"`
	KWhPerM2 float64   `json:"kWhPerM2"`
}
