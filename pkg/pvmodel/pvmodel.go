// Package pvmodel converts irradiance into the energy a plant is expected to
// produce.
package pvmodel

import "fmt"

// Params are the model coefficients of one analysis run. They apply to every
// plant of the run.
type Params struct {
	// TiltFactor is a seasonal correction for panel angle relative to the sun.
	TiltFactor float64 `json:"tiltFactor" yaml:"tiltFactor"`
	// SystemLoss is the aggregate system efficiency in (0, 1]. 0.85 means 15%
	// of the energy is lost to inverters, wiring, soiling and similar.
	SystemLoss float64 `json:"systemLoss" yaml:"systemLoss"`
}

// Validate ensures the coefficients are usable.
func (p Params) Validate() error {
	if p.TiltFactor <= 0 {
		return fmt.Errorf("tilt factor must be positive: %v", p.TiltFactor)
	}
	if p.SystemLoss <= 0 || p.SystemLoss > 1 {
		return fmt.Errorf("system loss must be in (0, 1]: %v", p.SystemLoss)
	}
	return nil
}

// ExpectedYield returns the energy in kWh a plant of capacityKWp should
// produce from irradianceKWhPerM2.
//
// The model is linear so it can be applied per day and summed or applied once
// to a monthly irradiance total.
func ExpectedYield(irradianceKWhPerM2, tiltFactor, capacityKWp, systemLoss float64) float64 {
	return irradianceKWhPerM2 * tiltFactor * capacityKWp * systemLoss
}

// Expected is ExpectedYield using p's coefficients.
func (p Params) Expected(irradianceKWhPerM2, capacityKWp float64) float64 {
	return ExpectedYield(irradianceKWhPerM2, p.TiltFactor, capacityKWp, p.SystemLoss)
}
