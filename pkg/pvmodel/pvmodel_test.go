package pvmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpectedYield(t *testing.T) {
	tests := []struct {
		name       string
		irradiance float64
		tilt       float64
		capacity   float64
		loss       float64
		want       float64
	}{
		{"winter reference plant", 3, 1.35, 1000, 0.85, 3442.5},
		{"no sun", 0, 1.35, 1000, 0.85, 0},
		{"lossless flat", 5, 1, 100, 1, 500},
		{"small plant", 4.2, 1.1, 8.9, 0.97, 4.2 * 1.1 * 8.9 * 0.97},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ExpectedYield(tt.irradiance, tt.tilt, tt.capacity, tt.loss), 1e-9)
		})
	}
}

func TestExpectedYieldLinear(t *testing.T) {
	p := Params{TiltFactor: 1.35, SystemLoss: 0.85}
	days := []float64{2.5, 3.1, 0, 4.75, 1.2}

	var perDay, total float64
	for _, d := range days {
		perDay += p.Expected(d, 750)
		total += d
	}
	assert.InDelta(t, p.Expected(total, 750), perDay, 1e-9)
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, Params{TiltFactor: 1.35, SystemLoss: 0.85}.Validate())
	assert.NoError(t, Params{TiltFactor: 1, SystemLoss: 1}.Validate())
	assert.Error(t, Params{TiltFactor: 0, SystemLoss: 0.85}.Validate())
	assert.Error(t, Params{TiltFactor: 1.35, SystemLoss: 0}.Validate())
	assert.Error(t, Params{TiltFactor: 1.35, SystemLoss: 1.01}.Validate())
	assert.Error(t, Params{TiltFactor: -1, SystemLoss: 0.5}.Validate())
}
