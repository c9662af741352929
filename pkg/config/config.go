// Package config loads the fleet definition from a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/ingest"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/pvmodel"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

const (
	DefaultTiltFactor = 1.35
	DefaultSystemLoss = 0.85
)

// Fleet is the contents of a fleet config file.
type Fleet struct {
	TargetMonth    types.Month `yaml:"targetMonth"`
	pvmodel.Params `yaml:",inline"`
	Ingest         ingest.Config       `yaml:"ingest"`
	Plants         []types.PlantConfig `yaml:"plants"`
}

// Default returns a Fleet with every optional field filled in.
func Default() Fleet {
	return Fleet{
		Params: pvmodel.Params{
			TiltFactor: DefaultTiltFactor,
			SystemLoss: DefaultSystemLoss,
		},
		Ingest: ingest.DefaultConfig(),
	}
}

// Parse decodes a fleet config over the defaults. Unknown keys are an error
// so typos don't silently fall back to defaults.
func Parse(data []byte) (Fleet, error) {
	fleet := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fleet); err != nil {
		return Fleet{}, fmt.Errorf("failed to decode fleet config: %w", err)
	}
	return fleet, nil
}

// Load reads and validates the fleet config at path. Relative plant sources
// are resolved against the directory of path.
func Load(path string) (Fleet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fleet{}, fmt.Errorf("failed to read fleet config: %w", err)
	}
	fleet, err := Parse(data)
	if err != nil {
		return Fleet{}, fmt.Errorf("%s: %w", path, err)
	}
	fleet.ResolveSources(filepath.Dir(path))
	if err := fleet.Validate(); err != nil {
		return Fleet{}, fmt.Errorf("%s: %w", path, err)
	}
	return fleet, nil
}

// ResolveSources makes every relative plant source relative to dir.
func (f *Fleet) ResolveSources(dir string) {
	for i, p := range f.Plants {
		if p.Source != "" && !filepath.IsAbs(p.Source) {
			f.Plants[i].Source = filepath.Join(dir, p.Source)
		}
	}
}

// Validate ensures the fleet can be analyzed. A missing target month is
// allowed here since it can come from a flag or request.
func (f Fleet) Validate() error {
	if err := f.Params.Validate(); err != nil {
		return err
	}
	if err := f.Ingest.Validate(); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if len(f.Plants) == 0 {
		return errors.New("at least one plant is required")
	}
	seen := make(map[string]bool, len(f.Plants))
	for i, p := range f.Plants {
		if p.ID == "" {
			return fmt.Errorf("plant %d: id is required", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("plant %s: duplicate id", p.ID)
		}
		seen[p.ID] = true
		if p.Source == "" {
			return fmt.Errorf("plant %s: source is required", p.ID)
		}
		if p.CapacityKWp <= 0 {
			return fmt.Errorf("plant %s: capacity must be positive: %v", p.ID, p.CapacityKWp)
		}
		if p.Latitude < -90 || p.Latitude > 90 {
			return fmt.Errorf("plant %s: latitude out of range: %v", p.ID, p.Latitude)
		}
		if p.Longitude < -180 || p.Longitude > 180 {
			return fmt.Errorf("plant %s: longitude out of range: %v", p.ID, p.Longitude)
		}
	}
	return nil
}
