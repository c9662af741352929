package fleet

import (
	"fmt"

	"github.com/levenlabs/go-lflag"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/config"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/pvmodel"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/storage"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

// Configured returns a Runner for a using the -workers flag.
func Configured(a PlantAnalyzer) *Runner {
	workers := lflag.Int("workers", 1, "Number of plants to analyze concurrently")

	r := &Runner{analyzer: a, workers: 1}

	lflag.Do(func() {
		if *workers < 1 {
			panic(fmt.Sprintf("workers must be at least 1: %d", *workers))
		}
		r.workers = *workers
	})

	return r
}

// ConfiguredAuditor returns an Auditor for the fleet loaded into cfg once
// flags are parsed.
func ConfiguredAuditor(r *Runner, db storage.Database, cfg *config.Fleet) *Auditor {
	a := NewAuditor(r, db, nil, pvmodel.Params{}, types.Month{})

	lflag.Do(func() {
		a.plants = cfg.Plants
		a.params = cfg.Params
		a.defaultMonth = cfg.TargetMonth
	})

	return a
}
