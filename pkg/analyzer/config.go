package analyzer

import (
	"fmt"

	"github.com/levenlabs/go-lflag"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/ingest"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/irradiance"
)

// Configured returns an Analyzer whose ingestor is built from cfg once flags
// are parsed. cfg is typically filled by config.Configured.
func Configured(cfg *ingest.Config, provider irradiance.Provider) *Analyzer {
	a := New(nil, provider, nil)

	lflag.Do(func() {
		if err := cfg.Validate(); err != nil {
			panic(fmt.Sprintf("ingest config invalid: %v", err))
		}
		a.ingestor = ingest.NewIngestor(*cfg)
	})

	return a
}
