package irradiance

import (
	"fmt"
	"strings"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/common"
)

const (
	ProviderOpenMeteo = "openmeteo"
	ProviderNASAPower = "nasapower"
)

// Configured sets up the irradiance providers based on flags. The returned
// provider retries the selected client according to the configured policy.
func Configured() Provider {
	provider := lflag.String("irradiance-provider", ProviderOpenMeteo, "Irradiance provider to use (available: openmeteo, nasapower)")
	apiURL := lflag.String("irradiance-api-url", defaultOpenMeteoURL, "URL for the Open-Meteo daily API (forecast or archive endpoint)")
	nasaURL := lflag.String("nasa-power-url", defaultNASAPowerURL, "URL for the NASA POWER daily point API")
	timeout := lflag.Duration("irradiance-timeout", 20*time.Second, "Timeout for a single irradiance request")
	maxAttempts := lflag.Int("irradiance-max-attempts", DefaultMaxAttempts, "Total irradiance attempts per plant before giving up")
	backoff := lflag.Duration("irradiance-backoff", DefaultBackoff, "Pause between irradiance attempts")

	m := NewMap()
	r := &Retrying{provider: m}

	lflag.Do(func() {
		client := common.HTTPClient(*timeout)

		om := NewOpenMeteo(*apiURL, client)
		if err := om.Validate(); err != nil {
			panic(fmt.Sprintf("open-meteo validation failed: %v", err))
		}
		m.SetProvider(ProviderOpenMeteo, om)

		np := NewNASAPower(*nasaURL, client)
		if err := np.Validate(); err != nil {
			panic(fmt.Sprintf("nasa power validation failed: %v", err))
		}
		m.SetProvider(ProviderNASAPower, np)

		if err := m.Use(*provider); err != nil {
			panic(fmt.Sprintf("%v (available: %s)", err, strings.Join(m.Names(), ", ")))
		}

		policy := RetryPolicy{
			MaxAttempts: *maxAttempts,
			Backoff:     *backoff,
		}
		if err := policy.Validate(); err != nil {
			panic(fmt.Sprintf("irradiance retry policy invalid: %v", err))
		}
		r.policy = policy
	})

	return r
}
