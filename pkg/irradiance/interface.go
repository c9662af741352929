package irradiance

import (
	"context"
	"errors"
	"time"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

// MJPerKWh converts the provider's MJ/m² into kWh/m².
const MJPerKWh = 3.6

// ErrIrradianceUnavailable is returned when the provider could not be reached
// or parsed after every allowed attempt.
var ErrIrradianceUnavailable = errors.New("irradiance unavailable")

// Provider defines the interface for fetching daily irradiance.
type Provider interface {
	// FetchDaily returns one record per calendar date within the inclusive
	// range [start, end] at the given coordinates. Values are in kWh/m².
	FetchDaily(ctx context.Context, lat, lon float64, start, end time.Time) ([]types.DailyIrradiance, error)
}
