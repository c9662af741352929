package irradiance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/log"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

const (
	defaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"
	shortwaveSumField   = "shortwave_radiation_sum"
)

// OpenMeteo implements the Provider interface using the Open-Meteo daily
// weather API. The archive endpoint (https://archive-api.open-meteo.com/v1/archive)
// accepts the same parameters and can be configured instead.
type OpenMeteo struct {
	apiURL string
	client *http.Client
}

// NewOpenMeteo returns a client for apiURL. An empty apiURL uses the public
// forecast endpoint.
func NewOpenMeteo(apiURL string, client *http.Client) *OpenMeteo {
	if apiURL == "" {
		apiURL = defaultOpenMeteoURL
	}
	return &OpenMeteo{
		apiURL: apiURL,
		client: client,
	}
}

// Validate ensures the configuration is valid.
func (o *OpenMeteo) Validate() error {
	if o.apiURL == "" {
		return fmt.Errorf("irradiance-api-url is required")
	}
	u, err := url.Parse(o.apiURL)
	if err != nil {
		return fmt.Errorf("failed to parse irradiance url (%s): %w", o.apiURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("irradiance url must be http(s): %s", o.apiURL)
	}
	return nil
}

type openMeteoResponse struct {
	Timezone   string `json:"timezone"`
	DailyUnits struct {
		ShortwaveRadiationSum string `json:"shortwave_radiation_sum"`
	} `json:"daily_units"`
	Daily struct {
		Time                  []string   `json:"time"`
		ShortwaveRadiationSum []*float64 `json:"shortwave_radiation_sum"`
	} `json:"daily"`
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// FetchDaily implements Provider.
func (o *OpenMeteo) FetchDaily(ctx context.Context, lat, lon float64, start, end time.Time) ([]types.DailyIrradiance, error) {
	start = types.DateOf(start)
	end = types.DateOf(end)
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s is before start date %s", types.DateKey(end), types.DateKey(start))
	}

	u, err := url.Parse(o.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	params := u.Query()
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("start_date", types.DateKey(start))
	params.Set("end_date", types.DateKey(end))
	params.Set("daily", shortwaveSumField)
	params.Set("timezone", "auto")
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	log.Ctx(ctx).DebugContext(ctx, "fetching irradiance from open-meteo", slog.String("url", u.String()))

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch irradiance: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read irradiance response: %w", err)
	}

	var data openMeteoResponse
	if resp.StatusCode != http.StatusOK {
		// open-meteo explains 400s in a JSON reason
		if json.Unmarshal(body, &data) == nil && data.Reason != "" {
			return nil, fmt.Errorf("open-meteo returned status %d: %s", resp.StatusCode, data.Reason)
		}
		return nil, fmt.Errorf("open-meteo returned status: %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode irradiance response: %w", err)
	}
	if data.Error {
		return nil, fmt.Errorf("open-meteo error: %s", data.Reason)
	}
	if len(data.Daily.Time) != len(data.Daily.ShortwaveRadiationSum) {
		return nil, fmt.Errorf(
			"mismatched irradiance arrays: %d dates, %d values",
			len(data.Daily.Time),
			len(data.Daily.ShortwaveRadiationSum),
		)
	}
	if unit := data.DailyUnits.ShortwaveRadiationSum; unit != "" && unit != "MJ/m²" {
		log.Ctx(ctx).WarnContext(ctx, "unexpected irradiance unit", slog.String("unit", unit))
	}

	seen := make(map[string]struct{}, len(data.Daily.Time))
	readings := make([]types.DailyIrradiance, 0, len(data.Daily.Time))
	for i, day := range data.Daily.Time {
		date, err := time.Parse(time.DateOnly, day)
		if err != nil {
			return nil, fmt.Errorf("failed to parse irradiance date %q: %w", day, err)
		}
		value := data.Daily.ShortwaveRadiationSum[i]
		if value == nil {
			log.Ctx(ctx).DebugContext(ctx, "missing irradiance value", slog.String("date", day))
			continue
		}
		if date.Before(start) || date.After(end) {
			continue
		}
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		readings = append(readings, types.DailyIrradiance{
			Date:     date,
			KWhPerM2: *value / MJPerKWh,
		})
	}

	sort.Slice(readings, func(i, j int) bool {
		return readings[i].Date.Before(readings[j].Date)
	})

	log.Ctx(ctx).DebugContext(
		ctx,
		"fetched irradiance",
		slog.Int("count", len(readings)),
		slog.String("timezone", data.Timezone),
		slog.String("start", types.DateKey(start)),
		slog.String("end", types.DateKey(end)),
	)
	return readings, nil
}
