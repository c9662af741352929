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
	defaultNASAPowerURL = "https://power.larc.nasa.gov/api/temporal/daily/point"
	// all-sky surface shortwave downward irradiance, kWh/m²/day for the RE
	// community
	nasaPowerParameter = "ALLSKY_SFC_SW_DWN"
	nasaPowerDayLayout = "20060102"
)

// NASAPower implements the Provider interface using the NASA POWER daily
// point API. It is satellite derived and lags a few days behind, which makes
// it a fit for closed months.
type NASAPower struct {
	apiURL string
	client *http.Client
}

// NewNASAPower returns a client for apiURL. An empty apiURL uses the public
// endpoint.
func NewNASAPower(apiURL string, client *http.Client) *NASAPower {
	if apiURL == "" {
		apiURL = defaultNASAPowerURL
	}
	return &NASAPower{
		apiURL: apiURL,
		client: client,
	}
}

// Validate ensures the configuration is valid.
func (n *NASAPower) Validate() error {
	u, err := url.Parse(n.apiURL)
	if err != nil {
		return fmt.Errorf("failed to parse nasa power url (%s): %w", n.apiURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("nasa power url must be http(s): %s", n.apiURL)
	}
	return nil
}

type nasaPowerResponse struct {
	Header struct {
		FillValue *float64 `json:"fill_value"`
	} `json:"header"`
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
	Messages []string `json:"messages"`
}

// FetchDaily implements Provider.
func (n *NASAPower) FetchDaily(ctx context.Context, lat, lon float64, start, end time.Time) ([]types.DailyIrradiance, error) {
	start = types.DateOf(start)
	end = types.DateOf(end)
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s is before start date %s", types.DateKey(end), types.DateKey(start))
	}

	u, err := url.Parse(n.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	params := u.Query()
	params.Set("parameters", nasaPowerParameter)
	params.Set("community", "RE")
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("start", start.Format(nasaPowerDayLayout))
	params.Set("end", end.Format(nasaPowerDayLayout))
	params.Set("format", "JSON")
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	log.Ctx(ctx).DebugContext(ctx, "fetching irradiance from nasa power", slog.String("url", u.String()))

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch irradiance: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read irradiance response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nasa power returned status: %d", resp.StatusCode)
	}

	var data nasaPowerResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode irradiance response: %w", err)
	}
	values, ok := data.Properties.Parameter[nasaPowerParameter]
	if !ok {
		return nil, fmt.Errorf("nasa power response missing %s (messages: %v)", nasaPowerParameter, data.Messages)
	}
	fill := -999.0
	if data.Header.FillValue != nil {
		fill = *data.Header.FillValue
	}

	readings := make([]types.DailyIrradiance, 0, len(values))
	for day, v := range values {
		date, err := time.Parse(nasaPowerDayLayout, day)
		if err != nil {
			return nil, fmt.Errorf("failed to parse irradiance date %q: %w", day, err)
		}
		if v == fill || v < 0 {
			log.Ctx(ctx).DebugContext(ctx, "missing irradiance value", slog.String("date", day))
			continue
		}
		if date.Before(start) || date.After(end) {
			continue
		}
		readings = append(readings, types.DailyIrradiance{
			Date:     date,
			KWhPerM2: v,
		})
	}

	sort.Slice(readings, func(i, j int) bool {
		return readings[i].Date.Before(readings[j].Date)
	})
	return readings, nil
}
