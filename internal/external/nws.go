package external

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"hubwatch/internal/cache"
	"hubwatch/internal/types"
)

const (
	geoJSON = "application/geo+json"
	// gridTTL is how long a resolved /points lookup is reused. Grid
	// assignments change rarely; the forecast itself is fetched every tick.
	gridTTL = 24 * time.Hour
)

// gridPoint is the subset of a /points response needed to fetch forecasts.
type gridPoint struct {
	ForecastURL       string
	ForecastHourlyURL string
	Timezone          string
}

type pointsResponse struct {
	Properties struct {
		Forecast       string `json:"forecast"`
		ForecastHourly string `json:"forecastHourly"`
		TimeZone       string `json:"timeZone"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Periods []json.RawMessage `json:"periods"`
	} `json:"properties"`
}

type periodTimes struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

type alertsResponse struct {
	Features []struct {
		Properties types.Alert `json:"properties"`
	} `json:"features"`
}

// NWSClient fetches forecasts and alerts from the National Weather Service API.
type NWSClient struct {
	*BaseClient
	baseURL string
	clock   clockwork.Clock
	logger  *slog.Logger

	mu    sync.Mutex
	grids map[string]*cache.TTLCache[gridPoint]
}

// NWSConfig configures an NWSClient.
type NWSConfig struct {
	BaseURL string
	Clock   clockwork.Clock
	Logger  *slog.Logger
}

// NewNWSClient wraps base with NWS-specific request and decoding logic.
func NewNWSClient(base *BaseClient, cfg NWSConfig) *NWSClient {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &NWSClient{
		BaseClient: base,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		grids:      make(map[string]*cache.TTLCache[gridPoint]),
	}
}

// FetchForecast returns hourly and daily periods plus active alerts for hub.
// Periods whose times cannot be read are dropped; a response that is not the
// expected JSON shape fails the whole fetch. Alerts are best effort: a failed
// alerts call is logged and yields an empty list.
func (c *NWSClient) FetchForecast(ctx context.Context, hub types.Hub) (*types.ForecastBundle, error) {
	grid, _, err := c.gridFor(hub).GetOrRefresh(ctx, gridTTL)
	if err != nil {
		return nil, fmt.Errorf("resolve grid for %s: %w", hub.Code, err)
	}

	hourly, err := c.fetchPeriods(ctx, grid.ForecastHourlyURL)
	if err != nil {
		return nil, fmt.Errorf("hourly forecast for %s: %w", hub.Code, err)
	}
	daily, err := c.fetchPeriods(ctx, grid.ForecastURL)
	if err != nil {
		return nil, fmt.Errorf("daily forecast for %s: %w", hub.Code, err)
	}

	alerts, err := c.fetchAlerts(ctx, hub)
	if err != nil {
		c.logger.WarnContext(ctx, "alerts fetch failed", "hub", hub.Code, "error", err)
		alerts = []types.Alert{}
	}

	tz := grid.Timezone
	if tz == "" {
		tz = hub.Timezone
	}
	return &types.ForecastBundle{
		Hourly:   hourly,
		Daily:    daily,
		Alerts:   alerts,
		Timezone: tz,
	}, nil
}

func (c *NWSClient) gridFor(hub types.Hub) *cache.TTLCache[gridPoint] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.grids[hub.Code]; ok {
		return g
	}
	g := cache.NewTTLCache(func(ctx context.Context) (gridPoint, error) {
		return c.resolveGrid(ctx, hub)
	}, c.clock)
	c.grids[hub.Code] = g
	return g
}

func (c *NWSClient) resolveGrid(ctx context.Context, hub types.Hub) (gridPoint, error) {
	body, err := c.Get(ctx, fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, hub.Lat, hub.Lon), geoJSON, types.ErrCodeUpstreamForecast)
	if err != nil {
		return gridPoint{}, err
	}
	var pr pointsResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return gridPoint{}, types.NewAppError(types.ErrCodeUpstreamPayload, "points response is not valid JSON", err)
	}
	if pr.Properties.Forecast == "" || pr.Properties.ForecastHourly == "" {
		return gridPoint{}, types.NewAppError(types.ErrCodeUpstreamPayload, "points response is missing forecast URLs", nil)
	}
	return gridPoint{
		ForecastURL:       pr.Properties.Forecast,
		ForecastHourlyURL: pr.Properties.ForecastHourly,
		Timezone:          pr.Properties.TimeZone,
	}, nil
}

func (c *NWSClient) fetchPeriods(ctx context.Context, u string) ([]types.ForecastPeriod, error) {
	body, err := c.Get(ctx, u, geoJSON, types.ErrCodeUpstreamForecast)
	if err != nil {
		return nil, err
	}
	return decodePeriods(body)
}

// decodePeriods keeps each upstream period verbatim as the payload.
func decodePeriods(body []byte) ([]types.ForecastPeriod, error) {
	var fr forecastResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamPayload, "forecast response is not valid JSON", err)
	}

	periods := make([]types.ForecastPeriod, 0, len(fr.Properties.Periods))
	for _, raw := range fr.Properties.Periods {
		var pt periodTimes
		if err := json.Unmarshal(raw, &pt); err != nil || pt.StartTime.IsZero() || !pt.EndTime.After(pt.StartTime) {
			continue
		}
		periods = append(periods, types.ForecastPeriod{
			StartTime: pt.StartTime,
			EndTime:   pt.EndTime,
			Payload:   types.RawJSON(raw),
		})
	}
	return periods, nil
}

func (c *NWSClient) fetchAlerts(ctx context.Context, hub types.Hub) ([]types.Alert, error) {
	q := url.Values{"point": {fmt.Sprintf("%.4f,%.4f", hub.Lat, hub.Lon)}}
	body, err := c.Get(ctx, c.baseURL+"/alerts/active?"+q.Encode(), geoJSON, types.ErrCodeUpstreamForecast)
	if err != nil {
		return nil, err
	}
	var ar alertsResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamPayload, "alerts response is not valid JSON", err)
	}
	alerts := make([]types.Alert, 0, len(ar.Features))
	for _, f := range ar.Features {
		alerts = append(alerts, f.Properties)
	}
	return alerts, nil
}
