package external

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"hubwatch/internal/types"
)

// StubForecastFetcher returns a synthetic forecast shaped like the NWS
// response. It lets the service run locally without calling out.
type StubForecastFetcher struct {
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewStubForecastFetcher creates a StubForecastFetcher.
func NewStubForecastFetcher(clock clockwork.Clock, logger *slog.Logger) *StubForecastFetcher {
	return &StubForecastFetcher{clock: clock, logger: logger}
}

// FetchForecast returns 48 hourly and 14 half-day periods starting at the
// current hour in the hub's zone.
func (s *StubForecastFetcher) FetchForecast(ctx context.Context, hub types.Hub) (*types.ForecastBundle, error) {
	loc, err := hub.Location()
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "stub: FetchForecast called", "hub", hub.Code)

	start := s.clock.Now().In(loc).Truncate(time.Hour)
	return &types.ForecastBundle{
		Hourly:   stubPeriods(start, time.Hour, 48),
		Daily:    stubPeriods(start, 12*time.Hour, 14),
		Alerts:   []types.Alert{},
		Timezone: hub.Timezone,
	}, nil
}

func stubPeriods(start time.Time, step time.Duration, n int) []types.ForecastPeriod {
	periods := make([]types.ForecastPeriod, 0, n)
	for i := 0; i < n; i++ {
		st := start.Add(time.Duration(i) * step)
		payload, _ := json.Marshal(map[string]any{
			"number":          i + 1,
			"startTime":       st.Format(time.RFC3339),
			"endTime":         st.Add(step).Format(time.RFC3339),
			"temperature":     68 + (st.Hour()+6)%12,
			"temperatureUnit": "F",
			"windSpeed":       "10 mph",
			"shortForecast":   "Partly Cloudy",
		})
		periods = append(periods, types.ForecastPeriod{StartTime: st, EndTime: st.Add(step), Payload: payload})
	}
	return periods
}

// StubAdvisoryFetcher serves a fixed operations plan and ground status.
type StubAdvisoryFetcher struct {
	Document []byte
	Status   types.GroundStatus
	logger   *slog.Logger
}

// NewStubAdvisoryFetcher creates a StubAdvisoryFetcher with an empty plan.
func NewStubAdvisoryFetcher(logger *slog.Logger) *StubAdvisoryFetcher {
	return &StubAdvisoryFetcher{
		Document: []byte(`{"terminalPlanned":[]}`),
		Status:   types.GroundStatus{Stops: map[string]types.GroundStop{}, Delays: map[string]types.GroundDelay{}},
		logger:   logger,
	}
}

func (s *StubAdvisoryFetcher) FetchAdvisoryDocument(ctx context.Context) ([]byte, error) {
	s.logger.DebugContext(ctx, "stub: FetchAdvisoryDocument called")
	return s.Document, nil
}

func (s *StubAdvisoryFetcher) FetchGroundStatus(ctx context.Context) (types.GroundStatus, error) {
	s.logger.DebugContext(ctx, "stub: FetchGroundStatus called")
	return s.Status, nil
}
