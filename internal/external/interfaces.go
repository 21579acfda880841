package external

import (
	"context"

	"hubwatch/internal/types"
)

// ForecastFetcher retrieves the live forecast for one hub.
type ForecastFetcher interface {
	FetchForecast(ctx context.Context, hub types.Hub) (*types.ForecastBundle, error)
}

// AdvisoryFetcher retrieves the FAA documents shared by every hub.
type AdvisoryFetcher interface {
	FetchAdvisoryDocument(ctx context.Context) ([]byte, error)
	FetchGroundStatus(ctx context.Context) (types.GroundStatus, error)
}

var (
	_ ForecastFetcher = (*NWSClient)(nil)
	_ AdvisoryFetcher = (*FAAClient)(nil)
	_ ForecastFetcher = (*StubForecastFetcher)(nil)
	_ AdvisoryFetcher = (*StubAdvisoryFetcher)(nil)
)
