package external

import (
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"

	"hubwatch/internal/config"
)

// ClientRegistry holds the upstream clients used by the refresh scheduler.
type ClientRegistry struct {
	Forecast ForecastFetcher
	Advisory AdvisoryFetcher
}

// NewClientRegistry builds the upstream clients. With cfg.UseStubs set, the
// registry returns canned data and never touches the network.
func NewClientRegistry(cfg config.UpstreamConfig, clock clockwork.Clock, logger *slog.Logger) *ClientRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	if cfg.UseStubs {
		stubLogger := logger.With("mode", "stub")
		stubLogger.Info("initializing upstream clients in STUB mode")
		return &ClientRegistry{
			Forecast: NewStubForecastFetcher(clock, stubLogger),
			Advisory: NewStubAdvisoryFetcher(stubLogger),
		}
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	nwsBase := NewBaseClient(httpClient, "nws", DefaultRetryPolicy(), cfg.NWSUserAgent)
	faaBase := NewBaseClient(httpClient, "faa", DefaultRetryPolicy(), cfg.NWSUserAgent)

	return &ClientRegistry{
		Forecast: NewNWSClient(nwsBase, NWSConfig{
			BaseURL: cfg.NWSBaseURL,
			Clock:   clock,
			Logger:  logger.With("client", "nws"),
		}),
		Advisory: NewFAAClient(faaBase, cfg.FAAOpsPlanURL, cfg.FAAAirportStatusURL),
	}
}
