package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"hubwatch/internal/advisory"
	"hubwatch/internal/cache"
	"hubwatch/internal/external"
	"hubwatch/internal/metrics"
	"hubwatch/internal/notify"
	"hubwatch/internal/types"
)

const (
	defaultHubConcurrency = 4
	defaultHubTimeout     = 45 * time.Second
	defaultAdvisoryTTL    = 10 * time.Minute
)

// HubLister returns the hubs refreshed on every tick.
type HubLister interface {
	ListActive(ctx context.Context) ([]types.Hub, error)
}

// ActualsRecorder persists the current forecast period of a hub.
type ActualsRecorder interface {
	RecordIfCurrent(ctx context.Context, hub string, loc *time.Location, periods []types.ForecastPeriod, now time.Time) (*types.HourlyActual, error)
}

// SnapshotWriter stores the per-hour snapshot of a hub.
type SnapshotWriter interface {
	Upsert(ctx context.Context, hub string, date types.Date, hour int, payload types.SnapshotPayload) (bool, error)
}

// ConstraintSource returns the operator-maintained constraint entries of a hub.
type ConstraintSource interface {
	Lookup(hubCode string, today types.Date) (types.ConstraintEntries, error)
}

// HubResult is the outcome of refreshing one hub in a tick.
type HubResult struct {
	Hub             string
	Outcome         string
	ActualRecorded  bool
	SnapshotChanged bool
	Err             error
}

// TickReport summarizes one refresh tick.
type TickReport struct {
	StartedAt     time.Time
	Duration      time.Duration
	Hubs          []HubResult
	GroundChanged bool
	Changed       bool
	Notified      bool
}

// Summary converts the report for metric recorders.
func (r TickReport) Summary() metrics.TickSummary {
	s := metrics.TickSummary{
		Duration:      r.Duration,
		HubOutcomes:   make(map[string]string, len(r.Hubs)),
		GroundChanged: r.GroundChanged,
		Notified:      r.Notified,
	}
	for _, h := range r.Hubs {
		s.HubOutcomes[h.Hub] = h.Outcome
		if h.ActualRecorded {
			s.ActualsRecorded++
		}
		if h.SnapshotChanged {
			s.SnapshotsChanged++
		}
	}
	return s
}

// changedHubs returns the codes of hubs whose snapshot changed, sorted.
func (r TickReport) changedHubs() []string {
	var out []string
	for _, h := range r.Hubs {
		if h.SnapshotChanged {
			out = append(out, h.Hub)
		}
	}
	sort.Strings(out)
	return out
}

// Refresher runs refresh ticks. It owns the advisory and ground-status caches
// and exposes their last values to the read path.
type Refresher struct {
	hubs        HubLister
	forecasts   external.ForecastFetcher
	advisories  external.AdvisoryFetcher
	actuals     ActualsRecorder
	snapshots   SnapshotWriter
	constraints ConstraintSource
	notifier    notify.Notifier
	recorder    metrics.TickRecorder
	expander    *advisory.Expander
	clock       clockwork.Clock
	logger      *slog.Logger

	hubConcurrency int
	hubTimeout     time.Duration
	advisoryTTL    time.Duration

	advisoryCache *cache.TTLCache[[]types.AdvisoryEvent]

	groundMu sync.Mutex
	ground   types.GroundStatus
	groundAt time.Time
	groundOK bool
}

// RefresherConfig holds the dependencies of a Refresher. Constraints,
// Notifier and Recorder are optional.
type RefresherConfig struct {
	Hubs           HubLister
	Forecasts      external.ForecastFetcher
	Advisories     external.AdvisoryFetcher
	Actuals        ActualsRecorder
	Snapshots      SnapshotWriter
	Constraints    ConstraintSource
	Notifier       notify.Notifier
	Recorder       metrics.TickRecorder
	Expander       *advisory.Expander
	HubConcurrency int
	HubTimeout     time.Duration
	AdvisoryTTL    time.Duration
	Clock          clockwork.Clock
	Logger         *slog.Logger
}

// NewRefresher creates a Refresher.
func NewRefresher(cfg RefresherConfig) *Refresher {
	r := &Refresher{
		hubs:           cfg.Hubs,
		forecasts:      cfg.Forecasts,
		advisories:     cfg.Advisories,
		actuals:        cfg.Actuals,
		snapshots:      cfg.Snapshots,
		constraints:    cfg.Constraints,
		notifier:       cfg.Notifier,
		recorder:       cfg.Recorder,
		expander:       cfg.Expander,
		clock:          cfg.Clock,
		logger:         cfg.Logger,
		hubConcurrency: cfg.HubConcurrency,
		hubTimeout:     cfg.HubTimeout,
		advisoryTTL:    cfg.AdvisoryTTL,
	}
	if r.clock == nil {
		r.clock = clockwork.NewRealClock()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.expander == nil {
		r.expander = advisory.NewExpander(advisory.DefaultCarryoverLastHour)
	}
	if r.hubConcurrency <= 0 {
		r.hubConcurrency = defaultHubConcurrency
	}
	if r.hubTimeout <= 0 {
		r.hubTimeout = defaultHubTimeout
	}
	if r.advisoryTTL <= 0 {
		r.advisoryTTL = defaultAdvisoryTTL
	}
	r.advisoryCache = cache.NewTTLCache(r.fetchAdvisoryEvents, r.clock)
	return r
}

func (r *Refresher) fetchAdvisoryEvents(ctx context.Context) ([]types.AdvisoryEvent, error) {
	doc, err := r.advisories.FetchAdvisoryDocument(ctx)
	if err != nil {
		return nil, err
	}
	return advisory.ParseAdvisoryDocument(doc)
}

// CachedEvents returns the last parsed advisory events without fetching.
func (r *Refresher) CachedEvents() ([]types.AdvisoryEvent, bool) {
	events, _, ok := r.advisoryCache.Peek()
	return events, ok
}

// CachedGroundStatus returns the last fetched ground status.
func (r *Refresher) CachedGroundStatus() (types.GroundStatus, time.Time, bool) {
	r.groundMu.Lock()
	defer r.groundMu.Unlock()
	return r.ground, r.groundAt, r.groundOK
}

// RefreshAdvisories forces a reload of the advisory document regardless of
// its age.
func (r *Refresher) RefreshAdvisories(ctx context.Context) error {
	r.advisoryCache.Invalidate()
	events, _, err := r.advisoryCache.GetOrRefresh(ctx, r.advisoryTTL)
	if err != nil {
		return fmt.Errorf("refresh advisory document: %w", err)
	}
	r.logger.InfoContext(ctx, "advisory document refreshed", "events", len(events))
	return nil
}

// Tick refreshes every active hub once. Hubs are processed concurrently up to
// the configured limit and a failure in one hub never affects another. At
// most one DashboardChanged is emitted, and only if a snapshot or the ground
// status changed. The returned error is non-nil only when the hub list could
// not be loaded.
func (r *Refresher) Tick(ctx context.Context) (TickReport, error) {
	start := r.clock.Now()
	report := TickReport{StartedAt: start}

	hubs, err := r.hubs.ListActive(ctx)
	if err != nil {
		return report, fmt.Errorf("list active hubs: %w", err)
	}

	events, fetchedAt, err := r.advisoryCache.GetOrRefresh(ctx, r.advisoryTTL)
	if err != nil {
		r.logger.WarnContext(ctx, "advisory document unavailable, using cached events",
			"error", err,
			"cached_at", fetchedAt,
		)
	}

	ground, groundChanged := r.refreshGround(ctx)
	report.GroundChanged = groundChanged

	results := make([]HubResult, len(hubs))
	var g errgroup.Group
	g.SetLimit(r.hubConcurrency)
	for i, hub := range hubs {
		g.Go(func() error {
			hubCtx, cancel := context.WithTimeout(ctx, r.hubTimeout)
			defer cancel()
			results[i] = r.refreshHub(hubCtx, hub, events, ground, start)
			return nil
		})
	}
	_ = g.Wait()

	report.Hubs = results
	report.Changed = groundChanged
	for _, res := range results {
		if res.SnapshotChanged {
			report.Changed = true
		}
	}

	if report.Changed && r.notifier != nil {
		ev := notify.NewDashboardChanged(r.clock.Now(), report.changedHubs())
		if err := r.notifier.Notify(ctx, ev); err != nil {
			r.logger.ErrorContext(ctx, "dashboard notification failed", "error", err)
		} else {
			report.Notified = true
		}
	}

	report.Duration = r.clock.Since(start)
	if r.recorder != nil {
		r.recorder.RecordTick(ctx, report.Summary())
	}

	r.logger.InfoContext(ctx, "refresh tick complete",
		"hubs", len(hubs),
		"failures", report.Summary().Failures(),
		"changed", report.Changed,
		"duration", report.Duration.String(),
	)
	return report, nil
}

// refreshGround fetches the ground status and reports whether it differs from
// the previous value. On failure the previous value is kept.
func (r *Refresher) refreshGround(ctx context.Context) (types.GroundStatus, bool) {
	status, err := r.advisories.FetchGroundStatus(ctx)

	r.groundMu.Lock()
	defer r.groundMu.Unlock()
	if err != nil {
		r.logger.WarnContext(ctx, "ground status unavailable, keeping previous value", "error", err)
		return r.ground, false
	}
	changed := !r.groundOK || !r.ground.Equal(status)
	r.ground, r.groundAt, r.groundOK = status, r.clock.Now(), true
	return status, changed
}

// refreshHub runs the per-hub pipeline. The actual is recorded before the
// snapshot is composed; a fetch or persistence failure leaves the stored
// snapshot untouched.
func (r *Refresher) refreshHub(ctx context.Context, hub types.Hub, events []types.AdvisoryEvent, ground types.GroundStatus, now time.Time) HubResult {
	res := HubResult{Hub: hub.Code, Outcome: metrics.OutcomeOK}
	logger := r.logger.With("hub", hub.Code)

	loc, err := hub.Location()
	if err != nil {
		res.Outcome, res.Err = metrics.OutcomeFetchFailed, err
		logger.ErrorContext(ctx, "hub has invalid timezone", "error", err)
		return res
	}

	bundle, err := r.forecasts.FetchForecast(ctx, hub)
	if err != nil {
		res.Outcome, res.Err = metrics.OutcomeFetchFailed, err
		logger.WarnContext(ctx, "forecast fetch failed, keeping previous snapshot", "error", err)
		return res
	}

	actual, err := r.actuals.RecordIfCurrent(ctx, hub.Code, loc, bundle.Hourly, now)
	if err != nil {
		res.Outcome, res.Err = metrics.OutcomePersistFailed, err
		logger.ErrorContext(ctx, "failed to record hourly actual", "error", err)
		return res
	}
	res.ActualRecorded = actual != nil

	local := now.In(loc)
	today := types.DateOf(local)

	hubEvents := advisory.FilterHubs(events, map[string]bool{hub.Code: true})
	resolved, errs := advisory.ResolveEvents(hubEvents, local, now)
	for _, e := range errs {
		logger.WarnContext(ctx, "skipping malformed advisory event", "error", e)
	}
	annotations := r.expander.Expand(resolved, hub.Code, today, loc)
	if annotations == nil {
		annotations = []types.HourAnnotation{}
	}

	constraints := types.ConstraintEntries{SIRs: []types.RawJSON{}, TerminalConstraints: []types.RawJSON{}}
	if r.constraints != nil {
		c, err := r.constraints.Lookup(hub.Code, today)
		if err != nil {
			logger.WarnContext(ctx, "constraint log unreadable", "error", err)
		} else {
			constraints = c
		}
	}

	payload := types.SnapshotPayload{
		Weather:             bundle,
		SIRs:                constraints.SIRs,
		TerminalConstraints: constraints.TerminalConstraints,
		Annotations:         annotations,
		GroundStop:          ground.Stop(hub.Code),
		GroundDelay:         ground.Delay(hub.Code),
	}
	changed, err := r.snapshots.Upsert(ctx, hub.Code, today, local.Hour(), payload)
	if err != nil {
		res.Outcome, res.Err = metrics.OutcomePersistFailed, err
		logger.ErrorContext(ctx, "failed to upsert snapshot", "error", err)
		return res
	}
	res.SnapshotChanged = changed
	return res
}
