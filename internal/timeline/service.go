package timeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"hubwatch/internal/advisory"
	"hubwatch/internal/types"
)

// HubReader looks up hubs from the catalogue.
type HubReader interface {
	Get(ctx context.Context, code string) (*types.Hub, error)
	ListActive(ctx context.Context) ([]types.Hub, error)
	ListInactive(ctx context.Context) ([]types.Hub, error)
}

// AdvisorySource exposes the most recently fetched advisory events without
// triggering a fetch. ok is false when nothing has been fetched yet.
type AdvisorySource interface {
	CachedEvents() (events []types.AdvisoryEvent, ok bool)
}

// GroundStatusSource exposes the most recently fetched ground status.
type GroundStatusSource interface {
	CachedGroundStatus() (status types.GroundStatus, fetchedAt time.Time, ok bool)
}

// GroundStatusView is the read model of GET /v1/ground-status.
type GroundStatusView struct {
	types.GroundStatus
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
}

// Service is the read side used by the HTTP API. It never writes and never
// calls upstream providers.
type Service struct {
	hubs      HubReader
	actuals   *ActualsStore
	snapshots *SnapshotStore
	advisory  AdvisorySource
	ground    GroundStatusSource
	expander  *advisory.Expander
	clock     clockwork.Clock
	logger    *slog.Logger
}

// ServiceConfig holds the dependencies of a Service. Advisory and Ground may
// be nil, in which case annotations and ground status read as empty.
type ServiceConfig struct {
	Hubs      HubReader
	Actuals   *ActualsStore
	Snapshots *SnapshotStore
	Advisory  AdvisorySource
	Ground    GroundStatusSource
	Expander  *advisory.Expander
	Clock     clockwork.Clock
	Logger    *slog.Logger
}

// NewService creates a read Service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Expander == nil {
		cfg.Expander = advisory.NewExpander(advisory.DefaultCarryoverLastHour)
	}
	return &Service{
		hubs:      cfg.Hubs,
		actuals:   cfg.Actuals,
		snapshots: cfg.Snapshots,
		advisory:  cfg.Advisory,
		ground:    cfg.Ground,
		expander:  cfg.Expander,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
	}
}

// ListHubs returns the active hubs in display order.
func (s *Service) ListHubs(ctx context.Context) ([]types.Hub, error) {
	return s.hubs.ListActive(ctx)
}

// ListInactiveHubs returns catalogue hubs that are not refreshed.
func (s *Service) ListInactiveHubs(ctx context.Context) ([]types.Hub, error) {
	return s.hubs.ListInactive(ctx)
}

// GetTimeline builds the merged timeline of hub for date. A nil date means the
// hub-local today. Missing snapshots produce a timeline made only of recorded
// actuals, never an error.
func (s *Service) GetTimeline(ctx context.Context, code string, date *types.Date) (*types.Timeline, error) {
	hub, loc, err := s.hub(ctx, code)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	day := types.DateOf(now.In(loc))
	if date != nil {
		day = *date
	}

	actuals, err := s.actuals.ListByDate(ctx, hub.Code, day)
	if err != nil {
		return nil, fmt.Errorf("load actuals for %s %s: %w", hub.Code, day, err)
	}
	snap, err := s.snapshots.Latest(ctx, hub.Code, day)
	if err != nil {
		return nil, fmt.Errorf("load latest snapshot for %s %s: %w", hub.Code, day, err)
	}

	tl := &types.Timeline{
		HubCode:             hub.Code,
		Date:                day,
		Timezone:            hub.Timezone,
		Daily:               []types.ForecastPeriod{},
		Alerts:              []types.Alert{},
		SIRs:                []types.RawJSON{},
		TerminalConstraints: []types.RawJSON{},
	}

	var live []types.ForecastPeriod
	if snap != nil {
		p := snap.Payload
		if p.Weather != nil {
			live = p.Weather.Hourly
			if p.Weather.Daily != nil {
				tl.Daily = p.Weather.Daily
			}
			if p.Weather.Alerts != nil {
				tl.Alerts = p.Weather.Alerts
			}
			if p.Weather.Timezone != "" {
				tl.Timezone = p.Weather.Timezone
			}
		}
		if p.SIRs != nil {
			tl.SIRs = p.SIRs
		}
		if p.TerminalConstraints != nil {
			tl.TerminalConstraints = p.TerminalConstraints
		}
		tl.Annotations = p.Annotations
		tl.GroundStop = p.GroundStop
		tl.GroundDelay = p.GroundDelay
	} else {
		tl.Annotations = s.cachedAnnotations(hub.Code, day, loc, now)
	}
	if tl.Annotations == nil {
		tl.Annotations = []types.HourAnnotation{}
	}

	tl.Hourly = MergeHourly(actuals, live, day, loc, now)
	return tl, nil
}

// cachedAnnotations expands the last fetched advisory events for hub.
func (s *Service) cachedAnnotations(hub string, day types.Date, loc *time.Location, now time.Time) []types.HourAnnotation {
	if s.advisory == nil {
		return nil
	}
	events, ok := s.advisory.CachedEvents()
	if !ok {
		return nil
	}
	events = advisory.FilterHubs(events, map[string]bool{hub: true})
	resolved, errs := advisory.ResolveEvents(events, now.In(loc), now)
	for _, err := range errs {
		s.logger.Debug("skipping malformed advisory event", "hub", hub, "error", err)
	}
	return s.expander.Expand(resolved, hub, day, loc)
}

// GetArchiveDates returns the dates with stored actuals or snapshots for hub,
// newest first.
func (s *Service) GetArchiveDates(ctx context.Context, code string) ([]types.Date, error) {
	hub, _, err := s.hub(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.snapshots.ArchiveDates(ctx, hub.Code)
}

// GetAllArchiveDates returns every date with at least one snapshot, newest
// first.
func (s *Service) GetAllArchiveDates(ctx context.Context) ([]types.Date, error) {
	return s.snapshots.DatesWithSnapshots(ctx)
}

// GetSnapshotsForDate returns the snapshots of hub on date by ascending hour.
func (s *Service) GetSnapshotsForDate(ctx context.Context, code string, date types.Date) ([]types.Snapshot, error) {
	hub, _, err := s.hub(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.snapshots.HoursForDate(ctx, hub.Code, date)
}

// GroundStatus returns the latest ground stops and delays. It is empty until
// the first refresh tick completes.
func (s *Service) GroundStatus() GroundStatusView {
	view := GroundStatusView{GroundStatus: types.GroundStatus{
		Stops:  map[string]types.GroundStop{},
		Delays: map[string]types.GroundDelay{},
	}}
	if s.ground == nil {
		return view
	}
	status, fetchedAt, ok := s.ground.CachedGroundStatus()
	if !ok {
		return view
	}
	if status.Stops != nil {
		view.Stops = status.Stops
	}
	if status.Delays != nil {
		view.Delays = status.Delays
	}
	view.FetchedAt = &fetchedAt
	return view
}

func (s *Service) hub(ctx context.Context, code string) (*types.Hub, *time.Location, error) {
	hubCode, err := types.ParseHubCode(code)
	if err != nil {
		return nil, nil, err
	}
	hub, err := s.hubs.Get(ctx, hubCode)
	if err != nil {
		return nil, nil, err
	}
	loc, err := hub.Location()
	if err != nil {
		return nil, nil, types.NewAppError(types.ErrCodeInternalUnexpected,
			fmt.Sprintf("hub %s has invalid timezone %q", hub.Code, hub.Timezone), err)
	}
	return hub, loc, nil
}
