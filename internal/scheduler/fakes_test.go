package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"hubwatch/internal/metrics"
	"hubwatch/internal/timeline"
	"hubwatch/internal/types"
)

type fakeHubs struct {
	hubs []types.Hub
	err  error
}

func (f *fakeHubs) ListActive(context.Context) ([]types.Hub, error) { return f.hubs, f.err }

type fakeForecasts struct {
	mu      sync.Mutex
	bundles map[string]*types.ForecastBundle
	errs    map[string]error
	calls   map[string]int
}

func (f *fakeForecasts) FetchForecast(_ context.Context, hub types.Hub) (*types.ForecastBundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[hub.Code]++
	if err := f.errs[hub.Code]; err != nil {
		return nil, err
	}
	if b, ok := f.bundles[hub.Code]; ok {
		return b, nil
	}
	return &types.ForecastBundle{Timezone: hub.Timezone}, nil
}

type fakeAdvisories struct {
	doc       []byte
	docErr    error
	status    types.GroundStatus
	statusErr error
	docCalls  atomic.Int32
}

func (f *fakeAdvisories) FetchAdvisoryDocument(context.Context) ([]byte, error) {
	f.docCalls.Add(1)
	return f.doc, f.docErr
}

func (f *fakeAdvisories) FetchGroundStatus(context.Context) (types.GroundStatus, error) {
	return f.status, f.statusErr
}

type fakeActuals struct {
	mu       sync.Mutex
	errs     map[string]error
	recorded map[string]bool
}

func (f *fakeActuals) RecordIfCurrent(_ context.Context, hub string, _ *time.Location, periods []types.ForecastPeriod, now time.Time) (*types.HourlyActual, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[hub]; err != nil {
		return nil, err
	}
	if f.recorded == nil {
		f.recorded = map[string]bool{}
	}
	for _, p := range periods {
		if p.Contains(now) {
			key := fmt.Sprintf("%s|%d", hub, p.StartTime.Unix())
			if f.recorded[key] {
				return nil, nil
			}
			f.recorded[key] = true
			return &types.HourlyActual{HubCode: hub, StartTime: p.StartTime}, nil
		}
	}
	return nil, nil
}

// fakeSnapshots detects changes by content hash like the database does.
type fakeSnapshots struct {
	mu       sync.Mutex
	hashes   map[string]string
	payloads map[string]types.SnapshotPayload
	upserts  map[string]int
	errs     map[string]error
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{
		hashes:   map[string]string{},
		payloads: map[string]types.SnapshotPayload{},
		upserts:  map[string]int{},
		errs:     map[string]error{},
	}
}

func (f *fakeSnapshots) Upsert(_ context.Context, hub string, date types.Date, hour int, payload types.SnapshotPayload) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[hub]; err != nil {
		return false, err
	}
	f.upserts[hub]++
	_, hash, err := timeline.EncodeSnapshot(payload)
	if err != nil {
		return false, err
	}
	key := fmt.Sprintf("%s|%s|%d", hub, date, hour)
	if f.hashes[key] == hash {
		return false, nil
	}
	f.hashes[key] = hash
	f.payloads[hub] = payload
	return true, nil
}

func (f *fakeSnapshots) payload(hub string) (types.SnapshotPayload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payloads[hub]
	return p, ok
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []types.DashboardChanged
	err    error
}

func (f *fakeNotifier) Notify(_ context.Context, ev types.DashboardChanged) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakeRecorder struct {
	mu        sync.Mutex
	summaries []metrics.TickSummary
}

func (f *fakeRecorder) RecordTick(_ context.Context, s metrics.TickSummary) {
	f.mu.Lock()
	f.summaries = append(f.summaries, s)
	f.mu.Unlock()
}

type fakeConstraints struct {
	entries map[string]types.ConstraintEntries
	err     error
}

func (f *fakeConstraints) Lookup(hub string, _ types.Date) (types.ConstraintEntries, error) {
	if f.err != nil {
		return types.ConstraintEntries{}, f.err
	}
	if e, ok := f.entries[hub]; ok {
		return e, nil
	}
	return types.ConstraintEntries{SIRs: []types.RawJSON{}, TerminalConstraints: []types.RawJSON{}}, nil
}

var errUpstream = types.NewAppError(types.ErrCodeUpstreamUnavailable, "nws unavailable", errors.New("503"))
