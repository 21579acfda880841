package timeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"hubwatch/internal/types"
)

// memRepo is an in-memory ActualRepository and SnapshotRepository that
// enforces the same key uniqueness as the database schema.
type memRepo struct {
	mu        sync.Mutex
	actuals   map[string]types.HourlyActual
	snapshots map[string]types.Snapshot
	bodies    map[string][]byte
	writes    int
	failWith  error
}

func newMemRepo() *memRepo {
	return &memRepo{
		actuals:   map[string]types.HourlyActual{},
		snapshots: map[string]types.Snapshot{},
		bodies:    map[string][]byte{},
	}
}

func (m *memRepo) InsertIfAbsent(_ context.Context, a types.HourlyActual) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}
	key := fmt.Sprintf("%s|%d", a.HubCode, a.StartTime.Unix())
	if _, ok := m.actuals[key]; ok {
		return false, nil
	}
	m.actuals[key] = a
	return true, nil
}

func (m *memRepo) ListByDate(_ context.Context, hub string, date types.Date) ([]types.HourlyActual, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []types.HourlyActual{}
	for _, a := range m.actuals {
		if a.HubCode == hub && a.Date == date {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func snapKey(hub string, date types.Date, hour int) string {
	return fmt.Sprintf("%s|%s|%02d", hub, date, hour)
}

func (m *memRepo) Upsert(_ context.Context, hub string, date types.Date, hour int, payload []byte, hash string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}
	key := snapKey(hub, date, hour)
	if existing, ok := m.snapshots[key]; ok && existing.ContentHash == hash {
		return false, nil
	}
	var p types.SnapshotPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return false, err
	}
	m.snapshots[key] = types.Snapshot{HubCode: hub, Date: date, Hour: hour, Payload: p, ContentHash: hash, UpdatedAt: now}
	m.bodies[key] = payload
	m.writes++
	return true, nil
}

func (m *memRepo) Latest(ctx context.Context, hub string, date types.Date) (*types.Snapshot, error) {
	snaps, _ := m.ListSnapshots(ctx, hub, date)
	if len(snaps) == 0 {
		return nil, nil
	}
	s := snaps[len(snaps)-1]
	return &s, nil
}

func (m *memRepo) ListSnapshots(_ context.Context, hub string, date types.Date) ([]types.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []types.Snapshot{}
	for _, s := range m.snapshots {
		if s.HubCode == hub && s.Date == date {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour < out[j].Hour })
	return out, nil
}

func (m *memRepo) ListDates(_ context.Context) ([]types.Date, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.datesLocked(""), nil
}

func (m *memRepo) ListDatesForHub(_ context.Context, hub string) ([]types.Date, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.datesLocked(hub), nil
}

func (m *memRepo) datesLocked(hub string) []types.Date {
	seen := map[types.Date]bool{}
	for _, s := range m.snapshots {
		if hub == "" || s.HubCode == hub {
			seen[s.Date] = true
		}
	}
	if hub != "" {
		for _, a := range m.actuals {
			if a.HubCode == hub {
				seen[a.Date] = true
			}
		}
	}
	out := make([]types.Date, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].After(out[j]) })
	return out
}

// snapshotRepo adapts memRepo to SnapshotRepository, whose ListByDate
// returns snapshots rather than actuals.
type snapshotRepo struct{ *memRepo }

func (r snapshotRepo) ListByDate(ctx context.Context, hub string, date types.Date) ([]types.Snapshot, error) {
	return r.ListSnapshots(ctx, hub, date)
}

type fakeHubs struct {
	hubs []types.Hub
}

func (f *fakeHubs) Get(_ context.Context, code string) (*types.Hub, error) {
	for _, h := range f.hubs {
		if h.Code == code {
			h := h
			return &h, nil
		}
	}
	return nil, types.NewAppError(types.ErrCodeNotFoundHub, "hub "+code+" not found", nil)
}

func (f *fakeHubs) ListActive(_ context.Context) ([]types.Hub, error) {
	out := []types.Hub{}
	for _, h := range f.hubs {
		if h.Active {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeHubs) ListInactive(_ context.Context) ([]types.Hub, error) {
	out := []types.Hub{}
	for _, h := range f.hubs {
		if !h.Active {
			out = append(out, h)
		}
	}
	return out, nil
}

func hourPeriod(start time.Time, payload string) types.ForecastPeriod {
	return types.ForecastPeriod{StartTime: start, EndTime: start.Add(time.Hour), Payload: types.RawJSON(payload)}
}
