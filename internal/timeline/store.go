// Package timeline holds the hourly actuals and snapshot stores, the merge
// engine that reconciles them into a per-day timeline, and the read service
// used by the HTTP API.
package timeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"hubwatch/internal/types"
)

// ActualRepository is the persistence contract of the hourly actuals store.
type ActualRepository interface {
	InsertIfAbsent(ctx context.Context, a types.HourlyActual) (bool, error)
	ListByDate(ctx context.Context, hub string, date types.Date) ([]types.HourlyActual, error)
}

// SnapshotRepository is the persistence contract of the snapshot store.
type SnapshotRepository interface {
	Upsert(ctx context.Context, hub string, date types.Date, hour int, payload []byte, contentHash string, now time.Time) (bool, error)
	Latest(ctx context.Context, hub string, date types.Date) (*types.Snapshot, error)
	ListByDate(ctx context.Context, hub string, date types.Date) ([]types.Snapshot, error)
	ListDates(ctx context.Context) ([]types.Date, error)
	ListDatesForHub(ctx context.Context, hub string) ([]types.Date, error)
}

// ActualsStore records forecast periods once they have been observed as
// current.
type ActualsStore struct {
	repo ActualRepository
}

// NewActualsStore creates an ActualsStore.
func NewActualsStore(repo ActualRepository) *ActualsStore {
	return &ActualsStore{repo: repo}
}

// RecordIfCurrent persists the first period whose [start, end) interval
// contains now, unless one is already stored for (hub, start). It returns the
// created record, or nil when nothing matched or the hour was already
// recorded. The record's date is the hub-local date of the period start.
func (s *ActualsStore) RecordIfCurrent(ctx context.Context, hub string, loc *time.Location, periods []types.ForecastPeriod, now time.Time) (*types.HourlyActual, error) {
	for _, p := range periods {
		if !p.Contains(now) {
			continue
		}
		actual := types.HourlyActual{
			HubCode:    hub,
			StartTime:  p.StartTime,
			EndTime:    p.EndTime,
			Date:       types.DateOf(p.StartTime.In(loc)),
			Payload:    p.Payload,
			RecordedAt: now,
		}
		created, err := s.repo.InsertIfAbsent(ctx, actual)
		if err != nil {
			return nil, err
		}
		if !created {
			return nil, nil
		}
		return &actual, nil
	}
	return nil, nil
}

// ListByDate returns the recorded actuals of hub for a local date.
func (s *ActualsStore) ListByDate(ctx context.Context, hub string, date types.Date) ([]types.HourlyActual, error) {
	return s.repo.ListByDate(ctx, hub, date)
}

// SnapshotStore keeps one content-addressed snapshot per hub local hour.
type SnapshotStore struct {
	repo  SnapshotRepository
	clock clockwork.Clock
}

// NewSnapshotStore creates a SnapshotStore. A nil clock uses the real clock.
func NewSnapshotStore(repo SnapshotRepository, clock clockwork.Clock) *SnapshotStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SnapshotStore{repo: repo, clock: clock}
}

// Upsert stores payload under (hub, date, hour) and reports whether the stored
// content changed. Writing a payload identical to the stored one is a no-op
// and returns false.
func (s *SnapshotStore) Upsert(ctx context.Context, hub string, date types.Date, hour int, payload types.SnapshotPayload) (bool, error) {
	if hour < 0 || hour > 23 {
		return false, types.NewAppError(types.ErrCodeInternalUnexpected,
			fmt.Sprintf("snapshot hour %d out of range", hour), nil)
	}
	body, hash, err := EncodeSnapshot(payload)
	if err != nil {
		return false, err
	}
	return s.repo.Upsert(ctx, hub, date, hour, body, hash, s.clock.Now())
}

// Latest returns the snapshot with the greatest hour for (hub, date), or nil.
func (s *SnapshotStore) Latest(ctx context.Context, hub string, date types.Date) (*types.Snapshot, error) {
	return s.repo.Latest(ctx, hub, date)
}

// DatesWithSnapshots returns all dates that have a snapshot, newest first.
func (s *SnapshotStore) DatesWithSnapshots(ctx context.Context) ([]types.Date, error) {
	return s.repo.ListDates(ctx)
}

// HoursForDate returns the snapshots of (hub, date) by ascending hour.
func (s *SnapshotStore) HoursForDate(ctx context.Context, hub string, date types.Date) ([]types.Snapshot, error) {
	return s.repo.ListByDate(ctx, hub, date)
}

// ArchiveDates returns the dates on which hub has any stored data, newest first.
func (s *SnapshotStore) ArchiveDates(ctx context.Context, hub string) ([]types.Date, error) {
	return s.repo.ListDatesForHub(ctx, hub)
}

// EncodeSnapshot serializes payload and returns it with its content hash, the
// hex SHA-256 of the serialized bytes. Struct fields marshal in declaration
// order, so equal payloads always produce equal bytes.
func EncodeSnapshot(payload types.SnapshotPayload) ([]byte, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode snapshot payload", err)
	}
	sum := sha256.Sum256(body)
	return body, hex.EncodeToString(sum[:]), nil
}
