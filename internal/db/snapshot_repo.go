package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"hubwatch/internal/types"
)

// SnapshotRepository persists one content-hashed snapshot per hub local hour.
type SnapshotRepository struct {
	db DBTX
}

// NewSnapshotRepository creates a SnapshotRepository.
func NewSnapshotRepository(db DBTX) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Upsert inserts the snapshot or replaces the stored one when contentHash
// differs. It reports whether a row was written; an identical hash leaves the
// row untouched and returns false.
func (r *SnapshotRepository) Upsert(ctx context.Context, hub string, date types.Date, hour int, payload []byte, contentHash string, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO hourly_snapshots (hub_code, snapshot_date, local_hour, payload, content_hash, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (hub_code, snapshot_date, local_hour) DO UPDATE
		   SET payload = EXCLUDED.payload,
		       content_hash = EXCLUDED.content_hash,
		       updated_at = EXCLUDED.updated_at
		   WHERE hourly_snapshots.content_hash <> EXCLUDED.content_hash`,
		hub, date.In(time.UTC), hour, payload, contentHash, now.UTC(),
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB,
			fmt.Sprintf("failed to upsert snapshot %s %s %02d", hub, date, hour), err)
	}
	return tag.RowsAffected() > 0, nil
}

const snapshotColumns = `hub_code, snapshot_date, local_hour, payload, content_hash, updated_at`

// Latest returns the snapshot with the greatest hour for (hub, date), or nil
// when none exists.
func (r *SnapshotRepository) Latest(ctx context.Context, hub string, date types.Date) (*types.Snapshot, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+snapshotColumns+`
		 FROM hourly_snapshots
		 WHERE hub_code = $1 AND snapshot_date = $2
		 ORDER BY local_hour DESC
		 LIMIT 1`,
		hub, date.In(time.UTC),
	)
	s, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load latest snapshot", err)
	}
	return s, nil
}

// ListByDate returns every snapshot of (hub, date) by ascending hour.
func (r *SnapshotRepository) ListByDate(ctx context.Context, hub string, date types.Date) ([]types.Snapshot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+snapshotColumns+`
		 FROM hourly_snapshots
		 WHERE hub_code = $1 AND snapshot_date = $2
		 ORDER BY local_hour`,
		hub, date.In(time.UTC),
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list snapshots", err)
	}
	defer rows.Close()

	snaps := []types.Snapshot{}
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan snapshot", err)
		}
		snaps = append(snaps, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating snapshots", err)
	}
	return snaps, nil
}

// ListDates returns every date with at least one snapshot, newest first.
func (r *SnapshotRepository) ListDates(ctx context.Context) ([]types.Date, error) {
	return r.queryDates(ctx,
		`SELECT DISTINCT snapshot_date FROM hourly_snapshots ORDER BY snapshot_date DESC`)
}

// ListDatesForHub returns the dates on which hub has actuals or snapshots,
// newest first.
func (r *SnapshotRepository) ListDatesForHub(ctx context.Context, hub string) ([]types.Date, error) {
	return r.queryDates(ctx,
		`SELECT d FROM (
		   SELECT actual_date AS d FROM hourly_actuals WHERE hub_code = $1
		   UNION
		   SELECT snapshot_date FROM hourly_snapshots WHERE hub_code = $1
		 ) dates
		 ORDER BY d DESC`,
		hub)
}

func (r *SnapshotRepository) queryDates(ctx context.Context, sql string, args ...any) ([]types.Date, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list archive dates", err)
	}
	defer rows.Close()

	dates := []types.Date{}
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan archive date", err)
		}
		dates = append(dates, types.DateOf(d))
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating archive dates", err)
	}
	return dates, nil
}

func scanSnapshot(row pgx.Row) (*types.Snapshot, error) {
	var (
		s       types.Snapshot
		day     time.Time
		hour    int16
		payload []byte
	)
	if err := row.Scan(&s.HubCode, &day, &hour, &payload, &s.ContentHash, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &s.Payload); err != nil {
		return nil, fmt.Errorf("decode snapshot payload: %w", err)
	}
	s.Date = types.DateOf(day)
	s.Hour = int(hour)
	return &s, nil
}
