package db

import (
	"context"
	"fmt"
	"time"

	"hubwatch/internal/types"
)

// HourlyActualRepository persists write-once hourly actuals.
type HourlyActualRepository struct {
	db DBTX
}

// NewHourlyActualRepository creates a HourlyActualRepository.
func NewHourlyActualRepository(db DBTX) *HourlyActualRepository {
	return &HourlyActualRepository{db: db}
}

// InsertIfAbsent writes a unless a row for (hub, start_time) already exists.
// It reports whether a row was created. Concurrent calls for the same key
// are resolved by the primary key: exactly one of them returns true.
func (r *HourlyActualRepository) InsertIfAbsent(ctx context.Context, a types.HourlyActual) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO hourly_actuals (hub_code, start_time, end_time, actual_date, payload, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (hub_code, start_time) DO NOTHING`,
		a.HubCode, a.StartTime.UTC(), a.EndTime.UTC(), a.Date.In(time.UTC), []byte(a.Payload), a.RecordedAt.UTC(),
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB,
			fmt.Sprintf("failed to insert hourly actual for %s", a.HubCode), err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListByDate returns the actuals of hub on the given local date, ordered by
// start time.
func (r *HourlyActualRepository) ListByDate(ctx context.Context, hub string, date types.Date) ([]types.HourlyActual, error) {
	rows, err := r.db.Query(ctx,
		`SELECT hub_code, start_time, end_time, actual_date, payload, recorded_at
		 FROM hourly_actuals
		 WHERE hub_code = $1 AND actual_date = $2
		 ORDER BY start_time`,
		hub, date.In(time.UTC),
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list hourly actuals", err)
	}
	defer rows.Close()

	actuals := []types.HourlyActual{}
	for rows.Next() {
		var (
			a       types.HourlyActual
			day     time.Time
			payload []byte
		)
		if err := rows.Scan(&a.HubCode, &a.StartTime, &a.EndTime, &day, &payload, &a.RecordedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan hourly actual", err)
		}
		a.Date = types.DateOf(day)
		a.Payload = types.RawJSON(payload)
		actuals = append(actuals, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating hourly actuals", err)
	}
	return actuals, nil
}
