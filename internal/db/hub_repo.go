package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hubwatch/internal/types"
)

const hubColumns = `code, name, city, timezone, lat, lon, runways, is_active, display_order`

// HubRepository reads and seeds the hub catalogue.
type HubRepository struct {
	db DBTX
}

// NewHubRepository creates a HubRepository.
func NewHubRepository(db DBTX) *HubRepository {
	return &HubRepository{db: db}
}

// Seed inserts hubs that do not exist yet and leaves existing rows untouched,
// so operators can toggle is_active in the database without it being reset.
// It returns the number of hubs inserted.
func (r *HubRepository) Seed(ctx context.Context, hubs []types.Hub) (int, error) {
	inserted := 0
	for _, h := range hubs {
		tag, err := r.db.Exec(ctx,
			`INSERT INTO hubs (`+hubColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (code) DO NOTHING`,
			h.Code, h.Name, h.City, h.Timezone, h.Lat, h.Lon, h.Runways, h.Active, h.DisplayOrder,
		)
		if err != nil {
			return inserted, types.NewAppError(types.ErrCodeInternalDB, fmt.Sprintf("failed to seed hub %s", h.Code), err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// ListActive returns the hubs refreshed by the scheduler, in display order.
func (r *HubRepository) ListActive(ctx context.Context) ([]types.Hub, error) {
	return r.list(ctx, true)
}

// ListInactive returns catalogue hubs that are not refreshed.
func (r *HubRepository) ListInactive(ctx context.Context) ([]types.Hub, error) {
	return r.list(ctx, false)
}

func (r *HubRepository) list(ctx context.Context, active bool) ([]types.Hub, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+hubColumns+` FROM hubs WHERE is_active = $1 ORDER BY display_order, code`, active)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list hubs", err)
	}
	defer rows.Close()

	hubs := []types.Hub{}
	for rows.Next() {
		var h types.Hub
		if err := scanHub(rows, &h); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan hub row", err)
		}
		hubs = append(hubs, h)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating hub rows", err)
	}
	return hubs, nil
}

// Get returns one hub by code, active or not.
func (r *HubRepository) Get(ctx context.Context, code string) (*types.Hub, error) {
	row := r.db.QueryRow(ctx, `SELECT `+hubColumns+` FROM hubs WHERE code = $1`, code)
	var h types.Hub
	if err := scanHub(row, &h); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundHub, fmt.Sprintf("hub %s not found", code), nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get hub", err)
	}
	return &h, nil
}

func scanHub(row pgx.Row, h *types.Hub) error {
	return row.Scan(&h.Code, &h.Name, &h.City, &h.Timezone, &h.Lat, &h.Lon, &h.Runways, &h.Active, &h.DisplayOrder)
}
