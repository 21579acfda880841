package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hubwatch/internal/core"
	"hubwatch/internal/timeline"
	"hubwatch/internal/types"
)

type mockTimelineService struct {
	mock.Mock
}

func (m *mockTimelineService) ListHubs(ctx context.Context) ([]types.Hub, error) {
	args := m.Called(ctx)
	hubs, _ := args.Get(0).([]types.Hub)
	return hubs, args.Error(1)
}

func (m *mockTimelineService) ListInactiveHubs(ctx context.Context) ([]types.Hub, error) {
	args := m.Called(ctx)
	hubs, _ := args.Get(0).([]types.Hub)
	return hubs, args.Error(1)
}

func (m *mockTimelineService) GetTimeline(ctx context.Context, code string, date *types.Date) (*types.Timeline, error) {
	args := m.Called(ctx, code, date)
	tl, _ := args.Get(0).(*types.Timeline)
	return tl, args.Error(1)
}

func (m *mockTimelineService) GetArchiveDates(ctx context.Context, code string) ([]types.Date, error) {
	args := m.Called(ctx, code)
	dates, _ := args.Get(0).([]types.Date)
	return dates, args.Error(1)
}

func (m *mockTimelineService) GetAllArchiveDates(ctx context.Context) ([]types.Date, error) {
	args := m.Called(ctx)
	dates, _ := args.Get(0).([]types.Date)
	return dates, args.Error(1)
}

func (m *mockTimelineService) GetSnapshotsForDate(ctx context.Context, code string, date types.Date) ([]types.Snapshot, error) {
	args := m.Called(ctx, code, date)
	snaps, _ := args.Get(0).([]types.Snapshot)
	return snaps, args.Error(1)
}

func (m *mockTimelineService) GroundStatus() timeline.GroundStatusView {
	return m.Called().Get(0).(timeline.GroundStatusView)
}

func newTestRouter(t *testing.T, svc TimelineService) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	val, err := core.NewValidator(logger)
	require.NoError(t, err)
	h := NewHubHandler(svc, val, logger)
	r := chi.NewRouter()
	r.Route("/v1", h.RegisterRoutes)
	return r
}

func do(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

var june10 = types.Date{Year: 2026, Month: time.June, Day: 10}

func TestHandleListHubs(t *testing.T) {
	svc := &mockTimelineService{}
	svc.On("ListHubs", mock.Anything).Return([]types.Hub{
		{Code: "CLT", Name: "Charlotte Douglas", Timezone: "America/New_York", Active: true, DisplayOrder: 1},
		{Code: "PHL", Name: "Philadelphia", Timezone: "America/New_York", Active: true, DisplayOrder: 2},
	}, nil)

	rec, body := do(t, newTestRouter(t, svc), "/v1/hubs")

	assert.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, "CLT", data[0].(map[string]any)["iata"])
}

func TestHandleListInactiveHubs_EmptyIsArray(t *testing.T) {
	svc := &mockTimelineService{}
	svc.On("ListInactiveHubs", mock.Anything).Return(nil, nil)

	rec := httptest.NewRecorder()
	newTestRouter(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/hubs/inactive", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestHandleGetTimeline(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		setup      func(*mockTimelineService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "defaults to hub-local today",
			path: "/v1/hubs/clt/timeline",
			setup: func(m *mockTimelineService) {
				m.On("GetTimeline", mock.Anything, "CLT", (*types.Date)(nil)).
					Return(&types.Timeline{HubCode: "CLT", Date: june10, Timezone: "America/New_York"}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "explicit date",
			path: "/v1/hubs/CLT/timeline?date=2026-06-10",
			setup: func(m *mockTimelineService) {
				m.On("GetTimeline", mock.Anything, "CLT", mock.MatchedBy(func(d *types.Date) bool {
					return d != nil && *d == june10
				})).Return(&types.Timeline{HubCode: "CLT", Date: june10}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid date",
			path:       "/v1/hubs/CLT/timeline?date=2026-13-01",
			wantStatus: http.StatusBadRequest,
			wantCode:   string(types.ErrCodeValidationInvalidDate),
		},
		{
			name:       "invalid hub code",
			path:       "/v1/hubs/KCLT/timeline",
			wantStatus: http.StatusBadRequest,
			wantCode:   string(types.ErrCodeValidationInvalidHub),
		},
		{
			name: "unknown hub",
			path: "/v1/hubs/XYZ/timeline",
			setup: func(m *mockTimelineService) {
				m.On("GetTimeline", mock.Anything, "XYZ", (*types.Date)(nil)).
					Return(nil, types.NewAppError(types.ErrCodeNotFoundHub, "hub XYZ not found", nil))
			},
			wantStatus: http.StatusNotFound,
			wantCode:   string(types.ErrCodeNotFoundHub),
		},
		{
			name: "store failure",
			path: "/v1/hubs/CLT/timeline",
			setup: func(m *mockTimelineService) {
				m.On("GetTimeline", mock.Anything, "CLT", (*types.Date)(nil)).
					Return(nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list actuals", errors.New("conn reset")))
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   string(types.ErrCodeInternalDB),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockTimelineService{}
			if tc.setup != nil {
				tc.setup(svc)
			}
			rec, body := do(t, newTestRouter(t, svc), tc.path)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, errorCode(body))
			} else {
				data := body["data"].(map[string]any)
				assert.Equal(t, "CLT", data["iata"])
				assert.Equal(t, "2026-06-10", data["date"])
				assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestHandleGetArchiveDates(t *testing.T) {
	svc := &mockTimelineService{}
	svc.On("GetArchiveDates", mock.Anything, "DFW").Return([]types.Date{june10, june10.AddDays(-1)}, nil)

	rec, body := do(t, newTestRouter(t, svc), "/v1/hubs/DFW/archive-dates")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"2026-06-10", "2026-06-09"}, body["data"])
}

func TestHandleGetAllArchiveDates(t *testing.T) {
	svc := &mockTimelineService{}
	svc.On("GetAllArchiveDates", mock.Anything).Return(nil, errors.New("boom"))

	rec, body := do(t, newTestRouter(t, svc), "/v1/archive-dates")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(types.ErrCodeInternalUnexpected), errorCode(body))
}

func TestHandleGetSnapshots(t *testing.T) {
	svc := &mockTimelineService{}
	svc.On("GetSnapshotsForDate", mock.Anything, "PHL", june10).Return([]types.Snapshot{
		{HubCode: "PHL", Date: june10, Hour: 7, ContentHash: "a1"},
		{HubCode: "PHL", Date: june10, Hour: 8, ContentHash: "b2"},
	}, nil)
	router := newTestRouter(t, svc)

	rec, body := do(t, router, "/v1/hubs/PHL/snapshots/2026-06-10")
	assert.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, float64(7), data[0].(map[string]any)["hour"])

	rec, body = do(t, router, "/v1/hubs/PHL/snapshots/yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(types.ErrCodeValidationInvalidDate), errorCode(body))
}

func TestHandleGetGroundStatus(t *testing.T) {
	fetched := time.Date(2026, 6, 10, 18, 30, 0, 0, time.UTC)
	svc := &mockTimelineService{}
	svc.On("GroundStatus").Return(timeline.GroundStatusView{
		GroundStatus: types.GroundStatus{
			Stops:  map[string]types.GroundStop{"CLT": {Reason: "thunderstorms", EndTime: "2300Z"}},
			Delays: map[string]types.GroundDelay{},
		},
		FetchedAt: &fetched,
	})

	rec, body := do(t, newTestRouter(t, svc), "/v1/ground-status")

	assert.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	stops := data["ground_stops"].(map[string]any)
	assert.Equal(t, "thunderstorms", stops["CLT"].(map[string]any)["reason"])
	assert.Equal(t, "2026-06-10T18:30:00Z", data["fetched_at"])
}
