// Package handlers contains the HTTP handlers of the hubwatch read API.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hubwatch/internal/core"
	"hubwatch/internal/timeline"
	"hubwatch/internal/types"
)

// TimelineService is the read side the handlers depend on. It is satisfied by
// *timeline.Service.
type TimelineService interface {
	ListHubs(ctx context.Context) ([]types.Hub, error)
	ListInactiveHubs(ctx context.Context) ([]types.Hub, error)
	GetTimeline(ctx context.Context, code string, date *types.Date) (*types.Timeline, error)
	GetArchiveDates(ctx context.Context, code string) ([]types.Date, error)
	GetAllArchiveDates(ctx context.Context) ([]types.Date, error)
	GetSnapshotsForDate(ctx context.Context, code string, date types.Date) ([]types.Snapshot, error)
	GroundStatus() timeline.GroundStatusView
}

// HubHandler serves hubs, timelines, archives and ground status.
type HubHandler struct {
	service   TimelineService
	validator *core.Validator
	logger    *slog.Logger
}

// NewHubHandler creates a HubHandler.
func NewHubHandler(svc TimelineService, val *core.Validator, logger *slog.Logger) *HubHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HubHandler{
		service:   svc,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the endpoints under the /v1 router.
func (h *HubHandler) RegisterRoutes(r chi.Router) {
	r.Route("/hubs", func(r chi.Router) {
		r.Get("/", h.HandleListHubs)
		r.Get("/inactive", h.HandleListInactiveHubs)
		r.Get("/{code}/timeline", h.HandleGetTimeline)
		r.Get("/{code}/archive-dates", h.HandleGetArchiveDates)
		r.Get("/{code}/snapshots/{date}", h.HandleGetSnapshots)
	})
	r.Get("/archive-dates", h.HandleGetAllArchiveDates)
	r.Get("/ground-status", h.HandleGetGroundStatus)
}

// hubDateRequest is the validated form of a hub path plus an optional date.
type hubDateRequest struct {
	Code string `validate:"required,iata"`
	Date string `validate:"omitempty,datetime=2006-01-02"`
}

func (h *HubHandler) parseHubDate(r *http.Request, date string) (hubDateRequest, error) {
	req := hubDateRequest{
		Code: strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code"))),
		Date: strings.TrimSpace(date),
	}
	return req, h.validator.ValidateStruct(req)
}

// HandleListHubs handles GET /v1/hubs.
func (h *HubHandler) HandleListHubs(w http.ResponseWriter, r *http.Request) {
	hubs, err := h.service.ListHubs(r.Context())
	if err != nil {
		h.fail(w, r, "list hubs", err)
		return
	}
	core.Data(w, r, nonNil(hubs))
}

// HandleListInactiveHubs handles GET /v1/hubs/inactive.
func (h *HubHandler) HandleListInactiveHubs(w http.ResponseWriter, r *http.Request) {
	hubs, err := h.service.ListInactiveHubs(r.Context())
	if err != nil {
		h.fail(w, r, "list inactive hubs", err)
		return
	}
	core.Data(w, r, nonNil(hubs))
}

// HandleGetTimeline handles GET /v1/hubs/{code}/timeline?date=YYYY-MM-DD. The
// date defaults to the hub-local today.
func (h *HubHandler) HandleGetTimeline(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseHubDate(r, r.URL.Query().Get("date"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var date *types.Date
	if req.Date != "" {
		d, err := types.ParseRequestDate(req.Date)
		if err != nil {
			core.Error(w, r, err)
			return
		}
		date = &d
	}

	tl, err := h.service.GetTimeline(r.Context(), req.Code, date)
	if err != nil {
		h.fail(w, r, "get timeline", err, "hub", req.Code)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	core.Data(w, r, tl)
}

// HandleGetArchiveDates handles GET /v1/hubs/{code}/archive-dates.
func (h *HubHandler) HandleGetArchiveDates(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseHubDate(r, "")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	dates, err := h.service.GetArchiveDates(r.Context(), req.Code)
	if err != nil {
		h.fail(w, r, "get archive dates", err, "hub", req.Code)
		return
	}
	core.Data(w, r, nonNil(dates))
}

// HandleGetSnapshots handles GET /v1/hubs/{code}/snapshots/{date}.
func (h *HubHandler) HandleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseHubDate(r, chi.URLParam(r, "date"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	date, err := types.ParseRequestDate(req.Date)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	snaps, err := h.service.GetSnapshotsForDate(r.Context(), req.Code, date)
	if err != nil {
		h.fail(w, r, "get snapshots", err, "hub", req.Code, "date", req.Date)
		return
	}
	core.Data(w, r, nonNil(snaps))
}

// HandleGetAllArchiveDates handles GET /v1/archive-dates.
func (h *HubHandler) HandleGetAllArchiveDates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.service.GetAllArchiveDates(r.Context())
	if err != nil {
		h.fail(w, r, "get all archive dates", err)
		return
	}
	core.Data(w, r, nonNil(dates))
}

// HandleGetGroundStatus handles GET /v1/ground-status.
func (h *HubHandler) HandleGetGroundStatus(w http.ResponseWriter, r *http.Request) {
	core.Data(w, r, h.service.GroundStatus())
}

// fail logs server-side failures before writing the error response. Client
// errors are written without logging; RequestLogger already records them.
func (h *HubHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error, attrs ...any) {
	if types.CodeOf(err).HTTPStatus() >= http.StatusInternalServerError {
		args := append([]any{"op", op, "error", err}, attrs...)
		types.LoggerFromContext(r.Context(), h.logger).ErrorContext(r.Context(), "request failed", args...)
	}
	core.Error(w, r, err)
}

// nonNil keeps empty results encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
