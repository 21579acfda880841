package core

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"hubwatch/internal/types"
)

// sseKeepAlive is how often an idle stream gets a comment line so proxies
// keep the connection open.
const sseKeepAlive = 25 * time.Second

// HandleEvents streams DashboardChanged events as Server-Sent Events until the
// client disconnects. Each event carries the DashboardChanged JSON under the
// "dashboard_update" event name and its ID as the SSE id.
func (s *Server) HandleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	events, cancel := s.Events.Subscribe()
	defer cancel()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		s.Logger.Warn("event stream does not support flushing", "error", err)
		return
	}

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				s.Logger.Debug("event stream closed", "error", err, "request_id", types.GetRequestID(r.Context()))
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, ev types.DashboardChanged) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, types.DashboardChangedEventType, data)
	return err
}
