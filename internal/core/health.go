package core

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// healthCheckTimeout bounds all probes together.
const healthCheckTimeout = 2 * time.Second

// HealthProbe checks one dependency the service cannot run without.
type HealthProbe interface {
	Name() string
	Check(ctx context.Context) error
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingProbe adapts a Pinger to HealthProbe.
type PingProbe struct {
	ProbeName string
	Target    Pinger
}

// Name implements HealthProbe.
func (p PingProbe) Name() string { return p.ProbeName }

// Check implements HealthProbe.
func (p PingProbe) Check(ctx context.Context) error { return p.Target.Ping(ctx) }

// componentStatus represents the health state of a single subsystem.
type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthResponse is the JSON response body for the health check endpoint.
type healthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth runs every probe concurrently under healthCheckTimeout. It
// answers 200 when all are healthy and 503 when any fails or times out. The
// build version is included so deploys can be verified.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{Status: "healthy", Version: s.version()}
	probes := s.HealthProbes
	if len(probes) == 0 {
		JSON(w, r, http.StatusOK, resp)
		return
	}

	type result struct {
		idx int
		err error
	}
	results := make(chan result, len(probes))
	for i, p := range probes {
		go func() { results <- result{idx: i, err: runProbe(ctx, p)} }()
	}

	// Anything that has not answered by the deadline stays timed out.
	resp.Components = make(map[string]componentStatus, len(probes))
	for _, p := range probes {
		resp.Components[p.Name()] = componentStatus{Status: "unhealthy", Message: "health check timed out"}
	}
collect:
	for pending := len(probes); pending > 0; pending-- {
		select {
		case res := <-results:
			cs := componentStatus{Status: "healthy"}
			if res.err != nil {
				cs = componentStatus{Status: "unhealthy", Message: res.err.Error()}
			}
			resp.Components[probes[res.idx].Name()] = cs
		case <-ctx.Done():
			break collect
		}
	}

	status := http.StatusOK
	for _, cs := range resp.Components {
		if cs.Status != "healthy" {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			break
		}
	}
	JSON(w, r, status, resp)
}

// runProbe reports a panicking probe as a failure.
func runProbe(ctx context.Context, p HealthProbe) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			err = fmt.Errorf("probe panicked: %v", rvr)
		}
	}()
	return p.Check(ctx)
}

func (s *Server) version() string {
	if s.Config == nil {
		return ""
	}
	return s.Config.Build.Version
}
