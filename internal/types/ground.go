package types

// GroundStop is an active FAA ground stop program at a hub.
type GroundStop struct {
	Reason  string `json:"reason"`
	EndTime string `json:"end_time"`
}

// GroundDelay is an active FAA ground delay program at a hub.
type GroundDelay struct {
	Reason   string `json:"reason"`
	AvgDelay string `json:"avg_delay"`
	MaxDelay string `json:"max_delay"`
}

// GroundStatus is the national ground program picture keyed by hub code.
type GroundStatus struct {
	Stops  map[string]GroundStop  `json:"ground_stops"`
	Delays map[string]GroundDelay `json:"ground_delays"`
}

// Stop returns the ground stop for hub, if any.
func (g GroundStatus) Stop(hub string) *GroundStop {
	if s, ok := g.Stops[hub]; ok {
		return &s
	}
	return nil
}

// Delay returns the ground delay for hub, if any.
func (g GroundStatus) Delay(hub string) *GroundDelay {
	if d, ok := g.Delays[hub]; ok {
		return &d
	}
	return nil
}

// Equal reports whether both statuses list the same programs.
func (g GroundStatus) Equal(o GroundStatus) bool {
	if len(g.Stops) != len(o.Stops) || len(g.Delays) != len(o.Delays) {
		return false
	}
	for k, v := range g.Stops {
		if ov, ok := o.Stops[k]; !ok || ov != v {
			return false
		}
	}
	for k, v := range g.Delays {
		if ov, ok := o.Delays[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
