package types

import "time"

// DashboardChangedEventType names DashboardChanged on every transport (SSE
// event name, SQS attribute, Kafka header).
const DashboardChangedEventType = "dashboard_update"

// DashboardChanged is emitted at most once per refresh tick when any derived
// state differs from the previous tick.
type DashboardChanged struct {
	ID          string    `json:"id"`
	Msg         string    `json:"msg"`
	OccurredAt  time.Time `json:"occurred_at"`
	ChangedHubs []string  `json:"changed_hubs,omitempty"`
}
