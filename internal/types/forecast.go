package types

import (
	"encoding/json"
	"time"
)

// RawJSON is an opaque upstream JSON value carried through unchanged.
type RawJSON = json.RawMessage

// PeriodSource identifies where a timeline entry came from.
type PeriodSource string

const (
	SourceActual   PeriodSource = "actual"
	SourceForecast PeriodSource = "forecast"
)

// ForecastPeriod is one upstream forecast interval [StartTime, EndTime).
type ForecastPeriod struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Payload   RawJSON   `json:"payload"`
}

// Contains reports whether t falls inside the period's validity interval.
func (p ForecastPeriod) Contains(t time.Time) bool {
	return !t.Before(p.StartTime) && t.Before(p.EndTime)
}

// Alert is an active weather alert for a hub's location.
type Alert struct {
	ID       string     `json:"id"`
	Event    string     `json:"event"`
	Headline string     `json:"headline"`
	Severity string     `json:"severity"`
	Onset    *time.Time `json:"onset,omitempty"`
	Ends     *time.Time `json:"ends,omitempty"`
}

// ForecastBundle is the result of one forecast fetch for a hub.
type ForecastBundle struct {
	Hourly   []ForecastPeriod `json:"hourly"`
	Daily    []ForecastPeriod `json:"daily"`
	Alerts   []Alert          `json:"alerts"`
	Timezone string           `json:"timezone"`
}

// HourlyActual is a forecast period persisted once it was observed as current.
// At most one exists per (HubCode, StartTime).
type HourlyActual struct {
	HubCode    string    `json:"iata"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	Date       Date      `json:"date"`
	Payload    RawJSON   `json:"payload"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SnapshotPayload is the full reconciled state of a hub visible at one local hour.
type SnapshotPayload struct {
	Weather             *ForecastBundle  `json:"weather"`
	SIRs                []RawJSON        `json:"sirs"`
	TerminalConstraints []RawJSON        `json:"terminal_constraints"`
	Annotations         []HourAnnotation `json:"faa_events"`
	GroundStop          *GroundStop      `json:"ground_stop"`
	GroundDelay         *GroundDelay     `json:"ground_delay"`
}

// Snapshot is the persisted payload for one (HubCode, Date, Hour).
type Snapshot struct {
	HubCode     string          `json:"iata"`
	Date        Date            `json:"date"`
	Hour        int             `json:"hour"`
	Payload     SnapshotPayload `json:"payload"`
	ContentHash string          `json:"content_hash"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// HourPeriod is one entry of a merged timeline.
type HourPeriod struct {
	StartTime time.Time    `json:"startTime"`
	EndTime   time.Time    `json:"endTime"`
	Source    PeriodSource `json:"source"`
	Payload   RawJSON      `json:"payload"`
}

// Timeline is the merged per-day view of a hub. It has no persistent identity.
type Timeline struct {
	HubCode             string           `json:"iata"`
	Date                Date             `json:"date"`
	Timezone            string           `json:"timezone"`
	Hourly              []HourPeriod     `json:"hourly"`
	Daily               []ForecastPeriod `json:"daily"`
	Alerts              []Alert          `json:"alerts"`
	Annotations         []HourAnnotation `json:"faa_events"`
	SIRs                []RawJSON        `json:"sirs"`
	TerminalConstraints []RawJSON        `json:"terminal_constraints"`
	GroundStop          *GroundStop      `json:"ground_stop,omitempty"`
	GroundDelay         *GroundDelay     `json:"ground_delay,omitempty"`
}
