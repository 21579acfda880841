package types

import "time"

// WhenType is the kind of time anchor attached to an advisory.
type WhenType string

const (
	// WhenAfter marks the start of a restriction.
	WhenAfter WhenType = "AFTER"
	// WhenUntil marks the end of a restriction.
	WhenUntil WhenType = "UNTIL"
)

// Valid reports whether w is a known anchor kind.
func (w WhenType) Valid() bool {
	return w == WhenAfter || w == WhenUntil
}

// AdvisoryEvent is one hub-scoped entry parsed from an advisory document.
// It is immutable once parsed.
type AdvisoryEvent struct {
	HubCode     string   `json:"iata"`
	WhenType    WhenType `json:"when_type"`
	ZuluHour    int      `json:"zulu_hour"`
	ZuluMinute  int      `json:"zulu_minute"`
	Description string   `json:"desc"`
	// When is the raw anchor text, e.g. "AFTER 1900".
	When string `json:"when"`
	// PlanDate is the advisory's own issue date when the document carries one.
	PlanDate *Date `json:"plan_date,omitempty"`
}

// ResolvedEvent is an AdvisoryEvent anchored to an absolute instant.
type ResolvedEvent struct {
	AdvisoryEvent
	ID      string    `json:"id"`
	Instant time.Time `json:"event_dt_utc"`
}

// HourAnnotation attaches an advisory description to one local hour of a
// hub's calendar day. Several annotations may share the same hour.
type HourAnnotation struct {
	HubCode       string   `json:"iata"`
	Date          Date     `json:"date"`
	LocalHour     int      `json:"local_hour"`
	Description   string   `json:"desc"`
	When          string   `json:"when"`
	WhenType      WhenType `json:"when_type"`
	SourceEventID string   `json:"source_event_id"`
}

// ConstraintEntries holds auxiliary per-hub constraint lists (special
// instructions and terminal constraints) maintained outside the core.
type ConstraintEntries struct {
	SIRs                []RawJSON `json:"sirs"`
	TerminalConstraints []RawJSON `json:"terminal_constraints"`
}
