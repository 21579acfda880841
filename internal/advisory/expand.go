package advisory

import (
	"time"

	"hubwatch/internal/types"
)

const (
	// DefaultCarryoverLastHour is the last local hour (inclusive) annotated on
	// later days by an AFTER advisory that began on an earlier day and was
	// never closed.
	DefaultCarryoverLastHour = 2
	// NoCarryover disables annotation of stale AFTER advisories entirely.
	NoCarryover = -1
)

// Expander turns resolved events into local-hour annotations for one hub day.
// It is safe for concurrent use.
type Expander struct {
	carryoverLastHour int
}

// NewExpander builds an Expander with the given stale-AFTER carryover cap.
// Values above 23 are treated as 23 (the whole day); negative values disable
// carryover.
func NewExpander(carryoverLastHour int) *Expander {
	if carryoverLastHour > 23 {
		carryoverLastHour = 23
	}
	if carryoverLastHour < 0 {
		carryoverLastHour = NoCarryover
	}
	return &Expander{carryoverLastHour: carryoverLastHour}
}

// Expand returns the annotations of hubCode's events on the viewing date in loc.
//
//   - AFTER, same local day: every hour strictly after the anchor hour through 23.
//   - AFTER, earlier local day: hours 0 through the carryover cap.
//   - AFTER, later local day: nothing yet.
//   - UNTIL, same local day: hours 0 through the anchor hour inclusive.
//   - UNTIL, later local day: all 24 hours.
//   - UNTIL, earlier local day: nothing (expired).
//
// Output order follows the input event order, then ascending hour, so
// identical inputs give identical output.
func (e *Expander) Expand(events []types.ResolvedEvent, hubCode string, viewing types.Date, loc *time.Location) []types.HourAnnotation {
	var out []types.HourAnnotation
	for _, ev := range events {
		if ev.HubCode != hubCode {
			continue
		}
		local := ev.Instant.In(loc)
		localDate := types.DateOf(local)

		first, last := -1, -1
		switch ev.WhenType {
		case types.WhenAfter:
			switch {
			case localDate == viewing:
				first, last = local.Hour()+1, 23
			case localDate.Before(viewing) && e.carryoverLastHour != NoCarryover:
				first, last = 0, e.carryoverLastHour
			}
		case types.WhenUntil:
			switch {
			case localDate == viewing:
				first, last = 0, local.Hour()
			case localDate.After(viewing):
				first, last = 0, 23
			}
		}
		if first < 0 {
			continue
		}

		for hour := first; hour <= last; hour++ {
			out = append(out, types.HourAnnotation{
				HubCode:       hubCode,
				Date:          viewing,
				LocalHour:     hour,
				Description:   ev.Description,
				When:          ev.When,
				WhenType:      ev.WhenType,
				SourceEventID: ev.ID,
			})
		}
	}
	return out
}
