// Package advisory turns FAA operational advisories into per-hour annotations.
//
// The pipeline is: ParseAdvisoryDocument (upstream JSON to AdvisoryEvent),
// ResolveEvents (Zulu hh:mm anchors to absolute UTC instants), and
// Expander.Expand (instants to local-hour annotations for one viewing day).
// Nothing in this package reads the system clock; every function takes the
// instant it should treat as "now".
package advisory

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"hubwatch/internal/types"
)

// eventNamespace scopes the deterministic IDs given to resolved events.
var eventNamespace = uuid.MustParse("6f1c2a4e-3d4b-5c8a-9e0f-7a1b2c3d4e5f")

// Anchor is the time part of an advisory: a Zulu hour:minute and its kind.
type Anchor struct {
	WhenType   types.WhenType
	ZuluHour   int
	ZuluMinute int
	// PlanDate, when set, is the advisory's own issue date. It replaces the
	// reference date as the base day.
	PlanDate *types.Date
}

// ResolveAnchor converts an anchor into an absolute UTC instant.
//
// The base day is the UTC calendar day of referenceLocal (a moment in the
// hub's zone), or the anchor's PlanDate when present. An AFTER anchor whose
// base day is the current UTC day rolls forward 24 hours once the current UTC
// hour has reached the anchor hour, so it names the next occurrence of that
// Zulu time. A base day before today never rolls. UNTIL anchors never roll.
//
// A *types.AppError with ErrCodeMalformedAnchor is returned when the hour is
// outside 0-23, the minute outside 0-59, or the kind is unknown.
func ResolveAnchor(a Anchor, referenceLocal, now time.Time) (time.Time, error) {
	if !a.WhenType.Valid() {
		return time.Time{}, types.NewAppError(types.ErrCodeMalformedAnchor,
			fmt.Sprintf("unknown anchor kind %q", a.WhenType), nil)
	}
	if a.ZuluHour < 0 || a.ZuluHour > 23 {
		return time.Time{}, types.NewAppError(types.ErrCodeMalformedAnchor,
			fmt.Sprintf("zulu hour %d out of range 0-23", a.ZuluHour), nil)
	}
	if a.ZuluMinute < 0 || a.ZuluMinute > 59 {
		return time.Time{}, types.NewAppError(types.ErrCodeMalformedAnchor,
			fmt.Sprintf("zulu minute %d out of range 0-59", a.ZuluMinute), nil)
	}

	nowUTC := now.UTC()
	base := types.DateOf(referenceLocal.UTC())
	if a.PlanDate != nil {
		base = *a.PlanDate
	}
	instant := time.Date(base.Year, base.Month, base.Day, a.ZuluHour, a.ZuluMinute, 0, 0, time.UTC)

	if a.WhenType == types.WhenAfter &&
		base == types.DateOf(nowUTC) && nowUTC.Hour() >= a.ZuluHour {
		instant = instant.Add(24 * time.Hour)
	}
	return instant, nil
}

// ResolveEvents resolves every event against the same reference moment.
// Malformed events are skipped and reported individually; they never prevent
// the remaining events from resolving.
func ResolveEvents(events []types.AdvisoryEvent, referenceLocal, now time.Time) ([]types.ResolvedEvent, []error) {
	resolved := make([]types.ResolvedEvent, 0, len(events))
	var errs []error
	for _, ev := range events {
		instant, err := ResolveAnchor(Anchor{
			WhenType:   ev.WhenType,
			ZuluHour:   ev.ZuluHour,
			ZuluMinute: ev.ZuluMinute,
			PlanDate:   ev.PlanDate,
		}, referenceLocal, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("advisory %s %q: %w", ev.HubCode, ev.When, err))
			continue
		}
		resolved = append(resolved, types.ResolvedEvent{
			AdvisoryEvent: ev,
			ID:            eventID(ev, instant),
			Instant:       instant,
		})
	}
	return resolved, errs
}

// eventID derives a stable identifier so repeated expansion of the same
// advisory yields identical annotations.
func eventID(ev types.AdvisoryEvent, instant time.Time) string {
	key := fmt.Sprintf("%s|%s|%02d%02d|%s|%s",
		ev.HubCode, ev.WhenType, ev.ZuluHour, ev.ZuluMinute, ev.Description, instant.UTC().Format(time.RFC3339))
	return uuid.NewSHA1(eventNamespace, []byte(key)).String()
}
