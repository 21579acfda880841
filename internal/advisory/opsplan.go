package advisory

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"hubwatch/internal/types"
)

var (
	hubTokenRe = regexp.MustCompile(`\b([A-Z]{3})\b`)
	anchorRe   = regexp.MustCompile(`^\s*(AFTER|UNTIL)\s+(\d{2})(\d{2})`)
)

// opsPlanDocument is the subset of the FAA operations plan JSON we consume.
type opsPlanDocument struct {
	PlanDate        string       `json:"planDate"`
	TerminalPlanned *[]planEntry `json:"terminalPlanned"`
}

type planEntry struct {
	Time  string `json:"time"`
	Event string `json:"event"`
}

// ParseAdvisoryDocument extracts hub-scoped events from an operations plan.
//
// Each terminalPlanned entry contributes one event per distinct three-letter
// uppercase token in its text, provided its time field carries an
// "AFTER hhmm" or "UNTIL hhmm" anchor. Entries without an anchor are not time
// bound and are ignored. Hub filtering happens later, against the tracked hub
// list, so tokens that are not airports fall away there.
//
// A body that is not valid JSON, or whose terminalPlanned field is present but
// not a list, is reported as ErrCodeUpstreamPayload. An anchor with an
// out-of-range hour or minute is kept so resolution can reject it individually.
func ParseAdvisoryDocument(doc []byte) ([]types.AdvisoryEvent, error) {
	var parsed opsPlanDocument
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamPayload, "advisory document is not valid JSON", err)
	}
	if parsed.TerminalPlanned == nil {
		return nil, nil
	}

	var planDate *types.Date
	if s := strings.TrimSpace(parsed.PlanDate); s != "" {
		d, err := parsePlanDate(s)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeUpstreamPayload, "advisory document has an invalid planDate", err)
		}
		planDate = &d
	}

	var events []types.AdvisoryEvent
	for _, entry := range *parsed.TerminalPlanned {
		m := anchorRe.FindStringSubmatch(strings.ToUpper(entry.Time))
		if m == nil {
			continue
		}
		hour, _ := strconv.Atoi(m[2])
		minute, _ := strconv.Atoi(m[3])
		when := fmt.Sprintf("%s %s%s", m[1], m[2], m[3])

		seen := make(map[string]bool)
		for _, tok := range hubTokenRe.FindAllStringSubmatch(entry.Event, -1) {
			code := tok[1]
			if seen[code] {
				continue
			}
			seen[code] = true
			events = append(events, types.AdvisoryEvent{
				HubCode:     code,
				WhenType:    types.WhenType(m[1]),
				ZuluHour:    hour,
				ZuluMinute:  minute,
				Description: strings.TrimSpace(entry.Event),
				When:        when,
				PlanDate:    planDate,
			})
		}
	}
	return events, nil
}

// parsePlanDate accepts a bare date or an RFC 3339 timestamp; the timestamp's
// UTC calendar day is used.
func parsePlanDate(s string) (types.Date, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return types.DateOf(ts.UTC()), nil
	}
	return types.ParseDate(s)
}

// FilterHubs keeps only events for the given hub codes.
func FilterHubs(events []types.AdvisoryEvent, codes map[string]bool) []types.AdvisoryEvent {
	out := events[:0:0]
	for _, ev := range events {
		if codes[ev.HubCode] {
			out = append(out, ev)
		}
	}
	return out
}
