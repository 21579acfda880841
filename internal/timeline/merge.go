package timeline

import (
	"sort"
	"time"

	"hubwatch/internal/types"
)

// MergeHourly reconciles recorded actuals with the live forecast for one
// hub-local date.
//
// Live periods starting outside the date are ignored. A live period that has
// started by now and has a recorded actual at the same start time is replaced
// by the actual; every other live period is emitted as-is. Actuals whose start
// time is absent from the live set are appended. The result is sorted by start
// time with no duplicate start times.
func MergeHourly(actuals []types.HourlyActual, live []types.ForecastPeriod, date types.Date, loc *time.Location, now time.Time) []types.HourPeriod {
	byStart := make(map[int64]types.HourlyActual, len(actuals))
	for _, a := range actuals {
		byStart[a.StartTime.Unix()] = a
	}

	out := make([]types.HourPeriod, 0, len(live)+len(actuals))
	seen := make(map[int64]bool, len(live))
	for _, p := range live {
		if types.DateOf(p.StartTime.In(loc)) != date {
			continue
		}
		key := p.StartTime.Unix()
		if seen[key] {
			continue
		}
		seen[key] = true

		if a, ok := byStart[key]; ok && !p.StartTime.After(now) {
			out = append(out, fromActual(a))
			continue
		}
		out = append(out, types.HourPeriod{
			StartTime: p.StartTime,
			EndTime:   p.EndTime,
			Source:    types.SourceForecast,
			Payload:   p.Payload,
		})
	}

	for key, a := range byStart {
		if !seen[key] {
			out = append(out, fromActual(a))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

func fromActual(a types.HourlyActual) types.HourPeriod {
	return types.HourPeriod{
		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		Source:    types.SourceActual,
		Payload:   a.Payload,
	}
}
