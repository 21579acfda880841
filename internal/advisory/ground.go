package advisory

import (
	"encoding/xml"
	"strings"

	"hubwatch/internal/types"
)

type airportStatusDocument struct {
	XMLName    xml.Name    `xml:"AIRPORT_STATUS_INFORMATION"`
	DelayTypes []delayType `xml:"Delay_type"`
}

type delayType struct {
	Name        string              `xml:"Name"`
	GroundStops []groundStopProgram `xml:"Ground_Stop_List>Program"`
	GroundDelay []groundDelayEntry  `xml:"Ground_Delay_List>Ground_Delay"`
}

type groundStopProgram struct {
	Airport string `xml:"ARPT"`
	Reason  string `xml:"Reason"`
	EndTime string `xml:"End_Time"`
}

type groundDelayEntry struct {
	Airport string `xml:"ARPT"`
	Reason  string `xml:"Reason"`
	Avg     string `xml:"Avg"`
	Max     string `xml:"Max"`
}

// ParseGroundStatus reads the FAA airport status XML feed into ground stop and
// ground delay programs keyed by airport code. When an airport appears more
// than once, the first entry wins.
func ParseGroundStatus(doc []byte) (types.GroundStatus, error) {
	status := types.GroundStatus{
		Stops:  map[string]types.GroundStop{},
		Delays: map[string]types.GroundDelay{},
	}

	var parsed airportStatusDocument
	if err := xml.Unmarshal(doc, &parsed); err != nil {
		return status, types.NewAppError(types.ErrCodeUpstreamPayload, "airport status document is not valid XML", err)
	}

	for _, dt := range parsed.DelayTypes {
		for _, p := range dt.GroundStops {
			code := strings.ToUpper(strings.TrimSpace(p.Airport))
			if code == "" {
				continue
			}
			if _, ok := status.Stops[code]; ok {
				continue
			}
			status.Stops[code] = types.GroundStop{
				Reason:  strings.TrimSpace(p.Reason),
				EndTime: strings.TrimSpace(p.EndTime),
			}
		}
		for _, d := range dt.GroundDelay {
			code := strings.ToUpper(strings.TrimSpace(d.Airport))
			if code == "" {
				continue
			}
			if _, ok := status.Delays[code]; ok {
				continue
			}
			status.Delays[code] = types.GroundDelay{
				Reason:   strings.TrimSpace(d.Reason),
				AvgDelay: strings.TrimSpace(d.Avg),
				MaxDelay: strings.TrimSpace(d.Max),
			}
		}
	}
	return status, nil
}
