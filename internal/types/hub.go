package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Hub is a tracked airport.
type Hub struct {
	Code         string     `json:"iata" yaml:"iata" validate:"required,iata"`
	Name         string     `json:"name" yaml:"name" validate:"required"`
	City         string     `json:"city" yaml:"city"`
	Timezone     string     `json:"tz" yaml:"tz" validate:"required,tzname"`
	Lat          float64    `json:"lat" yaml:"lat" validate:"gte=-90,lte=90"`
	Lon          float64    `json:"lon" yaml:"lon" validate:"gte=-180,lte=180"`
	Runways      RunwayList `json:"runways" yaml:"runways"`
	Active       bool       `json:"is_active" yaml:"is_active"`
	DisplayOrder int        `json:"display_order" yaml:"display_order"`
}

// Location loads the hub's IANA time zone.
func (h Hub) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return nil, fmt.Errorf("hub %s: load timezone %q: %w", h.Code, h.Timezone, err)
	}
	return loc, nil
}

// Runway describes one runway pair at a hub.
type Runway struct {
	Label   string `json:"label" yaml:"label"`
	Heading int    `json:"heading" yaml:"heading"`
	Length  int    `json:"len" yaml:"len"`
}

// RunwayList is stored as a JSONB column.
type RunwayList []Runway

var (
	_ sql.Scanner   = (*RunwayList)(nil)
	_ driver.Valuer = RunwayList(nil)
)

// Scan implements sql.Scanner for reading JSONB from the database.
func (rl *RunwayList) Scan(value any) error {
	if value == nil {
		*rl = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, rl)
}

// Value implements driver.Valuer for writing JSONB to the database.
func (rl RunwayList) Value() (driver.Value, error) {
	if rl == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Runway(rl))
}
