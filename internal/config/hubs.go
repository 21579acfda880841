package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"hubwatch/internal/types"
)

// DefaultHubs is the hub catalogue seeded into the database on first start.
// Active hubs are refreshed every tick in DisplayOrder; inactive hubs are
// listed for reference only.
func DefaultHubs() []types.Hub {
	return []types.Hub{
		{
			Code: "CLT", Name: "Charlotte Douglas International Airport", City: "Charlotte, NC",
			Timezone: "America/New_York", Lat: 35.2140, Lon: -80.9431, Active: true, DisplayOrder: 1,
			Runways: types.RunwayList{
				{Label: "18L/36R", Heading: 180, Length: 10000},
				{Label: "18C/36C", Heading: 180, Length: 10000},
				{Label: "18R/36L", Heading: 180, Length: 9000},
				{Label: "5/23", Heading: 50, Length: 7502},
			},
		},
		{
			Code: "PHL", Name: "Philadelphia International Airport", City: "Philadelphia, PA",
			Timezone: "America/New_York", Lat: 39.8744, Lon: -75.2424, Active: true, DisplayOrder: 2,
			Runways: types.RunwayList{
				{Label: "9L/27R", Heading: 90, Length: 10000},
				{Label: "9R/27L", Heading: 90, Length: 9500},
				{Label: "17/35", Heading: 170, Length: 6500},
			},
		},
		{
			Code: "DCA", Name: "Ronald Reagan Washington National Airport", City: "Washington, DC",
			Timezone: "America/New_York", Lat: 38.8521, Lon: -77.0377, Active: true, DisplayOrder: 3,
			Runways: types.RunwayList{
				{Label: "1/19", Heading: 10, Length: 7169},
				{Label: "15/33", Heading: 150, Length: 5204},
			},
		},
		{
			Code: "DAY", Name: "Dayton International Airport", City: "Dayton, OH",
			Timezone: "America/New_York", Lat: 39.9024, Lon: -84.2194, Active: true, DisplayOrder: 4,
			Runways: types.RunwayList{
				{Label: "6L/24R", Heading: 60, Length: 10500},
				{Label: "18/36", Heading: 180, Length: 7500},
				{Label: "6R/24L", Heading: 60, Length: 7100},
			},
		},
		{
			Code: "DFW", Name: "Dallas/Fort Worth International Airport", City: "Dallas-Fort Worth, TX",
			Timezone: "America/Chicago", Lat: 32.8998, Lon: -97.0403, Active: true, DisplayOrder: 5,
			Runways: types.RunwayList{
				{Label: "13L/31R", Heading: 130, Length: 9000},
				{Label: "13R/31L", Heading: 130, Length: 9200},
				{Label: "17L/35R", Heading: 170, Length: 8500},
				{Label: "17C/35C", Heading: 170, Length: 13400},
				{Label: "17R/35L", Heading: 170, Length: 13400},
				{Label: "18L/36R", Heading: 180, Length: 13300},
				{Label: "18R/36L", Heading: 180, Length: 13400},
			},
		},
		{
			Code: "ORD", Name: "O'Hare International Airport", City: "Chicago, IL",
			Timezone: "America/Chicago", Lat: 41.9742, Lon: -87.9073, DisplayOrder: 6,
			Runways: types.RunwayList{
				{Label: "10L/28R", Heading: 100, Length: 13000},
				{Label: "9C/27C", Heading: 90, Length: 11260},
				{Label: "9L/27R", Heading: 90, Length: 11245},
				{Label: "10C/28C", Heading: 100, Length: 10801},
			},
		},
		{
			Code: "GSP", Name: "Greenville-Spartanburg International Airport", City: "Greenville, SC",
			Timezone: "America/New_York", Lat: 34.8956, Lon: -82.2189, DisplayOrder: 7,
			Runways: types.RunwayList{{Label: "4/22", Heading: 40, Length: 11001}},
		},
		{
			Code: "CAK", Name: "Akron-Canton Airport", City: "Akron, OH",
			Timezone: "America/New_York", Lat: 40.9162, Lon: -81.4422, DisplayOrder: 8,
			Runways: types.RunwayList{
				{Label: "1/19", Heading: 10, Length: 7601},
				{Label: "5/23", Heading: 50, Length: 8204},
			},
		},
		{
			Code: "TYS", Name: "McGhee Tyson Airport", City: "Knoxville, TN",
			Timezone: "America/New_York", Lat: 35.8122, Lon: -83.9941, DisplayOrder: 9,
			Runways: types.RunwayList{
				{Label: "5L/23R", Heading: 50, Length: 9003},
				{Label: "5R/23L", Heading: 50, Length: 9000},
			},
		},
		{
			Code: "ATL", Name: "Hartsfield-Jackson Atlanta International Airport", City: "Atlanta, GA",
			Timezone: "America/New_York", Lat: 33.6407, Lon: -84.4277, DisplayOrder: 10,
			Runways: types.RunwayList{
				{Label: "8L/26R", Heading: 90, Length: 9000},
				{Label: "8R/26L", Heading: 90, Length: 9999},
				{Label: "9L/27R", Heading: 90, Length: 12390},
				{Label: "9R/27L", Heading: 90, Length: 9000},
				{Label: "10/28", Heading: 90, Length: 9000},
			},
		},
		{
			Code: "PNS", Name: "Pensacola International Airport", City: "Pensacola, FL",
			Timezone: "America/Chicago", Lat: 30.4735, Lon: -87.1866, DisplayOrder: 11,
			Runways: types.RunwayList{
				{Label: "17/35", Heading: 170, Length: 7004},
				{Label: "8/26", Heading: 80, Length: 7000},
			},
		},
		{
			Code: "MIA", Name: "Miami International Airport", City: "Miami, FL",
			Timezone: "America/New_York", Lat: 25.7959, Lon: -80.2871, DisplayOrder: 12,
			Runways: types.RunwayList{
				{Label: "8L/26R", Heading: 90, Length: 8600},
				{Label: "9/27", Heading: 90, Length: 13016},
				{Label: "12/30", Heading: 120, Length: 9355},
			},
		},
		{
			Code: "PHX", Name: "Phoenix Sky Harbor International Airport", City: "Phoenix, AZ",
			Timezone: "America/Phoenix", Lat: 33.4342, Lon: -112.0116, DisplayOrder: 13,
			Runways: types.RunwayList{
				{Label: "8/26", Heading: 80, Length: 11489},
				{Label: "7L/25R", Heading: 80, Length: 10300},
				{Label: "7R/25L", Heading: 80, Length: 7800},
			},
		},
		{
			Code: "MDT", Name: "Harrisburg International Airport", City: "Middletown, PA",
			Timezone: "America/New_York", Lat: 40.1935, Lon: -76.7634, DisplayOrder: 14,
			Runways: types.RunwayList{{Label: "13/31", Heading: 130, Length: 10001}},
		},
	}
}

// ValidateHubs checks every hub against its struct tags and rejects duplicate
// codes.
func ValidateHubs(hubs []types.Hub) error {
	v := validator.New()
	if err := types.RegisterValidators(v); err != nil {
		return err
	}
	seen := make(map[string]bool, len(hubs))
	for _, h := range hubs {
		if err := v.Struct(h); err != nil {
			return &ConfigError{Type: ErrValidation, Message: fmt.Sprintf("hub %q is invalid", h.Code), Err: err}
		}
		if seen[h.Code] {
			return &ConfigError{Type: ErrValidation, Message: fmt.Sprintf("hub %q is listed twice", h.Code)}
		}
		seen[h.Code] = true
	}
	return nil
}

// hubCatalogueFile is the YAML layout of HUB_CATALOGUE_PATH.
type hubCatalogueFile struct {
	Hubs []types.Hub `yaml:"hubs"`
}

// LoadHubCatalogue reads and validates a YAML hub catalogue.
func LoadHubCatalogue(path string) ([]types.Hub, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Type: ErrParsing, Message: "read hub catalogue " + path, Err: err}
	}
	var f hubCatalogueFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &ConfigError{Type: ErrParsing, Message: "parse hub catalogue " + path, Err: err}
	}
	if len(f.Hubs) == 0 {
		return nil, &ConfigError{Type: ErrValidation, Message: "hub catalogue " + path + " lists no hubs"}
	}
	if err := ValidateHubs(f.Hubs); err != nil {
		return nil, err
	}
	return f.Hubs, nil
}

// HubCatalogue returns the hubs to seed: the file at HUB_CATALOGUE_PATH when
// set, otherwise DefaultHubs.
func (c *Config) HubCatalogue() ([]types.Hub, error) {
	if c.Refresh.HubCataloguePath == "" {
		return DefaultHubs(), nil
	}
	return LoadHubCatalogue(c.Refresh.HubCataloguePath)
}
