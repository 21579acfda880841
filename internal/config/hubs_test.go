package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubwatch/internal/types"
)

func TestDefaultHubs(t *testing.T) {
	hubs := DefaultHubs()
	require.NoError(t, ValidateHubs(hubs))

	var active []string
	orders := map[int]bool{}
	for _, h := range hubs {
		if h.Active {
			active = append(active, h.Code)
		}
		assert.False(t, orders[h.DisplayOrder], "duplicate display order %d", h.DisplayOrder)
		orders[h.DisplayOrder] = true
		assert.NotEmpty(t, h.Runways, h.Code)
	}
	assert.Equal(t, []string{"CLT", "PHL", "DCA", "DAY", "DFW"}, active)
	assert.Len(t, hubs, 14)
}

func TestValidateHubs_Rejects(t *testing.T) {
	clt := DefaultHubs()[0]

	err := ValidateHubs([]types.Hub{clt, clt})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listed twice")

	bad := clt
	bad.Timezone = "Not/AZone"
	var cfgErr *ConfigError
	require.ErrorAs(t, ValidateHubs([]types.Hub{bad}), &cfgErr)
	assert.Equal(t, ErrValidation, cfgErr.Type)
}

func writeCatalogue(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hubs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadHubCatalogue(t *testing.T) {
	path := writeCatalogue(t, `
hubs:
  - iata: CLT
    name: Charlotte Douglas International Airport
    city: Charlotte, NC
    tz: America/New_York
    lat: 35.214
    lon: -80.9431
    is_active: true
    display_order: 1
    runways:
      - {label: 18L/36R, heading: 180, len: 10000}
  - iata: BNA
    name: Nashville International Airport
    tz: America/Chicago
    display_order: 2
`)

	hubs, err := LoadHubCatalogue(path)
	require.NoError(t, err)
	require.Len(t, hubs, 2)
	assert.Equal(t, "CLT", hubs[0].Code)
	assert.True(t, hubs[0].Active)
	assert.Equal(t, types.RunwayList{{Label: "18L/36R", Heading: 180, Length: 10000}}, hubs[0].Runways)
	assert.Equal(t, "America/Chicago", hubs[1].Timezone)
	assert.False(t, hubs[1].Active)
}

func TestLoadHubCatalogue_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want ConfigErrorType
	}{
		{"malformed", "hubs: [", ErrParsing},
		{"empty", "hubs: []", ErrValidation},
		{"invalid hub", "hubs:\n  - iata: clt\n    name: x\n    tz: America/New_York\n", ErrValidation},
		{"duplicate", "hubs:\n  - {iata: CLT, name: a, tz: UTC}\n  - {iata: CLT, name: b, tz: UTC}\n", ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadHubCatalogue(writeCatalogue(t, tt.body))
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.want, cfgErr.Type)
		})
	}

	_, err := LoadHubCatalogue(filepath.Join(t.TempDir(), "missing.yaml"))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, ErrParsing, cfgErr.Type)
}

func TestConfig_HubCatalogue(t *testing.T) {
	cfg := &Config{}
	hubs, err := cfg.HubCatalogue()
	require.NoError(t, err)
	assert.Equal(t, DefaultHubs(), hubs)

	cfg.Refresh.HubCataloguePath = writeCatalogue(t, "hubs:\n  - {iata: BNA, name: Nashville, tz: America/Chicago, is_active: true}\n")
	hubs, err = cfg.HubCatalogue()
	require.NoError(t, err)
	require.Len(t, hubs, 1)
	assert.Equal(t, "BNA", hubs[0].Code)
}
