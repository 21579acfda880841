package advisory

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubwatch/internal/types"
)

func TestConstraintLog_Lookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constraints.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"date": "2024-07-10",
		"hubs": {
			"CLT": {"sirs": [{"text": "RWY 18C CLSD"}], "terminal_constraints": []},
			"PHL": {"terminal_constraints": [{"text": "MIT 20"}]}
		}
	}`), 0o600))

	log := NewConstraintLog(path)
	today := types.Date{Year: 2024, Month: time.July, Day: 10}

	clt, err := log.Lookup("CLT", today)
	require.NoError(t, err)
	require.Len(t, clt.SIRs, 1)
	assert.JSONEq(t, `{"text":"RWY 18C CLSD"}`, string(clt.SIRs[0]))
	assert.Empty(t, clt.TerminalConstraints)

	phl, err := log.Lookup("PHL", today)
	require.NoError(t, err)
	assert.NotNil(t, phl.SIRs)
	assert.Len(t, phl.TerminalConstraints, 1)

	stale, err := log.Lookup("CLT", today.AddDays(1))
	require.NoError(t, err)
	assert.Empty(t, stale.SIRs)
}

func TestConstraintLog_MissingFile(t *testing.T) {
	log := NewConstraintLog(filepath.Join(t.TempDir(), "absent.json"))
	entries, err := log.Lookup("CLT", types.Date{Year: 2024, Month: time.July, Day: 10})
	require.NoError(t, err)
	assert.Empty(t, entries.SIRs)
	assert.Empty(t, entries.TerminalConstraints)

	entries, err = NewConstraintLog("").Lookup("CLT", types.Date{})
	require.NoError(t, err)
	assert.NotNil(t, entries.TerminalConstraints)
}

func TestConstraintLog_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constraints.json")
	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o600))
	_, err := NewConstraintLog(path).Lookup("CLT", types.Date{})
	assert.Error(t, err)
}
