package advisory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"hubwatch/internal/types"
)

// constraintLogFile is the on-disk layout of the daily constraint log.
type constraintLogFile struct {
	Date types.Date                         `json:"date"`
	Hubs map[string]types.ConstraintEntries `json:"hubs"`
}

// ConstraintLog reads the operator-maintained daily file of special
// instructions and terminal constraints. The file is re-read on every lookup
// since it is edited out of band.
type ConstraintLog struct {
	path string
}

// NewConstraintLog returns a log reading from path. An empty path yields a log
// that always reports no entries.
func NewConstraintLog(path string) *ConstraintLog {
	return &ConstraintLog{path: path}
}

// Lookup returns today's entries for hubCode. A missing file, a file for a
// different day, or a hub without entries all yield empty lists.
func (l *ConstraintLog) Lookup(hubCode string, today types.Date) (types.ConstraintEntries, error) {
	empty := types.ConstraintEntries{SIRs: []types.RawJSON{}, TerminalConstraints: []types.RawJSON{}}
	if l == nil || l.path == "" {
		return empty, nil
	}

	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return empty, nil
	}
	if err != nil {
		return empty, fmt.Errorf("read constraint log: %w", err)
	}

	var f constraintLogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return empty, fmt.Errorf("decode constraint log %s: %w", l.path, err)
	}
	if f.Date != today {
		return empty, nil
	}

	entries, ok := f.Hubs[hubCode]
	if !ok {
		return empty, nil
	}
	if entries.SIRs == nil {
		entries.SIRs = []types.RawJSON{}
	}
	if entries.TerminalConstraints == nil {
		entries.TerminalConstraints = []types.RawJSON{}
	}
	return entries, nil
}
