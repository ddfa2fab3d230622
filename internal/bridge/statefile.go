package bridge

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/persona-vault/persona/internal/perrors"
)

// LoadState reads and decodes state.json at path. A missing file is not an
// error; it returns a fresh, empty State.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewState(), nil
	}
	if err != nil {
		return nil, &perrors.Io{Underlying: err}
	}
	st := NewState()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, &perrors.InvalidInput{Field: "state.json", Reason: "malformed state file: " + err.Error()}
	}
	if st.Pending == nil {
		st.Pending = make(map[string]*PendingPairing)
	}
	if st.Paired == nil {
		st.Paired = make(map[string]*Pairing)
	}
	return st, nil
}

// SaveState marshals st and writes it to path atomically: a temp file in the
// same directory is written and fsynced, then renamed over path, so a crash
// mid-write never leaves a truncated or partially-written state.json.
func SaveState(st *State, path string) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return &perrors.InvalidInput{Field: "state.json", Reason: "could not marshal: " + err.Error()}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".state-*.json.tmp")
	if err != nil {
		return &perrors.Io{Underlying: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &perrors.Io{Underlying: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &perrors.Io{Underlying: err}
	}
	if err := tmp.Close(); err != nil {
		return &perrors.Io{Underlying: err}
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		return &perrors.Io{Underlying: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &perrors.Io{Underlying: err}
	}
	return nil
}
