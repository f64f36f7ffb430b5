package fingerprint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// State stores scenario graph hashes from the last verification run.
type State struct {
	Version string    `json:"version"`
	LastRun time.Time `json:"last_run"`
	// GraphHashes maps scenario name to its composition's graph hash.
	GraphHashes map[string]string `json:"graph_hashes"`
}

const stateVersion = "1.0.0"
const stateFileName = ".mixdown-state.json"

// NewState creates an empty state.
func NewState() *State {
	return &State{
		Version:     stateVersion,
		LastRun:     time.Now(),
		GraphHashes: make(map[string]string),
	}
}

// LoadState loads state from dir. Returns nil without error when no
// state file exists yet (first run).
func LoadState(dir string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(dir, stateFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Save persists the state to dir.
func (s *State) Save(dir string) error {
	s.LastRun = time.Now()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, stateFileName), data, 0o644)
}

// ChangedScenarios compares current hashes against the previous state
// and returns the scenarios whose compositions changed. A nil previous
// state (first run) marks everything changed.
func ChangedScenarios(current map[string]string, prev *State) []string {
	if prev == nil {
		changed := make([]string, 0, len(current))
		for name := range current {
			changed = append(changed, name)
		}
		return changed
	}

	var changed []string
	for name, hash := range current {
		old, exists := prev.GraphHashes[name]
		if !exists || old != hash {
			changed = append(changed, name)
		}
	}
	return changed
}
