package fingerprint

import (
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// IncrementalConfig configures change analysis between verification runs.
type IncrementalConfig struct {
	StateDir string // directory holding the state file
	ForceAll bool   // treat every scenario as changed
}

// Analysis categorizes scenarios relative to the previous run.
type Analysis struct {
	TotalScenarios     int           `json:"total_scenarios"`
	ChangedScenarios   []string      `json:"changed_scenarios"`
	UnchangedScenarios []string      `json:"unchanged_scenarios"`
	NewScenarios       []string      `json:"new_scenarios"`
	DeletedScenarios   []string      `json:"deleted_scenarios"`
	Skipped            int           `json:"skipped"`
	Duration           time.Duration `json:"duration"`
	IsFirstRun         bool          `json:"is_first_run"`
	ForcedFull         bool          `json:"forced_full"`
}

// Analyzer decides which scenarios a verification run can skip.
type Analyzer struct {
	config *IncrementalConfig
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(cfg *IncrementalConfig) *Analyzer {
	return &Analyzer{config: cfg, logger: slog.Default()}
}

// Analyze compares current scenario hashes against the stored state.
func (a *Analyzer) Analyze(current map[string]string) (*Analysis, error) {
	start := time.Now()
	result := &Analysis{TotalScenarios: len(current)}

	prev, err := LoadState(a.config.StateDir)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if prev == nil {
		result.IsFirstRun = true
	}

	if a.config.ForceAll {
		result.ForcedFull = true
		for name := range current {
			result.ChangedScenarios = append(result.ChangedScenarios, name)
		}
		sort.Strings(result.ChangedScenarios)
		result.Duration = time.Since(start)
		return result, nil
	}

	changedSet := make(map[string]bool)
	for _, name := range ChangedScenarios(current, prev) {
		changedSet[name] = true
	}

	for name := range current {
		switch {
		case result.IsFirstRun:
			result.NewScenarios = append(result.NewScenarios, name)
		case changedSet[name]:
			if _, existed := prev.GraphHashes[name]; existed {
				result.ChangedScenarios = append(result.ChangedScenarios, name)
			} else {
				result.NewScenarios = append(result.NewScenarios, name)
			}
		default:
			result.UnchangedScenarios = append(result.UnchangedScenarios, name)
			result.Skipped++
		}
	}

	if prev != nil {
		for name := range prev.GraphHashes {
			if _, exists := current[name]; !exists {
				result.DeletedScenarios = append(result.DeletedScenarios, name)
			}
		}
	}

	sort.Strings(result.ChangedScenarios)
	sort.Strings(result.UnchangedScenarios)
	sort.Strings(result.NewScenarios)
	sort.Strings(result.DeletedScenarios)
	result.Duration = time.Since(start)

	a.logger.Info("incremental analysis complete",
		"total", result.TotalScenarios,
		"changed", len(result.ChangedScenarios),
		"new", len(result.NewScenarios),
		"unchanged", len(result.UnchangedScenarios),
		"deleted", len(result.DeletedScenarios),
		"first_run", result.IsFirstRun,
	)
	return result, nil
}

// ScenariosToVerify returns changed plus new scenarios, sorted.
func (a *Analyzer) ScenariosToVerify(result *Analysis) []string {
	all := make([]string, 0, len(result.ChangedScenarios)+len(result.NewScenarios))
	all = append(all, result.ChangedScenarios...)
	all = append(all, result.NewScenarios...)
	sort.Strings(all)
	return all
}

// SaveState persists the current hashes as the new baseline.
func (a *Analyzer) SaveState(current map[string]string) error {
	state := NewState()
	state.GraphHashes = current
	return state.Save(a.config.StateDir)
}

// FormatAnalysis returns a human-readable analysis report.
func FormatAnalysis(result *Analysis) string {
	var s string
	s += "╔══════════════════════════════════════════╗\n"
	s += "║     Incremental Verification Report      ║\n"
	s += "╠══════════════════════════════════════════╣\n"

	if result.IsFirstRun {
		s += "║ Mode: First Run (full verification)      \n"
	} else if result.ForcedFull {
		s += "║ Mode: Forced Full Verification           \n"
	} else {
		s += "║ Mode: Incremental                        \n"
	}

	s += fmt.Sprintf("║ Total Scenarios: %d\n", result.TotalScenarios)
	s += fmt.Sprintf("║ Changed:         %d\n", len(result.ChangedScenarios))
	s += fmt.Sprintf("║ New:             %d\n", len(result.NewScenarios))
	s += fmt.Sprintf("║ Unchanged:       %d (skipped)\n", len(result.UnchangedScenarios))
	s += fmt.Sprintf("║ Deleted:         %d\n", len(result.DeletedScenarios))
	s += fmt.Sprintf("║ Analysis Time:   %s\n", result.Duration.Round(time.Millisecond))

	if result.TotalScenarios > 0 {
		skipRate := float64(result.Skipped) / float64(result.TotalScenarios) * 100
		s += fmt.Sprintf("║ Skip Rate:       %.1f%%\n", skipRate)
	}
	s += fmt.Sprintf("║ To Verify:       %d\n", len(result.ChangedScenarios)+len(result.NewScenarios))

	if len(result.ChangedScenarios) > 0 {
		s += "╠══════════════════════════════════════════╣\n"
		s += "║ Changed Scenarios:                       \n"
		for _, name := range result.ChangedScenarios {
			s += fmt.Sprintf("║   ~ %s\n", name)
		}
	}
	if len(result.NewScenarios) > 0 {
		s += "╠══════════════════════════════════════════╣\n"
		s += "║ New Scenarios:                           \n"
		for _, name := range result.NewScenarios {
			s += fmt.Sprintf("║   + %s\n", name)
		}
	}
	if len(result.DeletedScenarios) > 0 {
		s += "╠══════════════════════════════════════════╣\n"
		s += "║ Deleted Scenarios:                       \n"
		for _, name := range result.DeletedScenarios {
			s += fmt.Sprintf("║   - %s\n", name)
		}
	}

	s += "╚══════════════════════════════════════════╝\n"
	return s
}
