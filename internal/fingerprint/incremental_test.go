package fingerprint

import (
	"strings"
	"testing"
)

func TestAnalyzer_FirstRun(t *testing.T) {
	analyzer := NewAnalyzer(&IncrementalConfig{StateDir: t.TempDir()})

	current := map[string]string{"a": "h1", "b": "h2", "c": "h3"}
	result, err := analyzer.Analyze(current)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !result.IsFirstRun {
		t.Error("Expected IsFirstRun to be true")
	}
	if result.TotalScenarios != 3 {
		t.Errorf("Expected TotalScenarios=3, got %d", result.TotalScenarios)
	}
	if len(result.NewScenarios) != 3 {
		t.Errorf("Expected 3 new scenarios, got %d", len(result.NewScenarios))
	}
	if result.Skipped != 0 {
		t.Errorf("Expected Skipped=0, got %d", result.Skipped)
	}
}

func TestAnalyzer_IncrementalRun(t *testing.T) {
	tmpDir := t.TempDir()
	analyzer := NewAnalyzer(&IncrementalConfig{StateDir: tmpDir})

	initial := map[string]string{"a": "h1", "b": "h2", "c": "h3"}
	if _, err := analyzer.Analyze(initial); err != nil {
		t.Fatalf("initial Analyze failed: %v", err)
	}
	if err := analyzer.SaveState(initial); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	second := map[string]string{
		"a": "h1-modified", // changed
		"b": "h2",          // unchanged
		"d": "h4",          // new; c deleted
	}
	result, err := analyzer.Analyze(second)
	if err != nil {
		t.Fatalf("second Analyze failed: %v", err)
	}

	if result.IsFirstRun {
		t.Error("Expected IsFirstRun to be false")
	}
	if len(result.ChangedScenarios) != 1 || result.ChangedScenarios[0] != "a" {
		t.Errorf("Expected changed=[a], got %v", result.ChangedScenarios)
	}
	if len(result.UnchangedScenarios) != 1 || result.UnchangedScenarios[0] != "b" {
		t.Errorf("Expected unchanged=[b], got %v", result.UnchangedScenarios)
	}
	if len(result.NewScenarios) != 1 || result.NewScenarios[0] != "d" {
		t.Errorf("Expected new=[d], got %v", result.NewScenarios)
	}
	if len(result.DeletedScenarios) != 1 || result.DeletedScenarios[0] != "c" {
		t.Errorf("Expected deleted=[c], got %v", result.DeletedScenarios)
	}
	if result.Skipped != 1 {
		t.Errorf("Expected Skipped=1, got %d", result.Skipped)
	}

	toVerify := analyzer.ScenariosToVerify(result)
	if len(toVerify) != 2 || toVerify[0] != "a" || toVerify[1] != "d" {
		t.Errorf("Expected to verify [a d], got %v", toVerify)
	}
}

func TestAnalyzer_ForceAll(t *testing.T) {
	tmpDir := t.TempDir()

	initial := map[string]string{"a": "h1", "b": "h2"}
	seed := NewAnalyzer(&IncrementalConfig{StateDir: tmpDir})
	if err := seed.SaveState(initial); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	analyzer := NewAnalyzer(&IncrementalConfig{StateDir: tmpDir, ForceAll: true})
	result, err := analyzer.Analyze(initial)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !result.ForcedFull {
		t.Error("Expected ForcedFull to be true")
	}
	if len(result.ChangedScenarios) != 2 {
		t.Errorf("Expected all scenarios changed under force, got %d", len(result.ChangedScenarios))
	}
	if result.Skipped != 0 {
		t.Errorf("Expected Skipped=0 under force, got %d", result.Skipped)
	}
}

func TestFormatAnalysis(t *testing.T) {
	result := &Analysis{
		TotalScenarios:   2,
		ChangedScenarios: []string{"diamond"},
		NewScenarios:     []string{"fresh"},
	}

	out := FormatAnalysis(result)
	if !strings.Contains(out, "Mode: Incremental") {
		t.Errorf("expected incremental mode line, got:\n%s", out)
	}
	if !strings.Contains(out, "~ diamond") {
		t.Errorf("expected changed scenario listed, got:\n%s", out)
	}
	if !strings.Contains(out, "+ fresh") {
		t.Errorf("expected new scenario listed, got:\n%s", out)
	}
}
