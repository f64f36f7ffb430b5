package tui

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunInspect starts the interactive scenario inspector.
// It shows the browsing screen, then transitions to the summary.
// Returns the session so callers can save a report from it.
func RunInspect(session *InspectSession) (*InspectSession, error) {
	inspectModel := NewInspectModel(session)
	p := tea.NewProgram(inspectModel, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}

	// Show summary
	summaryModel := NewSummaryModel(session)
	sp := tea.NewProgram(summaryModel, tea.WithAltScreen())
	if _, err := sp.Run(); err != nil {
		return nil, fmt.Errorf("summary error: %w", err)
	}

	return session, nil
}

// InspectReport represents the JSON structure for the inspection report
type InspectReport struct {
	Timestamp string               `json:"timestamp"`
	Scenarios []InspectReportItem  `json:"scenarios"`
	Summary   InspectReportSummary `json:"summary"`
}

// InspectReportItem represents a single scenario in the report
type InspectReportItem struct {
	Name     string   `json:"name"`
	Root     string   `json:"root,omitempty"`
	Status   string   `json:"status"`
	Steps    int      `json:"steps"`
	Order    []string `json:"order,omitempty"`
	Mismatch string   `json:"mismatch,omitempty"`
}

// InspectReportSummary represents the summary statistics
type InspectReportSummary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	Errors   int `json:"errors"`
	Unpinned int `json:"unpinned"`
}

// SaveInspectReport writes a JSON report of the inspection outcomes.
func SaveInspectReport(session *InspectSession, outputPath string) error {
	passed, failed, errored, unpinned := session.Counts()

	items := make([]InspectReportItem, 0, len(session.Items))
	for _, item := range session.Items {
		items = append(items, InspectReportItem{
			Name:     item.Name,
			Root:     item.Root,
			Status:   item.Status.String(),
			Steps:    len(item.Trace),
			Order:    item.Order,
			Mismatch: item.Mismatch,
		})
	}

	report := InspectReport{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Scenarios: items,
		Summary: InspectReportSummary{
			Total:    len(session.Items),
			Passed:   passed,
			Failed:   failed,
			Errors:   errored,
			Unpinned: unpinned,
		},
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
