package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SummaryModel displays the final verification summary after inspection
type SummaryModel struct {
	session  *InspectSession
	styles   *Styles
	width    int
	height   int
	quitting bool
}

// NewSummaryModel creates a new summary screen
func NewSummaryModel(session *InspectSession) SummaryModel {
	return SummaryModel{
		session: session,
		styles:  DefaultStyles(),
	}
}

// Init implements tea.Model
func (m SummaryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m SummaryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "enter":
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model
func (m SummaryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	// Title
	title := m.styles.Title.Render("Verification Summary")
	b.WriteString(title)
	b.WriteString("\n\n")

	passed, failed, errored, unpinned := m.session.Counts()
	total := len(m.session.Items)

	// Stats table
	statsTable := m.renderStatsTable(total, passed, failed, errored, unpinned)
	b.WriteString(statsTable)
	b.WriteString("\n\n")

	// Pass-rate badge
	rate := m.session.PassRate()
	rateLabel := fmt.Sprintf("Pass rate: %.1f%%", rate*100)
	rateBadge := PassRateColor(rate).Render(rateLabel)
	b.WriteString(rateBadge)
	b.WriteString("\n\n")

	// List failing scenarios with their first mismatch
	if failed > 0 || errored > 0 {
		b.WriteString(m.styles.Subtitle.Render("Scenarios Requiring Attention:"))
		b.WriteString("\n\n")

		for _, item := range m.session.Items {
			if item.Status == InspectFailed || item.Status == InspectError {
				b.WriteString(m.renderItemDetail(item))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}

	// Help text
	help := m.styles.Help.Render("Press enter to exit")
	b.WriteString(help)

	return b.String()
}

// renderStatsTable creates a formatted stats table
func (m SummaryModel) renderStatsTable(total, passed, failed, errored, unpinned int) string {
	var b strings.Builder

	// Table header
	b.WriteString(m.styles.Subtitle.Render("Statistics"))
	b.WriteString("\n\n")

	// Rows
	b.WriteString(fmt.Sprintf("  Total scenarios:       %d\n", total))

	passedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)).Bold(true)
	b.WriteString(fmt.Sprintf("  Passed:                %s\n", passedStyle.Render(fmt.Sprintf("%d", passed))))

	failedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)).Bold(true)
	b.WriteString(fmt.Sprintf("  Failed:                %s\n", failedStyle.Render(fmt.Sprintf("%d", failed))))

	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)).Bold(true)
	b.WriteString(fmt.Sprintf("  Execution errors:      %s\n", errorStyle.Render(fmt.Sprintf("%d", errored))))

	unpinnedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray))
	b.WriteString(fmt.Sprintf("  Unpinned:              %s\n", unpinnedStyle.Render(fmt.Sprintf("%d", unpinned))))

	return b.String()
}

// renderItemDetail renders a single scenario with status and mismatch
func (m SummaryModel) renderItemDetail(item *InspectItem) string {
	var b strings.Builder

	// Scenario header
	b.WriteString(m.styles.Subtitle.Render(item.Name))
	b.WriteString(" ")

	// Status badge
	var statusBadge string
	switch item.Status {
	case InspectFailed:
		statusBadge = m.styles.StatusFailed.Render("FAILED")
	case InspectError:
		statusBadge = m.styles.StatusError.Render("ERROR")
	}
	b.WriteString(statusBadge)
	b.WriteString("\n")

	// First mismatch
	if item.Mismatch != "" {
		b.WriteString("  ")
		b.WriteString(item.Mismatch)
		b.WriteString("\n")
	}

	return b.String()
}
