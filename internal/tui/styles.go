package tui

import "github.com/charmbracelet/lipgloss"

// Color constants matching the dark dashboard theme
const (
	ColorBg     = "#0d1117"
	ColorCard   = "#161b22"
	ColorBorder = "#30363d"
	ColorBlue   = "#58a6ff"
	ColorGreen  = "#3fb950"
	ColorRed    = "#f85149"
	ColorYellow = "#d29922"
	ColorGray   = "#8b949e"
	ColorText   = "#c9d1d9"
	ColorBright = "#f0f6fc"
)

// Styles holds all lipgloss styles for the TUI
type Styles struct {
	// Text styles
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Help     lipgloss.Style

	// Status badges
	StatusPassed   lipgloss.Style
	StatusFailed   lipgloss.Style
	StatusError    lipgloss.Style
	StatusUnpinned lipgloss.Style

	// Trace step-through
	StepDone    lipgloss.Style
	StepCurrent lipgloss.Style
	StepPending lipgloss.Style

	// Pin mismatch highlighting
	TraceWant lipgloss.Style
	TraceGot  lipgloss.Style

	// Code/list display
	CodeBlock lipgloss.Style

	// Borders
	Border       lipgloss.Style
	ActiveBorder lipgloss.Style

	// Tabs
	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
}

// DefaultStyles creates the default style set
func DefaultStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorBright)).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)).
			MarginBottom(1),

		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Italic(true),

		StatusPassed: lipgloss.NewStyle().
			Background(lipgloss.Color(ColorGreen)).
			Foreground(lipgloss.Color(ColorBg)).
			Padding(0, 1).
			Bold(true),

		StatusFailed: lipgloss.NewStyle().
			Background(lipgloss.Color(ColorRed)).
			Foreground(lipgloss.Color(ColorBg)).
			Padding(0, 1).
			Bold(true),

		StatusError: lipgloss.NewStyle().
			Background(lipgloss.Color(ColorYellow)).
			Foreground(lipgloss.Color(ColorBg)).
			Padding(0, 1).
			Bold(true),

		StatusUnpinned: lipgloss.NewStyle().
			Background(lipgloss.Color(ColorGray)).
			Foreground(lipgloss.Color(ColorBg)).
			Padding(0, 1).
			Bold(true),

		StepDone: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)),

		StepCurrent: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBg)).
			Background(lipgloss.Color(ColorBlue)).
			Bold(true),

		StepPending: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)),

		TraceWant: lipgloss.NewStyle().
			Background(lipgloss.Color(ColorGreen)).
			Foreground(lipgloss.Color(ColorBg)),

		TraceGot: lipgloss.NewStyle().
			Background(lipgloss.Color(ColorRed)).
			Foreground(lipgloss.Color(ColorBg)),

		CodeBlock: lipgloss.NewStyle().
			Background(lipgloss.Color(ColorCard)).
			Foreground(lipgloss.Color(ColorText)).
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBorder)),

		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBorder)).
			Padding(1, 2),

		ActiveBorder: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBlue)).
			Padding(1, 2),

		Tab: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Padding(0, 2),

		ActiveTab: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBlue)).
			Bold(true).
			Padding(0, 2).
			BorderStyle(lipgloss.Border{Bottom: "─"}).
			BorderBottom(true).
			BorderForeground(lipgloss.Color(ColorBlue)),
	}
}

// PassRateColor returns a styled badge based on the pass rate.
// A verification suite is only green when everything passes; yellow
// for >=0.5, red below.
func PassRateColor(rate float64) lipgloss.Style {
	style := lipgloss.NewStyle().
		Padding(0, 1).
		Bold(true)

	if rate >= 1.0 {
		return style.
			Background(lipgloss.Color(ColorGreen)).
			Foreground(lipgloss.Color(ColorBg))
	} else if rate >= 0.5 {
		return style.
			Background(lipgloss.Color(ColorYellow)).
			Foreground(lipgloss.Color(ColorBg))
	}
	return style.
		Background(lipgloss.Color(ColorRed)).
		Foreground(lipgloss.Color(ColorBg))
}
