package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type Pane int

const (
	PaneOrder Pane = iota
	PaneTrace
)

type InspectModel struct {
	session    *InspectSession
	styles     *Styles
	visible    []int // indexes into session.Items after filtering
	cursor     int   // index into visible
	step       int   // trace lines stepped through, 0..len(Trace)
	viewport   viewport.Model
	activePane Pane
	width      int
	height     int
	quitting   bool
	filter     string
	filterMode bool // true when typing a filter
	textInput  textinput.Model
	help       help.Model
	keys       keyMap
}

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Tab      key.Binding
	StepNext key.Binding
	StepPrev key.Binding
	Rewind   key.Binding
	ToEnd    key.Binding
	Filter   key.Binding
	Enter    key.Binding
	Quit     key.Binding
	Escape   key.Binding
}

func (km keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		km.Up,
		km.Down,
		km.Tab,
		km.StepNext,
		km.StepPrev,
		km.Filter,
		km.Quit,
	}
}

func (km keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Up, km.Down, km.Tab},
		{km.StepNext, km.StepPrev, km.Rewind, km.ToEnd},
		{km.Filter, km.Enter, km.Escape, km.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "prev scenario"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "next scenario"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		StepNext: key.NewBinding(
			key.WithKeys("n", "right", " "),
			key.WithHelp("n/→", "step"),
		),
		StepPrev: key.NewBinding(
			key.WithKeys("p", "left"),
			key.WithHelp("p/←", "step back"),
		),
		Rewind: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "rewind"),
		),
		ToEnd: key.NewBinding(
			key.WithKeys("G"),
			key.WithHelp("G", "run to end"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "apply"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

func NewInspectModel(session *InspectSession) InspectModel {
	ti := textinput.New()
	ti.Placeholder = "Filter scenarios..."
	ti.Width = 30

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle()

	visible := make([]int, len(session.Items))
	for i := range session.Items {
		visible[i] = i
	}

	return InspectModel{
		session:    session,
		styles:     DefaultStyles(),
		visible:    visible,
		cursor:     0,
		step:       0,
		viewport:   vp,
		activePane: PaneTrace,
		width:      80,
		height:     24,
		quitting:   false,
		filterMode: false,
		textInput:  ti,
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// current returns the scenario item under the cursor, nil when the
// filter matches nothing.
func (m InspectModel) current() *InspectItem {
	if m.cursor >= len(m.visible) {
		return nil
	}
	return m.session.Items[m.visible[m.cursor]]
}

func (m InspectModel) Init() tea.Cmd {
	return nil
}

func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width/2 - 8
		m.viewport.Height = msg.Height - 12
		m.syncTrace()
		return m, nil

	case tea.KeyMsg:
		if m.filterMode {
			switch msg.String() {
			case "enter":
				m.filter = m.textInput.Value()
				m.filterMode = false
				m.textInput.Blur()
				m.applyFilter()
				m.syncTrace()
				return m, nil
			case "esc":
				m.filterMode = false
				m.textInput.Blur()
				return m, nil
			default:
				m.textInput, cmd = m.textInput.Update(msg)
				return m, cmd
			}
		}

		switch msg.String() {
		case "j", "down":
			if m.cursor < len(m.visible)-1 {
				m.cursor++
				m.step = 0
				m.syncTrace()
			}
			return m, nil

		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
				m.step = 0
				m.syncTrace()
			}
			return m, nil

		case "tab":
			if m.activePane == PaneOrder {
				m.activePane = PaneTrace
			} else {
				m.activePane = PaneOrder
			}
			return m, nil

		case "n", "right", " ":
			if item := m.current(); item != nil && m.step < len(item.Trace) {
				m.step++
				m.syncTrace()
			}
			return m, nil

		case "p", "left":
			if m.step > 0 {
				m.step--
				m.syncTrace()
			}
			return m, nil

		case "g":
			m.step = 0
			m.syncTrace()
			return m, nil

		case "G":
			if item := m.current(); item != nil {
				m.step = len(item.Trace)
				m.syncTrace()
			}
			return m, nil

		case "/":
			m.filterMode = true
			m.textInput.SetValue(m.filter)
			m.textInput.Focus()
			return m, nil

		case "q", "esc":
			m.quitting = true
			return m, tea.Quit

		}
	}

	return m, nil
}

// applyFilter rebuilds the visible index from the current filter text,
// matching on scenario name and description.
func (m *InspectModel) applyFilter() {
	needle := strings.ToLower(strings.TrimSpace(m.filter))
	visible := make([]int, 0, len(m.session.Items))
	for i, item := range m.session.Items {
		if needle == "" ||
			strings.Contains(strings.ToLower(item.Name), needle) ||
			strings.Contains(strings.ToLower(item.Description), needle) {
			visible = append(visible, i)
		}
	}
	m.visible = visible
	m.cursor = 0
	m.step = 0
}

// syncTrace refreshes the trace viewport and keeps the current step in view.
func (m *InspectModel) syncTrace() {
	item := m.current()
	if item == nil {
		m.viewport.SetContent("")
		return
	}
	m.viewport.SetContent(m.renderTraceLines(item))

	line := m.step
	if line >= len(item.Trace) {
		line = len(item.Trace) - 1
	}
	if line < 0 {
		line = 0
	}
	if m.viewport.Height <= 0 {
		return
	}
	if line < m.viewport.YOffset {
		m.viewport.SetYOffset(line)
	} else if line >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(line - m.viewport.Height + 1)
	}
}

func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	if len(m.session.Items) == 0 {
		return m.styles.StatusFailed.Render("No scenarios registered")
	}

	var sections []string

	// Top bar
	topBar := m.renderTopBar()
	sections = append(sections, topBar)

	// Scenario navigator
	navigator := m.renderNavigator()
	sections = append(sections, navigator)

	// Side-by-side panels
	panels := m.renderPanels()
	sections = append(sections, panels)

	// Bottom bar
	bottom := m.renderBottom()
	sections = append(sections, bottom)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m InspectModel) renderTopBar() string {
	passed, failed, errored, _ := m.session.Counts()
	pinned := passed + failed + errored

	title := "mixdown - scenario inspector"
	rateText := fmt.Sprintf("%d/%d passing", passed, pinned)
	rateBadge := PassRateColor(m.session.PassRate()).Render(rateText)

	titleStyled := m.styles.Title.Render(title)
	bar := lipgloss.JoinHorizontal(lipgloss.Top, titleStyled, "  ", rateBadge)

	if m.filter != "" {
		indicator := m.styles.Help.Render(
			fmt.Sprintf("  filter: %q (%d/%d shown)", m.filter, len(m.visible), len(m.session.Items)))
		bar = lipgloss.JoinHorizontal(lipgloss.Top, bar, indicator)
	}
	return bar
}

func (m InspectModel) renderNavigator() string {
	item := m.current()
	if item == nil {
		return m.styles.Help.Render("No scenarios match the filter")
	}

	position := fmt.Sprintf("[%d/%d]", m.cursor+1, len(m.visible))
	status := m.formatStatus(item.Status)

	parts := []string{position, item.Name}
	if item.Root != "" {
		parts = append(parts, fmt.Sprintf("root: %s", item.Root))
	}
	parts = append(parts, status)

	line := strings.Join(parts, "  ")
	if item.Description != "" {
		line += "\n" + m.styles.Help.Render(item.Description)
	}
	return m.styles.Subtitle.Render(line)
}

func (m InspectModel) formatStatus(status InspectStatus) string {
	switch status {
	case InspectPassed:
		return m.styles.StatusPassed.Render("[Passed]")
	case InspectFailed:
		return m.styles.StatusFailed.Render("[Failed]")
	case InspectError:
		return m.styles.StatusError.Render("[Error]")
	case InspectUnpinned:
		return m.styles.StatusUnpinned.Render("[Unpinned]")
	default:
		return m.styles.StatusUnpinned.Render("[Unknown]")
	}
}

func (m InspectModel) renderPanels() string {
	item := m.current()
	if item == nil {
		return ""
	}

	leftPanel := m.renderOrderPanel(item, m.activePane == PaneOrder)
	rightPanel := m.renderTracePanel(item, m.activePane == PaneTrace)

	panelWidth := (m.width - 6) / 2
	leftPanel = lipgloss.NewStyle().Width(panelWidth).Render(leftPanel)
	rightPanel = lipgloss.NewStyle().Width(panelWidth).Render(rightPanel)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)
}

func (m InspectModel) renderOrderPanel(item *InspectItem, active bool) string {
	style := m.styles.Border
	if active {
		style = m.styles.ActiveBorder
	}

	titleStyled := m.styles.Tab.Render("Linearization")
	if active {
		titleStyled = m.styles.ActiveTab.Render("Linearization")
	}

	var lines []string
	if item.Status == InspectError {
		lines = append(lines, "Execution failed:", "", item.Mismatch)
	} else {
		lines = append(lines, "Initialization order:")
		for i, name := range item.Order {
			lines = append(lines, fmt.Sprintf("%3d │ %s", i+1, name))
		}
		lines = append(lines, "", "Resolution order:")
		for i, name := range item.Resolution {
			lines = append(lines, fmt.Sprintf("%3d │ %s", i+1, name))
		}
	}

	maxLines := m.height - 12
	if maxLines < 1 {
		maxLines = 1
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	for i, line := range lines {
		lines[i] = m.truncateLine(line, (m.width/2)-10)
	}

	content := m.styles.CodeBlock.Render(strings.Join(lines, "\n"))
	panel := lipgloss.JoinVertical(lipgloss.Left, titleStyled, content)
	return style.Render(panel)
}

func (m InspectModel) renderTracePanel(item *InspectItem, active bool) string {
	style := m.styles.Border
	if active {
		style = m.styles.ActiveBorder
	}

	title := fmt.Sprintf("Construction trace [%d/%d]", m.step, len(item.Trace))
	titleStyled := m.styles.Tab.Render(title)
	if active {
		titleStyled = m.styles.ActiveTab.Render(title)
	}

	body := m.viewport.View()
	if m.viewport.Height <= 0 {
		// No window size yet; render the trace directly.
		body = m.renderTraceLines(item)
	}
	content := m.styles.CodeBlock.Render(body)

	panel := lipgloss.JoinVertical(lipgloss.Left, titleStyled, content)
	return style.Render(panel)
}

// renderTraceLines renders the trace with step-through highlighting:
// stepped lines bright, the current line inverted, pending lines dim.
// Where the trace diverges from its pin the produced line is shown in
// red with the pinned line in green beneath it.
func (m InspectModel) renderTraceLines(item *InspectItem) string {
	if len(item.Trace) == 0 {
		if item.Status == InspectError {
			return m.styles.StepPending.Render("(no trace: " + item.Mismatch + ")")
		}
		return m.styles.StepPending.Render("(no trace)")
	}

	mismatch := item.MismatchStep()
	maxWidth := (m.width / 2) - 10

	var lines []string
	for i, event := range item.Trace {
		text := fmt.Sprintf("%3d │ %s", i+1, m.truncateLine(event, maxWidth))
		switch {
		case i == mismatch:
			lines = append(lines, m.styles.TraceGot.Render(text))
			if i < len(item.WantTrace) {
				want := fmt.Sprintf("    │ want: %s", m.truncateLine(item.WantTrace[i], maxWidth))
				lines = append(lines, m.styles.TraceWant.Render(want))
			}
		case i == m.step:
			lines = append(lines, m.styles.StepCurrent.Render(text))
		case i < m.step:
			lines = append(lines, m.styles.StepDone.Render(text))
		default:
			lines = append(lines, m.styles.StepPending.Render(text))
		}
	}

	// The pin expects more events than the trace produced.
	if mismatch >= 0 && mismatch >= len(item.Trace) && mismatch < len(item.WantTrace) {
		want := fmt.Sprintf("    │ want: %s", m.truncateLine(item.WantTrace[mismatch], maxWidth))
		lines = append(lines, m.styles.TraceWant.Render(want))
	}

	return strings.Join(lines, "\n")
}

func (m InspectModel) truncateLine(line string, maxWidth int) string {
	if len(line) <= maxWidth {
		return line
	}
	if maxWidth < 3 {
		return "..."
	}
	return line[:maxWidth-3] + "..."
}

func (m InspectModel) renderBottom() string {
	if m.filterMode {
		return m.styles.Help.Render("Filter: " + m.textInput.View())
	}

	helpView := m.help.ShortHelpView([]key.Binding{
		m.keys.Up,
		m.keys.Down,
		m.keys.Tab,
		m.keys.StepNext,
		m.keys.StepPrev,
		m.keys.Filter,
		m.keys.Quit,
	})

	return m.styles.Help.Render(helpView)
}
