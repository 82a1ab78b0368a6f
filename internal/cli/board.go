package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nicsuzor/aops/pkg/models"
)

// Board panel indices.
const (
	panelQueue = iota
	panelStatuses
	boardPanelCount
)

type boardModel struct {
	activePanel int
	width       int
	height      int

	ready        []taskRow
	statusCounts map[string]int

	loading bool
	err     error
}

type taskRow struct {
	id       string
	title    string
	priority models.Priority
	weight   int
}

type boardLoadedMsg struct {
	ready        []taskRow
	statusCounts map[string]int
	err          error
}

var (
	boardTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	boardPanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	boardActivePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	boardHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("62")).
				MarginBottom(1)

	boardP0Style       = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	boardP1Style       = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	boardDefaultPStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	boardHelpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newBoardModel() boardModel {
	return boardModel{
		activePanel:  panelQueue,
		loading:      true,
		statusCounts: make(map[string]int),
	}
}

func (m boardModel) Init() tea.Cmd {
	return loadBoard
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % boardPanelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadBoard
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case boardLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.ready = msg.ready
		m.statusCounts = msg.statusCounts
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m boardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := boardTitleStyle.Render(" aops Board ")
	help := boardHelpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}
	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	queuePanel := m.renderQueuePanel()
	statusPanel := m.renderStatusPanel()

	availableWidth := m.width - 2

	var body string
	if availableWidth > 100 {
		queueWidth := availableWidth * 2 / 3
		queuePanel = m.applyBoardStyle(panelQueue, queuePanel, queueWidth-4)
		statusPanel = m.applyBoardStyle(panelStatuses, statusPanel, availableWidth-queueWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, queuePanel, statusPanel)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		queuePanel = m.applyBoardStyle(panelQueue, queuePanel, panelWidth)
		statusPanel = m.applyBoardStyle(panelStatuses, statusPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, queuePanel, statusPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m boardModel) applyBoardStyle(panel int, content string, width int) string {
	style := boardPanelStyle
	if m.activePanel == panel {
		style = boardActivePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m boardModel) renderQueuePanel() string {
	var b strings.Builder
	b.WriteString(boardHeaderStyle.Render("Ready Queue"))
	b.WriteString("\n")

	if len(m.ready) == 0 {
		b.WriteString("  Nothing is ready to pull.")
		return b.String()
	}

	for i, row := range m.ready {
		label := fmt.Sprintf("  %2d. P%d w%-3d %s  %s", i+1, row.priority, row.weight, row.id, row.title)
		b.WriteString(styleForPriority(row.priority).Render(label))
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("\n  %d task(s) ready", len(m.ready)))
	return b.String()
}

func (m boardModel) renderStatusPanel() string {
	var b strings.Builder
	b.WriteString(boardHeaderStyle.Render("Statuses"))
	b.WriteString("\n")

	if len(m.statusCounts) == 0 {
		b.WriteString("  No tasks found.")
		return b.String()
	}

	// Display in lifecycle order.
	order := []string{"inbox", "active", "in_progress", "blocked", "review", "merge_ready", "done", "cancelled"}
	total := 0
	for _, status := range order {
		count, ok := m.statusCounts[status]
		if !ok || count == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("  %-14s %d\n", status, count))
		total += count
	}
	b.WriteString(fmt.Sprintf("\n  Total: %d", total))
	return b.String()
}

func styleForPriority(p models.Priority) lipgloss.Style {
	switch p {
	case models.P0:
		return boardP0Style
	case models.P1:
		return boardP1Style
	default:
		return boardDefaultPStyle
	}
}

func loadBoard() tea.Msg {
	result := boardLoadedMsg{statusCounts: make(map[string]int)}

	if Graph == nil {
		result.err = fmt.Errorf("task graph not initialized")
		return result
	}

	ready, err := Graph.ReadyQueue()
	if err != nil {
		result.err = fmt.Errorf("loading ready queue: %w", err)
		return result
	}
	for _, t := range ready {
		result.ready = append(result.ready, taskRow{
			id:       t.ID,
			title:    t.Title,
			priority: t.Priority,
			weight:   t.DownstreamWeight,
		})
	}

	all, err := Graph.List(models.TaskFilter{})
	if err != nil {
		result.err = fmt.Errorf("loading tasks: %w", err)
		return result
	}
	for _, t := range all {
		result.statusCounts[string(t.Status)]++
	}

	return result
}

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Interactive TUI board of the ready queue",
	Long: `Launch an interactive terminal board showing the ready queue in pull
order alongside per-status task counts.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Graph == nil {
			return fmt.Errorf("task graph not initialized")
		}
		p := tea.NewProgram(newBoardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(boardCmd)
}
