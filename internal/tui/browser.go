package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/studyplan/internal/api"
)

// ToggleFunc marks a daily task done or not done on the backend.
type ToggleFunc func(taskID string, completed bool) error

// dayRow is one line of the checklist.
type dayRow struct {
	month, week int
	task        api.DailyTask
}

// taskToggledMsg reports the outcome of a ToggleFunc call.
type taskToggledMsg struct {
	index     int
	completed bool
	err       error
}

// browserModel is the BubbleTea model of the roadmap checklist
type browserModel struct {
	roadmap  *api.Roadmap
	rows     []dayRow
	cursor   int
	viewMode string // "list" or "detail"
	toggle   ToggleFunc
	pending  bool
	changed  int
	status   string
	styles   Styles
	width    int
	height   int
}

func newBrowserModel(r *api.Roadmap, toggle ToggleFunc, styles Styles) browserModel {
	m := browserModel{roadmap: r, toggle: toggle, viewMode: "list", styles: styles}
	for _, month := range r.MonthlyGoals {
		for _, week := range month.WeeklyTasks {
			for _, d := range week.DailyTasks {
				m.rows = append(m.rows, dayRow{month: month.MonthNumber, week: week.WeekNumber, task: d})
			}
		}
	}
	// Start on the first open task.
	for i, row := range m.rows {
		if !row.task.IsCompleted {
			m.cursor = i
			break
		}
	}
	return m
}

// Init initializes the model
func (m browserModel) Init() tea.Cmd {
	return nil
}

func (m browserModel) toggleCmd(index int) tea.Cmd {
	row := m.rows[index]
	completed := !row.task.IsCompleted
	return func() tea.Msg {
		return taskToggledMsg{index: index, completed: completed, err: m.toggle(row.task.ID, completed)}
	}
}

// Update handles messages and updates the model
func (m browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case taskToggledMsg:
		m.pending = false
		if msg.err != nil {
			m.status = "✗ " + errorText(msg.err)
			return m, nil
		}
		m.rows[msg.index].task.IsCompleted = msg.completed
		m.changed++
		if msg.completed {
			m.status = "✓ marked done"
		} else {
			m.status = "○ marked open"
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.viewMode == "list" && m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case "down", "j":
			if m.viewMode == "list" && m.cursor < len(m.rows)-1 {
				m.cursor++
			}
			return m, nil

		case "enter", "right", "l":
			if m.viewMode == "list" && len(m.rows) > 0 {
				m.viewMode = "detail"
			}
			return m, nil

		case "left", "h", "esc":
			if m.viewMode == "detail" {
				m.viewMode = "list"
			}
			return m, nil

		case " ", "x":
			if m.pending || len(m.rows) == 0 || m.toggle == nil {
				return m, nil
			}
			m.pending = true
			m.status = ""
			return m, m.toggleCmd(m.cursor)
		}
	}

	return m, nil
}

// visibleRange returns the rows that fit the window around the cursor.
func (m browserModel) visibleRange() (int, int) {
	height := m.height - 8
	if height <= 0 || height >= len(m.rows) {
		return 0, len(m.rows)
	}
	start := m.cursor - height/2
	if start < 0 {
		start = 0
	}
	end := start + height
	if end > len(m.rows) {
		end = len(m.rows)
		start = end - height
	}
	return start, end
}

// View renders the current state
func (m browserModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render(m.roadmap.Title))
	b.WriteString("\n")

	done := 0
	for _, row := range m.rows {
		if row.task.IsCompleted {
			done++
		}
	}
	b.WriteString(m.styles.Subtitle.Render(fmt.Sprintf("%d of %d days done", done, len(m.rows))))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(m.styles.Muted.Render("This roadmap has no daily tasks yet"))
		b.WriteString("\n")
	} else if m.viewMode == "list" {
		start, end := m.visibleRange()
		for i := start; i < end; i++ {
			row := m.rows[i]
			cursor := "  "
			line := fmt.Sprintf("%s M%d W%d D%d %s", checkbox(row.task.IsCompleted, m.styles),
				row.month, row.week, row.task.DayNumber, row.task.Title)
			if i == m.cursor {
				cursor = "→ "
				line = m.styles.Highlighted.Render(line)
			}
			b.WriteString(cursor + line + "\n")
		}
	} else {
		row := m.rows[m.cursor]
		details := []struct {
			key   string
			value string
		}{
			{"Title", row.task.Title},
			{"Month", fmt.Sprintf("%d", row.month)},
			{"Week", fmt.Sprintf("%d", row.week)},
			{"Day", fmt.Sprintf("%d", row.task.DayNumber)},
			{"Done", fmt.Sprintf("%t", row.task.IsCompleted)},
			{"ID", row.task.ID},
		}
		for _, detail := range details {
			b.WriteString("  ")
			b.WriteString(m.styles.Key.Render(fmt.Sprintf("%-8s:", detail.key)))
			b.WriteString(" " + detail.value + "\n")
		}
		if row.task.Description != "" {
			b.WriteString("\n  " + row.task.Description + "\n")
		}
	}

	if m.status != "" {
		b.WriteString("\n" + m.status + "\n")
	}

	help := "↑/↓: navigate | space: toggle done | enter: details | q: quit"
	if m.viewMode == "detail" {
		help = "h/esc: back to list | space: toggle done | q: quit"
	}
	b.WriteString(m.styles.Help.Render(help))
	return b.String()
}

// RunRoadmapBrowser shows the checklist of r. It returns how many tasks
// were toggled.
func RunRoadmapBrowser(r *api.Roadmap, toggle ToggleFunc, styles Styles, opts ...tea.ProgramOption) (int, error) {
	program := tea.NewProgram(newBrowserModel(r, toggle, styles), opts...)
	finalModel, err := program.Run()
	if err != nil {
		return 0, fmt.Errorf("running roadmap browser: %w", err)
	}

	m, ok := finalModel.(browserModel)
	if !ok {
		return 0, fmt.Errorf("unexpected model type: %T", finalModel)
	}
	return m.changed, nil
}
