package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/roadmap"
)

// View renders the TUI (required by Bubble Tea)
func (m Model) View() string {
	if m.quitting {
		return m.renderComplete()
	}

	switch m.currentView {
	case ViewMonths:
		return m.renderMonths()
	case ViewHelp:
		return m.renderHelp()
	default:
		return m.renderMain()
	}
}

// renderMain renders the main view showing progress and status
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Generating your roadmap"))
	b.WriteString("\n")

	topicLabel := m.styles.Muted.Render("Topic: ")
	b.WriteString(topicLabel + m.styles.Subtitle.Render(m.topic))
	b.WriteString("\n\n")

	b.WriteString(m.renderProgressBox())
	b.WriteString("\n\n")

	if m.lastError != "" {
		b.WriteString(m.styles.Error.Render("Error: ") + m.lastError)
		b.WriteString("\n\n")
	}

	b.WriteString(m.renderHelpLine())
	return b.String()
}

// renderProgressBox renders the bar, the current phase and counts
func (m Model) renderProgressBox() string {
	var b strings.Builder

	phase := m.phase
	if phase == "" {
		phase = "Connecting"
	}
	b.WriteString(m.statusIcon() + " " + m.styles.Status.Render(phase))
	b.WriteString("\n\n")

	b.WriteString(m.bar.ViewAs(clampFraction(m.percent / 100)))
	b.WriteString("\n\n")

	b.WriteString(m.renderStats())
	return m.styles.Border.Render(b.String())
}

// renderStats renders the received counts
func (m Model) renderStats() string {
	p := m.partial()
	months, weeks, days := p.Counts()

	stats := []string{}
	if p.Title != "" {
		stats = append(stats, fmt.Sprintf("Title:   %s", m.styles.Success.Render(p.Title)))
	}
	stats = append(stats,
		fmt.Sprintf("Months:  %d", months),
		fmt.Sprintf("Weeks:   %d", weeks),
		fmt.Sprintf("Days:    %d", days),
		fmt.Sprintf("Events:  %s", m.styles.Muted.Render(fmt.Sprintf("%d", m.events))),
		fmt.Sprintf("Elapsed: %s", m.styles.Muted.Render(formatDuration(m.elapsed()))),
	)
	return strings.Join(stats, "\n")
}

// renderMonths renders the roadmap received so far
func (m Model) renderMonths() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Months so far"))
	b.WriteString("\n")

	p := m.partial()
	if len(p.MonthlyGoals) == 0 {
		b.WriteString(m.styles.Muted.Render("No months yet"))
		b.WriteString("\n")
	}
	b.WriteString(RenderPartial(p, m.styles))
	b.WriteString("\n")
	b.WriteString(m.renderHelpLine())
	return b.String()
}

// renderHelp renders the help view
func (m Model) renderHelp() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Help"))
	b.WriteString("\n")

	hotkeys := []struct {
		key  string
		desc string
	}{
		{"m", "Toggle months view"},
		{"?", "Toggle help"},
		{"Esc", "Return to main view"},
		{"q/Ctrl+C", "Stop generating and quit"},
	}

	for _, hk := range hotkeys {
		keyText := m.styles.Key.Render(fmt.Sprintf("%-10s", hk.key))
		b.WriteString(keyText + " " + m.styles.KeyDesc.Render(hk.desc))
		b.WriteString("\n")
	}

	return b.String()
}

// renderComplete renders the final screen
func (m Model) renderComplete() string {
	var b strings.Builder

	switch {
	case m.lastError != "":
		b.WriteString(m.styles.Error.Render("✗ Generation failed"))
		b.WriteString("\n")
		b.WriteString(m.styles.Muted.Render("Error: ") + m.lastError)
	case m.cancelled:
		b.WriteString(m.styles.Warning.Render("■ Generation cancelled"))
	default:
		p := m.partial()
		months, weeks, days := p.Counts()
		b.WriteString(m.styles.Success.Render("✓ Roadmap ready"))
		b.WriteString("\n")
		if p.Title != "" {
			b.WriteString(p.Title + "\n")
		}
		b.WriteString(fmt.Sprintf("%d months, %d weeks, %d days in %s", months, weeks, days, formatDuration(m.elapsed())))
	}
	b.WriteString("\n")
	return b.String()
}

// renderHelpLine renders the help line at the bottom
func (m Model) renderHelpLine() string {
	helpItems := []string{
		m.styles.Key.Render("m") + " months",
		m.styles.Key.Render("?") + " help",
		m.styles.Key.Render("q") + " quit",
	}
	return m.styles.Help.Render(strings.Join(helpItems, " • "))
}

// RenderPartial renders a roadmap that is still being generated.
func RenderPartial(p *roadmap.PartialRoadmap, styles Styles) string {
	var b strings.Builder
	for _, month := range p.MonthlyGoals {
		b.WriteString(styles.Status.Render(fmt.Sprintf("Month %d", month.MonthNumber)))
		b.WriteString(" " + month.Title + "\n")
		for _, week := range p.WeeklyTasks[month.MonthNumber] {
			days := p.DailyTasks[roadmap.DayKey(month.MonthNumber, week.WeekNumber)]
			fmt.Fprintf(&b, "  Week %d %s %s\n", week.WeekNumber, week.Title,
				styles.Muted.Render(fmt.Sprintf("(%d days)", len(days))))
		}
	}
	return b.String()
}

// RenderRoadmap renders a stored roadmap as a tree. Weeks are collapsed to
// a completion count unless expand is set.
func RenderRoadmap(r *api.Roadmap, styles Styles, expand bool) string {
	var b strings.Builder

	b.WriteString(styles.Title.Render(r.Title))
	b.WriteString("\n")
	if r.Description != "" {
		b.WriteString(styles.Subtitle.Render(r.Description))
		b.WriteString("\n\n")
	}

	for _, month := range r.MonthlyGoals {
		b.WriteString(styles.Status.Render(fmt.Sprintf("Month %d", month.MonthNumber)))
		b.WriteString(" " + month.Title + "\n")
		for _, week := range month.WeeklyTasks {
			done := 0
			for _, d := range week.DailyTasks {
				if d.IsCompleted {
					done++
				}
			}
			fmt.Fprintf(&b, "  Week %d %s %s\n", week.WeekNumber, week.Title,
				styles.Muted.Render(fmt.Sprintf("%d/%d", done, len(week.DailyTasks))))
			if !expand {
				continue
			}
			for _, d := range week.DailyTasks {
				fmt.Fprintf(&b, "    %s Day %d %s %s\n", checkbox(d.IsCompleted, styles), d.DayNumber, d.Title,
					styles.Muted.Render(d.ID))
			}
		}
	}
	return b.String()
}

func checkbox(done bool, styles Styles) string {
	if done {
		return styles.Success.Render("[x]")
	}
	return "[ ]"
}

func clampFraction(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
