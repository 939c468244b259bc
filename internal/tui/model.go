package tui

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/studyplan/internal/appstate"
	"github.com/felixgeelhaar/studyplan/internal/errors"
	plainprogress "github.com/felixgeelhaar/studyplan/internal/progress"
	"github.com/felixgeelhaar/studyplan/internal/roadmap"
	"github.com/felixgeelhaar/studyplan/internal/stream"
)

// ViewType represents the current view being displayed
type ViewType int

// View type constants
const (
	// ViewMain shows the progress bar and the current phase
	ViewMain ViewType = iota
	// ViewMonths lists the months, weeks and days received so far
	ViewMonths
	// ViewHelp is the help screen
	ViewHelp
)

// Model is the live roadmap generation view. It is fed by EventMsg values
// forwarded from the stream session and reads the roadmap reducer when
// rendering.
type Model struct {
	topic   string
	reducer *roadmap.Reducer

	// Generation state
	percent   float64
	phase     string
	events    int
	startTime time.Time
	roadmapID string
	done      bool
	cancelled bool
	cancel    context.CancelFunc

	// UI state
	currentView ViewType
	width       int
	height      int
	quitting    bool
	spinner     spinner.Model
	bar         progress.Model

	// Error state
	lastError string

	styles Styles
}

// Styles contains lipgloss styles for the TUI
type Styles struct {
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Status      lipgloss.Style
	Error       lipgloss.Style
	Success     lipgloss.Style
	Warning     lipgloss.Style
	Muted       lipgloss.Style
	Border      lipgloss.Style
	Highlighted lipgloss.Style
	Help        lipgloss.Style
	Key         lipgloss.Style
	KeyDesc     lipgloss.Style
}

// palette holds the colors a theme is built from.
type palette struct {
	accent, muted, status, err, success, warning, highlightFg lipgloss.TerminalColor
}

var (
	darkPalette = palette{
		accent:      lipgloss.Color("63"),
		muted:       lipgloss.Color("241"),
		status:      lipgloss.Color("86"),
		err:         lipgloss.Color("196"),
		success:     lipgloss.Color("46"),
		warning:     lipgloss.Color("226"),
		highlightFg: lipgloss.Color("230"),
	}
	lightPalette = palette{
		accent:      lipgloss.Color("57"),
		muted:       lipgloss.Color("245"),
		status:      lipgloss.Color("30"),
		err:         lipgloss.Color("160"),
		success:     lipgloss.Color("28"),
		warning:     lipgloss.Color("136"),
		highlightFg: lipgloss.Color("255"),
	}
)

// adaptive picks the light or dark color based on the terminal background.
func adaptive(light, dark lipgloss.TerminalColor) lipgloss.TerminalColor {
	l, _ := light.(lipgloss.Color)
	d, _ := dark.(lipgloss.Color)
	return lipgloss.AdaptiveColor{Light: string(l), Dark: string(d)}
}

// StylesFor returns the styles of a theme. ThemeSystem follows the
// terminal background.
func StylesFor(theme appstate.Theme) Styles {
	switch theme {
	case appstate.ThemeLight:
		return newStyles(lightPalette)
	case appstate.ThemeDark:
		return newStyles(darkPalette)
	}
	return newStyles(palette{
		accent:      adaptive(lightPalette.accent, darkPalette.accent),
		muted:       adaptive(lightPalette.muted, darkPalette.muted),
		status:      adaptive(lightPalette.status, darkPalette.status),
		err:         adaptive(lightPalette.err, darkPalette.err),
		success:     adaptive(lightPalette.success, darkPalette.success),
		warning:     adaptive(lightPalette.warning, darkPalette.warning),
		highlightFg: adaptive(lightPalette.highlightFg, darkPalette.highlightFg),
	})
}

// DefaultStyles returns the styles of the system theme
func DefaultStyles() Styles {
	return StylesFor(appstate.ThemeSystem)
}

func newStyles(p palette) Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.accent).
			MarginBottom(1),
		Subtitle: lipgloss.NewStyle().
			Foreground(p.muted),
		Status: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.status),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.err),
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.success),
		Warning: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.warning),
		Muted: lipgloss.NewStyle().
			Foreground(p.muted),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.accent).
			Padding(1, 2),
		Highlighted: lipgloss.NewStyle().
			Background(p.accent).
			Foreground(p.highlightFg).
			Bold(true).
			Padding(0, 1),
		Help: lipgloss.NewStyle().
			Foreground(p.muted).
			MarginTop(1),
		Key: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.accent),
		KeyDesc: lipgloss.NewStyle().
			Foreground(p.muted),
	}
}

// NewModel creates the generation view for topic. reducer may be nil.
func NewModel(topic string, reducer *roadmap.Reducer, styles Styles) Model {
	return Model{
		topic:       topic,
		reducer:     reducer,
		currentView: ViewMain,
		startTime:   time.Now(),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Status)),
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		styles:      styles,
	}
}

// Init starts the spinner (required by Bubble Tea)
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages and updates the model state (required by Bubble Tea)
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(max(msg.Width-20, 10), 60)
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		m.applyEvent(msg.Event)
		return m, nil

	case ResetMsg:
		m.percent = 0
		m.phase = ""
		m.events = 0
		m.lastError = ""
		m.startTime = time.Now()
		return m, nil

	case DoneMsg:
		m.done = true
		m.roadmapID = msg.RoadmapID
		switch {
		case stderrors.Is(msg.Err, context.Canceled):
			m.cancelled = true
		case msg.Err != nil:
			m.lastError = errorText(msg.Err)
		default:
			m.percent = 100
		}
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) applyEvent(ev stream.Event) {
	m.events++
	if ev.Progress != nil {
		m.percent = *ev.Progress
	}
	m.phase = plainprogress.PhaseLabel(ev.Type)
	if ev.Message != "" && ev.Type != stream.EventError {
		m.phase = ev.Message
	}
	if ev.Type == stream.EventError {
		m.lastError = ev.ErrorMessage()
	}
}

// handleKeyPress handles keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		// Stopping the view stops the generation; Run reports it as cancelled.
		if !m.done && m.cancel != nil {
			m.cancel()
		}
		m.cancelled = !m.done
		m.quitting = true
		return m, tea.Quit

	case "?":
		if m.currentView == ViewHelp {
			m.currentView = ViewMain
		} else {
			m.currentView = ViewHelp
		}

	case "m":
		if m.currentView == ViewMonths {
			m.currentView = ViewMain
		} else {
			m.currentView = ViewMonths
		}

	case "esc":
		m.currentView = ViewMain
	}

	return m, nil
}

// EventMsg carries one stream event into the program.
type EventMsg struct {
	Event stream.Event
}

// ResetMsg is sent when the session starts a new stream.
type ResetMsg struct{}

// DoneMsg reports the end of the generation.
type DoneMsg struct {
	RoadmapID string
	Err       error
}

// Helper functions

func (m Model) elapsed() time.Duration {
	return time.Since(m.startTime)
}

func (m Model) partial() *roadmap.PartialRoadmap {
	if m.reducer == nil {
		return roadmap.NewPartialRoadmap()
	}
	return m.reducer.Snapshot()
}

func (m Model) statusIcon() string {
	switch {
	case m.lastError != "":
		return "✗"
	case m.cancelled:
		return "■"
	case m.done:
		return "✓"
	}
	return m.spinner.View()
}

// errorText drops suggestions from coded errors; the view has no room for them.
func errorText(err error) string {
	var coded *errors.Error
	if stderrors.As(err, &coded) {
		return coded.Message
	}
	return err.Error()
}
