package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/interview"
)

// InterviewModel represents the TUI state for the interview
type InterviewModel struct {
	ctx       context.Context
	flow      *interview.Flow
	form      *huh.Form
	values    map[string]*string
	spinner   spinner.Model
	styles    Styles
	busy      bool
	quitting  bool
	completed bool
	err       error
	width     int
	height    int
}

// keyMap defines the keyboard shortcuts
type keyMap struct {
	Quit  key.Binding
	Retry key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	Retry: key.NewBinding(
		key.WithKeys("r", "enter"),
		key.WithHelp("r", "retry"),
	),
}

// roundReadyMsg reports the outcome of Flow.Start.
type roundReadyMsg struct{ err error }

// submittedMsg reports the outcome of Flow.Submit.
type submittedMsg struct {
	state interview.State
	err   error
}

// NewInterviewModel creates the interview view. The flow must be idle; it
// is started by Init.
func NewInterviewModel(ctx context.Context, flow *interview.Flow, styles Styles) *InterviewModel {
	return &InterviewModel{
		ctx:     ctx,
		flow:    flow,
		styles:  styles,
		busy:    true,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Status)),
	}
}

// Init starts the interview
func (m *InterviewModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startCmd())
}

func (m *InterviewModel) startCmd() tea.Cmd {
	return func() tea.Msg {
		return roundReadyMsg{err: m.flow.Start(m.ctx)}
	}
}

func (m *InterviewModel) submitCmd() tea.Cmd {
	return func() tea.Msg {
		state, err := m.flow.Submit(m.ctx)
		return submittedMsg{state: state, err: err}
	}
}

// buildForm creates a huh form holding every question of the current round
func (m *InterviewModel) buildForm() {
	round := m.flow.Round()
	m.values = make(map[string]*string, len(round.Questions))

	fields := make([]huh.Field, 0, len(round.Questions))
	for _, q := range round.Questions {
		value := m.flow.Answer(q.ID)
		m.values[q.ID] = &value

		switch q.Type {
		case interview.QuestionTypeSelect:
			fields = append(fields, huh.NewSelect[string]().
				Key(q.ID).
				Title(q.Text).
				Options(huh.NewOptions(q.Options...)...).
				Value(&value))
		default:
			fields = append(fields, huh.NewInput().
				Key(q.ID).
				Title(q.Text).
				Placeholder(q.Placeholder).
				Value(&value).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("this question needs an answer")
					}
					return nil
				}))
		}
	}

	m.form = huh.NewForm(
		huh.NewGroup(fields...).
			Title(m.formatProgress(round)).
			Description(m.formatHelp()),
	)
}

// formatProgress returns a formatted progress string
func (m *InterviewModel) formatProgress(round interview.Round) string {
	title := fmt.Sprintf("Round %d", round.Number)
	if round.MaxRounds > 0 {
		title = fmt.Sprintf("Round %d of %d", round.Number, round.MaxRounds)
	}
	if round.InformationLevel != "" {
		title += fmt.Sprintf(" (information: %s)", round.InformationLevel)
	}
	return title
}

// formatHelp returns help text
func (m *InterviewModel) formatHelp() string {
	return "Tab/Enter to move on • Shift+Tab to go back • Ctrl+C to quit"
}

// collect copies the form values into the flow
func (m *InterviewModel) collect() error {
	for id, v := range m.values {
		if err := m.flow.SetAnswer(id, strings.TrimSpace(*v)); err != nil {
			return err
		}
	}
	return nil
}

// Update handles messages and updates the model
func (m *InterviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case roundReadyMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.buildForm()
		return m, m.form.Init()

	case submittedMsg:
		m.busy = false
		switch {
		case errors.CodeOf(msg.err) == errors.ErrCodeInterviewAnswerRequired:
			m.buildForm()
			return m, m.form.Init()
		case msg.err != nil:
			// The flow keeps the round and its answers, so a retry resubmits them.
			m.err = msg.err
			return m, nil
		case msg.state == interview.StateReady:
			m.completed = true
			return m, tea.Quit
		}
		m.buildForm()
		return m, m.form.Init()
	}

	if m.err != nil {
		if k, ok := msg.(tea.KeyMsg); ok {
			if key.Matches(k, keys.Retry) && m.flow.State() == interview.StateCollecting {
				m.err = nil
				m.busy = true
				return m, tea.Batch(m.spinner.Tick, m.submitCmd())
			}
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	if m.busy || m.completed || m.form == nil {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
		switch m.form.State {
		case huh.StateCompleted:
			if err := m.collect(); err != nil {
				m.err = err
				return m, nil
			}
			m.busy = true
			return m, tea.Batch(m.spinner.Tick, m.submitCmd())
		case huh.StateAborted:
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, cmd
}

// View renders the UI
func (m *InterviewModel) View() string {
	if m.quitting {
		return "Interview cancelled.\n"
	}

	if m.err != nil {
		return m.renderError()
	}

	if m.completed {
		return m.renderCompletion()
	}

	if m.busy {
		return fmt.Sprintf("\n %s Thinking about your answers...\n", m.spinner.View())
	}

	if m.form != nil {
		return m.form.View()
	}

	return "Loading...\n"
}

// renderError renders the error view
func (m *InterviewModel) renderError() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.styles.Error.Render("Error: ") + errorText(m.err))
	b.WriteString("\n\n")
	if m.flow.State() == interview.StateCollecting {
		b.WriteString("Press r to retry, any other key to exit.\n")
	} else {
		b.WriteString("Press any key to exit.\n")
	}
	return b.String()
}

// renderCompletion renders the completion summary
func (m *InterviewModel) renderCompletion() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.styles.Success.Render("✓ Interview complete"))
	b.WriteString("\n\n")

	b.WriteString(m.styles.Muted.Render("Rounds: "))
	b.WriteString(fmt.Sprintf("%d", len(m.flow.History())))
	b.WriteString("\n")

	if eval := m.flow.Evaluation(); eval != "" {
		b.WriteString(m.styles.Muted.Render("Evaluation: "))
		b.WriteString(eval)
		b.WriteString("\n")
	}
	return b.String()
}

// RunInterview runs every interview round in the TUI. It returns once the
// flow is ready to generate.
func RunInterview(ctx context.Context, flow *interview.Flow, styles Styles, opts ...tea.ProgramOption) error {
	model := NewInterviewModel(ctx, flow, styles)

	p := tea.NewProgram(model, opts...)
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}

	m, ok := finalModel.(*InterviewModel)
	if !ok {
		return fmt.Errorf("invalid final model type")
	}

	if m.err != nil {
		return m.err
	}
	if m.quitting || !m.completed {
		return context.Canceled
	}
	return nil
}
