package tui

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// GenerateFunc runs the generation the view follows and returns the roadmap id.
type GenerateFunc func(ctx context.Context) (string, error)

// Adapter bridges a generation running in the background and the TUI.
type Adapter struct {
	model   Model
	opts    []tea.ProgramOption
	mu      sync.RWMutex
	program *tea.Program
}

// NewAdapter creates a new TUI adapter
func NewAdapter(model Model, opts ...tea.ProgramOption) *Adapter {
	return &Adapter{model: model, opts: opts}
}

// Run shows the generation view while generate runs. Quitting the view
// cancels generate; Run returns once both have finished.
func (a *Adapter) Run(ctx context.Context, generate GenerateFunc) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := a.model
	model.cancel = cancel
	program := tea.NewProgram(model, a.opts...)

	a.mu.Lock()
	a.program = program
	a.mu.Unlock()

	type outcome struct {
		id  string
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		id, err := generate(ctx)
		done <- outcome{id, err}
		program.Send(DoneMsg{RoadmapID: id, Err: err})
	}()

	_, runErr := program.Run()

	a.mu.Lock()
	a.program = nil
	a.mu.Unlock()

	if runErr != nil {
		cancel()
		<-done
		return "", fmt.Errorf("run TUI: %w", runErr)
	}
	out := <-done
	return out.id, out.err
}

// send forwards msg to the running program, if any.
func (a *Adapter) send(msg tea.Msg) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.program != nil {
		a.program.Send(msg)
	}
}
