package tui

import (
	"github.com/felixgeelhaar/studyplan/internal/stream"
)

// Hook is a stream.Handler that forwards session events to the generation
// view. Events arriving while no view runs are dropped.
type Hook struct {
	adapter *Adapter
}

// NewHook returns a handler feeding adapter.
func NewHook(adapter *Adapter) *Hook {
	return &Hook{adapter: adapter}
}

// HandleEvent implements stream.Handler.
func (h *Hook) HandleEvent(ev stream.Event) {
	if h.adapter != nil {
		h.adapter.send(EventMsg{Event: ev})
	}
}

// Reset implements stream.Handler.
func (h *Hook) Reset() {
	if h.adapter != nil {
		h.adapter.send(ResetMsg{})
	}
}
