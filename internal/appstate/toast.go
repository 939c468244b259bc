package appstate

import "time"

// ToastKind classifies a notification.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastInfo    ToastKind = "info"
	ToastWarning ToastKind = "warning"
)

// Toast is one user-facing notification.
type Toast struct {
	ID        string
	Kind      ToastKind
	Message   string
	CreatedAt time.Time
}

// Notifier raises notifications. State implements it.
type Notifier interface {
	Notify(kind ToastKind, message string) Toast
}

const maxToasts = 20

// Notify queues a toast and passes it to subscribers.
func (s *State) Notify(kind ToastKind, message string) Toast {
	s.mu.Lock()
	t := Toast{ID: s.id(), Kind: kind, Message: message, CreatedAt: s.clock()}
	s.toasts = append(s.toasts, t)
	if len(s.toasts) > maxToasts {
		s.toasts = s.toasts[len(s.toasts)-maxToasts:]
	}
	subs := append([]func(Toast){}, s.onToast...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(t)
	}
	return t
}

// Subscribe registers fn for every future toast.
func (s *State) Subscribe(fn func(Toast)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onToast = append(s.onToast, fn)
}

// Toasts returns the pending toasts, oldest first.
func (s *State) Toasts() []Toast {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Toast(nil), s.toasts...)
}

// Dismiss removes the toast with id and reports whether it existed.
func (s *State) Dismiss(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.toasts {
		if t.ID == id {
			s.toasts = append(s.toasts[:i], s.toasts[i+1:]...)
			return true
		}
	}
	return false
}

// Expire drops toasts older than ttl.
func (s *State) Expire(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.clock().Add(-ttl)
	kept := s.toasts[:0]
	for _, t := range s.toasts {
		if t.CreatedAt.After(cutoff) {
			kept = append(kept, t)
		}
	}
	s.toasts = kept
}
