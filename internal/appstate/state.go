// Package appstate holds the process-wide client state shared by commands,
// the API client and the TUI: the signed-in session, the UI theme and
// pending notifications.
//
// A State is created once in the root command and passed to whoever needs
// it. Every accessor is safe for concurrent use; writes are last-write-wins.
package appstate

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// User is the signed-in account.
type User struct {
	ID       string
	Email    string
	Username string
}

// Auth is the authentication slice of the state.
type Auth struct {
	User         *User
	AccessToken  string
	RefreshToken string
}

// Authenticated reports whether an access token is held.
func (a Auth) Authenticated() bool {
	return a.AccessToken != ""
}

// Theme is the UI color scheme.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// ParseTheme maps config text onto a Theme, defaulting to ThemeSystem.
func ParseTheme(s string) Theme {
	switch Theme(s) {
	case ThemeLight, ThemeDark:
		return Theme(s)
	}
	return ThemeSystem
}

// LogoutFunc runs after the session was cleared. reason is empty for a
// user-initiated logout.
type LogoutFunc func(reason string)

// State is the shared client state. The zero value is a usable signed-out
// state; New sets the same defaults explicitly.
type State struct {
	mu       sync.RWMutex
	auth     Auth
	theme    Theme
	toasts   []Toast
	onLogout []LogoutFunc
	onToast  []func(Toast)
	now      func() time.Time
	newID    func() string
}

// New returns an empty, signed-out state.
func New() *State {
	return &State{
		theme: ThemeSystem,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (s *State) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *State) id() string {
	if s.newID == nil {
		return uuid.NewString()
	}
	return s.newID()
}

// Auth returns a copy of the authentication slice.
func (s *State) Auth() Auth {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a := s.auth
	if a.User != nil {
		u := *a.User
		a.User = &u
	}
	return a
}

// AccessToken returns the bearer token, empty when signed out.
func (s *State) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth.AccessToken
}

// SetAuth replaces the authentication slice.
func (s *State) SetAuth(a Auth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = a
}

// SetTokens updates both tokens and keeps the user.
func (s *State) SetTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth.AccessToken = access
	if refresh != "" {
		s.auth.RefreshToken = refresh
	}
}

// SetUser updates the signed-in user.
func (s *State) SetUser(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth.User = u
}

// OnLogout registers fn to run after every Logout.
func (s *State) OnLogout(fn LogoutFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

// Logout clears the session and runs logout hooks outside the lock.
func (s *State) Logout(reason string) {
	s.mu.Lock()
	s.auth = Auth{}
	hooks := append([]LogoutFunc(nil), s.onLogout...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(reason)
	}
}

// Theme returns the current theme.
func (s *State) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.theme == "" {
		return ThemeSystem
	}
	return s.theme
}

// SetTheme changes the theme.
func (s *State) SetTheme(t Theme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = t
}

// ToggleTheme flips between light and dark and returns the new theme.
// System becomes dark.
func (s *State) ToggleTheme() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.theme == ThemeDark {
		s.theme = ThemeLight
	} else {
		s.theme = ThemeDark
	}
	return s.theme
}
