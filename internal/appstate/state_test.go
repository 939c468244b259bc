package appstate

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthLifecycle(t *testing.T) {
	s := New()
	assert.False(t, s.Auth().Authenticated())

	s.SetAuth(Auth{User: &User{ID: "u1", Email: "a@b.c"}, AccessToken: "at", RefreshToken: "rt"})
	assert.True(t, s.Auth().Authenticated())
	assert.Equal(t, "at", s.AccessToken())

	s.SetTokens("at2", "")
	a := s.Auth()
	assert.Equal(t, "at2", a.AccessToken)
	assert.Equal(t, "rt", a.RefreshToken, "empty refresh keeps the old one")

	a.User.Email = "mutated"
	assert.Equal(t, "a@b.c", s.Auth().User.Email, "Auth returns a copy")
}

func TestZeroValueState(t *testing.T) {
	var s State
	assert.Equal(t, ThemeSystem, s.Theme())
	assert.False(t, s.Auth().Authenticated())

	toast := s.Notify(ToastInfo, "hello")
	assert.NotEmpty(t, toast.ID)
	assert.False(t, toast.CreatedAt.IsZero())
	require.Len(t, s.Toasts(), 1)

	s.Expire(time.Hour)
	assert.Len(t, s.Toasts(), 1)
	s.Logout("")
}

func TestLogoutRunsHooks(t *testing.T) {
	s := New()
	s.SetAuth(Auth{AccessToken: "at"})

	var reasons []string
	s.OnLogout(func(reason string) {
		reasons = append(reasons, reason)
		assert.Empty(t, s.AccessToken(), "hooks run after the session is cleared")
	})

	s.Logout("unauthorized")
	s.Logout("")

	assert.Equal(t, []string{"unauthorized", ""}, reasons)
	assert.False(t, s.Auth().Authenticated())
}

func TestTheme(t *testing.T) {
	s := New()
	assert.Equal(t, ThemeSystem, s.Theme())
	assert.Equal(t, ThemeDark, s.ToggleTheme())
	assert.Equal(t, ThemeLight, s.ToggleTheme())

	s.SetTheme(ParseTheme("dark"))
	assert.Equal(t, ThemeDark, s.Theme())
	assert.Equal(t, ThemeSystem, ParseTheme("sepia"))
}

func TestToasts(t *testing.T) {
	s := New()
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	var seen []Toast
	s.Subscribe(func(t Toast) { seen = append(seen, t) })

	first := s.Notify(ToastError, "failed to save")
	clock = clock.Add(10 * time.Second)
	s.Notify(ToastSuccess, "saved")

	require.Len(t, s.Toasts(), 2)
	assert.Len(t, seen, 2)
	assert.NotEmpty(t, first.ID)

	assert.True(t, s.Dismiss(first.ID))
	assert.False(t, s.Dismiss(first.ID))
	require.Len(t, s.Toasts(), 1)

	clock = clock.Add(time.Minute)
	s.Expire(30 * time.Second)
	assert.Empty(t, s.Toasts())
}

func TestToastsAreBounded(t *testing.T) {
	s := New()
	for i := 0; i < maxToasts+5; i++ {
		s.Notify(ToastInfo, "x")
	}
	assert.Len(t, s.Toasts(), maxToasts)
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.SetTokens("t", "r")
				_ = s.AccessToken()
				s.Notify(ToastInfo, "n")
				s.Logout("")
			}
		}()
	}
	wg.Wait()
	assert.False(t, s.Auth().Authenticated())
}
