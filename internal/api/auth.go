package api

import (
	"context"
	"net/http"

	"github.com/felixgeelhaar/studyplan/internal/appstate"
	"github.com/felixgeelhaar/studyplan/internal/errors"
)

// Login authenticates and stores the tokens in the shared state.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/login", "/auth/login", LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		if errors.CodeOf(err) == errors.ErrCodeAuthExpired {
			return nil, errors.New(errors.ErrCodeAuthInvalid, "invalid email or password").
				WithSuggestion("Check your email and password")
		}
		return nil, err
	}

	var auth AuthResponse
	if err := parseResponse(resp, &auth); err != nil {
		if errors.CodeOf(err) == errors.ErrCodeAPIStatus {
			return nil, errors.Wrap(errors.ErrCodeAuthInvalid, "login failed", err).
				WithSuggestion("Check your email and password")
		}
		return nil, err
	}

	c.applyAuth(&auth)
	return &auth, nil
}

// Register creates an account. The backend signs the new user in directly.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/register", "/auth/register", req)
	if err != nil {
		return nil, err
	}

	var auth AuthResponse
	if err := parseResponse(resp, &auth); err != nil {
		return nil, err
	}

	if auth.AccessToken == "" {
		// Older backends return only the user; follow up with a login.
		return c.Login(ctx, req.Email, req.Password)
	}
	c.applyAuth(&auth)
	return &auth, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/refresh", "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeAuthRefreshFailed, "failed to refresh session", err).
			WithSuggestion("Run 'studyplan login' to sign in again")
	}

	var pair TokenPair
	if err := parseResponse(resp, &pair); err != nil {
		return nil, errors.Wrap(errors.ErrCodeAuthRefreshFailed, "failed to refresh session", err)
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	c.state.SetTokens(pair.AccessToken, pair.RefreshToken)
	return &pair, nil
}

// Logout invalidates the session on the server, best effort, and always
// clears local state.
func (c *Client) Logout(ctx context.Context) error {
	var serverErr error
	if c.state.AccessToken() != "" {
		resp, err := c.doRequest(ctx, http.MethodPost, "/auth/logout", "/auth/logout", map[string]string{
			"refresh_token": c.state.Auth().RefreshToken,
		})
		if err == nil {
			serverErr = parseResponse(resp, nil)
		} else if errors.CodeOf(err) != errors.ErrCodeAuthExpired {
			serverErr = err
		}
	}
	c.roadmaps.Purge()
	c.state.Logout("")
	return serverErr
}

// CurrentUser retrieves the signed-in user and records it in the state.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/users/me", "/users/me", nil)
	if err != nil {
		return nil, err
	}

	var user User
	if err := parseResponse(resp, &user); err != nil {
		return nil, err
	}
	c.state.SetUser(&appstate.User{ID: user.ID, Email: user.Email, Username: user.Username})
	return &user, nil
}

func (c *Client) applyAuth(auth *AuthResponse) {
	a := appstate.Auth{
		AccessToken:  auth.AccessToken,
		RefreshToken: auth.RefreshToken,
	}
	if auth.User != nil {
		a.User = &appstate.User{ID: auth.User.ID, Email: auth.User.Email, Username: auth.User.Username}
	}
	c.state.SetAuth(a)
}
