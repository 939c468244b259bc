package health

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/felixgeelhaar/studyplan/internal/config"
	"github.com/felixgeelhaar/studyplan/internal/errors"
)

// ConfigCheck validates cfg.
func ConfigCheck(cfg *config.Config) Checker {
	return Func("config", func(context.Context) *Result {
		if err := cfg.Validate(); err != nil {
			r := Unhealthy(err.Error())
			var coded *errors.Error
			if stderrors.As(err, &coded) {
				r.Message = coded.Message
				if len(coded.Suggestions) > 0 {
					r.Suggestion = coded.Suggestions[0]
				}
			}
			return r
		}
		if cfg.API.EnableMock {
			return Healthy("settings are valid, using the built-in mock backend")
		}
		return Healthy("settings are valid").WithDetail("api_url", cfg.API.URL)
	})
}

// CredentialsCheck inspects the saved session. No session is degraded, not
// unhealthy: most commands only need one after 'studyplan login'.
func CredentialsCheck(store *config.CredentialStore) Checker {
	return Func("session", func(context.Context) *Result {
		creds, err := store.Load()
		if err != nil {
			return Unhealthy("saved session cannot be read: " + err.Error()).
				WithSuggestion("Remove " + store.Path() + " and run 'studyplan login'")
		}
		if creds == nil {
			return Degraded("not signed in").
				WithSuggestion("Run 'studyplan login' or use --mock")
		}

		info, err := os.Stat(store.Path())
		if err == nil && info.Mode().Perm()&0o077 != 0 {
			return Degraded(fmt.Sprintf("%s is readable by other users", store.Path())).
				WithSuggestion("Run 'chmod 600 " + store.Path() + "'")
		}

		r := Healthy("saved session found")
		if creds.Email != "" {
			r.Message = "saved session for " + creds.Email
		}
		return r.WithDetail("saved_at", creds.SavedAt)
	})
}

// EndpointCheck probes the API at baseURL with an unauthenticated profile
// request. A 401 proves a studyplan backend is listening.
func EndpointCheck(client *http.Client, baseURL string) Checker {
	return Func("api", func(ctx context.Context) *Result {
		url := strings.TrimRight(baseURL, "/") + "/users/me"
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return Unhealthy("invalid api url: " + err.Error()).
				WithSuggestion("Set api.url with 'studyplan config set api.url <url>'")
		}

		resp, err := client.Do(req)
		if err != nil {
			return Unhealthy(fmt.Sprintf("cannot reach %s", baseURL)).
				WithDetail("error", err.Error()).
				WithSuggestion("Check the URL and your connection, or use --mock")
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusOK:
			return Healthy(fmt.Sprintf("%s is answering", baseURL)).
				WithDetail("status", resp.StatusCode)
		case resp.StatusCode >= 500:
			return Degraded(fmt.Sprintf("%s answered with HTTP %d", baseURL, resp.StatusCode)).
				WithDetail("status", resp.StatusCode).
				WithSuggestion("The backend has a problem; try again later")
		default:
			return Degraded(fmt.Sprintf("%s does not look like a studyplan API (HTTP %d)", baseURL, resp.StatusCode)).
				WithDetail("status", resp.StatusCode).
				WithSuggestion("api.url should end in /api/v1")
		}
	})
}
