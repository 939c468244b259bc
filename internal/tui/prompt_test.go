package tui

import (
	"testing"
)

func TestShouldPrompt(t *testing.T) {
	tests := []struct {
		name   string
		envVar string
		value  string
	}{
		{"GitHub Actions", "GITHUB_ACTIONS", "true"},
		{"GitLab CI", "GITLAB_CI", "true"},
		{"Buildkite", "BUILDKITE", "true"},
		{"Generic CI", "CI", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.envVar, tt.value)
			if ShouldPrompt() {
				t.Errorf("ShouldPrompt() = true with %s set", tt.envVar)
			}
		})
	}
}

// Note: PromptForString and PromptForConfirmation need a terminal and are
// exercised manually.
