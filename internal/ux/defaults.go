package ux

import (
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/studyplan/internal/config"
)

// PathDefaults locates the files studyplan keeps between runs.
type PathDefaults struct {
	Dir string
}

// NewPathDefaults uses config.Dir, falling back to ./.studyplan when the home
// directory cannot be resolved.
func NewPathDefaults() *PathDefaults {
	dir, err := config.Dir()
	if err != nil {
		dir = ".studyplan"
	}
	return &PathDefaults{Dir: dir}
}

// ConfigFile returns the path of config.yaml.
func (pd *PathDefaults) ConfigFile() string {
	return filepath.Join(pd.Dir, "config.yaml")
}

// CredentialsFile returns the path of the stored refresh token.
func (pd *PathDefaults) CredentialsFile() string {
	return filepath.Join(pd.Dir, "credentials.yaml")
}

// SuggestNextSteps provides contextual next steps based on what exists
func SuggestNextSteps(pd *PathDefaults) string {
	if _, err := os.Stat(pd.ConfigFile()); os.IsNotExist(err) {
		if _, err := os.Stat(pd.CredentialsFile()); os.IsNotExist(err) {
			return "Point studyplan at your backend with 'studyplan config set api.url <url>', or try it with --mock"
		}
	}

	if _, err := os.Stat(pd.CredentialsFile()); os.IsNotExist(err) {
		return "Sign in with 'studyplan login'"
	}

	return "Start a roadmap with 'studyplan interview'"
}
