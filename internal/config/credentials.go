package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/studyplan/internal/errors"
)

// Credentials is what survives between runs. Access tokens live in memory
// only; the refresh token is exchanged for a new one at startup.
type Credentials struct {
	RefreshToken string    `yaml:"refresh_token"`
	Email        string    `yaml:"email,omitempty"`
	SavedAt      time.Time `yaml:"saved_at"`
}

// CredentialStore persists Credentials in a 0600 YAML file.
type CredentialStore struct {
	path string
}

// NewCredentialStore returns a store at path.
func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

// DefaultCredentialStore returns the store under Dir().
func DefaultCredentialStore() (*CredentialStore, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return NewCredentialStore(filepath.Join(dir, "credentials.yaml")), nil
}

// Path returns the file location.
func (s *CredentialStore) Path() string {
	return s.path
}

// Load returns the saved credentials, or nil when none are stored.
func (s *CredentialStore) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, "failed to read credentials", err)
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, errors.NewFileUnmarshalError(s.path, "YAML", err)
	}
	if creds.RefreshToken == "" {
		return nil, nil
	}
	return &creds, nil
}

// Save stores creds, replacing any previous file.
func (s *CredentialStore) Save(creds Credentials) error {
	if creds.SavedAt.IsZero() {
		creds.SavedAt = time.Now().UTC()
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to create credentials directory", err)
	}
	data, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to write credentials", err)
	}
	return nil
}

// Delete removes the file. Deleting a missing file is a no-op.
func (s *CredentialStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to remove credentials", err)
	}
	return nil
}
