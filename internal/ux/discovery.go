package ux

import (
	"os"
	"path/filepath"
)

// DiscoverEnvFile searches for a .env file starting at dir and walking up
// to the enclosing git root or the filesystem root. It returns "" when none
// is found.
func DiscoverEnvFile(dir string) string {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = cwd
	}

	for {
		envPath := filepath.Join(dir, ".env")
		if info, err := os.Stat(envPath); err == nil && !info.IsDir() {
			return envPath
		}

		// Stop at git root
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return ""
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// EnvFiles returns the .env files config.Load should read: the discovered
// one, or none so that godotenv falls back to ./.env.
func EnvFiles(dir string) []string {
	if path := DiscoverEnvFile(dir); path != "" {
		return []string{path}
	}
	return nil
}
