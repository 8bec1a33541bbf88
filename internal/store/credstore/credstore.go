// Package credstore persists the client's credential entries as a small
// key-value store. Two backends are available: a single owner-only JSON file
// and a SQLite database.
package credstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Persisted keys. A session is restored only when both are present.
const (
	KeyAuthToken = "authToken"
	KeyUserEmail = "currentUserEmail"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// KV is a synchronous string key-value store.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(keys ...string) error
}

// Dir returns the per-user state directory (~/.tada).
// TADA_CONFIG_DIR overrides it, which keeps tests away from the real home.
func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("TADA_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, ".tada"), nil
}

// Open returns the backend named by backend, rooted in dir.
func Open(backend, dir string) (KV, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		return NewFile(filepath.Join(dir, fileName)), nil
	case BackendSQLite:
		return OpenSQLite(filepath.Join(dir, sqliteName))
	default:
		return nil, fmt.Errorf("unknown credential backend %q", backend)
	}
}

// StripBearer removes a leading "Bearer " scheme from a pasted token.
func StripBearer(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}
