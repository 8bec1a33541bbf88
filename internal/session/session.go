// Package session holds the client's credential and user, and the guard that
// coordinates session expiration with the user.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store/credstore"
)

// DefaultLoginPath is where the client is sent when the session ends.
const DefaultLoginPath = "/login"

// Navigator performs the "go to login" side effect.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Session is the single live credential/user pair of the process, mirrored to
// persisted storage. A nil KV means there is no persisted storage (non-interactive
// contexts): the session then lives in memory only.
type Session struct {
	kv credstore.KV

	mu    sync.RWMutex
	token string
	user  *model.User
}

func New(kv credstore.KV) *Session {
	return &Session{kv: kv}
}

// Initialize restores token and email from storage. Both must be present;
// otherwise the session starts unauthenticated.
func (s *Session) Initialize() error {
	if s.kv == nil {
		return nil
	}
	token, hasToken, err := s.kv.Get(credstore.KeyAuthToken)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	email, hasEmail, err := s.kv.Get(credstore.KeyUserEmail)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if hasToken && hasEmail && token != "" && email != "" {
		s.token = token
		s.user = &model.User{Email: email}
	} else {
		s.token = ""
		s.user = nil
	}
	return nil
}

// Set stores a new credential and user.
func (s *Session) Set(token, email string) error {
	token = credstore.StripBearer(token)
	email = strings.TrimSpace(email)
	if token == "" {
		return fmt.Errorf("empty token")
	}
	s.mu.Lock()
	s.token = token
	s.user = &model.User{Email: email}
	s.mu.Unlock()
	if s.kv == nil {
		return nil
	}
	if err := s.kv.Set(credstore.KeyAuthToken, token); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := s.kv.Set(credstore.KeyUserEmail, email); err != nil {
		if delErr := s.kv.Delete(credstore.KeyAuthToken); delErr != nil {
			return fmt.Errorf("save session: %w", errors.Join(err, delErr))
		}
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear drops credential and user, in memory and in storage.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
	if s.kv == nil {
		return nil
	}
	if err := s.kv.Delete(credstore.KeyAuthToken, credstore.KeyUserEmail); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// ClearToken drops only the credential. The cached email stays on disk but no
// longer restores a session on its own.
func (s *Session) ClearToken() error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
	if s.kv == nil {
		return nil
	}
	if err := s.kv.Delete(credstore.KeyAuthToken); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the current user, or nil.
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}
