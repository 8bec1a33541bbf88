// Package state is the client's in-memory mirror of the user's to-dos and
// session. Every list mutation goes through the gateway first and is then
// reconciled locally.
package state

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"

	"github.com/Makepad-fr/tada/internal/apierr"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/session"
)

const (
	msgFetchFailed  = "Could not load your to-do items."
	msgCreateFailed = "Could not add to-do item."
	msgUpdateFailed = "Could not update to-do item."
	msgDeleteFailed = "Could not delete to-do item."
	msgLoginFailed  = "Could not sign in."
)

// Gateway is the subset of the API client the store needs.
type Gateway interface {
	Login(ctx context.Context, req model.LoginRequest) (model.JwtAuthenticationResponse, error)
	ListTodos(ctx context.Context) ([]model.Todo, error)
	CreateTodo(ctx context.Context, dto model.TodoDto) (model.Todo, error)
	UpdateTodo(ctx context.Context, id string, patch model.TodoPatch) (model.Todo, error)
	DeleteTodo(ctx context.Context, id string) error
}

// Store holds the to-do collection (ascending by CreatedAt after fetch and
// create), loading flags and the last display error.
//
// Gateway calls run outside the lock, so a slow FetchAll that resolves after
// a Create overwrites the collection with its older snapshot.
type Store struct {
	gw     Gateway
	sess   *session.Session
	logger *logging.Logger

	mu          sync.RWMutex
	todos       []model.Todo
	loading     bool
	loadingAuth bool
	lastError   string
	authError   string

	listenMu  sync.Mutex
	listeners []func()
}

type Option func(*Store)

func WithLogger(l *logging.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(gw Gateway, sess *session.Session, opts ...Option) *Store {
	s := &Store{gw: gw, sess: sess, logger: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to run after every state change.
func (s *Store) Subscribe(fn func()) {
	s.listenMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenMu.Unlock()
}

func (s *Store) notify() {
	s.listenMu.Lock()
	fns := append([]func(){}, s.listeners...)
	s.listenMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// --- accessors ---

// List returns a copy of the collection.
func (s *Store) List() []model.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.todos)
}

func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) IsLoadingAuth() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadingAuth
}

// LastError is the display message of the last failed to-do call ("" for none).
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// AuthError is the display message of the last failed login.
func (s *Store) AuthError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authError
}

func (s *Store) Token() string     { return s.sess.Token() }
func (s *Store) User() *model.User { return s.sess.User() }

// --- session ---

func (s *Store) InitializeSession() error {
	err := s.sess.Initialize()
	s.notify()
	return err
}

func (s *Store) SetSession(token, email string) error {
	err := s.sess.Set(token, email)
	s.notify()
	return err
}

func (s *Store) ClearSession() error {
	err := s.sess.Clear()
	s.notify()
	return err
}

// Login signs in and stores the returned credential; the response's
// username is the user's email.
func (s *Store) Login(ctx context.Context, req model.LoginRequest) (model.JwtAuthenticationResponse, error) {
	s.mu.Lock()
	s.loadingAuth = true
	s.authError = ""
	s.mu.Unlock()
	s.notify()
	defer func() {
		s.mu.Lock()
		s.loadingAuth = false
		s.mu.Unlock()
		s.notify()
	}()

	resp, err := s.gw.Login(ctx, req)
	if err != nil {
		s.mu.Lock()
		s.authError = displayMessage(err, msgLoginFailed)
		s.mu.Unlock()
		return resp, err
	}
	if err := s.sess.Set(resp.AccessToken, resp.Username); err != nil {
		return resp, err
	}
	s.logger.Info("signed in", "user", resp.Username)
	return resp, nil
}

// --- to-dos ---

// FetchAll replaces the collection with the server's, sorted by CreatedAt.
// Failures are recorded in LastError; only 401/403 are returned so the
// caller can run session handling.
func (s *Store) FetchAll(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.lastError = ""
	s.mu.Unlock()
	s.notify()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.notify()
	}()

	todos, err := s.gw.ListTodos(ctx)
	if err != nil {
		s.logger.Error("failed to fetch todos", "err", err)
		s.recordError(err, msgFetchFailed)
		if st := apierr.StatusOf(err); st == http.StatusUnauthorized || st == http.StatusForbidden {
			return err
		}
		return nil
	}
	sortByCreatedAt(todos)
	s.mu.Lock()
	s.todos = todos
	s.mu.Unlock()
	return nil
}

// Create adds the server's new entity and re-sorts.
func (s *Store) Create(ctx context.Context, dto model.TodoDto) (model.Todo, error) {
	created, err := s.gw.CreateTodo(ctx, dto)
	if err != nil {
		s.logger.Error("failed to add todo", "err", err)
		s.recordError(err, msgCreateFailed)
		return model.Todo{}, err
	}
	s.mu.Lock()
	next := make([]model.Todo, 0, len(s.todos)+1)
	next = append(next, created)
	next = append(next, s.todos...)
	sortByCreatedAt(next)
	s.todos = next
	s.mu.Unlock()
	s.notify()
	return created, nil
}

// Update replaces the entity with the same id in place. The collection is
// not re-sorted, even if CreatedAt changed.
func (s *Store) Update(ctx context.Context, id string, patch model.TodoPatch) (model.Todo, error) {
	updated, err := s.gw.UpdateTodo(ctx, id, patch)
	if err != nil {
		s.logger.Error("failed to update todo", "id", id, "err", err)
		s.recordError(err, msgUpdateFailed)
		return model.Todo{}, err
	}
	s.mu.Lock()
	next := slices.Clone(s.todos)
	for i := range next {
		if next[i].ID == id {
			next[i] = updated
		}
	}
	s.todos = next
	s.mu.Unlock()
	s.notify()
	return updated, nil
}

// Delete removes the entity with id; the order of the rest is kept.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.gw.DeleteTodo(ctx, id); err != nil {
		s.logger.Error("failed to delete todo", "id", id, "err", err)
		s.recordError(err, msgDeleteFailed)
		return err
	}
	s.mu.Lock()
	s.todos = slices.DeleteFunc(slices.Clone(s.todos), func(t model.Todo) bool { return t.ID == id })
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Store) recordError(err error, fallback string) {
	s.mu.Lock()
	s.lastError = displayMessage(err, fallback)
	s.mu.Unlock()
	s.notify()
}

// displayMessage prefers the server's data.message, then the error text.
func displayMessage(err error, fallback string) string {
	if msg := apierr.DataMessage(err); msg != "" {
		return msg
	}
	var e *apierr.Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		return fallback
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}

func sortByCreatedAt(todos []model.Todo) {
	slices.SortStableFunc(todos, func(a, b model.Todo) int {
		return a.CreatedAt.Compare(b.CreatedAt.Time)
	})
}
