// Package apitest runs an in-process fake of the to-do backend for tests.
package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/Makepad-fr/tada/internal/model"
)

// Epoch is the creation time of the first todo the server creates; each
// later one is a minute younger.
var Epoch = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

type user struct {
	username string
	email    string
	hash     []byte
	verified bool
	code     string
}

type failure struct {
	status int
	body   string
}

// Request is what the server saw for one call.
type Request struct {
	Method        string
	Path          string
	Authorization string
	ContentType   string
	Accept        string
	Header        http.Header
	Body          string
}

// Server is the fake backend. All routes live under /api.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]*user  // by email
	tokens   map[string]string // token -> email
	todos    []model.Todo
	failures map[string][]failure
	requests []Request
	created  int
}

// New starts a server that is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		users:    map[string]*user{},
		tokens:   map[string]string{},
		failures: map[string][]failure{},
	}
	s.Server = httptest.NewServer(s.record(s.injectFailures(s.router())))
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the API prefix clients should use.
func (s *Server) BaseURL() string { return s.URL + "/api" }

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	a := r.PathPrefix("/api").Subrouter()
	a.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)
	a.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	a.HandleFunc("/auth/verify-email", s.verifyEmail).Methods(http.MethodPost)
	a.HandleFunc("/auth/resend-verification", s.resend).Methods(http.MethodPost)

	todos := a.PathPrefix("/todos").Subrouter()
	todos.Use(s.requireAuth)
	todos.HandleFunc("", s.listTodos).Methods(http.MethodGet)
	todos.HandleFunc("", s.createTodo).Methods(http.MethodPost)
	todos.HandleFunc("/{id}", s.updateTodo).Methods(http.MethodPut)
	todos.HandleFunc("/{id}", s.deleteTodo).Methods(http.MethodDelete)
	return r
}

// AddUser registers a user directly.
func (s *Server) AddUser(email, password string, verified bool) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = &user{username: email, email: email, hash: hash, verified: verified, code: newCode()}
}

// IssueToken returns a valid bearer token for email.
func (s *Server) IssueToken(email string) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = email
	s.mu.Unlock()
	return token
}

// RevokeTokens invalidates every issued token.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	s.tokens = map[string]string{}
	s.mu.Unlock()
}

// VerificationCode returns the pending code of email.
func (s *Server) VerificationCode(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.users[email]; u != nil {
		return u.code
	}
	return ""
}

// SeedTodos stores todos as given (server order is insertion order).
func (s *Server) SeedTodos(todos ...model.Todo) {
	s.mu.Lock()
	s.todos = append(s.todos, todos...)
	s.mu.Unlock()
}

// Todos returns a copy of the stored todos.
func (s *Server) Todos() []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Todo(nil), s.todos...)
}

// FailNext makes the next request to method+path (path without the /api
// prefix) answer status with the raw body. An empty body sends no content.
func (s *Server) FailNext(method, path string, status int, body string) {
	key := method + " " + path
	s.mu.Lock()
	s.failures[key] = append(s.failures[key], failure{status: status, body: body})
	s.mu.Unlock()
}

// Requests returns every request seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent request.
func (s *Server) LastRequest() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}
	}
	return s.requests[len(s.requests)-1]
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          strings.TrimPrefix(r.URL.Path, "/api"),
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
			Accept:        r.Header.Get("Accept"),
			Header:        r.Header.Clone(),
			Body:          string(body),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")
		s.mu.Lock()
		queue := s.failures[key]
		var f *failure
		if len(queue) > 0 {
			f = &queue[0]
			s.failures[key] = queue[1:]
		}
		s.mu.Unlock()
		if f == nil {
			next.ServeHTTP(w, r)
			return
		}
		if f.body != "" {
			if json.Valid([]byte(f.body)) {
				w.Header().Set("Content-Type", "application/json")
			} else {
				w.Header().Set("Content-Type", "text/html")
			}
		}
		w.WriteHeader(f.status)
		if f.body != "" {
			_, _ = w.Write([]byte(f.body))
		}
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		email, ok := s.tokens[token]
		s.mu.Unlock()
		if token == "" || !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Full authentication is required"})
			return
		}
		next.ServeHTTP(w, r.WithContext(withEmail(r.Context(), email)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}
