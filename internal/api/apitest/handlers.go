package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/Makepad-fr/tada/internal/model"
)

type emailKey struct{}

func withEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailKey{}, email)
}

func emailFrom(r *http.Request) string {
	s, _ := r.Context().Value(emailKey{}).(string)
	return s
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req model.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed JSON request"})
		return
	}
	fields := map[string]string{}
	if strings.TrimSpace(req.Email) == "" {
		fields["email"] = "must not be blank"
	}
	if len(req.Password) < 8 {
		fields["password"] = "size must be at least 8"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "hash failed"})
		return
	}
	s.mu.Lock()
	if _, exists := s.users[req.Email]; exists {
		s.mu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Email is already registered"})
		return
	}
	username := req.Username
	if username == "" {
		username = req.Email
	}
	s.users[req.Email] = &user{username: username, email: req.Email, hash: hash, code: newCode()}
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, model.SuccessAuthResponseMessage{
		Message: "User registered successfully. Please check your email for the verification code.",
		Email:   req.Email,
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed JSON request"})
		return
	}
	s.mu.Lock()
	var found *user
	for _, u := range s.users {
		if u.email == req.UsernameOrEmail || u.username == req.UsernameOrEmail {
			found = u
			break
		}
	}
	s.mu.Unlock()
	if found == nil || bcrypt.CompareHashAndPassword(found.hash, []byte(req.Password)) != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid username or password"})
		return
	}
	if !found.verified {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Email not verified"})
		return
	}
	token := s.IssueToken(found.email)
	writeJSON(w, http.StatusOK, model.JwtAuthenticationResponse{AccessToken: token, TokenType: "Bearer", Username: found.email})
}

func (s *Server) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req model.EmailVerificationRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if req.Code != "" && u.code == req.Code {
			u.verified = true
			u.code = ""
			writeJSON(w, http.StatusOK, model.SuccessAuthResponseMessage{Message: "Email verified successfully.", Email: u.email})
			return
		}
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid or expired verification code"})
}

func (s *Server) resend(w http.ResponseWriter, r *http.Request) {
	var req model.ResendVerificationRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[req.Email]
	if u == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "User not found"})
		return
	}
	u.code = newCode()
	writeJSON(w, http.StatusOK, model.SuccessAuthResponseMessage{Message: "Verification code resent.", Email: u.email})
}

func (s *Server) listTodos(w http.ResponseWriter, r *http.Request) {
	email := emailFrom(r)
	s.mu.Lock()
	out := []model.Todo{}
	for _, t := range s.todos {
		if t.UserID == email {
			out = append(out, t)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createTodo(w http.ResponseWriter, r *http.Request) {
	var dto model.TodoDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed JSON request"})
		return
	}
	if strings.TrimSpace(dto.Title) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "title required"})
		return
	}
	s.mu.Lock()
	now := Epoch.Add(time.Duration(s.created) * time.Minute)
	s.created++
	t := model.Todo{
		ID:          uuid.NewString(),
		UserID:      emailFrom(r),
		Title:       dto.Title,
		Description: dto.Description,
		DueDate:     dto.DueDate,
		CreatedAt:   model.Time{Time: now},
		UpdatedAt:   model.Time{Time: now},
	}
	if dto.Completed != nil {
		t.Completed = *dto.Completed
	}
	s.todos = append(s.todos, t)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) updateTodo(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var patch model.TodoPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed JSON request"})
		return
	}
	email := emailFrom(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.todos {
		if t.ID == id && t.UserID == email {
			t = patch.Apply(t)
			t.UpdatedAt = model.Time{Time: t.UpdatedAt.Add(time.Second)}
			s.todos[i] = t
			writeJSON(w, http.StatusOK, t)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Todo not found with id: " + id})
}

func (s *Server) deleteTodo(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	email := emailFrom(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.todos {
		if t.ID == id && t.UserID == email {
			s.todos = append(s.todos[:i], s.todos[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Todo not found with id: " + id})
}
