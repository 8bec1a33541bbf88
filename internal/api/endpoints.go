package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Makepad-fr/tada/internal/model"
)

// --- Authentication ---

func (c *Client) Register(ctx context.Context, req model.RegistrationRequest) (model.SuccessAuthResponseMessage, error) {
	return Call[model.SuccessAuthResponseMessage](ctx, c, http.MethodPost, "/auth/register", req)
}

func (c *Client) Login(ctx context.Context, req model.LoginRequest) (model.JwtAuthenticationResponse, error) {
	return Call[model.JwtAuthenticationResponse](ctx, c, http.MethodPost, "/auth/login", req)
}

func (c *Client) VerifyEmail(ctx context.Context, req model.EmailVerificationRequest) (model.SuccessAuthResponseMessage, error) {
	return Call[model.SuccessAuthResponseMessage](ctx, c, http.MethodPost, "/auth/verify-email", req)
}

func (c *Client) ResendVerification(ctx context.Context, req model.ResendVerificationRequest) (model.SuccessAuthResponseMessage, error) {
	return Call[model.SuccessAuthResponseMessage](ctx, c, http.MethodPost, "/auth/resend-verification", req)
}

// --- To-dos ---

func (c *Client) ListTodos(ctx context.Context) ([]model.Todo, error) {
	return Call[[]model.Todo](ctx, c, http.MethodGet, "/todos", nil)
}

func (c *Client) CreateTodo(ctx context.Context, dto model.TodoDto) (model.Todo, error) {
	return Call[model.Todo](ctx, c, http.MethodPost, "/todos", dto)
}

func (c *Client) UpdateTodo(ctx context.Context, id string, patch model.TodoPatch) (model.Todo, error) {
	return Call[model.Todo](ctx, c, http.MethodPut, "/todos/"+url.PathEscape(id), patch)
}

// DeleteTodo expects 204 No Content.
func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/todos/"+url.PathEscape(id), nil, nil)
}
