// Package apierr holds the error taxonomy shared by the request gateway and the session guard.
package apierr

import (
	"errors"
	"fmt"
)

// Kind classifies a failed call.
type Kind int

const (
	KindStatus            Kind = iota // non-2xx with a JSON (or empty) body
	KindTransportDecode               // non-2xx whose body is not JSON
	KindContractViolation             // 2xx whose body is not the expected JSON
	KindUnauthorized                  // 401, credential cleared and login forced
	KindSessionExpired                // soft expiration declined by the user
	KindSessionRedirect               // soft expiration confirmed, redirecting
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindTransportDecode:
		return "transport-decode"
	case KindContractViolation:
		return "contract-violation"
	case KindUnauthorized:
		return "unauthorized"
	case KindSessionExpired:
		return "session-expired"
	case KindSessionRedirect:
		return "session-redirect"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is; an *Error matches the sentinel of its Kind.
var (
	ErrStatus            = errors.New("api: status error")
	ErrTransportDecode   = errors.New("api: non-JSON response")
	ErrContractViolation = errors.New("api: response contract violation")
	ErrUnauthorized      = errors.New("api: unauthorized")
	ErrSessionExpired    = errors.New("session expired")
	ErrSessionRedirect   = errors.New("session expired: redirecting")
)

var sentinels = map[Kind]error{
	KindStatus:            ErrStatus,
	KindTransportDecode:   ErrTransportDecode,
	KindContractViolation: ErrContractViolation,
	KindUnauthorized:      ErrUnauthorized,
	KindSessionExpired:    ErrSessionExpired,
	KindSessionRedirect:   ErrSessionRedirect,
}

// Error is the error envelope: a human message, the transport status and the
// decoded response body (nil when the body was empty).
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Data    any
}

func (e *Error) Error() string {
	if e == nil {
		return "api error"
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("API Error: %d", e.Status)
}

func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	return sentinels[e.Kind] == target
}

// New builds an *Error.
func New(kind Kind, status int, message string, data any) *Error {
	return &Error{Kind: kind, Message: message, Status: status, Data: data}
}

// StatusOf returns the status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// DataMessage returns data.message when err carries a JSON object with a
// non-empty string "message" field.
func DataMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return StringField(e.Data, "message")
}

// StringField reads a non-empty string field from a decoded JSON object.
func StringField(data any, key string) string {
	obj, ok := data.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := obj[key].(string)
	return s
}
