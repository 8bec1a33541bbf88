package apierr

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_IsMatchesSentinelOfKind(t *testing.T) {
	err := fmt.Errorf("list: %w", New(KindUnauthorized, 401, "Unauthorized - redirecting to login", nil))
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected errors.Is(err, ErrUnauthorized)")
	}
	if errors.Is(err, ErrStatus) {
		t.Fatalf("unauthorized error must not match ErrStatus")
	}
	if got := StatusOf(err); got != 401 {
		t.Fatalf("StatusOf: got %d", got)
	}
}

func TestDataMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"object with message", New(KindStatus, 400, "x", map[string]any{"message": "title required"}), "title required"},
		{"object without message", New(KindStatus, 400, "x", map[string]any{"error": "bad"}), ""},
		{"non-string message", New(KindStatus, 400, "x", map[string]any{"message": 3.0}), ""},
		{"array body", New(KindStatus, 400, "x", []any{"a"}), ""},
		{"plain error", errors.New("boom"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DataMessage(tt.err); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_EmptyMessageFallsBackToStatus(t *testing.T) {
	if got := New(KindStatus, 502, "", nil).Error(); got != "API Error: 502" {
		t.Fatalf("got %q", got)
	}
}
