package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAPIErrorMatchesSentinels(t *testing.T) {
	tests := []struct {
		name   string
		status int
		target error
		want   bool
	}{
		{"404 is not found", http.StatusNotFound, ErrNotFound, true},
		{"400 is validation", http.StatusBadRequest, ErrValidation, true},
		{"401 is unauthorized", http.StatusUnauthorized, ErrUnauthorized, true},
		{"503 is unavailable", http.StatusServiceUnavailable, ErrUnavailable, true},
		{"500 is not unavailable", http.StatusInternalServerError, ErrUnavailable, false},
		{"500 is not not-found", http.StatusInternalServerError, ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fmt.Errorf("ask: %w", &APIError{Status: tt.status, Path: "/api/ai/queries/ask/"})
			if got := errors.Is(err, tt.target); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{Status: 500, Message: "boom", Path: "/x"}
	if err.Error() != "/x: HTTP 500: boom" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !err.IsServerError() {
		t.Error("500 should be a server error")
	}

	var httpErr HTTPError = err
	if httpErr.StatusCode() != 500 {
		t.Errorf("StatusCode() = %d", httpErr.StatusCode())
	}
}
