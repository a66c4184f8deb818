package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"validation", Validation("Title is required"), http.StatusBadRequest, "Title is required"},
		{"unauthorized", Unauthorized("Invalid token"), http.StatusUnauthorized, "Invalid token"},
		{"not found", NotFound("Task"), http.StatusNotFound, "Task not found"},
		{"conflict", Conflict("User with this email already exists"), http.StatusConflict, "User with this email already exists"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
		{"wrapped", fmt.Errorf("update failed: %w", NotFound("Task")), http.StatusNotFound, "Task not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, message := StatusOf(tt.err)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if message != tt.wantMessage {
				t.Errorf("message = %q, want %q", message, tt.wantMessage)
			}
		})
	}
}

func TestPredicates(t *testing.T) {
	if !IsNotFound(NotFound("Task")) {
		t.Error("IsNotFound() = false for NotFoundError")
	}
	if IsNotFound(Validation("bad")) {
		t.Error("IsNotFound() = true for ValidationError")
	}
	if !IsValidation(fmt.Errorf("wrapped: %w", Validation("bad"))) {
		t.Error("IsValidation() = false for wrapped ValidationError")
	}
	if !IsUnauthorized(Unauthorized("no")) {
		t.Error("IsUnauthorized() = false")
	}
	if !IsConflict(Conflict("dup")) {
		t.Error("IsConflict() = false")
	}
	if IsNotFound(nil) {
		t.Error("IsNotFound(nil) = true")
	}
}

func TestNotFoundMessage(t *testing.T) {
	err := NotFound("Task")
	if err.Error() != "Task not found" {
		t.Errorf("Error() = %q, want %q", err.Error(), "Task not found")
	}
}
