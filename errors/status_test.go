package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"No error", nil, http.StatusOK},
		{"Wrapped validation", fmt.Errorf("conversation: %w", ErrValidation), http.StatusUnprocessableEntity},
		{"Not found", ErrNotFound, http.StatusNotFound},
		{"Own message", ErrOwnMessage, http.StatusForbidden},
		{"Missing token", ErrMissingToken, http.StatusUnauthorized},
		{"Invalid token", ErrInvalidToken, http.StatusUnauthorized},
		{"Bad credentials", ErrInvalidCredentials, http.StatusUnauthorized},
		{"Conflict", ErrTxConflict, http.StatusConflict},
		{"Anything else", fmt.Errorf("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}
