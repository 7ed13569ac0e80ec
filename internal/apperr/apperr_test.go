package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("Missing required fields"), http.StatusBadRequest},
		{"unknown category", UnknownCategory("unknown car type"), http.StatusBadRequest},
		{"auth", ErrInvalidCredentials, http.StatusUnauthorized},
		{"invalid google token", InvalidToken(errors.New("bad signature")), http.StatusBadRequest},
		{"not found", NotFound("User not found"), http.StatusNotFound},
		{"upstream", Upstream("upload failed", errors.New("timeout")), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("register: %w", ErrDuplicateEmail), http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Status(tc.err))
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Email already exists", Message(fmt.Errorf("x: %w", ErrDuplicateEmail)))
	assert.Equal(t, "Invalid token: expired", Message(InvalidToken(errors.New("expired"))))
	assert.Equal(t, "raw", Message(errors.New("raw")))
}

func TestIs(t *testing.T) {
	assert.True(t, Is(ErrInvalidEmail, KindValidation))
	assert.False(t, Is(nil, KindUpstream))
	assert.True(t, Is(errors.New("x"), KindUpstream))
}
