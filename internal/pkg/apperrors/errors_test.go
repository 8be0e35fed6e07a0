package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelMatching(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"conflict", NewConflict("operator %d busy", 5), ErrConflict},
		{"invalid state", NewInvalidState("already closed"), ErrInvalidState},
		{"insufficient stock", &InsufficientStockError{ItemName: "wire", Available: 1, Requested: 2}, ErrInsufficientStock},
		{"not found", NewNotFound("order", 9), ErrNotFound},
		{"unauthorized", &UnauthorizedError{Message: "bad credentials"}, ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.sentinel))

			// Matching survives wrapping.
			wrapped := fmt.Errorf("close session: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.sentinel))
		})
	}
}

func TestInsufficientStockError_Message(t *testing.T) {
	err := &InsufficientStockError{ItemName: "Welding Wire", Available: 5, Requested: 6}
	assert.Equal(t, "insufficient stock for 'Welding Wire': available 5, requested 6", err.Error())

	var target *InsufficientStockError
	wrapped := fmt.Errorf("consume: %w", error(err))
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, 5.0, target.Available)
	assert.Equal(t, 6.0, target.Requested)
}

func TestNotFoundError_Message(t *testing.T) {
	assert.Equal(t, "order 42 not found", NewNotFound("order", 42).Error())
	assert.Equal(t, "machine not found", NewNotFound("machine", nil).Error())
}
