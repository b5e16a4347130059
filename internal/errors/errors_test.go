package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError_Message(t *testing.T) {
	err := NewAPIError("slack", 429, "rate limited")
	assert.Contains(t, err.Error(), "slack")
	assert.Contains(t, err.Error(), "429")
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil-adjacent plain error", fmt.Errorf("boom"), false},
		{"api 500", NewAPIError("jira", 500, "server error"), true},
		{"api 429", NewAPIError("slack", 429, "rate limited"), true},
		{"api 400", NewAPIError("jira", 400, "bad request"), false},
		{"api 404", NewAPIError("jira", 404, "missing"), false},
		{"timeout sentinel", ErrTimeout, true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"wrapped unavailable", fmt.Errorf("calling out: %w", ErrUnavailable), true},
		{"not found", ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(fmt.Errorf("oracle: %w", ErrTimeout)))
	assert.False(t, IsTimeout(ErrUnavailable))
}
