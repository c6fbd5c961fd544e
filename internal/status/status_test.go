package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusIsValid(t *testing.T) {
	assert.True(t, StatusNew.IsValid())
	assert.True(t, StatusReady.IsValid())
	assert.True(t, StatusCancelled.IsValid())
	assert.True(t, StatusSent.IsValid())
	assert.False(t, Status("archived").IsValid())
	assert.False(t, Status("").IsValid())
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"new to ready", StatusNew, StatusReady, true},
		{"ready to cancelled", StatusReady, StatusCancelled, true},
		{"ready to sent", StatusReady, StatusSent, true},
		{"new to sent skips review", StatusNew, StatusSent, false},
		{"new to cancelled skips review", StatusNew, StatusCancelled, false},
		{"ready back to new", StatusReady, StatusNew, false},
		{"cancelled is terminal", StatusCancelled, StatusReady, false},
		{"sent is terminal", StatusSent, StatusReady, false},
		{"no self transition", StatusReady, StatusReady, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusNew.IsTerminal())
	assert.False(t, StatusReady.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusSent.IsTerminal())
}
