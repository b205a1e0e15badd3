package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cartillasalud/backend/internal/domain/entities"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input string
		want  entities.Status
		ok    bool
	}{
		{"Active", entities.StatusActive, true},
		{"active", entities.StatusActive, true},
		{"INACTIVE", entities.StatusInactive, true},
		{"enabled", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := entities.ParseStatus(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		if tt.ok {
			assert.Equal(t, tt.want, got, "input %q", tt.input)
		}
	}
}

func TestStatus_Toggle(t *testing.T) {
	assert.Equal(t, entities.StatusInactive, entities.StatusActive.Toggle())
	assert.Equal(t, entities.StatusActive, entities.StatusInactive.Toggle())
}

func TestStatus_IsValid(t *testing.T) {
	assert.True(t, entities.StatusActive.IsValid())
	assert.True(t, entities.StatusInactive.IsValid())
	assert.False(t, entities.Status("Paused").IsValid())
}
