package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTransition(t *testing.T) {
	assert.NoError(t, ValidateTransition(StateInitializing, StateRunning))
	assert.NoError(t, ValidateTransition(StateRunning, StateStopping))
	assert.NoError(t, ValidateTransition(StateStopping, StateStopped))
	assert.NoError(t, ValidateTransition(StateInitializing, StateError))

	assert.Error(t, ValidateTransition(StateStopped, StateRunning))
	assert.Error(t, ValidateTransition(StateRunning, StateStopped))
	assert.Error(t, ValidateTransition(SystemState(42), StateRunning))
}

func TestSystemStateString(t *testing.T) {
	assert.Equal(t, "INITIALIZING", StateInitializing.String())
	assert.Equal(t, "RUNNING", StateRunning.String())
	assert.Equal(t, "STOPPING", StateStopping.String())
	assert.Equal(t, "STOPPED", StateStopped.String())
	assert.Equal(t, "ERROR", StateError.String())
	assert.Equal(t, "UNKNOWN", SystemState(42).String())
}
