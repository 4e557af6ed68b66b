package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisabledIndicatorIsInert(t *testing.T) {
	ind := New(false)

	// All lifecycle methods must be safe no-ops; Stop without Start
	// included.
	assert.NotPanics(t, func() {
		ind.Stop()
		ind.Start("Executing...")
		ind.Update("Waiting...")
		ind.Stop()
		ind.Stop()
	})
}

func TestEnabledRequiresTerminal(t *testing.T) {
	// Test processes never run with a terminal on stderr, so even an
	// enabled indicator must come back inert rather than writing escape
	// sequences into captured output.
	ind := New(true)
	assert.False(t, ind.enabled)
}
