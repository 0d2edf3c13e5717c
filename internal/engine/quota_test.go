package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQuotaEnforcer_WithinLimit checks that exactly limit deliveries pass.
func TestQuotaEnforcer_WithinLimit(t *testing.T) {
	q := NewQuotaEnforcer(10)

	for i := 0; i < 10; i++ {
		assert.NoError(t, q.Check("run-1"), "delivery %d should be allowed", i+1)
	}

	assert.Equal(t, 10, q.Current())
	assert.Equal(t, 10, q.Limit())
}

// TestQuotaEnforcer_ExceedsLimit checks the error carried past the limit.
func TestQuotaEnforcer_ExceedsLimit(t *testing.T) {
	q := NewQuotaEnforcer(3)
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Check("run-1"))
	}

	err := q.Check("run-1")
	require.Error(t, err)

	var se *StepsExceededError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "run-1", se.RunToken)
	assert.Equal(t, 4, se.Steps)
	assert.Equal(t, 3, se.Limit)
	assert.Equal(t, "run run-1 exceeded delivery quota: 4 deliveries > 3 limit", se.Error())
}

// TestQuotaEnforcer_ZeroLimit rejects the first delivery.
func TestQuotaEnforcer_ZeroLimit(t *testing.T) {
	q := NewQuotaEnforcer(0)
	assert.True(t, IsStepsExceededError(q.Check("run-1")))
}

// TestIsStepsExceededError_Wrapped matches through fmt.Errorf wrapping.
func TestIsStepsExceededError_Wrapped(t *testing.T) {
	base := &StepsExceededError{RunToken: "r", Steps: 2, Limit: 1}
	wrapped := fmt.Errorf("observe: %w", base)

	assert.True(t, IsStepsExceededError(base))
	assert.True(t, IsStepsExceededError(wrapped))
	assert.False(t, IsStepsExceededError(fmt.Errorf("other")))
	assert.False(t, IsStepsExceededError(nil))
}
