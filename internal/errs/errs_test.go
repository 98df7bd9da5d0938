package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchWithErrorsIs(t *testing.T) {
	err := Cycle("location %s cannot move under itself", "A")

	assert.True(t, errors.Is(err, ErrCycle))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "location A cannot move under itself", Message(err))

	wrapped := fmt.Errorf("set parent: %w", err)
	assert.True(t, errors.Is(wrapped, ErrCycle))
	assert.Equal(t, "location A cannot move under itself", Message(wrapped))
}

func TestPersistenceHidesCause(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Persistence("save inventory", cause)

	assert.True(t, errors.Is(err, ErrPersistence))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "failed to save inventory", Message(err))
	assert.NotContains(t, Message(err), "pq")
}

func TestInvalidField(t *testing.T) {
	err := InvalidField("locationId", "entry %d: unknown location", 2)

	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "entry 2: unknown location", Message(err))
	assert.Equal(t, "locationId", Field(fmt.Errorf("apply: %w", err)))
	assert.Empty(t, Field(Validation("name is required")))

	raw := errors.New("disk full")
	assert.Equal(t, "internal error", Message(raw))
	assert.Empty(t, Field(raw))
}
