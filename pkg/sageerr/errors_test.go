package sageerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	assert.Contains(t, (&LimitExceededError{Block: "human", Limit: 10, Attempt: 20}).Error(), "human")
	assert.Contains(t, (&NotFoundError{Kind: "schedule", Key: "abc"}).Error(), "abc")
	assert.Contains(t, (&ReadOnlyError{Block: "persona"}).Error(), "persona")
	assert.Contains(t, (&ValidationError{Field: "timezone", Value: "Mars/Olympus", Message: "unknown zone"}).Error(), "Mars/Olympus")
	assert.Contains(t, (&NotEnoughMessagesError{AgentID: "a1", Available: 3, Required: 10}).Error(), "a1")
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("boom")

	pf := &ParseFailureError{Err: inner}
	assert.ErrorIs(t, pf, inner)

	lt := &LLMTransientError{Err: inner}
	assert.ErrorIs(t, lt, inner)

	tt := &TransportTransientError{Err: inner}
	assert.ErrorIs(t, tt, inner)

	cf := &CompactionFailedError{AgentID: "a1", Err: inner}
	assert.ErrorIs(t, cf, inner)

	se := &StoreError{Op: "insert", Err: inner}
	assert.ErrorIs(t, se, inner)
}
