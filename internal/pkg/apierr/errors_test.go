package apierr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestImmutable(t *testing.T) {
	e := New(400, "INVALID_REQUEST", "invalid request: some or all request parameters are invalid")
	changedE := e.Msg("%s", "changed")
	if e.Message == "changed" {
		t.Errorf("Expected immutable error with message not equal to 'changed', got '%s'", e.Message)
	}
	if changedE.Message != "changed" {
		t.Errorf("Expected immutable error with message equal to 'changed', got '%s'", changedE.Message)
	}
}

func TestIsMatchesCopies(t *testing.T) {
	reason := ErrValidationFailed.Msg("Duplicate step number: %d", 1)
	assert.ErrorIs(t, reason, ErrValidationFailed)
	assert.NotErrorIs(t, reason, ErrInvalidReq)

	wrapped := errors.Wrap(ErrPatternNotFound, "repo: update pattern")
	assert.ErrorIs(t, wrapped, ErrPatternNotFound)
	assert.ErrorIs(t, wrapped, ErrNotFound, "pattern not found shares status and code with not found")
	assert.NotErrorIs(t, wrapped, ErrNoPublicPatterns)

	var pe *Error
	assert.ErrorAs(t, wrapped, &pe)
	assert.Equal(t, 404, pe.StatusCode)
}
