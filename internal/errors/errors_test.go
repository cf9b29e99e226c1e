package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorMatchesSentinel(t *testing.T) {
	err := Wrap(NewValidationError("periodType", "hourly", "unsupported period type"), "recompute summary")

	assert.True(t, Is(err, ErrInputValidation))
	assert.False(t, Is(err, ErrTradeNotFound))

	var ve *ValidationError
	assert.True(t, As(err, &ve))
	assert.Equal(t, "periodType", ve.Field)
	assert.Contains(t, err.Error(), "unsupported period type")
}

func TestDataErrorUnwrap(t *testing.T) {
	err := NewDataError("trade", "t-1", "load failed", ErrTradeNotFound)

	assert.True(t, errors.Is(err, ErrTradeNotFound))
	assert.Equal(t, "data error [trade] t-1: load failed: trade not found", err.Error())

	bare := NewDataError("strategy", "s-1", "missing", nil)
	assert.Equal(t, "data error [strategy] s-1: missing", bare.Error())

	noMessage := NewDataError("querying trades", "u1", "", ErrDatabaseError)
	assert.Equal(t, "data error [querying trades] u1: database error", noMessage.Error())
}

func TestCoachErrorUnwrap(t *testing.T) {
	err := NewCoachError("gpt-4o-mini", "review", ErrCoachUnavailable)
	assert.True(t, Is(err, ErrCoachUnavailable))
	assert.Contains(t, err.Error(), "gpt-4o-mini")
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "context"))
	assert.NoError(t, Wrapf(nil, "context %d", 1))
	assert.EqualError(t, Wrapf(ErrDatabaseError, "saving trade %s", "t-1"), "saving trade t-1: database error")
}

func TestJoin(t *testing.T) {
	assert.NoError(t, Join(nil, nil))

	err := Join(ErrSummaryNotFound, nil, NewValidationError("userId", "", "is required"))
	assert.ErrorIs(t, err, ErrSummaryNotFound)
	assert.ErrorIs(t, err, ErrInputValidation)
}
