package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	e, err := NewEvent("seek", 12.25)
	require.NoError(t, err)
	assert.Equal(t, Event{Kind: EventSeek, Value: 12.25}, e)

	_, err = NewEvent("rewind", 1)
	assert.ErrorIs(t, err, ErrUnknownEventKind)

	for _, v := range []float64{-0.5, math.NaN(), math.Inf(1)} {
		_, err = NewEvent("play", v)
		assert.ErrorIs(t, err, ErrInvalidEventValue, "value %v", v)
	}
}
