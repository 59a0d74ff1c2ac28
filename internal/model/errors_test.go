package model

import (
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestSentinelsSurviveWrapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sentinel error
	}{
		{"invalid argument", ErrInvalidArgument},
		{"data source", ErrDataSource},
		{"parse", ErrParse},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			wrapped := eris.Wrap(tt.sentinel, "outer context")
			assert.True(t, errors.Is(wrapped, tt.sentinel))

			double := eris.Wrapf(wrapped, "operation %s", "retrieve")
			assert.True(t, errors.Is(double, tt.sentinel))
		})
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	t.Parallel()

	assert.False(t, errors.Is(ErrInvalidArgument, ErrDataSource))
	assert.False(t, errors.Is(ErrDataSource, ErrParse))
	assert.False(t, errors.Is(ErrParse, ErrInvalidArgument))
}
