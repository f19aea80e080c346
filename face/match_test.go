package face

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	assert.InDelta(t, 5.0, Distance([]float64{0, 0}, []float64{3, 4}), 1e-9)
	assert.InDelta(t, 0.0, Distance([]float64{1, 2}, []float64{1, 2}), 1e-9)
	assert.True(t, math.IsInf(Distance([]float64{1}, []float64{1, 2}), 1))
	assert.True(t, math.IsInf(Distance(nil, nil), 1))
}

func TestMatch(t *testing.T) {
	refs := [][]float64{
		{1, 0, 0},
		{0, 1, 0},
	}

	ok, best := Match(refs, []float64{0.9, 0.1, 0}, DefaultMatchThreshold)
	assert.True(t, ok)
	assert.Less(t, best, DefaultMatchThreshold)

	ok, best = Match(refs, []float64{5, 5, 5}, DefaultMatchThreshold)
	assert.False(t, ok)
	assert.Greater(t, best, DefaultMatchThreshold)

	ok, _ = Match(nil, []float64{1, 0, 0}, DefaultMatchThreshold)
	assert.False(t, ok)
}

func TestSliceStream(t *testing.T) {
	frames := []Frame{{Width: 1, Height: 1, Pixels: []byte{7}}, {Width: 1, Height: 1, Pixels: []byte{9}}}
	s := NewSliceStream(frames)
	ctx := context.Background()

	f, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte(7), f.Pixels[0])

	_, err = s.Next(ctx)
	require.NoError(t, err)

	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestSliceStream_CanceledContext(t *testing.T) {
	s := NewSliceStream([]Frame{{Width: 1, Height: 1, Pixels: []byte{0}}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFrameAt_Clamped(t *testing.T) {
	f := Frame{Width: 2, Height: 2, Pixels: []byte{1, 2, 3, 4}}
	assert.Equal(t, byte(1), f.At(-1, -1))
	assert.Equal(t, byte(4), f.At(5, 5))
	assert.Equal(t, byte(2), f.At(1, 0))
}
