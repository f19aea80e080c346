package liveness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmcleod/facelock/face"
)

// eyeWithEAR builds a 6-point eye contour whose aspect ratio is exactly ear.
// Horizontal span is 4; vertical half-gap h satisfies EAR = (2h+2h)/(2·4).
func eyeWithEAR(ear float64) []face.Point {
	h := 2 * ear
	return []face.Point{
		{X: 0, Y: 0},
		{X: 1, Y: -h},
		{X: 3, Y: -h},
		{X: 4, Y: 0},
		{X: 3, Y: h},
		{X: 1, Y: h},
	}
}

func TestEyeAspectRatio(t *testing.T) {
	assert.InDelta(t, 0.30, EyeAspectRatio(eyeWithEAR(0.30)), 1e-9)
	assert.InDelta(t, 0.05, EyeAspectRatio(eyeWithEAR(0.05)), 1e-9)

	// Malformed contours yield zero.
	assert.Zero(t, EyeAspectRatio(nil))
	assert.Zero(t, EyeAspectRatio(eyeWithEAR(0.3)[:4]))

	// Degenerate horizontal span yields zero rather than dividing by it.
	flat := []face.Point{{}, {}, {}, {}, {}, {}}
	assert.Zero(t, EyeAspectRatio(flat))
}

func TestBlinkDetector_OneCompleteBlink(t *testing.T) {
	d := newBlinkDetector(DefaultConfig())

	// Eyes closing then opening: exactly one threshold crossing down and one
	// up, one registered blink.
	seq := []float64{0.30, 0.30, 0.12, 0.10, 0.09, 0.11, 0.30, 0.30}
	crossings := 0
	prevBelow := false
	for _, ear := range seq {
		below := ear < DefaultConfig().EARThreshold
		if below != prevBelow {
			crossings++
			prevBelow = below
		}
		d.observe(ear)
	}
	assert.Equal(t, 2, crossings)
	assert.Equal(t, 1, d.blinks)
}

func TestBlinkDetector_SingleFrameDipIsNoise(t *testing.T) {
	d := newBlinkDetector(DefaultConfig())
	for _, ear := range []float64{0.30, 0.10, 0.30, 0.30} {
		d.observe(ear)
	}
	assert.Zero(t, d.blinks)
}

func TestBlinkDetector_LongClosureIsNotABlink(t *testing.T) {
	cfg := DefaultConfig()
	d := newBlinkDetector(cfg)

	d.observe(0.30)
	for i := 0; i < cfg.BlinkMaxFrames+5; i++ {
		d.observe(0.08)
	}
	d.observe(0.30)
	assert.Zero(t, d.blinks)
}

func TestBlinkDetector_TwoBlinks(t *testing.T) {
	d := newBlinkDetector(DefaultConfig())
	seq := []float64{
		0.30, 0.10, 0.10, 0.10, 0.30, 0.30,
		0.30, 0.09, 0.11, 0.10, 0.12, 0.30,
	}
	for _, ear := range seq {
		d.observe(ear)
	}
	assert.Equal(t, 2, d.blinks)
}
