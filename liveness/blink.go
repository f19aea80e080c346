package liveness

import (
	"math"

	"github.com/jmcleod/facelock/face"
)

// EyeAspectRatio computes EAR = (‖p2−p6‖ + ‖p3−p5‖) / (2·‖p1−p4‖) over a
// 6-point eye contour. Returns 0 when the contour is malformed.
func EyeAspectRatio(eye []face.Point) float64 {
	if len(eye) != face.EyePoints {
		return 0
	}
	a := pointDistance(eye[1], eye[5])
	b := pointDistance(eye[2], eye[4])
	c := pointDistance(eye[0], eye[3])
	if c == 0 {
		return 0
	}
	return (a + b) / (2 * c)
}

func pointDistance(a, b face.Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// blinkDetector counts completed blink events from a per-frame EAR sequence.
// A blink is a dip below the threshold lasting at least minFrames and at most
// maxFrames, counted when the EAR recovers above the threshold.
type blinkDetector struct {
	threshold float64
	minFrames int
	maxFrames int

	below  int
	blinks int
}

func newBlinkDetector(cfg Config) *blinkDetector {
	return &blinkDetector{
		threshold: cfg.EARThreshold,
		minFrames: cfg.BlinkMinFrames,
		maxFrames: cfg.BlinkMaxFrames,
	}
}

// observe feeds one EAR value and reports whether a blink completed on this
// frame.
func (d *blinkDetector) observe(ear float64) bool {
	if ear < d.threshold {
		d.below++
		return false
	}
	completed := d.below >= d.minFrames && d.below <= d.maxFrames
	d.below = 0
	if completed {
		d.blinks++
	}
	return completed
}
