// Package liveness implements anti-spoofing over landmark sequences. Three
// independent signals are accumulated per authentication attempt: blink (eye
// aspect ratio), head pose delta (perspective-n-point), and texture (local
// binary patterns plus a classifier). The combined verdict requires all three
// to pass affirmatively.
package liveness

import "time"

// Signal identifies one liveness sub-signal.
type Signal string

const (
	SignalBlink   Signal = "blink"
	SignalPose    Signal = "pose"
	SignalTexture Signal = "texture"
)

// Config holds the detection thresholds.
type Config struct {
	// EARThreshold is the eye aspect ratio below which eyes count as closed.
	EARThreshold float64
	// BlinkMinFrames is the minimum dip length, in consecutive frames, for a
	// dip to count as a blink. Shorter dips are sensor noise.
	BlinkMinFrames int
	// BlinkMaxFrames is the maximum dip length. Longer dips are treated as
	// eyes-closed, not a blink.
	BlinkMaxFrames int
	// PoseDeltaDegrees is the pairwise angular delta, on any axis, that the
	// sampled sequence must exceed.
	PoseDeltaDegrees float64
	// TextureThreshold is the minimum classifier confidence for a frame to
	// cast a live vote.
	TextureThreshold float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		EARThreshold:     0.21,
		BlinkMinFrames:   3,
		BlinkMaxFrames:   10,
		PoseDeltaDegrees: 15,
		TextureThreshold: 0.65,
	}
}

// EARSample is one averaged eye aspect ratio observation.
type EARSample struct {
	EAR float64
	At  time.Time
}

// PoseSample is one estimated head orientation, in degrees.
type PoseSample struct {
	Pitch, Yaw, Roll float64
	At               time.Time
}

// TextureVote is one classifier decision over a sampled frame.
type TextureVote struct {
	Live       bool
	Confidence float64
	At         time.Time
}

// Evidence is the transient per-attempt accumulator. It lives only for the
// duration of one attempt and is owned exclusively by that attempt.
type Evidence struct {
	EARSamples   []EARSample
	PoseSamples  []PoseSample
	TextureVotes []TextureVote

	// Blinks is the number of completed blink events observed.
	Blinks int
}

// SignalResult reports one sub-signal's outcome with its diagnostic metric.
type SignalResult struct {
	Passed  bool
	Metric  float64
	Samples int
}

// Result is the aggregate liveness verdict. Failed lists every signal that
// did not pass; callers must not surface the failing signal outside the
// local UI.
type Result struct {
	Live    bool
	Blink   SignalResult
	Pose    SignalResult
	Texture SignalResult
	Failed  []Signal
}
