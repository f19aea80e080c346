package liveness

import (
	"github.com/jmcleod/facelock/face"
)

// Engine accumulates liveness evidence for a single authentication attempt.
// It is not safe for concurrent use and must not outlive the attempt: create
// one Engine per attempt and discard it with its evidence after the verdict.
type Engine struct {
	cfg        Config
	classifier TextureClassifier
	blink      *blinkDetector
	ev         Evidence
}

// NewEngine creates an engine with the given thresholds. A nil classifier
// falls back to the heuristic texture model.
func NewEngine(cfg Config, classifier TextureClassifier) *Engine {
	if classifier == nil {
		classifier = HeuristicClassifier{}
	}
	return &Engine{
		cfg:        cfg,
		classifier: classifier,
		blink:      newBlinkDetector(cfg),
	}
}

// Observe feeds one frame's detection into all three signals. Collection
// never short-circuits: even a frame that already decides one signal still
// contributes to the others, so registration capture gets full diagnostics.
func (e *Engine) Observe(frame face.Frame, det face.Detection) {
	lm := det.Landmarks

	if len(lm.LeftEye) == face.EyePoints && len(lm.RightEye) == face.EyePoints {
		ear := (EyeAspectRatio(lm.LeftEye) + EyeAspectRatio(lm.RightEye)) / 2
		e.ev.EARSamples = append(e.ev.EARSamples, EARSample{EAR: ear, At: frame.Timestamp})
		if e.blink.observe(ear) {
			e.ev.Blinks++
		}
	}

	if pose, ok := EstimatePose(frame.Width, frame.Height, lm); ok {
		e.ev.PoseSamples = append(e.ev.PoseSamples, PoseSample{
			Pitch: pose.Pitch, Yaw: pose.Yaw, Roll: pose.Roll, At: frame.Timestamp,
		})
	}

	if features := ExtractTextureFeatures(frame, det.Box); features != nil {
		live, conf := e.classifier.Classify(features)
		e.ev.TextureVotes = append(e.ev.TextureVotes, TextureVote{
			Live: live, Confidence: conf, At: frame.Timestamp,
		})
	}
}

// Evidence returns the accumulator collected so far.
func (e *Engine) Evidence() *Evidence {
	return &e.ev
}

// Verdict computes the aggregate result. Signals with no samples fail: a
// liveness proof must be affirmative, never a default.
func (e *Engine) Verdict() Result {
	return e.ev.Verdict(e.cfg)
}

// Verdict evaluates the evidence against the thresholds.
func (ev *Evidence) Verdict(cfg Config) Result {
	var res Result

	res.Blink = SignalResult{
		Passed:  ev.Blinks >= 1,
		Metric:  float64(ev.Blinks),
		Samples: len(ev.EARSamples),
	}

	delta := maxPairwiseDelta(ev.PoseSamples)
	res.Pose = SignalResult{
		Passed:  delta > cfg.PoseDeltaDegrees,
		Metric:  delta,
		Samples: len(ev.PoseSamples),
	}

	liveVotes, spoofVotes := 0, 0
	for _, v := range ev.TextureVotes {
		if v.Live && v.Confidence > cfg.TextureThreshold {
			liveVotes++
		} else {
			spoofVotes++
		}
	}
	// Ties fail: equal votes are not an affirmative proof.
	res.Texture = SignalResult{
		Passed:  liveVotes > spoofVotes,
		Metric:  float64(liveVotes),
		Samples: len(ev.TextureVotes),
	}

	for _, s := range []struct {
		sig Signal
		r   SignalResult
	}{
		{SignalBlink, res.Blink},
		{SignalPose, res.Pose},
		{SignalTexture, res.Texture},
	} {
		if !s.r.Passed {
			res.Failed = append(res.Failed, s.sig)
		}
	}
	res.Live = len(res.Failed) == 0
	return res
}
