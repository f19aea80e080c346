package liveness

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/facelock/face"
)

const (
	testFrameW = 640
	testFrameH = 480
)

// landmarksAt projects the canonical model at the given head orientation and
// assembles the landmark groups the solver consumes. The non-corner eye
// contour points are filler: the solver only reads the corners.
func landmarksAt(t *testing.T, pitchDeg, yawDeg, rollDeg float64) face.Landmarks {
	t.Helper()
	params := [6]float64{
		pitchDeg * math.Pi / 180,
		yawDeg * math.Pi / 180,
		rollDeg * math.Pi / 180,
		0, 0, poseInitialZ,
	}
	cam := camera{focal: testFrameW, cx: testFrameW / 2, cy: testFrameH / 2}
	pts, ok := projectModel(params, cam)
	require.True(t, ok)

	eyeAround := func(corner face.Point, cornerIdx int) []face.Point {
		eye := make([]face.Point, face.EyePoints)
		for i := range eye {
			eye[i] = face.Point{X: corner.X + float64(i), Y: corner.Y + float64(i%2)}
		}
		eye[cornerIdx] = corner
		return eye
	}

	return face.Landmarks{
		NoseTip:    pts[0],
		Chin:       pts[1],
		LeftEye:    eyeAround(pts[2], 0),
		RightEye:   eyeAround(pts[3], 3),
		MouthLeft:  pts[4],
		MouthRight: pts[5],
	}
}

func TestEstimatePose_RecoversYaw(t *testing.T) {
	for _, yaw := range []float64{-20, -10, 0, 10, 20} {
		lm := landmarksAt(t, 0, yaw, 0)
		pose, ok := EstimatePose(testFrameW, testFrameH, lm)
		require.True(t, ok, "solver must converge at yaw=%v", yaw)
		assert.InDelta(t, yaw, pose.Yaw, 1.0, "yaw=%v", yaw)
	}
}

func TestEstimatePose_RecoversPitch(t *testing.T) {
	lm := landmarksAt(t, 12, 0, 0)
	pose, ok := EstimatePose(testFrameW, testFrameH, lm)
	require.True(t, ok)
	assert.InDelta(t, 12, pose.Pitch, 1.5)
}

func TestEstimatePose_IncompleteLandmarks(t *testing.T) {
	lm := landmarksAt(t, 0, 0, 0)
	lm.LeftEye = lm.LeftEye[:2]
	_, ok := EstimatePose(testFrameW, testFrameH, lm)
	assert.False(t, ok)
}

func TestPoseDelta_InjectedYawPasses(t *testing.T) {
	cfg := DefaultConfig()

	a, ok := EstimatePose(testFrameW, testFrameH, landmarksAt(t, 0, -10, 0))
	require.True(t, ok)
	b, ok := EstimatePose(testFrameW, testFrameH, landmarksAt(t, 0, 10, 0))
	require.True(t, ok)

	delta := maxPairwiseDelta([]PoseSample{
		{Pitch: a.Pitch, Yaw: a.Yaw, Roll: a.Roll},
		{Pitch: b.Pitch, Yaw: b.Yaw, Roll: b.Roll},
	})
	assert.Greater(t, delta, cfg.PoseDeltaDegrees)
}

func TestPoseDelta_StaticHeadFails(t *testing.T) {
	cfg := DefaultConfig()

	a, ok := EstimatePose(testFrameW, testFrameH, landmarksAt(t, 0, 0, 0))
	require.True(t, ok)
	b, ok := EstimatePose(testFrameW, testFrameH, landmarksAt(t, 0, 3, 0))
	require.True(t, ok)

	delta := maxPairwiseDelta([]PoseSample{
		{Pitch: a.Pitch, Yaw: a.Yaw, Roll: a.Roll},
		{Pitch: b.Pitch, Yaw: b.Yaw, Roll: b.Roll},
	})
	assert.Less(t, delta, cfg.PoseDeltaDegrees)
}

func TestMaxPairwiseDelta_FewSamples(t *testing.T) {
	assert.Zero(t, maxPairwiseDelta(nil))
	assert.Zero(t, maxPairwiseDelta([]PoseSample{{Yaw: 30}}))
}
