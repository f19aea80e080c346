package liveness

import (
	"math"

	"github.com/jmcleod/facelock/face"
)

// faceModel is the canonical 3-D face model, in millimetres, nose tip at the
// origin: nose tip, chin, left eye outer corner, right eye outer corner,
// left mouth corner, right mouth corner.
var faceModel = [6][3]float64{
	{0, 0, 0},
	{0, -330, -65},
	{-225, 170, -135},
	{225, 170, -135},
	{-150, -150, -125},
	{150, -150, -125},
}

const (
	poseIterations  = 60
	poseInitialZ    = 1000
	poseMaxResidual = 8 // mean reprojection error, pixels
)

// Pose is a head orientation in degrees.
type Pose struct {
	Pitch, Yaw, Roll float64
}

// EstimatePose solves a perspective-n-point problem mapping the canonical
// face model onto the detected 2-D landmarks, using a pinhole camera with
// focal length equal to the frame width. It reports ok=false when the
// landmarks are incomplete or the solver does not converge.
func EstimatePose(frameWidth, frameHeight int, lm face.Landmarks) (Pose, bool) {
	if len(lm.LeftEye) != face.EyePoints || len(lm.RightEye) != face.EyePoints {
		return Pose{}, false
	}
	if frameWidth <= 0 || frameHeight <= 0 {
		return Pose{}, false
	}

	observed := [6]face.Point{
		lm.NoseTip,
		lm.Chin,
		lm.LeftEye[0],
		lm.RightEye[3],
		lm.MouthLeft,
		lm.MouthRight,
	}

	cam := camera{
		focal: float64(frameWidth),
		cx:    float64(frameWidth) / 2,
		cy:    float64(frameHeight) / 2,
	}

	// Parameters: pitch, yaw, roll (radians), tx, ty, tz (mm).
	params := [6]float64{0, 0, 0, 0, 0, poseInitialZ}

	for iter := 0; iter < poseIterations; iter++ {
		residual, ok := reprojectionResidual(params, observed, cam)
		if !ok {
			return Pose{}, false
		}

		var jac [12][6]float64
		steps := [6]float64{1e-4, 1e-4, 1e-4, 1e-1, 1e-1, 1e-1}
		for p := 0; p < 6; p++ {
			plus, minus := params, params
			plus[p] += steps[p]
			minus[p] -= steps[p]
			rp, okP := reprojectionResidual(plus, observed, cam)
			rm, okM := reprojectionResidual(minus, observed, cam)
			if !okP || !okM {
				return Pose{}, false
			}
			for i := 0; i < 12; i++ {
				jac[i][p] = (rp[i] - rm[i]) / (2 * steps[p])
			}
		}

		// Damped normal equations: (JᵀJ + λI) δ = Jᵀr.
		var jtj [6][6]float64
		var jtr [6]float64
		for i := 0; i < 12; i++ {
			for a := 0; a < 6; a++ {
				jtr[a] += jac[i][a] * residual[i]
				for b := 0; b < 6; b++ {
					jtj[a][b] += jac[i][a] * jac[i][b]
				}
			}
		}
		for a := 0; a < 6; a++ {
			jtj[a][a] += 1e-6 * (1 + jtj[a][a])
		}

		delta, ok := solve6(jtj, jtr)
		if !ok {
			return Pose{}, false
		}

		var norm float64
		for p := 0; p < 6; p++ {
			params[p] -= delta[p]
			norm += delta[p] * delta[p]
		}
		if norm < 1e-12 {
			break
		}
	}

	final, ok := reprojectionResidual(params, observed, cam)
	if !ok {
		return Pose{}, false
	}
	var errSum float64
	for _, r := range final {
		errSum += math.Abs(r)
	}
	if errSum/12 > poseMaxResidual {
		return Pose{}, false
	}

	return Pose{
		Pitch: params[0] * 180 / math.Pi,
		Yaw:   params[1] * 180 / math.Pi,
		Roll:  params[2] * 180 / math.Pi,
	}, true
}

type camera struct {
	focal, cx, cy float64
}

// projectModel projects the canonical model under the given parameters.
func projectModel(params [6]float64, cam camera) ([6]face.Point, bool) {
	pitch, yaw, roll := params[0], params[1], params[2]
	tx, ty, tz := params[3], params[4], params[5]

	sp, cp := math.Sin(pitch), math.Cos(pitch)
	sy, cy := math.Sin(yaw), math.Cos(yaw)
	sr, cr := math.Sin(roll), math.Cos(roll)

	var out [6]face.Point
	for i, m := range faceModel {
		// Rx(pitch)
		x, y, z := m[0], m[1]*cp-m[2]*sp, m[1]*sp+m[2]*cp
		// Ry(yaw)
		x, z = x*cy+z*sy, -x*sy+z*cy
		// Rz(roll)
		x, y = x*cr-y*sr, x*sr+y*cr

		x, y, z = x+tx, y+ty, z+tz
		if z < 1 {
			return out, false
		}
		out[i] = face.Point{
			X: cam.cx + cam.focal*x/z,
			Y: cam.cy - cam.focal*y/z,
		}
	}
	return out, true
}

func reprojectionResidual(params [6]float64, observed [6]face.Point, cam camera) ([12]float64, bool) {
	var res [12]float64
	projected, ok := projectModel(params, cam)
	if !ok {
		return res, false
	}
	for i := 0; i < 6; i++ {
		res[2*i] = projected[i].X - observed[i].X
		res[2*i+1] = projected[i].Y - observed[i].Y
	}
	return res, true
}

// solve6 solves a 6×6 linear system with partial pivoting.
func solve6(a [6][6]float64, b [6]float64) ([6]float64, bool) {
	for col := 0; col < 6; col++ {
		pivot := col
		for row := col + 1; row < 6; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return b, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for row := col + 1; row < 6; row++ {
			f := a[row][col] / a[col][col]
			for k := col; k < 6; k++ {
				a[row][k] -= f * a[col][k]
			}
			b[row] -= f * b[col]
		}
	}
	var x [6]float64
	for row := 5; row >= 0; row-- {
		sum := b[row]
		for k := row + 1; k < 6; k++ {
			sum -= a[row][k] * x[k]
		}
		x[row] = sum / a[row][row]
	}
	return x, true
}

// maxPairwiseDelta returns the largest pairwise angular difference across the
// samples on any single axis.
func maxPairwiseDelta(samples []PoseSample) float64 {
	if len(samples) < 2 {
		return 0
	}
	minP, maxP := samples[0].Pitch, samples[0].Pitch
	minY, maxY := samples[0].Yaw, samples[0].Yaw
	minR, maxR := samples[0].Roll, samples[0].Roll
	for _, s := range samples[1:] {
		minP, maxP = math.Min(minP, s.Pitch), math.Max(maxP, s.Pitch)
		minY, maxY = math.Min(minY, s.Yaw), math.Max(maxY, s.Yaw)
		minR, maxR = math.Min(minR, s.Roll), math.Max(maxR, s.Roll)
	}
	return math.Max(maxP-minP, math.Max(maxY-minY, maxR-minR))
}
