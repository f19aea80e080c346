package liveness

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/jmcleod/facelock/face"
)

const (
	lbpCropSize = 64
	lbpGrid     = 4
	lbpBins     = 59 // 58 uniform patterns + 1 catch-all
)

// FeatureSize is the length of the texture feature vector: one uniform-LBP
// histogram per grid cell, concatenated.
const FeatureSize = lbpGrid * lbpGrid * lbpBins

// lbpNeighbors are the 8-neighbourhood offsets at radius 1, in bit order
// p=0..7.
var lbpNeighbors = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0},
}

// uniformMap maps each 8-bit LBP code to its histogram bin. Codes with at
// most two 0/1 transitions get their own bin; the rest share the last one.
var uniformMap = buildUniformMap()

func buildUniformMap() [256]int {
	var m [256]int
	next := 0
	for code := 0; code < 256; code++ {
		transitions := 0
		for bit := 0; bit < 8; bit++ {
			a := (code >> bit) & 1
			b := (code >> ((bit + 1) % 8)) & 1
			if a != b {
				transitions++
			}
		}
		if transitions <= 2 {
			m[code] = next
			next++
		} else {
			m[code] = lbpBins - 1
		}
	}
	return m
}

// TextureClassifier labels a texture feature vector as live or spoof,
// reporting the confidence of the predicted label.
type TextureClassifier interface {
	Classify(features []float64) (live bool, confidence float64)
}

// ExtractTextureFeatures crops the face region, normalizes it to a 64×64
// patch, and returns the concatenated per-cell uniform-LBP histograms.
// Returns nil when the box has no area.
func ExtractTextureFeatures(frame face.Frame, box face.Box) []float64 {
	w := box.Right - box.Left
	h := box.Bottom - box.Top
	if w <= 0 || h <= 0 || frame.Width <= 0 || frame.Height <= 0 {
		return nil
	}

	// Nearest-neighbour resample of the crop into the normalized patch.
	var patch [lbpCropSize][lbpCropSize]byte
	for py := 0; py < lbpCropSize; py++ {
		for px := 0; px < lbpCropSize; px++ {
			sx := box.Left + px*w/lbpCropSize
			sy := box.Top + py*h/lbpCropSize
			patch[py][px] = frame.At(sx, sy)
		}
	}

	features := make([]float64, FeatureSize)
	cell := lbpCropSize / lbpGrid
	for py := 1; py < lbpCropSize-1; py++ {
		for px := 1; px < lbpCropSize-1; px++ {
			center := patch[py][px]
			code := 0
			for p, off := range lbpNeighbors {
				if patch[py+off[1]][px+off[0]] >= center {
					code |= 1 << p
				}
			}
			cellIdx := (py/cell)*lbpGrid + px/cell
			features[cellIdx*lbpBins+uniformMap[code]]++
		}
	}

	// Normalize each cell histogram to a distribution.
	for c := 0; c < lbpGrid*lbpGrid; c++ {
		var sum float64
		for b := 0; b < lbpBins; b++ {
			sum += features[c*lbpBins+b]
		}
		if sum == 0 {
			continue
		}
		for b := 0; b < lbpBins; b++ {
			features[c*lbpBins+b] /= sum
		}
	}
	return features
}

// HeuristicClassifier scores texture richness without a trained model.
// Printed photos and screens are over-smooth: their LBP histograms collapse
// into few uniform patterns with low entropy, while live skin spreads mass
// across bins and into non-uniform codes.
type HeuristicClassifier struct{}

var _ TextureClassifier = HeuristicClassifier{}

func (HeuristicClassifier) Classify(features []float64) (bool, float64) {
	if len(features) != FeatureSize {
		return false, 1
	}

	var entropySum, nonUniform float64
	for c := 0; c < lbpGrid*lbpGrid; c++ {
		for b := 0; b < lbpBins; b++ {
			p := features[c*lbpBins+b]
			if p > 0 {
				entropySum += -p * math.Log2(p)
			}
		}
		nonUniform += features[c*lbpBins+lbpBins-1]
	}
	meanEntropy := entropySum / (lbpGrid * lbpGrid)
	nonUniform /= lbpGrid * lbpGrid

	score := 0.5*math.Min(1, meanEntropy/3.0) + 0.5*nonUniform
	if score >= 0.5 {
		return true, score
	}
	return false, 1 - score
}

// LinearClassifier is a trained linear model over the texture features, the
// drop-in replacement for the heuristic once real spoof data has been
// collected.
type LinearClassifier struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

var _ TextureClassifier = (*LinearClassifier)(nil)

// LoadLinearClassifier reads model weights from a JSON file.
func LoadLinearClassifier(path string) (*LinearClassifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading texture model: %w", err)
	}
	var c LinearClassifier
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing texture model: %w", err)
	}
	if len(c.Weights) != FeatureSize {
		return nil, fmt.Errorf("texture model has %d weights, want %d", len(c.Weights), FeatureSize)
	}
	return &c, nil
}

func (c *LinearClassifier) Classify(features []float64) (bool, float64) {
	if len(features) != len(c.Weights) {
		return false, 1
	}
	z := c.Bias
	for i, w := range c.Weights {
		z += w * features[i]
	}
	p := 1 / (1 + math.Exp(-z))
	if p >= 0.5 {
		return true, p
	}
	return false, 1 - p
}
