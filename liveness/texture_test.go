package liveness

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/facelock/face"
)

// noiseFrame fills a frame with deterministic pseudo-random texture,
// approximating the micro-structure of live skin under sensor noise.
func noiseFrame(w, h int) face.Frame {
	pixels := make([]byte, w*h)
	state := uint32(0x1234567)
	for i := range pixels {
		state = state*1664525 + 1013904223
		pixels[i] = byte(state >> 24)
	}
	return face.Frame{Width: w, Height: h, Pixels: pixels}
}

func flatFrame(w, h int, v byte) face.Frame {
	pixels := make([]byte, w*h)
	for i := range pixels {
		pixels[i] = v
	}
	return face.Frame{Width: w, Height: h, Pixels: pixels}
}

func fullBox(f face.Frame) face.Box {
	return face.Box{Top: 0, Left: 0, Right: f.Width, Bottom: f.Height}
}

func TestExtractTextureFeatures(t *testing.T) {
	f := noiseFrame(80, 80)
	features := ExtractTextureFeatures(f, fullBox(f))
	require.Len(t, features, FeatureSize)

	// Each populated cell histogram is a distribution.
	var sum float64
	for _, v := range features[:lbpBins] {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestExtractTextureFeatures_EmptyBox(t *testing.T) {
	f := noiseFrame(80, 80)
	assert.Nil(t, ExtractTextureFeatures(f, face.Box{}))
	assert.Nil(t, ExtractTextureFeatures(f, face.Box{Left: 10, Right: 10, Top: 0, Bottom: 10}))
}

func TestHeuristicClassifier_NoiseIsLive(t *testing.T) {
	f := noiseFrame(80, 80)
	features := ExtractTextureFeatures(f, fullBox(f))

	live, conf := HeuristicClassifier{}.Classify(features)
	assert.True(t, live)
	assert.Greater(t, conf, DefaultConfig().TextureThreshold)
}

func TestHeuristicClassifier_FlatIsSpoof(t *testing.T) {
	f := flatFrame(80, 80, 128)
	features := ExtractTextureFeatures(f, fullBox(f))

	live, conf := HeuristicClassifier{}.Classify(features)
	assert.False(t, live)
	assert.Greater(t, conf, 0.9)
}

func TestHeuristicClassifier_BadFeatureLength(t *testing.T) {
	live, _ := HeuristicClassifier{}.Classify(make([]float64, 3))
	assert.False(t, live)
}

func TestLinearClassifier_LoadAndClassify(t *testing.T) {
	weights := make([]float64, FeatureSize)
	// Weight only the catch-all bins: live texture carries non-uniform mass.
	for c := 0; c < lbpGrid*lbpGrid; c++ {
		weights[c*lbpBins+lbpBins-1] = 10
	}
	model := LinearClassifier{Weights: weights, Bias: -2}

	path := filepath.Join(t.TempDir(), "lbp_model.json")
	data, err := json.Marshal(model)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := LoadLinearClassifier(path)
	require.NoError(t, err)

	noise := ExtractTextureFeatures(noiseFrame(80, 80), fullBox(noiseFrame(80, 80)))
	live, conf := loaded.Classify(noise)
	assert.True(t, live)
	assert.Greater(t, conf, 0.5)

	flat := ExtractTextureFeatures(flatFrame(80, 80, 100), fullBox(flatFrame(80, 80, 100)))
	live, _ = loaded.Classify(flat)
	assert.False(t, live)
}

func TestLoadLinearClassifier_WrongSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lbp_model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"weights":[1,2],"bias":0}`), 0o600))

	_, err := LoadLinearClassifier(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights")
}
