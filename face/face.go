// Package face defines the contracts toward the external capture and
// embedding collaborators: frames, detected faces with landmarks and
// embedding vectors, and the matcher over stored references.
//
// The detection/embedding capability itself is a black box. Any concrete
// implementation (a native binding, a sidecar process) satisfies Provider.
package face

import (
	"context"
	"time"
)

// Point is a 2-D landmark coordinate in frame pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is a face bounding box in frame pixel space.
type Box struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Landmarks are the named facial landmark groups the liveness engine
// consumes. LeftEye and RightEye carry the 6-point eye contour
// (p1..p6, outer corner first); the remaining points feed pose estimation.
type Landmarks struct {
	LeftEye    []Point `json:"left_eye"`
	RightEye   []Point `json:"right_eye"`
	NoseTip    Point   `json:"nose_tip"`
	Chin       Point   `json:"chin"`
	MouthLeft  Point   `json:"mouth_left"`
	MouthRight Point   `json:"mouth_right"`
}

// EyePoints is the number of landmarks per eye contour.
const EyePoints = 6

// Frame is a single captured grayscale image. Pixels is row-major, one byte
// per pixel.
type Frame struct {
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Pixels    []byte    `json:"pixels"`
	Timestamp time.Time `json:"timestamp"`
}

// At returns the pixel value at (x, y), clamped to the frame bounds.
func (f Frame) At(x, y int) byte {
	if x < 0 {
		x = 0
	} else if x >= f.Width {
		x = f.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= f.Height {
		y = f.Height - 1
	}
	return f.Pixels[y*f.Width+x]
}

// Detection is one detected face: its location, landmarks, and embedding
// vector.
type Detection struct {
	Box       Box       `json:"box"`
	Landmarks Landmarks `json:"landmarks"`
	Embedding []float64 `json:"embedding"`
}

// Provider is the external face detection/embedding capability. Zero
// detections is a valid result (no face in frame), not an error.
type Provider interface {
	Detect(ctx context.Context, frame Frame) ([]Detection, error)
}

// FrameStream is a finite, time-bounded, possibly-empty lazy sequence of
// frames supplied by the capture collaborator. Next returns io.EOF when the
// stream is exhausted.
type FrameStream interface {
	Next(ctx context.Context) (Frame, error)
}
