package face

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// captureFile is the on-disk form of a recorded frame sequence, as written by
// the capture tooling. Pixels are base64 in the JSON encoding.
type captureFile struct {
	Frames []captureFrame `json:"frames"`
}

type captureFrame struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Pixels      []byte `json:"pixels"`
	TimestampMs int64  `json:"timestamp_ms"`
}

// ReadCapture decodes a recorded frame sequence.
func ReadCapture(r io.Reader) ([]Frame, error) {
	var cf captureFile
	if err := json.NewDecoder(r).Decode(&cf); err != nil {
		return nil, fmt.Errorf("decoding capture: %w", err)
	}
	frames := make([]Frame, len(cf.Frames))
	for i, f := range cf.Frames {
		if f.Width <= 0 || f.Height <= 0 || len(f.Pixels) != f.Width*f.Height {
			return nil, fmt.Errorf("capture frame %d: %dx%d does not match %d pixel bytes", i, f.Width, f.Height, len(f.Pixels))
		}
		frames[i] = Frame{
			Width:     f.Width,
			Height:    f.Height,
			Pixels:    f.Pixels,
			Timestamp: time.UnixMilli(f.TimestampMs),
		}
	}
	return frames, nil
}

// LoadCapture reads a recorded frame sequence from path.
func LoadCapture(path string) ([]Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening capture file: %w", err)
	}
	defer f.Close()
	return ReadCapture(f)
}
