package face

import (
	"context"
	"io"
)

// SliceStream is a FrameStream over a pre-captured set of frames. Used for
// capture-file replays and tests.
type SliceStream struct {
	frames []Frame
	next   int
}

var _ FrameStream = (*SliceStream)(nil)

// NewSliceStream returns a stream yielding the given frames in order.
func NewSliceStream(frames []Frame) *SliceStream {
	return &SliceStream{frames: frames}
}

func (s *SliceStream) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.next >= len(s.frames) {
		return Frame{}, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}
