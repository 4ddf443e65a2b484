package stream

import (
	"net/http"
	"sync/atomic"

	"github.com/hybridgroup/mjpeg"

	"farmwatch/internal/model"
)

// MJPEG serves the latest rendered frame as a multipart JPEG stream, so the
// feed can be embedded with a plain <img> tag.
type MJPEG struct {
	stream *mjpeg.Stream
	frames atomic.Int64
}

func NewMJPEG() *MJPEG {
	return &MJPEG{stream: mjpeg.NewStream()}
}

// Show pushes every frame, previews included.
func (m *MJPEG) Show(frame []byte, _ *model.FrameSummary) {
	if len(frame) == 0 {
		return
	}
	m.stream.UpdateJPEG(frame)
	m.frames.Add(1)
}

// Frames returns how many frames were pushed to the stream.
func (m *MJPEG) Frames() int64 {
	return m.frames.Load()
}

func (m *MJPEG) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.stream.ServeHTTP(w, r)
}
