package capture

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"farmwatch/internal/config"
	"farmwatch/internal/logger"
	"farmwatch/internal/model"
)

// MatImage is a frame backed by an OpenCV matrix.
type MatImage interface {
	model.Image
	Mat() *gocv.Mat
}

// Frame is a BGR frame read from the camera.
type Frame struct {
	mat gocv.Mat
}

// NewFrame wraps mat. The frame takes ownership of it.
func NewFrame(mat gocv.Mat) *Frame {
	return &Frame{mat: mat}
}

func (f *Frame) Mat() *gocv.Mat {
	return &f.mat
}

func (f *Frame) Close() error {
	return f.mat.Close()
}

// Camera reads frames on its own goroutine. For live sources only the most
// recent frame is kept so that slow inference never works on stale video.
type Camera struct {
	capture *gocv.VideoCapture
	source  interface{}
	live    bool
	logger  *logger.Logger

	frames chan *Frame
	done   chan struct{}
	wg     sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeOnce sync.Once
}

// Open starts reading from VIDEO_SOURCE, or from DEVICE_INDEX when no source is set.
func Open(cfg *config.Config, logger *logger.Logger) (*Camera, error) {
	source, live := Source(cfg)

	capture, err := gocv.OpenVideoCapture(source)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open video source %v: %v", model.ErrCaptureFailure, source, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: video source %v is not opened", model.ErrCaptureFailure, source)
	}

	c := &Camera{
		capture: capture,
		source:  source,
		live:    live,
		logger:  logger,
		frames:  make(chan *Frame, 1),
		done:    make(chan struct{}),
	}

	c.wg.Add(1)
	go c.readLoop()

	logger.Info("📷 Camera opened: %v", source)
	return c, nil
}

// Source picks the capture argument from the configuration and reports
// whether it is a live feed.
func Source(cfg *config.Config) (interface{}, bool) {
	if cfg.VideoSource == "" {
		return cfg.DeviceIndex, true
	}
	for _, scheme := range []string{"rtsp://", "rtmp://", "http://", "https://", "udp://"} {
		if strings.HasPrefix(strings.ToLower(cfg.VideoSource), scheme) {
			return cfg.VideoSource, true
		}
	}
	return cfg.VideoSource, false
}

func (c *Camera) readLoop() {
	defer c.wg.Done()
	defer close(c.frames)

	for {
		select {
		case <-c.done:
			return
		default:
		}

		mat := gocv.NewMat()
		if ok := c.capture.Read(&mat); !ok || mat.Empty() {
			mat.Close()
			c.setErr(fmt.Errorf("%w: no frame from %v", model.ErrCaptureFailure, c.source))
			return
		}
		frame := NewFrame(mat)

		if c.live {
			select {
			case stale := <-c.frames:
				stale.Close()
			default:
			}
		}

		select {
		case c.frames <- frame:
		case <-c.done:
			frame.Close()
			return
		}
	}
}

// Grab returns the next frame. The caller owns it and must close it.
func (c *Camera) Grab(ctx context.Context) (model.Image, error) {
	select {
	case frame, ok := <-c.frames:
		if !ok {
			return nil, c.failure()
		}
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Camera) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	c.err = err
}

func (c *Camera) failure() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		return fmt.Errorf("%w: camera closed", model.ErrCaptureFailure)
	}
	return c.err
}

// Close stops the reader and releases the device.
func (c *Camera) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
		for frame := range c.frames {
			frame.Close()
		}
		err = c.capture.Close()
		c.logger.Info("📷 Camera released")
	})
	return err
}
