package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"farmwatch/internal/logger"
	"farmwatch/internal/metrics"
	"farmwatch/internal/model"
	"farmwatch/internal/services/aggregator"
	"farmwatch/internal/services/classifier"
	"farmwatch/internal/services/scheduler"
)

// Camera grabs the next frame. It fails with model.ErrCaptureFailure when
// the device is gone or the stream has ended.
type Camera interface {
	Grab(ctx context.Context) (model.Image, error)
}

// Detector runs the object-detection model on a frame.
type Detector interface {
	Detect(ctx context.Context, img model.Image) ([]model.Detection, error)
}

// Publisher pushes a summary to an external sink.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, summary model.FrameSummary) error
}

// Renderer encodes a frame as JPEG, drawing detections and the summary when given.
type Renderer interface {
	Render(img model.Image, detections []model.Detection, summary *model.FrameSummary) ([]byte, error)
}

// Viewer receives every rendered frame. Summary is nil for preview frames.
// Implementations must not block.
type Viewer interface {
	Show(frame []byte, summary *model.FrameSummary)
}

type ManagerOptions struct {
	Camera    Camera
	Detector  Detector
	Renderer  Renderer // optional
	Publisher Publisher
	Viewers   []Viewer

	Table               *classifier.Table
	ConfidenceThreshold float64
	MinIntervalMs       int64
	CaptureTimeout      time.Duration
	PublishTimeout      time.Duration

	Clock   func() time.Time // defaults to time.Now
	Metrics *metrics.Metrics
	Logger  *logger.Logger
}

// Status is a point-in-time view of the frame loop.
type Status struct {
	Phase         string              `json:"phase"`
	LastUpdateMs  int64               `json:"last_update_ms"`
	MinIntervalMs int64               `json:"min_interval_ms"`
	Summary       *model.FrameSummary `json:"summary"`
}

// Manager runs the grab, detect, aggregate, publish and render loop.
type Manager struct {
	camera    Camera
	detector  Detector
	renderer  Renderer
	publisher Publisher
	viewers   []Viewer

	table          *classifier.Table
	threshold      float64
	gate           *scheduler.Gate
	captureTimeout time.Duration
	publishTimeout time.Duration
	clock          func() time.Time

	metrics *metrics.Metrics
	logger  *logger.Logger

	latestMu sync.RWMutex
	latest   *model.FrameSummary
}

func NewManager(opts ManagerOptions) *Manager {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	table := opts.Table
	if table == nil {
		table = classifier.DefaultTable()
	}
	captureTimeout := opts.CaptureTimeout
	if captureTimeout <= 0 {
		captureTimeout = 5 * time.Second
	}
	publishTimeout := opts.PublishTimeout
	if publishTimeout <= 0 {
		publishTimeout = 3 * time.Second
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	return &Manager{
		camera:         opts.Camera,
		detector:       opts.Detector,
		renderer:       opts.Renderer,
		publisher:      opts.Publisher,
		viewers:        opts.Viewers,
		table:          table,
		threshold:      opts.ConfidenceThreshold,
		gate:           scheduler.NewGate(opts.MinIntervalMs, clock().UnixMilli()),
		captureTimeout: captureTimeout,
		publishTimeout: publishTimeout,
		clock:          clock,
		metrics:        m,
		logger:         log,
	}
}

// Run pulls frames until ctx is cancelled, the operator stops the loop, or the
// camera fails. Only a capture failure is returned as an error.
func (m *Manager) Run(ctx context.Context) error {
	m.logger.Info("🎬 Manager started - processing a frame every %d ms (confidence >= %.2f)",
		m.gate.MinIntervalMs(), m.threshold)

	for {
		if ctx.Err() != nil {
			m.logger.Info("🛑 Manager stopped")
			return nil
		}

		img, err := m.grab(ctx)
		if err != nil {
			if ctx.Err() != nil {
				m.logger.Info("🛑 Manager stopped")
				return nil
			}
			m.metrics.CaptureFailures.Add(1)
			m.logger.Error("Camera failure, stopping: %v", err)
			return err
		}

		err = m.HandleFrame(ctx, img)
		img.Close()

		if errors.Is(err, model.ErrStopRequested) {
			m.logger.Info("🛑 Stop requested from the display window")
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (m *Manager) grab(ctx context.Context) (model.Image, error) {
	grabCtx, cancel := context.WithTimeout(ctx, m.captureTimeout)
	defer cancel()

	img, err := m.camera.Grab(grabCtx)
	if err != nil {
		if errors.Is(err, model.ErrCaptureFailure) || ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", model.ErrCaptureFailure, err)
	}
	return img, nil
}

// HandleFrame processes one grabbed frame. Frames arriving before the
// interval elapses are only rendered for the live preview. The caller keeps
// ownership of img.
func (m *Manager) HandleFrame(ctx context.Context, img model.Image) error {
	m.metrics.FramesGrabbed.Add(1)

	nowMs := m.clock().UnixMilli()
	if !m.gate.ShouldProcess(nowMs) {
		return m.present(img, nil, nil)
	}
	m.gate.MarkProcessed(nowMs)

	start := time.Now()
	detections, err := m.detector.Detect(ctx, img)
	if err != nil {
		m.metrics.DetectionErrors.Add(1)
		m.logger.Warning("Detection failed, skipping frame: %v", err)
		return m.present(img, nil, nil)
	}

	surviving := aggregator.Surviving(detections, m.threshold)
	summary := aggregator.Aggregate(detections, m.threshold, m.table, nowMs)
	m.metrics.ObserveFrame(summary, surviving, time.Since(start))
	m.setLatest(summary)

	m.publish(ctx, summary)

	return m.present(img, surviving, &summary)
}

// publish never fails the loop: errors are logged and counted per sink.
func (m *Manager) publish(ctx context.Context, summary model.FrameSummary) {
	if m.publisher == nil {
		return
	}

	publishCtx, cancel := context.WithTimeout(ctx, m.publishTimeout)
	defer cancel()

	m.metrics.SummaryPublished()
	err := m.publisher.Publish(publishCtx, summary)
	if err == nil {
		m.logger.Info("📤 Summary published: %s", describe(summary))
		return
	}

	for _, pe := range publishErrors(err, m.publisher.Name()) {
		m.metrics.PublishFailed(pe.Sink)
		m.logger.Error("Failed to publish summary: %v", pe)
	}
}

func (m *Manager) present(img model.Image, detections []model.Detection, summary *model.FrameSummary) error {
	if m.renderer == nil {
		return nil
	}

	frame, err := m.renderer.Render(img, detections, summary)
	if errors.Is(err, model.ErrStopRequested) {
		return err
	}
	if err != nil {
		m.metrics.RenderErrors.Add(1)
		m.logger.Error("Failed to render frame: %v", err)
		return nil
	}

	for _, v := range m.viewers {
		v.Show(frame, summary)
	}
	return nil
}

func (m *Manager) setLatest(summary model.FrameSummary) {
	m.latestMu.Lock()
	defer m.latestMu.Unlock()
	m.latest = &summary
}

// Latest returns the most recent summary, if any frame was processed yet.
func (m *Manager) Latest() (model.FrameSummary, bool) {
	m.latestMu.RLock()
	defer m.latestMu.RUnlock()
	if m.latest == nil {
		return model.FrameSummary{}, false
	}
	return *m.latest, true
}

// Status reports the gate phase and the latest summary.
func (m *Manager) Status() Status {
	nowMs := m.clock().UnixMilli()
	status := Status{
		Phase:         m.gate.Phase(nowMs).String(),
		LastUpdateMs:  m.gate.LastUpdateMs(),
		MinIntervalMs: m.gate.MinIntervalMs(),
	}
	if summary, ok := m.Latest(); ok {
		status.Summary = &summary
	}
	return status
}

// Table returns the category table the manager classifies with.
func (m *Manager) Table() *classifier.Table {
	return m.table
}

// publishErrors flattens err into per-sink errors.
func publishErrors(err error, fallbackSink string) []*model.PublishError {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*model.PublishError
		for _, e := range joined.Unwrap() {
			out = append(out, publishErrors(e, fallbackSink)...)
		}
		return out
	}

	var pe *model.PublishError
	if errors.As(err, &pe) {
		return []*model.PublishError{pe}
	}
	return []*model.PublishError{{Sink: fallbackSink, Err: err}}
}

func describe(summary model.FrameSummary) string {
	s := ""
	for _, kind := range summary.Kinds() {
		s += fmt.Sprintf("%s=%d ", kind, summary.Count(kind))
	}
	danger := "none"
	if label, ok := summary.DangerLabel(); ok {
		danger = label
	}
	return fmt.Sprintf("%swarning=%v danger=%s last_updated=%d",
		s, summary.HumanPresent(), danger, summary.TimestampMs())
}
