package ai

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"farmwatch/internal/config"
	"farmwatch/internal/logger"
	"farmwatch/internal/model"
	"farmwatch/internal/services/ai/yolo"
	"farmwatch/internal/services/capture"
)

// Detector is a model backend that can be released.
type Detector interface {
	Detect(ctx context.Context, img model.Image) ([]model.Detection, error)
	Close() error
}

// NewDetector loads the backend selected by MODEL_BACKEND.
func NewDetector(cfg *config.Config, logger *logger.Logger) (Detector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	labels, err := yolo.LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	if cfg.ModelBackend == config.BackendONNXRuntime {
		d, err := NewONNXDetector(cfg, labels, logger)
		if err != nil {
			return nil, err
		}
		return d, nil
	}

	d, err := NewOpenCVDetector(cfg, labels, logger)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// OpenCVDetector runs YOLOv8 through the OpenCV DNN module.
type OpenCVDetector struct {
	net          gocv.Net
	labels       []string
	inputSize    int
	nmsThreshold float64
	logger       *logger.Logger
	mu           sync.Mutex
}

func NewOpenCVDetector(cfg *config.Config, labels []string, logger *logger.Logger) (*OpenCVDetector, error) {
	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", cfg.ModelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	logger.Info("Detection network initialized successfully (opencv, %d classes)", len(labels))
	return &OpenCVDetector{
		net:          net,
		labels:       labels,
		inputSize:    cfg.ModelInputSize,
		nmsThreshold: cfg.NMSThreshold,
		logger:       logger,
	}, nil
}

func (d *OpenCVDetector) Detect(ctx context.Context, img model.Image) ([]model.Detection, error) {
	frame, ok := img.(capture.MatImage)
	if !ok {
		return nil, fmt.Errorf("unsupported frame type %T", img)
	}
	mat := frame.Mat()
	if mat.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	blob := gocv.BlobFromImage(*mat, 1.0/255.0, image.Pt(d.inputSize, d.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %w", err)
	}

	detections, err := yolo.Decode(data, d.labels, yolo.Params{
		InputWidth:   d.inputSize,
		InputHeight:  d.inputSize,
		ImageWidth:   mat.Cols(),
		ImageHeight:  mat.Rows(),
		MinScore:     yolo.MinScore,
		NMSThreshold: d.nmsThreshold,
	})
	if err != nil {
		return nil, err
	}

	for _, det := range detections {
		d.logger.Debug("Detected %s (%.2f) at %v", det.Label, det.Confidence, det.Box.Rect())
	}
	return detections, nil
}

func (d *OpenCVDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
