package ai

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"farmwatch/internal/config"
	"farmwatch/internal/logger"
	"farmwatch/internal/model"
	"farmwatch/internal/services/ai/yolo"
	"farmwatch/internal/services/capture"
)

// ONNXDetector runs YOLOv8 through ONNX Runtime.
type ONNXDetector struct {
	session      *ort.AdvancedSession
	input        *ort.Tensor[float32]
	output       *ort.Tensor[float32]
	labels       []string
	inputSize    int
	nmsThreshold float64
	logger       *logger.Logger
	mu           sync.Mutex
}

func NewONNXDetector(cfg *config.Config, labels []string, logger *logger.Logger) (*ONNXDetector, error) {
	ort.SetSharedLibraryPath(cfg.ONNXRuntimeLib)
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(runtime.NumCPU())
	options.SetInterOpNumThreads(1)

	size := int64(cfg.ModelInputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, int64(4+len(labels)), int64(yolo.Anchors(cfg.ModelInputSize)))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	logger.Info("Detection network initialized successfully (onnxruntime, %d classes)", len(labels))
	return &ONNXDetector{
		session:      session,
		input:        inputTensor,
		output:       outputTensor,
		labels:       labels,
		inputSize:    cfg.ModelInputSize,
		nmsThreshold: cfg.NMSThreshold,
		logger:       logger,
	}, nil
}

func (d *ONNXDetector) Detect(ctx context.Context, img model.Image) ([]model.Detection, error) {
	frame, ok := img.(capture.MatImage)
	if !ok {
		return nil, fmt.Errorf("unsupported frame type %T", img)
	}
	mat := frame.Mat()
	if mat.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}

	pic, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := yolo.Preprocess(pic, d.inputSize, d.input.GetData()); err != nil {
		return nil, fmt.Errorf("prepare input buffer: %w", err)
	}
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}

	bounds := pic.Bounds()
	detections, err := yolo.Decode(d.output.GetData(), d.labels, yolo.Params{
		InputWidth:   d.inputSize,
		InputHeight:  d.inputSize,
		ImageWidth:   bounds.Dx(),
		ImageHeight:  bounds.Dy(),
		MinScore:     yolo.MinScore,
		NMSThreshold: d.nmsThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("process predictions: %w", err)
	}

	for _, det := range detections {
		d.logger.Debug("Detected %s (%.2f) at %v", det.Label, det.Confidence, det.Box.Rect())
	}
	return detections, nil
}

func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session != nil {
		d.session.Destroy()
	}
	if d.input != nil {
		d.input.Destroy()
	}
	if d.output != nil {
		d.output.Destroy()
	}
	return ort.DestroyEnvironment()
}
