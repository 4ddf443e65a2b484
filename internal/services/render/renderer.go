package render

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"farmwatch/internal/model"
	"farmwatch/internal/services/capture"
	"farmwatch/internal/services/classifier"
	"farmwatch/internal/services/render/overlay"
)

const WindowTitle = "Farm Animal Detection"

// Renderer draws detections and the info line on frames and encodes them as JPEG.
type Renderer struct {
	table  *classifier.Table
	window *gocv.Window
}

// New creates a renderer. When display is set, frames are also shown in a
// desktop window; on some platforms this must be called from the main goroutine.
func New(table *classifier.Table, display bool) *Renderer {
	r := &Renderer{table: table}
	if display {
		r.window = gocv.NewWindow(WindowTitle)
	}
	return r
}

// Render annotates img in place. A nil summary renders the raw frame.
// It returns model.ErrStopRequested once 'q' is pressed in the window.
func (r *Renderer) Render(img model.Image, detections []model.Detection, summary *model.FrameSummary) ([]byte, error) {
	frame, ok := img.(capture.MatImage)
	if !ok {
		return nil, fmt.Errorf("unsupported frame type %T", img)
	}
	mat := frame.Mat()
	if mat.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}

	if summary != nil {
		if err := r.annotate(mat, detections, *summary); err != nil {
			return nil, err
		}
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()
	jpeg := make([]byte, len(buf.GetBytes()))
	copy(jpeg, buf.GetBytes())

	if r.window != nil {
		r.window.IMShow(*mat)
		if r.window.WaitKey(1)&0xFF == 'q' {
			return jpeg, model.ErrStopRequested
		}
	}

	return jpeg, nil
}

func (r *Renderer) annotate(mat *gocv.Mat, detections []model.Detection, summary model.FrameSummary) error {
	for _, det := range detections {
		c := overlay.BoxColor(det.Label, r.table)
		rect := det.Box.Rect()
		if err := gocv.Rectangle(mat, rect, c, 2); err != nil {
			return fmt.Errorf("failed to draw rectangle: %w", err)
		}
		pt := image.Pt(rect.Min.X, rect.Min.Y-10)
		if err := gocv.PutText(mat, overlay.Caption(det), pt, gocv.FontHersheySimplex, 0.5, c, 2); err != nil {
			return fmt.Errorf("failed to draw text: %w", err)
		}
	}

	info := overlay.InfoLine(summary)
	if err := gocv.PutText(mat, info, image.Pt(20, 30), gocv.FontHersheySimplex, 0.6, overlay.White, 2); err != nil {
		return fmt.Errorf("failed to draw text: %w", err)
	}
	return nil
}

// Close destroys the window, if any.
func (r *Renderer) Close() error {
	if r.window == nil {
		return nil
	}
	return r.window.Close()
}
