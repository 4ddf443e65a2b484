// Package yolo turns raw YOLOv8 output tensors into detections.
//
// The model emits a [1, 4+classes, anchors] tensor. The first four rows are
// the box center, width and height in input pixels; the remaining rows are
// per-class scores.
package yolo

import (
	"fmt"
	"sort"

	"farmwatch/internal/model"
)

// MinScore drops anchors before NMS. The confidence threshold proper is
// applied later by the aggregator.
const MinScore = 0.25

// Params describe the geometry of one inference.
type Params struct {
	InputWidth   int
	InputHeight  int
	ImageWidth   int
	ImageHeight  int
	MinScore     float32
	NMSThreshold float64
}

// Decode reads the best class per anchor, scales boxes back to the image
// and runs per-label NMS.
func Decode(output []float32, labels []string, p Params) ([]model.Detection, error) {
	numClasses := len(labels)
	if numClasses == 0 {
		return nil, fmt.Errorf("no labels")
	}
	rows := 4 + numClasses
	if len(output) == 0 || len(output)%rows != 0 {
		return nil, fmt.Errorf("unexpected output length %d for %d classes", len(output), numClasses)
	}
	if p.InputWidth <= 0 || p.InputHeight <= 0 {
		return nil, fmt.Errorf("invalid input size %dx%d", p.InputWidth, p.InputHeight)
	}
	anchors := len(output) / rows

	scaleX := float32(p.ImageWidth) / float32(p.InputWidth)
	scaleY := float32(p.ImageHeight) / float32(p.InputHeight)

	var detections []model.Detection
	for i := 0; i < anchors; i++ {
		bestClass, bestScore := -1, p.MinScore
		for c := 0; c < numClasses; c++ {
			score := output[(4+c)*anchors+i]
			if score >= bestScore {
				bestClass, bestScore = c, score
			}
		}
		if bestClass < 0 {
			continue
		}

		cx := output[i]
		cy := output[anchors+i]
		w := output[2*anchors+i]
		h := output[3*anchors+i]

		detections = append(detections, model.Detection{
			Label:      labels[bestClass],
			Confidence: float64(bestScore),
			Box: model.Box{
				X1: clamp(int((cx-w/2)*scaleX), p.ImageWidth),
				Y1: clamp(int((cy-h/2)*scaleY), p.ImageHeight),
				X2: clamp(int((cx+w/2)*scaleX), p.ImageWidth),
				Y2: clamp(int((cy+h/2)*scaleY), p.ImageHeight),
			},
		})
	}

	return NMS(detections, p.NMSThreshold), nil
}

// NMS keeps the highest-confidence box of every overlapping group that shares
// a label. The result is sorted by confidence, highest first.
func NMS(detections []model.Detection, iouThreshold float64) []model.Detection {
	sorted := make([]model.Detection, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]model.Detection, 0, len(sorted))
	for _, det := range sorted {
		suppressed := false
		for _, k := range kept {
			if k.Label == det.Label && IoU(k.Box, det.Box) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, det)
		}
	}
	return kept
}

// IoU is the intersection over union of two boxes.
func IoU(a, b model.Box) float64 {
	inter := a.Rect().Intersect(b.Rect())
	interArea := float64(inter.Dx() * inter.Dy())
	if interArea == 0 {
		return 0
	}
	union := float64(area(a)+area(b)) - interArea
	if union <= 0 {
		return 0
	}
	return interArea / union
}

func area(b model.Box) int {
	r := b.Rect()
	return r.Dx() * r.Dy()
}

func clamp(v, limit int) int {
	if v < 0 {
		return 0
	}
	if limit > 0 && v > limit {
		return limit
	}
	return v
}
