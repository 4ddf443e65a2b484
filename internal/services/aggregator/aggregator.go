// Package aggregator reduces one frame's detections to a FrameSummary.
package aggregator

import (
	"math"

	"farmwatch/internal/model"
	"farmwatch/internal/services/classifier"
)

// DefaultConfidenceThreshold drops detections the model is unsure about.
const DefaultConfidenceThreshold = 0.30

// Aggregate counts farm animals and raises the human and danger flags for a
// single frame. Detections below threshold are ignored. When several dangerous
// animals appear, the last one in iteration order is reported.
func Aggregate(detections []model.Detection, threshold float64, table *classifier.Table, nowMs int64) model.FrameSummary {
	var kinds []string
	if table != nil {
		kinds = table.FarmKinds()
	}

	counts := make(map[string]int, len(kinds))
	human := false
	dangerLabel := ""

	for _, det := range detections {
		if !accepted(det, threshold) {
			continue
		}

		category := classifier.Classify(det.Label, table)
		switch category.Kind {
		case classifier.FarmAnimal:
			counts[category.Name]++
		case classifier.Human:
			human = true
		case classifier.Dangerous:
			dangerLabel = category.Name
		}
	}

	return model.NewFrameSummary(kinds, counts, human, dangerLabel, nowMs)
}

// Surviving returns the detections Aggregate would consider, in input order.
func Surviving(detections []model.Detection, threshold float64) []model.Detection {
	out := make([]model.Detection, 0, len(detections))
	for _, det := range detections {
		if accepted(det, threshold) {
			out = append(out, det)
		}
	}
	return out
}

// accepted skips malformed detections and those below threshold.
func accepted(det model.Detection, threshold float64) bool {
	if det.Label == "" || math.IsNaN(det.Confidence) {
		return false
	}
	return det.Confidence >= threshold
}
