// Package overlay holds the text and colors drawn on annotated frames.
package overlay

import (
	"fmt"
	"image/color"
	"strings"

	"farmwatch/internal/model"
	"farmwatch/internal/services/classifier"
)

var (
	Green = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	Red   = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	Cyan  = color.RGBA{R: 0, G: 255, B: 255, A: 0}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// BoxColor picks the box color for a label: green for farm animals, red for
// dangerous animals, cyan for everything else.
func BoxColor(label string, table *classifier.Table) color.RGBA {
	switch classifier.Classify(label, table).Kind {
	case classifier.FarmAnimal:
		return Green
	case classifier.Dangerous:
		return Red
	default:
		return Cyan
	}
}

// Caption is the text drawn above a box, e.g. "cow (0.92)".
func Caption(det model.Detection) string {
	return fmt.Sprintf("%s (%.2f)", det.Label, det.Confidence)
}

// InfoLine summarizes a frame, e.g.
// "Cows: 2 | Goats: 0 | Horses: 0 | Warning: true | Danger: None".
func InfoLine(summary model.FrameSummary) string {
	parts := make([]string, 0, len(summary.Kinds())+2)
	for _, kind := range summary.Kinds() {
		parts = append(parts, fmt.Sprintf("%s: %d", plural(kind), summary.Count(kind)))
	}
	parts = append(parts, fmt.Sprintf("Warning: %v", summary.HumanPresent()))

	danger := "None"
	if label, ok := summary.DangerLabel(); ok {
		danger = label
	}
	parts = append(parts, "Danger: "+danger)

	return strings.Join(parts, " | ")
}

func plural(kind string) string {
	if kind == "" {
		return kind
	}
	name := strings.ToUpper(kind[:1]) + kind[1:]
	if strings.HasSuffix(kind, "s") || strings.HasSuffix(kind, "sheep") {
		return name
	}
	return name + "s"
}
