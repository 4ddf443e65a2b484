package overlay

import (
	"testing"

	"farmwatch/internal/model"
	"farmwatch/internal/services/classifier"
)

func TestBoxColor(t *testing.T) {
	table := classifier.DefaultTable()

	tests := []struct {
		label string
		want  string
	}{
		{"cow", "green"},
		{"Horse", "green"},
		{"fox", "red"},
		{"person", "cyan"},
		{"car", "cyan"},
	}

	names := map[interface{}]string{Green: "green", Red: "red", Cyan: "cyan"}
	for _, tt := range tests {
		if got := names[BoxColor(tt.label, table)]; got != tt.want {
			t.Errorf("BoxColor(%q) = %s, want %s", tt.label, got, tt.want)
		}
	}
}

func TestCaption(t *testing.T) {
	got := Caption(model.Detection{Label: "cow", Confidence: 0.9234})
	if got != "cow (0.92)" {
		t.Errorf("unexpected caption %q", got)
	}
}

func TestInfoLine(t *testing.T) {
	kinds := classifier.DefaultTable().FarmKinds()

	summary := model.NewFrameSummary(kinds, map[string]int{"cow": 2}, true, "", 0)
	want := "Cows: 2 | Goats: 0 | Horses: 0 | Warning: true | Danger: None"
	if got := InfoLine(summary); got != want {
		t.Errorf("InfoLine = %q, want %q", got, want)
	}

	summary = model.NewFrameSummary(kinds, nil, false, "tiger", 0)
	want = "Cows: 0 | Goats: 0 | Horses: 0 | Warning: false | Danger: tiger"
	if got := InfoLine(summary); got != want {
		t.Errorf("InfoLine = %q, want %q", got, want)
	}
}

func TestPlural(t *testing.T) {
	for in, want := range map[string]string{"cow": "Cows", "sheep": "Sheep", "ducks": "Ducks", "": ""} {
		if got := plural(in); got != want {
			t.Errorf("plural(%q) = %q, want %q", in, got, want)
		}
	}
}
