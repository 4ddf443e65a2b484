package model

import (
	"encoding/json"
	"time"
)

// FrameSummary is the per-frame state snapshot published to sinks.
// It is immutable once built: fields are unexported and Counts returns a copy.
type FrameSummary struct {
	kinds       []string
	counts      map[string]int
	human       bool
	danger      bool
	dangerLabel string
	timestampMs int64
}

// NewFrameSummary builds a summary holding an entry for every kind in kinds.
// Counts for unknown kinds are ignored and negative counts are clamped to zero.
// An empty dangerLabel means no danger was seen.
func NewFrameSummary(kinds []string, counts map[string]int, human bool, dangerLabel string, timestampMs int64) FrameSummary {
	s := FrameSummary{
		kinds:       append([]string(nil), kinds...),
		counts:      make(map[string]int, len(kinds)),
		human:       human,
		danger:      dangerLabel != "",
		dangerLabel: dangerLabel,
		timestampMs: timestampMs,
	}
	for _, kind := range kinds {
		n := counts[kind]
		if n < 0 {
			n = 0
		}
		s.counts[kind] = n
	}
	return s
}

// Kinds returns the farm-animal kinds in table order.
func (s FrameSummary) Kinds() []string {
	return append([]string(nil), s.kinds...)
}

// Count returns the number of animals of the given kind.
func (s FrameSummary) Count(kind string) int {
	return s.counts[kind]
}

// Counts returns a copy of the per-kind counts.
func (s FrameSummary) Counts() map[string]int {
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// Total returns the number of farm animals seen in the frame.
func (s FrameSummary) Total() int {
	total := 0
	for _, n := range s.counts {
		total += n
	}
	return total
}

func (s FrameSummary) HumanPresent() bool {
	return s.human
}

func (s FrameSummary) DangerPresent() bool {
	return s.danger
}

// DangerLabel returns the dangerous label and whether one is set.
func (s FrameSummary) DangerLabel() (string, bool) {
	return s.dangerLabel, s.danger
}

func (s FrameSummary) TimestampMs() int64 {
	return s.timestampMs
}

// LastUpdated returns the summary timestamp as a time.Time.
func (s FrameSummary) LastUpdated() time.Time {
	return time.UnixMilli(s.timestampMs)
}

// Fields returns the flat record pushed to remote sinks:
// one "<kind>_count" key per kind plus the warning/danger flags.
func (s FrameSummary) Fields() map[string]interface{} {
	fields := make(map[string]interface{}, len(s.kinds)+5)
	for _, kind := range s.kinds {
		fields[kind+"_count"] = s.counts[kind]
	}
	fields["counts"] = s.Counts()
	fields["warning"] = s.human
	fields["is_danger"] = s.danger
	if s.danger {
		fields["danger_animal"] = s.dangerLabel
	} else {
		fields["danger_animal"] = nil
	}
	fields["last_updated"] = s.timestampMs
	return fields
}

// MarshalJSON encodes the summary as its sink record.
func (s FrameSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Fields())
}
