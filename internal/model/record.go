package model

import "time"

// SummaryRecord is a published summary as stored in the history database.
type SummaryRecord struct {
	ID            int64          `json:"id"`
	TimestampMs   int64          `json:"last_updated"`
	Counts        map[string]int `json:"counts"`
	HumanPresent  bool           `json:"warning"`
	DangerPresent bool           `json:"is_danger"`
	DangerLabel   string         `json:"danger_animal,omitempty"`
}

// HistoryFilter narrows history queries. Zero values mean no bound.
type HistoryFilter struct {
	SinceMs    int64
	UntilMs    int64
	DangerOnly bool
	Limit      int
	Offset     int
}

// HistoryStats aggregates the stored history.
type HistoryStats struct {
	TotalSummaries  int                `json:"total_summaries"`
	HumanSightings  int                `json:"human_sightings"`
	DangerSightings int                `json:"danger_sightings"`
	DangerByLabel   map[string]int     `json:"danger_by_label"`
	MaxCounts       map[string]int     `json:"max_counts"`
	AvgCounts       map[string]float64 `json:"avg_counts"`
	FirstMs         int64              `json:"first_ms"`
	LastMs          int64              `json:"last_ms"`
}

// Snapshot is an annotated frame saved while a dangerous animal was in view.
type Snapshot struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	DangerLabel string    `json:"danger_animal"`
	Timestamp   time.Time `json:"timestamp"`
	FilePath    string    `json:"-"`
	FileSize    int64     `json:"filesize"`
}

// SnapshotFilter narrows snapshot listings.
type SnapshotFilter struct {
	DangerLabel string
	Limit       int
	Offset      int
}
