package repository

import (
	"farmwatch/internal/model"
)

// SummaryRepository defines the interface for summary history operations.
type SummaryRepository interface {
	// Create operations
	Insert(summary model.FrameSummary) (int64, error)

	// Read operations
	GetRecent(filter *model.HistoryFilter) ([]model.SummaryRecord, error)
	GetStats() (*model.HistoryStats, error)

	// Delete operations
	DeleteBefore(timestampMs int64) (int64, error)
}

// SnapshotRepository defines the interface for danger snapshot operations.
type SnapshotRepository interface {
	// Create operations
	Insert(snap *model.Snapshot) (int64, error)

	// Read operations
	GetByFilename(filename string) (*model.Snapshot, error)
	GetAll(filter *model.SnapshotFilter) ([]model.Snapshot, error)
	GetDirectorySize() (int64, error)
	GetOldest(limit int) ([]model.Snapshot, error)

	// Delete operations
	Delete(id int64) error
}
