package sqlite

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"farmwatch/internal/model"
)

var farmKinds = []string{"cow", "goat", "horse"}

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "data", "history.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ========================================
// Database Tests
// ========================================

func TestDatabase_CreatesParentDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	db, err := New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(dir, "test.db")); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
}

// ========================================
// Summary Repository Tests
// ========================================

func TestSummaryRepository_InsertAndGetRecent(t *testing.T) {
	repo := NewSummaryRepository(newTestDB(t))

	first := model.NewFrameSummary(farmKinds, map[string]int{"cow": 2}, true, "", 1000)
	second := model.NewFrameSummary(farmKinds, map[string]int{"goat": 1}, false, "fox", 4000)

	if _, err := repo.Insert(first); err != nil {
		t.Fatalf("Failed to insert summary: %v", err)
	}
	if _, err := repo.Insert(second); err != nil {
		t.Fatalf("Failed to insert summary: %v", err)
	}

	records, err := repo.GetRecent(nil)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}

	newest := records[0]
	if newest.TimestampMs != 4000 || !newest.DangerPresent || newest.DangerLabel != "fox" {
		t.Errorf("Unexpected newest record: %+v", newest)
	}
	if newest.Counts["goat"] != 1 || newest.Counts["cow"] != 0 || len(newest.Counts) != 3 {
		t.Errorf("Unexpected counts: %v", newest.Counts)
	}

	oldest := records[1]
	if !oldest.HumanPresent || oldest.DangerPresent || oldest.Counts["cow"] != 2 {
		t.Errorf("Unexpected oldest record: %+v", oldest)
	}
}

func TestSummaryRepository_Filter(t *testing.T) {
	repo := NewSummaryRepository(newTestDB(t))

	for i, danger := range []string{"", "lion", "", "tiger", ""} {
		s := model.NewFrameSummary(farmKinds, nil, false, danger, int64(i+1)*1000)
		if _, err := repo.Insert(s); err != nil {
			t.Fatalf("Failed to insert summary: %v", err)
		}
	}

	tests := []struct {
		name     string
		filter   model.HistoryFilter
		expected []int64
	}{
		{"all", model.HistoryFilter{}, []int64{5000, 4000, 3000, 2000, 1000}},
		{"limit", model.HistoryFilter{Limit: 2}, []int64{5000, 4000}},
		{"offset", model.HistoryFilter{Offset: 3}, []int64{2000, 1000}},
		{"range", model.HistoryFilter{SinceMs: 2000, UntilMs: 3000}, []int64{3000, 2000}},
		{"danger only", model.HistoryFilter{DangerOnly: true}, []int64{4000, 2000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := tt.filter
			records, err := repo.GetRecent(&filter)
			if err != nil {
				t.Fatalf("GetRecent failed: %v", err)
			}
			if len(records) != len(tt.expected) {
				t.Fatalf("Expected %d records, got %d", len(tt.expected), len(records))
			}
			for i, ts := range tt.expected {
				if records[i].TimestampMs != ts {
					t.Errorf("Record %d: expected timestamp %d, got %d", i, ts, records[i].TimestampMs)
				}
			}
		})
	}
}

func TestSummaryRepository_DangerPageCounts(t *testing.T) {
	repo := NewSummaryRepository(newTestDB(t))

	for i := 1; i <= 20; i++ {
		danger := ""
		if i == 3 || i == 17 {
			danger = "wolf"
		}
		s := model.NewFrameSummary(farmKinds, map[string]int{"cow": i}, false, danger, int64(i)*1000)
		if _, err := repo.Insert(s); err != nil {
			t.Fatalf("Failed to insert summary: %v", err)
		}
	}

	records, err := repo.GetRecent(&model.HistoryFilter{DangerOnly: true})
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].Counts["cow"] != 17 || records[1].Counts["cow"] != 3 {
		t.Errorf("Unexpected counts: %v, %v", records[0].Counts, records[1].Counts)
	}
}

func TestCountsQuery_OnlyPageIDs(t *testing.T) {
	query, args := countsQuery([]model.SummaryRecord{{ID: 17}, {ID: 3}})

	if !strings.Contains(query, "summary_id IN (?,?)") {
		t.Errorf("Unexpected query: %s", query)
	}
	if len(args) != 2 || args[0] != int64(17) || args[1] != int64(3) {
		t.Errorf("Unexpected args: %v", args)
	}
}

func TestSummaryRepository_GetStats(t *testing.T) {
	repo := NewSummaryRepository(newTestDB(t))

	inputs := []model.FrameSummary{
		model.NewFrameSummary(farmKinds, map[string]int{"cow": 2}, true, "", 1000),
		model.NewFrameSummary(farmKinds, map[string]int{"cow": 4}, false, "fox", 2000),
		model.NewFrameSummary(farmKinds, map[string]int{"horse": 1}, true, "fox", 3000),
	}
	for _, s := range inputs {
		if _, err := repo.Insert(s); err != nil {
			t.Fatalf("Failed to insert summary: %v", err)
		}
	}

	stats, err := repo.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	if stats.TotalSummaries != 3 || stats.HumanSightings != 2 || stats.DangerSightings != 2 {
		t.Errorf("Unexpected totals: %+v", stats)
	}
	if stats.DangerByLabel["fox"] != 2 {
		t.Errorf("Expected 2 fox sightings, got %d", stats.DangerByLabel["fox"])
	}
	if stats.MaxCounts["cow"] != 4 {
		t.Errorf("Expected max cow count 4, got %d", stats.MaxCounts["cow"])
	}
	if stats.AvgCounts["cow"] != 2 {
		t.Errorf("Expected average cow count 2, got %v", stats.AvgCounts["cow"])
	}
	if stats.FirstMs != 1000 || stats.LastMs != 3000 {
		t.Errorf("Unexpected range: %d..%d", stats.FirstMs, stats.LastMs)
	}
}

func TestSummaryRepository_GetStatsEmpty(t *testing.T) {
	stats, err := NewSummaryRepository(newTestDB(t)).GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalSummaries != 0 || len(stats.MaxCounts) != 0 {
		t.Errorf("Expected empty stats, got %+v", stats)
	}
}

func TestSummaryRepository_DeleteBefore(t *testing.T) {
	repo := NewSummaryRepository(newTestDB(t))

	for _, ts := range []int64{1000, 2000, 3000} {
		if _, err := repo.Insert(model.NewFrameSummary(farmKinds, map[string]int{"cow": 1}, false, "", ts)); err != nil {
			t.Fatalf("Failed to insert summary: %v", err)
		}
	}

	removed, err := repo.DeleteBefore(2500)
	if err != nil {
		t.Fatalf("DeleteBefore failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removed, got %d", removed)
	}

	stats, _ := repo.GetStats()
	if stats.TotalSummaries != 1 || stats.AvgCounts["cow"] != 1 {
		t.Errorf("Unexpected stats after delete: %+v", stats)
	}
}

// ========================================
// Snapshot Repository Tests
// ========================================

func TestSnapshotRepository_CRUD(t *testing.T) {
	repo := NewSnapshotRepository(newTestDB(t))
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	snaps := []*model.Snapshot{
		{Filename: "a.jpg", DangerLabel: "fox", Timestamp: base, FilePath: "/img/a.jpg", FileSize: 100},
		{Filename: "b.jpg", DangerLabel: "lion", Timestamp: base.Add(time.Minute), FilePath: "/img/b.jpg", FileSize: 200},
		{Filename: "c.jpg", DangerLabel: "fox", Timestamp: base.Add(2 * time.Minute), FilePath: "/img/c.jpg", FileSize: 300},
	}
	for _, s := range snaps {
		id, err := repo.Insert(s)
		if err != nil {
			t.Fatalf("Failed to insert snapshot: %v", err)
		}
		s.ID = id
	}

	all, err := repo.GetAll(nil)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 3 || all[0].Filename != "c.jpg" {
		t.Errorf("Expected newest first, got %+v", all)
	}

	foxes, err := repo.GetAll(&model.SnapshotFilter{DangerLabel: "fox"})
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(foxes) != 2 {
		t.Errorf("Expected 2 fox snapshots, got %d", len(foxes))
	}

	size, err := repo.GetDirectorySize()
	if err != nil || size != 600 {
		t.Errorf("Expected size 600, got %d (%v)", size, err)
	}

	oldest, err := repo.GetOldest(1)
	if err != nil || len(oldest) != 1 || oldest[0].Filename != "a.jpg" {
		t.Errorf("Unexpected oldest: %+v (%v)", oldest, err)
	}

	snap, err := repo.GetByFilename("b.jpg")
	if err != nil || snap == nil || snap.DangerLabel != "lion" {
		t.Fatalf("GetByFilename failed: %+v (%v)", snap, err)
	}

	if err := repo.Delete(snap.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	missing, err := repo.GetByFilename("b.jpg")
	if err != nil || missing != nil {
		t.Errorf("Expected snapshot to be gone, got %+v (%v)", missing, err)
	}
}
