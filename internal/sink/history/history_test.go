package history

import (
	"context"
	"path/filepath"
	"testing"

	"farmwatch/internal/model"
	"farmwatch/internal/repository/sqlite"
)

func TestPublish_StoresSummary(t *testing.T) {
	db, err := sqlite.New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	repo := sqlite.NewSummaryRepository(db)
	s := New(repo)

	summary := model.NewFrameSummary([]string{"cow", "goat", "horse"}, map[string]int{"horse": 2}, false, "dog", 777)
	if err := s.Publish(context.Background(), summary); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	records, err := repo.GetRecent(&model.HistoryFilter{Limit: 1})
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.TimestampMs != 777 || rec.Counts["horse"] != 2 || rec.DangerLabel != "dog" {
		t.Errorf("Unexpected record: %+v", rec)
	}
}

func TestPublish_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(nil)
	if err := s.Publish(ctx, model.NewFrameSummary(nil, nil, false, "", 0)); err == nil {
		t.Error("expected error for cancelled context")
	}
}
