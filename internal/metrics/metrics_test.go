package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"farmwatch/internal/model"
)

func TestObserveFrame(t *testing.T) {
	m := New()
	summary := model.NewFrameSummary([]string{"cow", "goat"}, map[string]int{"cow": 3}, true, "fox", 0)
	detections := []model.Detection{
		{Label: "cow", Confidence: 0.9},
		{Label: "cow", Confidence: 0.8},
		{Label: "fox", Confidence: 0.7},
	}

	m.ObserveFrame(summary, detections, 120*time.Millisecond)

	if m.FramesProcessed.Load() != 1 {
		t.Errorf("expected 1 processed frame, got %d", m.FramesProcessed.Load())
	}
	if m.ProcessLatencyMs.Load() != 120 {
		t.Errorf("expected latency 120, got %d", m.ProcessLatencyMs.Load())
	}
	if got := testutil.ToFloat64(m.animals.WithLabelValues("cow")); got != 3 {
		t.Errorf("expected cow gauge 3, got %v", got)
	}
	if got := testutil.ToFloat64(m.animals.WithLabelValues("goat")); got != 0 {
		t.Errorf("expected goat gauge 0, got %v", got)
	}
	if got := testutil.ToFloat64(m.detections.WithLabelValues("cow")); got != 2 {
		t.Errorf("expected 2 cow detections, got %v", got)
	}
	if m.HumanPresent.Load() != 1 || m.DangerPresent.Load() != 1 {
		t.Error("expected human and danger flags set")
	}
}

func TestPublishCounters(t *testing.T) {
	m := New()

	m.SummaryPublished()
	m.SummaryPublished()
	m.PublishFailed("firebase")

	if got := testutil.ToFloat64(m.published); got != 2 {
		t.Errorf("expected 2 published, got %v", got)
	}
	if got := testutil.ToFloat64(m.publishErrors.WithLabelValues("firebase")); got != 1 {
		t.Errorf("expected 1 firebase error, got %v", got)
	}
	if got := m.PublishFailures.Load(); got != 1 {
		t.Errorf("expected 1 publish failure in total, got %d", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.FramesGrabbed.Add(5)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "farmwatch_frames_grabbed_total 5") {
		t.Errorf("expected grabbed counter in output, got:\n%s", body)
	}
}
