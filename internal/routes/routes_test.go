package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"farmwatch/internal/config"
	"farmwatch/internal/logger"
	"farmwatch/internal/middleware"
	"farmwatch/internal/model"
	"farmwatch/internal/repository/sqlite"
	"farmwatch/internal/services"
)

type fakeStatus struct {
	status services.Status
}

func (f fakeStatus) Status() services.Status { return f.status }

type testEnv struct {
	handler   http.Handler
	summaries *sqlite.SummaryRepository
	snapshots *sqlite.SnapshotRepository
	dir       string
}

func setup(t *testing.T, password string) *testEnv {
	t.Helper()

	dir := t.TempDir()
	db, err := sqlite.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	summary := model.NewFrameSummary([]string{"cow"}, map[string]int{"cow": 3}, true, "", 42)
	env := &testEnv{
		summaries: sqlite.NewSummaryRepository(db),
		snapshots: sqlite.NewSnapshotRepository(db),
		dir:       dir,
	}
	cfg := &config.Config{Password: password, MaxImageDirectorySize: 4}
	env.handler = SetupRoutes(Deps{
		Status:    fakeStatus{services.Status{Phase: "idle", LastUpdateMs: 42, MinIntervalMs: 3000, Summary: &summary}},
		Summaries: env.summaries,
		Snapshots: env.snapshots,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("farmwatch_frames_grabbed_total 1\n"))
		}),
	}, cfg, logger.Discard())
	return env
}

func (e *testEnv) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestSummaryEndpoint(t *testing.T) {
	env := setup(t, "")

	rec := env.do(t, http.MethodGet, "/api/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d", rec.Code)
	}

	var body struct {
		Phase   string                 `json:"phase"`
		Summary map[string]interface{} `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Phase != "idle" {
		t.Errorf("unexpected phase %q", body.Phase)
	}
	if body.Summary["cow_count"] != float64(3) || body.Summary["warning"] != true {
		t.Errorf("unexpected summary %v", body.Summary)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	env := setup(t, "")
	kinds := []string{"cow", "goat"}
	env.summaries.Insert(model.NewFrameSummary(kinds, map[string]int{"cow": 1}, false, "", 1000))
	env.summaries.Insert(model.NewFrameSummary(kinds, map[string]int{"goat": 2}, false, "wolf", 2000))
	env.summaries.Insert(model.NewFrameSummary(kinds, nil, true, "", 3000))

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"all", "", 3},
		{"danger only", "?danger=true", 1},
		{"since", "?since=2000", 2},
		{"until rfc3339", "?until=" + url.QueryEscape(time.UnixMilli(1500).UTC().Format(time.RFC3339)), 1},
		{"paged", "?limit=2&page=2", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/history"+tt.query)
			if rec.Code != http.StatusOK {
				t.Fatalf("got status %d: %s", rec.Code, rec.Body)
			}
			var body struct {
				Records []model.SummaryRecord `json:"records"`
			}
			json.Unmarshal(rec.Body.Bytes(), &body)
			if len(body.Records) != tt.want {
				t.Errorf("got %d records, want %d", len(body.Records), tt.want)
			}
		})
	}
}

func TestHistoryEndpoint_BadTimestamp(t *testing.T) {
	env := setup(t, "")
	if rec := env.do(t, http.MethodGet, "/api/history?since=yesterday"); rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	env := setup(t, "")
	env.summaries.Insert(model.NewFrameSummary([]string{"cow"}, map[string]int{"cow": 4}, false, "bear", 1000))

	rec := env.do(t, http.MethodGet, "/api/stats")
	var stats model.HistoryStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if stats.TotalSummaries != 1 || stats.DangerByLabel["bear"] != 1 || stats.MaxCounts["cow"] != 4 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestSnapshotEndpoints(t *testing.T) {
	env := setup(t, "")

	path := filepath.Join(env.dir, "snap.jpg")
	if err := os.WriteFile(path, []byte("jpeg"), 0644); err != nil {
		t.Fatal(err)
	}
	env.snapshots.Insert(&model.Snapshot{
		Filename:    "snap.jpg",
		DangerLabel: "fox",
		Timestamp:   time.Now(),
		FilePath:    path,
		FileSize:    4,
	})

	rec := env.do(t, http.MethodGet, "/api/snapshots?animal=fox")
	if !strings.Contains(rec.Body.String(), `"filename":"snap.jpg"`) {
		t.Errorf("snapshot missing from listing: %s", rec.Body)
	}
	if strings.Contains(rec.Body.String(), path) {
		t.Error("listing must not expose file paths")
	}

	rec = env.do(t, http.MethodGet, "/api/snapshots/snap.jpg")
	if rec.Code != http.StatusOK || rec.Body.String() != "jpeg" {
		t.Errorf("unexpected file response %d %q", rec.Code, rec.Body)
	}

	if rec := env.do(t, http.MethodGet, "/api/snapshots/missing.jpg"); rec.Code != http.StatusNotFound {
		t.Errorf("got status %d for missing snapshot", rec.Code)
	}

	if rec := env.do(t, http.MethodDelete, "/api/snapshots/snap.jpg"); rec.Code != http.StatusNoContent {
		t.Fatalf("delete returned %d", rec.Code)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("snapshot file should be removed")
	}
}

func TestLogEndpoints(t *testing.T) {
	env := setup(t, "")

	if rec := env.do(t, http.MethodGet, "/logs/debug"); rec.Code != http.StatusNotFound {
		t.Errorf("got status %d for unknown level", rec.Code)
	}
	// Discard logger has no directory.
	if rec := env.do(t, http.MethodPost, "/logs/info/clear"); rec.Code != http.StatusInternalServerError {
		t.Errorf("got status %d clearing without log dir", rec.Code)
	}
}

func TestLoginFlow(t *testing.T) {
	env := setup(t, "secret")

	if rec := env.do(t, http.MethodGet, "/api/summary"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 before login, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/metrics"); rec.Code != http.StatusOK {
		t.Errorf("metrics should stay public, got %d", rec.Code)
	}

	form := url.Values{"password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password gave %d", rec.Code)
	}

	form.Set("password", "secret")
	req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login gave %d", rec.Code)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != middleware.Token("secret") {
		t.Fatalf("unexpected cookies %v", cookies)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 after login, got %d", rec.Code)
	}
}
