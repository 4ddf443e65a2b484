package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"farmwatch/internal/logger"
	"farmwatch/internal/model"
	"farmwatch/internal/repository"
	"farmwatch/internal/services"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// StatusProvider exposes the pipeline state.
type StatusProvider interface {
	Status() services.Status
}

// SummaryHandler returns the latest summary together with the gate phase.
func SummaryHandler(provider StatusProvider, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, provider.Status(), logger)
	}
}

// HistoryHandler lists stored summaries, newest first.
// Query: since, until (unix ms or RFC3339), danger=true, limit, page.
func HistoryHandler(repo repository.SummaryRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), defaultPageSize)
		if limit > maxPageSize {
			limit = maxPageSize
		}

		since, err := parseTimestamp(q.Get("since"))
		if err != nil {
			http.Error(w, "Invalid since parameter", http.StatusBadRequest)
			return
		}
		until, err := parseTimestamp(q.Get("until"))
		if err != nil {
			http.Error(w, "Invalid until parameter", http.StatusBadRequest)
			return
		}
		dangerOnly, _ := strconv.ParseBool(q.Get("danger"))

		records, err := repo.GetRecent(&model.HistoryFilter{
			SinceMs:    since,
			UntilMs:    until,
			DangerOnly: dangerOnly,
			Limit:      limit,
			Offset:     (page - 1) * limit,
		})
		if err != nil {
			logger.Error("Error querying history: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []model.SummaryRecord{}
		}

		writeJSON(w, map[string]interface{}{
			"records":     records,
			"currentPage": page,
			"pageSize":    limit,
		}, logger)
	}
}

// StatsHandler returns aggregates over the stored history.
func StatsHandler(repo repository.SummaryRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := repo.GetStats()
		if err != nil {
			logger.Error("Failed to get stats: %v", err)
			http.Error(w, "Failed to retrieve stats", http.StatusInternalServerError)
			return
		}
		writeJSON(w, stats, logger)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseTimestamp accepts unix milliseconds or RFC3339. Empty means no bound.
func parseTimestamp(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}
