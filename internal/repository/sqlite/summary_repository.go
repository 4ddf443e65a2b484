package sqlite

import (
	"fmt"
	"strings"

	"farmwatch/internal/model"
)

// countsBatch keeps IN lists well below SQLite's bound-variable limit.
const countsBatch = 500

// SummaryRepository implements repository.SummaryRepository for SQLite.
type SummaryRepository struct {
	db *DB
}

// NewSummaryRepository creates a new SQLite summary repository.
func NewSummaryRepository(db *DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// Insert stores a summary and its per-kind counts in a single transaction.
func (r *SummaryRepository) Insert(summary model.FrameSummary) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	label, _ := summary.DangerLabel()
	result, err := tx.Exec(`
		INSERT INTO summaries (timestamp_ms, human_present, danger_present, danger_label)
		VALUES (?, ?, ?, ?)
	`, summary.TimestampMs(), summary.HumanPresent(), summary.DangerPresent(), label)
	if err != nil {
		return 0, fmt.Errorf("failed to insert summary: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read summary id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO summary_counts (summary_id, kind, count) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, kind := range summary.Kinds() {
		if _, err := stmt.Exec(id, kind, summary.Count(kind)); err != nil {
			return 0, fmt.Errorf("failed to insert count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit summary: %w", err)
	}
	return id, nil
}

// GetRecent returns summaries newest first.
func (r *SummaryRepository) GetRecent(filter *model.HistoryFilter) ([]model.SummaryRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	if filter == nil {
		filter = &model.HistoryFilter{}
	}

	query := `
		SELECT id, timestamp_ms, human_present, danger_present, danger_label
		FROM summaries
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.SinceMs > 0 {
		query += " AND timestamp_ms >= ?"
		args = append(args, filter.SinceMs)
	}

	if filter.UntilMs > 0 {
		query += " AND timestamp_ms <= ?"
		args = append(args, filter.UntilMs)
	}

	if filter.DangerOnly {
		query += " AND danger_present = 1"
	}

	query += " ORDER BY timestamp_ms DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += " LIMIT -1"
	}

	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var records []model.SummaryRecord
	index := make(map[int64]int)
	for rows.Next() {
		rec := model.SummaryRecord{Counts: make(map[string]int)}
		if err := rows.Scan(&rec.ID, &rec.TimestampMs, &rec.HumanPresent, &rec.DangerPresent, &rec.DangerLabel); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		index[rec.ID] = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read summaries: %w", err)
	}
	rows.Close()

	if len(records) == 0 {
		return records, nil
	}

	for start := 0; start < len(records); start += countsBatch {
		end := min(start+countsBatch, len(records))
		if err := r.fillCounts(records[start:end], records, index); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// fillCounts loads the counts of batch into records.
func (r *SummaryRepository) fillCounts(batch, records []model.SummaryRecord, index map[int64]int) error {
	countQuery, countArgs := countsQuery(batch)
	countRows, err := r.db.Conn().Query(countQuery, countArgs...)
	if err != nil {
		return fmt.Errorf("failed to query counts: %w", err)
	}
	defer countRows.Close()

	for countRows.Next() {
		var id int64
		var kind string
		var count int
		if err := countRows.Scan(&id, &kind, &count); err != nil {
			return fmt.Errorf("failed to scan count: %w", err)
		}
		if i, ok := index[id]; ok {
			records[i].Counts[kind] = count
		}
	}
	return countRows.Err()
}

// GetStats returns statistics about the stored history.
func (r *SummaryRepository) GetStats() (*model.HistoryStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.HistoryStats{
		DangerByLabel: make(map[string]int),
		MaxCounts:     make(map[string]int),
		AvgCounts:     make(map[string]float64),
	}

	err := r.db.Conn().QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(human_present), 0),
			COALESCE(SUM(danger_present), 0),
			COALESCE(MIN(timestamp_ms), 0),
			COALESCE(MAX(timestamp_ms), 0)
		FROM summaries
	`).Scan(&stats.TotalSummaries, &stats.HumanSightings, &stats.DangerSightings, &stats.FirstMs, &stats.LastMs)
	if err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}

	// Dangerous animals by label
	rows, err := r.db.Conn().Query(`
		SELECT danger_label, COUNT(*) FROM summaries
		WHERE danger_present = 1
		GROUP BY danger_label
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query danger labels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, err
		}
		stats.DangerByLabel[label] = count
	}

	// Farm animal counts per kind
	countRows, err := r.db.Conn().Query(`
		SELECT kind, MAX(count), AVG(count) FROM summary_counts GROUP BY kind
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query counts: %w", err)
	}
	defer countRows.Close()

	for countRows.Next() {
		var kind string
		var maxCount int
		var avg float64
		if err := countRows.Scan(&kind, &maxCount, &avg); err != nil {
			return nil, err
		}
		stats.MaxCounts[kind] = maxCount
		stats.AvgCounts[kind] = avg
	}

	return stats, nil
}

// DeleteBefore removes summaries older than timestampMs and returns how many were removed.
func (r *SummaryRepository) DeleteBefore(timestampMs int64) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`
		DELETE FROM summary_counts
		WHERE summary_id IN (SELECT id FROM summaries WHERE timestamp_ms < ?)
	`, timestampMs); err != nil {
		return 0, fmt.Errorf("failed to delete counts: %w", err)
	}

	result, err := r.db.Conn().Exec(`DELETE FROM summaries WHERE timestamp_ms < ?`, timestampMs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete summaries: %w", err)
	}
	return result.RowsAffected()
}

// countsQuery selects the counts of exactly the given records.
func countsQuery(records []model.SummaryRecord) (string, []interface{}) {
	placeholders := make([]string, len(records))
	args := make([]interface{}, len(records))
	for i, rec := range records {
		placeholders[i] = "?"
		args[i] = rec.ID
	}
	query := "SELECT summary_id, kind, count FROM summary_counts WHERE summary_id IN (" +
		strings.Join(placeholders, ",") + ")"
	return query, args
}
