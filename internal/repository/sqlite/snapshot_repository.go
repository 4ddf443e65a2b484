package sqlite

import (
	"database/sql"
	"fmt"

	"farmwatch/internal/model"
)

// SnapshotRepository implements repository.SnapshotRepository for SQLite.
type SnapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new SQLite snapshot repository.
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Insert adds a new snapshot record to the database.
func (r *SnapshotRepository) Insert(snap *model.Snapshot) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO snapshots (filename, danger_label, timestamp, filepath, filesize)
		VALUES (?, ?, ?, ?, ?)
	`, snap.Filename, snap.DangerLabel, snap.Timestamp, snap.FilePath, snap.FileSize)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return result.LastInsertId()
}

// GetByFilename retrieves a snapshot by its filename.
func (r *SnapshotRepository) GetByFilename(filename string) (*model.Snapshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var snap model.Snapshot
	err := r.db.Conn().QueryRow(`
		SELECT id, filename, danger_label, timestamp, filepath, filesize
		FROM snapshots WHERE filename = ?
	`, filename).Scan(&snap.ID, &snap.Filename, &snap.DangerLabel, &snap.Timestamp, &snap.FilePath, &snap.FileSize)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return &snap, nil
}

// GetAll retrieves snapshots based on filter criteria, newest first.
func (r *SnapshotRepository) GetAll(filter *model.SnapshotFilter) ([]model.Snapshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	if filter == nil {
		filter = &model.SnapshotFilter{}
	}

	query := `
		SELECT id, filename, danger_label, timestamp, filepath, filesize
		FROM snapshots
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.DangerLabel != "" {
		query += " AND danger_label = ?"
		args = append(args, filter.DangerLabel)
	}

	query += " ORDER BY timestamp DESC, id DESC"

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

	return r.query(query, args...)
}

// GetDirectorySize returns the total size of stored snapshots in bytes.
func (r *SnapshotRepository) GetDirectorySize() (int64, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var size int64
	if err := r.db.Conn().QueryRow(`SELECT COALESCE(SUM(filesize), 0) FROM snapshots`).Scan(&size); err != nil {
		return 0, fmt.Errorf("failed to sum snapshot sizes: %w", err)
	}
	return size, nil
}

// GetOldest returns up to limit snapshots, oldest first.
func (r *SnapshotRepository) GetOldest(limit int) ([]model.Snapshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.query(`
		SELECT id, filename, danger_label, timestamp, filepath, filesize
		FROM snapshots ORDER BY timestamp ASC, id ASC LIMIT ?
	`, limit)
}

// Delete removes a snapshot record by its ID.
func (r *SnapshotRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM snapshots WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) query(query string, args ...interface{}) ([]model.Snapshot, error) {
	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		if err := rows.Scan(&snap.ID, &snap.Filename, &snap.DangerLabel, &snap.Timestamp, &snap.FilePath, &snap.FileSize); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, rows.Err()
}
