package handlers

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"farmwatch/internal/config"
	"farmwatch/internal/logger"
	"farmwatch/internal/model"
	"farmwatch/internal/repository"
)

// SnapshotsData is a paginated response payload for the snapshot gallery.
type SnapshotsData struct {
	Snapshots   []model.Snapshot `json:"snapshots"`
	Size        int64            `json:"size"`
	MaxSize     int64            `json:"maxSize"` // GB
	CurrentPage int              `json:"currentPage"`
	Limit       int              `json:"pageSize"`
}

// SnapshotsHandler lists danger snapshots, newest first. Query: animal, page, limit.
func SnapshotsHandler(repo repository.SnapshotRepository, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)
		if limit > maxPageSize {
			limit = maxPageSize
		}

		snapshots, err := repo.GetAll(&model.SnapshotFilter{
			DangerLabel: q.Get("animal"),
			Limit:       limit,
			Offset:      (page - 1) * limit,
		})
		if err != nil {
			logger.Error("Error querying snapshots from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if snapshots == nil {
			snapshots = []model.Snapshot{}
		}

		size, err := repo.GetDirectorySize()
		if err != nil {
			logger.Error("Error reading snapshot size: %v", err)
		}

		writeJSON(w, SnapshotsData{
			Snapshots:   snapshots,
			Size:        size,
			MaxSize:     cfg.MaxImageDirectorySize,
			CurrentPage: page,
			Limit:       limit,
		}, logger)
	}
}

// ViewSnapshotHandler serves the JPEG of the {filename} route variable.
// Only files recorded in the database are served.
func ViewSnapshotHandler(repo repository.SnapshotRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := lookupSnapshot(w, r, repo, logger)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		http.ServeFile(w, r, snap.FilePath)
	}
}

// DeleteSnapshotHandler removes a snapshot from disk and database.
func DeleteSnapshotHandler(repo repository.SnapshotRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := lookupSnapshot(w, r, repo, logger)
		if !ok {
			return
		}

		if err := os.Remove(snap.FilePath); err != nil && !os.IsNotExist(err) {
			logger.Error("Failed to delete file %s: %v", snap.FilePath, err)
		}
		if err := repo.Delete(snap.ID); err != nil {
			logger.Error("Failed to delete from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		logger.Info("Deleted snapshot: %s", snap.Filename)
		w.WriteHeader(http.StatusNoContent)
	}
}

func lookupSnapshot(w http.ResponseWriter, r *http.Request, repo repository.SnapshotRepository, logger *logger.Logger) (*model.Snapshot, bool) {
	filename := mux.Vars(r)["filename"]
	snap, err := repo.GetByFilename(filename)
	if err != nil {
		logger.Error("Error looking up snapshot %s: %v", filename, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	if snap == nil {
		http.NotFound(w, r)
		return nil, false
	}
	return snap, true
}
