package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"farmwatch/internal/config"
	"farmwatch/internal/logger"
	"farmwatch/internal/model"
	"farmwatch/internal/repository"
)

const (
	timestampLayout = "2006-01-02_15-04-05.000"

	DefaultFlushInterval = 30 * time.Second
)

// BufferedImage is an annotated frame waiting to be written to disk.
type BufferedImage struct {
	Timestamp   time.Time
	DangerLabel string
	Data        []byte
}

// BufferService keeps annotated frames showing a dangerous animal in memory
// and periodically flushes them to disk and the snapshot table.
type BufferService struct {
	imagesDir    string
	images       []BufferedImage
	bufferLimit  int
	maxDirSize   int64 // bytes, 0 = unlimited
	mu           sync.Mutex
	logger       *logger.Logger
	snapshotRepo repository.SnapshotRepository
}

// NewBufferService creates a new BufferService. snapshotRepo may be nil, in
// which case images are only written to disk.
func NewBufferService(config *config.Config, logger *logger.Logger, snapshotRepo repository.SnapshotRepository) *BufferService {
	return &BufferService{
		imagesDir:    config.ImageDirectory,
		images:       make([]BufferedImage, 0),
		bufferLimit:  config.ImageBufferLimit,
		maxDirSize:   config.MaxImageDirectorySize << 30,
		logger:       logger,
		snapshotRepo: snapshotRepo,
	}
}

// Run flushes the buffer every interval until ctx is done, then flushes once more.
// A non-positive interval falls back to DefaultFlushInterval.
func (s *BufferService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.logger.Warning("Invalid flush interval %v, using %v", interval, DefaultFlushInterval)
		interval = DefaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.FlushImages()
			return
		case <-ticker.C:
			s.FlushImages()
		}
	}
}

// Show buffers processed frames with a dangerous animal in view. Preview
// frames and peaceful frames are ignored.
func (s *BufferService) Show(frame []byte, summary *model.FrameSummary) {
	if summary == nil {
		return
	}
	label, ok := summary.DangerLabel()
	if !ok {
		return
	}
	s.AddImage(frame, label, summary.LastUpdated())
}

// AddImage appends an image to the in-memory buffer unless it is full.
func (s *BufferService) AddImage(imageData []byte, dangerLabel string, timestamp time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) >= s.bufferLimit {
		s.logger.Debug("Snapshot buffer full (%d), dropping %s frame", s.bufferLimit, dangerLabel)
		return false
	}

	data := make([]byte, len(imageData))
	copy(data, imageData)
	s.images = append(s.images, BufferedImage{
		Timestamp:   timestamp,
		DangerLabel: dangerLabel,
		Data:        data,
	})
	s.logger.Info("Snapshot buffer size: %d/%d", len(s.images), s.bufferLimit)
	return true
}

// Len returns the number of buffered images.
func (s *BufferService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// FlushImages writes buffered images to disk, records them and resets the buffer.
func (s *BufferService) FlushImages() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) == 0 {
		return 0
	}

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return 0
	}

	savedCount := 0
	for _, image := range s.images {
		filename := Filename(image.Timestamp, image.DangerLabel)
		fullpath := filepath.Join(s.imagesDir, filename)

		if err := os.WriteFile(fullpath, image.Data, 0644); err != nil {
			s.logger.Error("Error saving image %s: %v", filename, err)
			continue
		}

		if s.snapshotRepo != nil {
			_, err := s.snapshotRepo.Insert(&model.Snapshot{
				Filename:    filename,
				DangerLabel: image.DangerLabel,
				Timestamp:   image.Timestamp,
				FilePath:    fullpath,
				FileSize:    int64(len(image.Data)),
			})
			if err != nil {
				s.logger.Error("Error saving snapshot to database %s: %v", filename, err)
				continue
			}
		}

		savedCount++
	}

	s.logger.Info("Flushed %d snapshots to disk", savedCount)
	s.images = s.images[:0]

	s.enforceSizeLimit()
	return savedCount
}

// enforceSizeLimit removes the oldest snapshots until the directory fits
// into the configured size.
func (s *BufferService) enforceSizeLimit() {
	if s.snapshotRepo == nil || s.maxDirSize <= 0 {
		return
	}

	size, err := s.snapshotRepo.GetDirectorySize()
	if err != nil {
		s.logger.Error("Error reading snapshot directory size: %v", err)
		return
	}

	for size > s.maxDirSize {
		oldest, err := s.snapshotRepo.GetOldest(10)
		if err != nil || len(oldest) == 0 {
			return
		}
		for _, snap := range oldest {
			if size <= s.maxDirSize {
				break
			}
			if err := os.Remove(snap.FilePath); err != nil && !os.IsNotExist(err) {
				s.logger.Warning("Error removing snapshot %s: %v", snap.Filename, err)
			}
			if err := s.snapshotRepo.Delete(snap.ID); err != nil {
				s.logger.Error("Error deleting snapshot record %s: %v", snap.Filename, err)
				return
			}
			size -= snap.FileSize
			s.logger.Info("Removed old snapshot %s", snap.Filename)
		}
	}
}

// Filename builds the on-disk name of a snapshot, e.g. 2025-03-01_12-00-00.000_fox.jpg.
func Filename(timestamp time.Time, dangerLabel string) string {
	label := strings.ReplaceAll(strings.TrimSpace(dangerLabel), " ", "-")
	return fmt.Sprintf("%s_%s.jpg", timestamp.Format(timestampLayout), label)
}
