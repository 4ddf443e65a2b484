// Package history records every published summary in the local database.
package history

import (
	"context"

	"farmwatch/internal/model"
	"farmwatch/internal/repository"
)

type Sink struct {
	repo repository.SummaryRepository
}

func New(repo repository.SummaryRepository) *Sink {
	return &Sink{repo: repo}
}

func (s *Sink) Name() string {
	return "history"
}

func (s *Sink) Publish(ctx context.Context, summary model.FrameSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.repo.Insert(summary)
	return err
}
