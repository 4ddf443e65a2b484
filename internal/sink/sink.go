// Package sink publishes frame summaries to external systems.
package sink

import (
	"context"
	"errors"
	"io"
	"sync"

	"farmwatch/internal/logger"
	"farmwatch/internal/model"
)

// Publisher pushes a summary to one destination.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, summary model.FrameSummary) error
}

// Multi publishes to every sink concurrently. A failing sink never keeps the
// others from receiving the summary; failures are joined.
type Multi struct {
	sinks []Publisher
}

func NewMulti(sinks ...Publisher) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Name() string {
	return "multi"
}

// Len returns the number of sinks.
func (m *Multi) Len() int {
	return len(m.sinks)
}

// Names lists the sinks in registration order.
func (m *Multi) Names() []string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return names
}

// Publish returns nil or an errors.Join of *model.PublishError, one per failed sink.
func (m *Multi) Publish(ctx context.Context, summary model.FrameSummary) error {
	errs := make([]error, len(m.sinks))

	var wg sync.WaitGroup
	for i, s := range m.sinks {
		wg.Add(1)
		go func(i int, s Publisher) {
			defer wg.Done()
			if err := s.Publish(ctx, summary); err != nil {
				errs[i] = wrap(s.Name(), err)
			}
		}(i, s)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// Close closes every sink that holds resources.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, wrap(s.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Opener creates one sink.
type Opener func() (Publisher, error)

// OpenAll calls the openers in order. When one fails, the sinks opened
// before it are closed and its error is returned.
func OpenAll(openers ...Opener) ([]Publisher, error) {
	sinks := make([]Publisher, 0, len(openers))
	for _, open := range openers {
		s, err := open()
		if err != nil {
			NewMulti(sinks...).Close()
			return nil, err
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

func wrap(name string, err error) error {
	var pe *model.PublishError
	if errors.As(err, &pe) {
		return err
	}
	return &model.PublishError{Sink: name, Err: err}
}

// Log writes every summary to the log. It is used when no remote sink is configured.
type Log struct {
	logger *logger.Logger
}

func NewLog(logger *logger.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Name() string {
	return "log"
}

func (l *Log) Publish(ctx context.Context, summary model.FrameSummary) error {
	data, err := summary.MarshalJSON()
	if err != nil {
		return err
	}
	l.logger.Info("Summary: %s", data)
	return nil
}
