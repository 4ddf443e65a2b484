package sink

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"farmwatch/internal/logger"
	"farmwatch/internal/model"
)

type stubSink struct {
	name   string
	err    error
	calls  atomic.Int32
	closed bool
}

func (s *stubSink) Name() string { return s.name }

func (s *stubSink) Publish(ctx context.Context, summary model.FrameSummary) error {
	s.calls.Add(1)
	return s.err
}

func (s *stubSink) Close() error {
	s.closed = true
	return nil
}

func TestMulti_AllSucceed(t *testing.T) {
	a, b := &stubSink{name: "a"}, &stubSink{name: "b"}
	m := NewMulti(a, b)

	if err := m.Publish(context.Background(), model.NewFrameSummary(nil, nil, false, "", 0)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if a.calls.Load() != 1 || b.calls.Load() != 1 {
		t.Error("expected every sink to be called once")
	}
}

func TestMulti_FailureDoesNotSkipOthers(t *testing.T) {
	failing := &stubSink{name: "firebase", err: errors.New("503")}
	ok := &stubSink{name: "redis"}
	m := NewMulti(failing, ok)

	err := m.Publish(context.Background(), model.NewFrameSummary(nil, nil, false, "", 0))
	if err == nil {
		t.Fatal("expected an error")
	}
	if ok.calls.Load() != 1 {
		t.Error("healthy sink should still be called")
	}

	var pe *model.PublishError
	if !errors.As(err, &pe) || pe.Sink != "firebase" {
		t.Errorf("expected PublishError for firebase, got %v", err)
	}
}

func TestMulti_KeepsExistingPublishError(t *testing.T) {
	inner := &model.PublishError{Sink: "mqtt", Err: errors.New("timeout")}
	m := NewMulti(&stubSink{name: "wrapper", err: inner})

	err := m.Publish(context.Background(), model.NewFrameSummary(nil, nil, false, "", 0))

	var pe *model.PublishError
	if !errors.As(err, &pe) || pe.Sink != "mqtt" {
		t.Errorf("expected inner sink name to be kept, got %v", err)
	}
}

func TestMulti_CloseAndNames(t *testing.T) {
	a, b := &stubSink{name: "a"}, &stubSink{name: "b"}
	m := NewMulti(a, b)

	if got := strings.Join(m.Names(), ","); got != "a,b" || m.Len() != 2 {
		t.Errorf("unexpected names %q", got)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("expected all sinks closed")
	}
}

func TestOpenAll_ClosesOpenedSinksOnFailure(t *testing.T) {
	a, b, c := &stubSink{name: "a"}, &stubSink{name: "b"}, &stubSink{name: "c"}
	boom := errors.New("broker unreachable")
	opened := 0
	open := func(s *stubSink) Opener {
		return func() (Publisher, error) {
			opened++
			return s, nil
		}
	}

	sinks, err := OpenAll(open(a), open(b), func() (Publisher, error) { return nil, boom }, open(c))
	if !errors.Is(err, boom) || sinks != nil {
		t.Fatalf("expected opener error, got %v (%v)", err, sinks)
	}
	if !a.closed || !b.closed {
		t.Error("sinks opened before the failure should be closed")
	}
	if opened != 2 || c.closed {
		t.Error("openers after the failure should not run")
	}
}

func TestOpenAll(t *testing.T) {
	a, b := &stubSink{name: "a"}, &stubSink{name: "b"}
	sinks, err := OpenAll(
		func() (Publisher, error) { return a, nil },
		func() (Publisher, error) { return b, nil },
	)
	if err != nil || len(sinks) != 2 {
		t.Fatalf("expected 2 sinks, got %d (%v)", len(sinks), err)
	}
	if a.closed || b.closed {
		t.Error("sinks should stay open")
	}
}

func TestLog_Publish(t *testing.T) {
	var info bytes.Buffer
	l := NewLog(logger.NewWithWriters(&info, &bytes.Buffer{}, &bytes.Buffer{}))

	s := model.NewFrameSummary([]string{"cow"}, map[string]int{"cow": 3}, false, "", 42)
	if err := l.Publish(context.Background(), s); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if !strings.Contains(info.String(), `"cow_count":3`) {
		t.Errorf("expected summary in log, got %q", info.String())
	}
}
