package model

import (
	"errors"
	"fmt"
)

var (
	// ErrCaptureFailure means the frame source is exhausted or unavailable.
	ErrCaptureFailure = errors.New("capture failure")

	// ErrStopRequested is returned when the operator asked the loop to stop.
	ErrStopRequested = errors.New("stop requested")
)

// PublishError reports a sink that could not accept a summary.
type PublishError struct {
	Sink string
	Err  error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s: %v", e.Sink, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
