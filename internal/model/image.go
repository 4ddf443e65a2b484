package model

// Image is a decoded camera frame owned by whoever grabbed it.
// The owner must call Close once the frame is no longer needed.
type Image interface {
	Close() error
}
