package canbus

import "errors"

// Bus represents a CAN bus connection which can send and receive frames.
// Implementations must be safe for concurrent use by multiple goroutines.
type Bus interface {
	// Send transmits a frame. It may block until the frame is queued.
	Send(frame Frame) error

	// Receive blocks until the next frame is available.
	Receive() (Frame, error)

	// Close releases resources. Further Send/Receive return an error.
	Close() error
}

// ErrClosed indicates the bus or endpoint has been closed.
var ErrClosed = errors.New("canbus: closed")
