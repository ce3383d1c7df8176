package core

import "errors"

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// Frame is a raw encoded event ready for the wire.
type Frame []byte

// Sender abstracts a connection's outbound messaging transport.
// Owned by the adapter; the adapter must Close() it.
// TrySend must never block: it returns ErrBackpressure when the
// outbound buffer is full and ErrClosed after Close.
type Sender interface {
	TrySend(Frame) error
	Close()
}
