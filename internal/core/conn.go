// Package core defines the transport-facing contracts the relay is built on:
// a connection that can be written to without blocking, and the broadcast-group
// primitives over such connections.
package core

import "errors"

// Frame is a raw payload already encoded for the wire.
type Frame []byte

// ConnectionID identifies one live transport attachment.
type ConnectionID string

// ErrBackpressure is returned when a connection's send buffer is full.
var ErrBackpressure = errors.New("backpressure")

// SignalConn abstracts a live signaling transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConn interface {
	TrySend(Frame) error
	Close()
}
