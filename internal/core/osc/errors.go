package osc

import "errors"

var (
	// ErrMalformed marks wire data that cannot be decoded. Packets failing
	// this way are logged and dropped, never fatal.
	ErrMalformed = errors.New("malformed packet")

	// ErrProtocol marks a well-formed message that is semantically invalid
	// for the handler it reached, wrong argument count or types.
	ErrProtocol = errors.New("protocol error")

	// ErrConnectionFailed is surfaced after bounded TCP reconnect attempts
	// are exhausted, or immediately on a failed bind.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrClosed is returned by operations on a closed client or server.
	ErrClosed = errors.New("transport closed")
)
