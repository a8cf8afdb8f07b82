// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Non-blocking stream socket abstraction consumed by the relay core.

package api

// Socket is an exclusively owned, non-blocking, connection-oriented stream.
//
// Read performs exactly one read attempt. It returns ErrWouldBlock when no
// data is available and (0, nil) when the peer closed the stream.
// Writev gathers bufs into a single write and returns the number of bytes
// the kernel accepted, which may be fewer than requested. A write that can
// make no progress returns (0, ErrWouldBlock).
type Socket interface {
	Fd() int
	Read(p []byte) (int, error)
	Writev(bufs [][]byte) (int, error)
	RemoteAddr() string
	Close() error
}

// Listener accepts non-blocking Sockets.
type Listener interface {
	Fd() int
	// Accept returns ErrWouldBlock when no connection is pending.
	Accept() (Socket, error)
	Addr() string
	Close() error
}
