// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the relay's core interfaces.

package fake

import (
	"sync"

	"github.com/momentics/linerelay/api"
)

// Socket is a scripted in-memory implementation of api.Socket.
type Socket struct {
	mu         sync.Mutex
	fd         int
	addr       string
	inbound    []byte
	eof        bool
	readErr    error
	sent       []byte
	writeLimit int
	blocked    bool
	writeErr   error
	writevs    int
	segments   []int
	closeCalls int
}

// NewSocket creates a fake socket with the given descriptor and peer address.
func NewSocket(fd int, addr string) *Socket {
	return &Socket{fd: fd, addr: addr}
}

// Fd implements api.Socket.Fd.
func (s *Socket) Fd() int { return s.fd }

// RemoteAddr implements api.Socket.RemoteAddr.
func (s *Socket) RemoteAddr() string { return s.addr }

// Read implements api.Socket.Read.
func (s *Socket) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closeCalls > 0 {
		return 0, api.ErrClosed
	}
	if s.readErr != nil {
		return 0, s.readErr
	}
	if len(s.inbound) == 0 {
		if s.eof {
			return 0, nil
		}
		return 0, api.ErrWouldBlock
	}
	n := copy(p, s.inbound)
	s.inbound = s.inbound[n:]
	return n, nil
}

// Writev implements api.Socket.Writev.
func (s *Socket) Writev(bufs [][]byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closeCalls > 0 {
		return 0, api.ErrClosed
	}
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	s.writevs++
	s.segments = append(s.segments, len(bufs))
	if s.blocked {
		return 0, api.ErrWouldBlock
	}
	written := 0
	for _, b := range bufs {
		if s.writeLimit > 0 && written+len(b) > s.writeLimit {
			b = b[:s.writeLimit-written]
		}
		s.sent = append(s.sent, b...)
		written += len(b)
		if s.writeLimit > 0 && written == s.writeLimit {
			break
		}
	}
	return written, nil
}

// Close implements api.Socket.Close.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalls++
	return nil
}

// Feed queues data to be returned by subsequent reads.
func (s *Socket) Feed(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbound = append(s.inbound, data...)
}

// Unread returns the number of fed bytes not yet consumed by Read.
func (s *Socket) Unread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inbound)
}

// Hangup makes reads report a peer close once queued data is consumed.
func (s *Socket) Hangup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eof = true
}

// SetReadError configures the socket to fail every read with err.
func (s *Socket) SetReadError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

// SetWriteError configures the socket to fail every write with err.
func (s *Socket) SetWriteError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// SetWriteLimit caps the bytes accepted per Writev; 0 removes the cap.
func (s *Socket) SetWriteLimit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeLimit = n
}

// SetBlocked makes writes report ErrWouldBlock while b is true.
func (s *Socket) SetBlocked(b bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked = b
}

// Sent returns a copy of every byte accepted so far.
func (s *Socket) Sent() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.sent...)
}

// Writevs returns the number of Writev calls that reached the socket.
func (s *Socket) Writevs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writevs
}

// Segments returns the iovec count of every Writev call.
func (s *Socket) Segments() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.segments...)
}

// CloseCalls returns how many times Close was invoked.
func (s *Socket) CloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

var _ api.Socket = (*Socket)(nil)
