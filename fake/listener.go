// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"

	"github.com/momentics/linerelay/api"
)

// Listener hands out queued sockets and reports ErrWouldBlock when empty.
type Listener struct {
	mu        sync.Mutex
	fd        int
	backlog   []api.Socket
	acceptErr error
	closed    bool
}

// NewListener creates a fake listener on the given descriptor.
func NewListener(fd int) *Listener { return &Listener{fd: fd} }

// Fd implements api.Listener.Fd.
func (l *Listener) Fd() int { return l.fd }

// Addr implements api.Listener.Addr.
func (l *Listener) Addr() string { return "fake:0" }

// Accept implements api.Listener.Accept.
func (l *Listener) Accept() (api.Socket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, api.ErrClosed
	}
	if l.acceptErr != nil {
		err := l.acceptErr
		l.acceptErr = nil
		return nil, err
	}
	if len(l.backlog) == 0 {
		return nil, api.ErrWouldBlock
	}
	s := l.backlog[0]
	l.backlog = l.backlog[1:]
	return s, nil
}

// Close implements api.Listener.Close.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Enqueue adds a socket to the accept backlog.
func (l *Listener) Enqueue(s api.Socket) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backlog = append(l.backlog, s)
}

// FailNextAccept makes the next Accept return err.
func (l *Listener) FailNextAccept(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acceptErr = err
}

// Closed reports whether Close was called.
func (l *Listener) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

var _ api.Listener = (*Listener)(nil)
