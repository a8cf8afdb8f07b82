// File: server/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-peer state: inbound accumulator, outbound FIFO of shared messages
// and the vectored writer that drains it.

package server

import (
	"github.com/eapache/queue"
	"github.com/momentics/linerelay/api"
	"github.com/momentics/linerelay/core/buffer"
	"github.com/momentics/linerelay/pool"
)

// maxIovecs caps the segments handed to a single vectored write (IOV_MAX).
const maxIovecs = 1024

// DrainResult is the outcome of one Drain call.
type DrainResult int

const (
	// Partial means the queue head still has unsent bytes (or nothing was sent).
	Partial DrainResult = iota
	// FullyDrained means the queue head was completely sent and popped.
	FullyDrained
)

func (r DrainResult) String() string {
	if r == FullyDrained {
		return "drained"
	}
	return "partial"
}

// delivery is one recipient's pending copy of a shared message.
// The cursor counts bytes already sent, label included.
type delivery struct {
	msg    *buffer.Message
	cursor int
}

// Conn is one connected peer. It is owned by the dispatcher's loop thread.
type Conn struct {
	tag      uint64
	sock     api.Socket
	label    string
	in       *buffer.Accumulator
	out      *queue.Queue // of *delivery
	iov      [][]byte
	interest api.Interest
	ready    bool // queued for another message on the next loop turn
	closed   bool
}

func newConn(tag uint64, sock api.Socket, chunks *pool.ChunkPool, label string) *Conn {
	return &Conn{
		tag:      tag,
		sock:     sock,
		label:    label,
		in:       buffer.NewAccumulator(chunks),
		out:      queue.New(),
		interest: api.InterestRead,
	}
}

// Fd returns the transport descriptor.
func (c *Conn) Fd() int { return c.sock.Fd() }

// Label returns the display label.
func (c *Conn) Label() string { return c.label }

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() string { return c.sock.RemoteAddr() }

// Interest returns the interest set last registered for the connection.
func (c *Conn) Interest() api.Interest { return c.interest }

// Pending returns the number of queued deliveries.
func (c *Conn) Pending() int { return c.out.Length() }

// Buffered returns the number of inbound bytes not yet framed.
func (c *Conn) Buffered() int { return c.in.Len() }

// Read performs one non-blocking read into the accumulator.
func (c *Conn) Read() (int, error) {
	return c.in.AppendFrom(c.sock)
}

// HasMessage reports whether a complete message is buffered. The scan
// resumes where the previous unsuccessful one stopped.
func (c *Conn) HasMessage() bool {
	return c.in.Index(Delimiter) >= 0
}

// NextMessage freezes the first buffered message, labelled with the
// connection's label. The caller owns the returned reference.
func (c *Conn) NextMessage() (*buffer.Message, bool) {
	p, ok := c.in.TakeThrough(Delimiter)
	if !ok {
		return nil, false
	}
	return buffer.NewMessage(c.label, p), true
}

// Enqueue appends m with a fresh cursor and reports whether the queue was
// empty beforehand.
func (c *Conn) Enqueue(m *buffer.Message) (wasEmpty bool) {
	wasEmpty = c.out.Length() == 0
	c.out.Add(&delivery{msg: m.Retain()})
	return wasEmpty
}

// Drain issues one vectored write for the queue head and advances its
// cursor by what the kernel accepted. A write that would block is Partial
// with zero bytes; any other failure is returned.
func (c *Conn) Drain() (DrainResult, int, error) {
	if c.out.Length() == 0 {
		return FullyDrained, 0, nil
	}
	d := c.out.Peek().(*delivery)
	c.iov = d.msg.AppendSegments(c.iov[:0], d.cursor, maxIovecs)
	n, err := c.sock.Writev(c.iov)
	clear(c.iov)
	if err != nil {
		if api.IsTransient(err) {
			return Partial, 0, nil
		}
		return Partial, 0, err
	}
	d.cursor += n
	if d.cursor < d.msg.Len() {
		return Partial, n, nil
	}
	c.out.Remove()
	d.msg.Release()
	return FullyDrained, n, nil
}

// close releases the socket, every queued delivery and the inbound chunks.
// Closing twice is a no-op.
func (c *Conn) close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	for c.out.Length() > 0 {
		c.out.Remove().(*delivery).msg.Release()
	}
	c.in.Reset()
	return c.sock.Close()
}
