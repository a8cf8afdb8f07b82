// File: core/buffer/message.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

import (
	"sync/atomic"

	"github.com/momentics/linerelay/pool"
)

// Payload is a frozen chunk sequence. Nothing writes to its chunks after
// it leaves the Accumulator.
type Payload struct {
	pool   *pool.ChunkPool
	chunks [][]byte
	length int
}

// Len returns the number of valid bytes.
func (p Payload) Len() int { return p.length }

// Chunks returns the number of chunks backing the payload.
func (p Payload) Chunks() int { return len(p.chunks) }

// AppendSegments appends slices covering bytes [off, Len()) to dst, at most
// max of them (max <= 0 means unbounded). Slices alias the chunks.
func (p Payload) AppendSegments(dst [][]byte, off, max int) [][]byte {
	if off >= p.length {
		return dst
	}
	size := p.pool.Size()
	added := 0
	for ci := off / size; ci < len(p.chunks); ci++ {
		if max > 0 && added == max {
			break
		}
		end := p.length - ci*size
		if end > size {
			end = size
		}
		start := 0
		if ci == off/size {
			start = off % size
		}
		dst = append(dst, p.chunks[ci][start:end])
		added++
	}
	return dst
}

// Bytes returns a contiguous copy of the payload.
func (p Payload) Bytes() []byte {
	out := make([]byte, 0, p.length)
	for _, seg := range p.AppendSegments(nil, 0, 0) {
		out = append(out, seg...)
	}
	return out
}

func (p Payload) release() {
	for _, c := range p.chunks {
		p.pool.Put(c)
	}
}

// Message is an immutable (label, payload) pair shared by every recipient
// queue that must deliver it. Recipients keep their own write cursor; the
// message only tracks how many of them still hold it.
type Message struct {
	label   []byte
	payload Payload
	refs    atomic.Int32
}

// NewMessage freezes label and payload into a Message holding one reference,
// owned by the caller.
func NewMessage(label string, payload Payload) *Message {
	m := &Message{label: []byte(label), payload: payload}
	m.refs.Store(1)
	return m
}

// Retain adds a reference and returns m.
func (m *Message) Retain() *Message {
	if m.refs.Add(1) <= 1 {
		panic("buffer: retain of released message")
	}
	return m
}

// Release drops a reference. The last release returns the payload chunks
// to their pool; m must not be used afterwards.
func (m *Message) Release() {
	switch n := m.refs.Add(-1); {
	case n == 0:
		m.payload.release()
		m.payload = Payload{}
	case n < 0:
		panic("buffer: message released too many times")
	}
}

// Refs returns the current reference count.
func (m *Message) Refs() int { return int(m.refs.Load()) }

// Label returns the sender label.
func (m *Message) Label() string { return string(m.label) }

// Payload returns the frozen payload.
func (m *Message) Payload() Payload { return m.payload }

// Len is the number of bytes put on the wire: label followed by payload.
func (m *Message) Len() int { return len(m.label) + m.payload.length }

// AppendSegments appends the unsent suffix starting at cursor, label bytes
// first, without copying. At most max segments are appended (max <= 0 means
// unbounded).
func (m *Message) AppendSegments(dst [][]byte, cursor, max int) [][]byte {
	if cursor < len(m.label) {
		dst = append(dst, m.label[cursor:])
		if max > 0 {
			if max == 1 {
				return dst
			}
			max--
		}
		cursor = len(m.label)
	}
	return m.payload.AppendSegments(dst, cursor-len(m.label), max)
}

// Bytes returns a contiguous copy of the wire form.
func (m *Message) Bytes() []byte {
	out := make([]byte, 0, m.Len())
	out = append(out, m.label...)
	return append(out, m.payload.Bytes()...)
}
