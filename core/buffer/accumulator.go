// File: core/buffer/accumulator.go
// Package buffer implements the chunked inbound accumulator and the
// immutable, reference-counted messages frozen out of it.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

import (
	"bytes"
	"io"

	"github.com/momentics/linerelay/pool"
)

// Reader is the single-attempt read side of a non-blocking socket.
// (0, nil) means the peer closed the stream.
type Reader interface {
	Read(p []byte) (int, error)
}

// Accumulator is an append-only byte sequence built from fixed-size chunks.
//
// All chunks before the last are full; the last holds Len() mod ChunkSize()
// valid bytes (or is full). Chunks are taken from the pool one at a time,
// only when the tail is full.
type Accumulator struct {
	pool   *pool.ChunkPool
	chunks [][]byte
	length int

	// scanned is the prefix length already known not to contain scanByte.
	scanned  int
	scanByte byte
}

// NewAccumulator returns an empty accumulator drawing chunks from p.
func NewAccumulator(p *pool.ChunkPool) *Accumulator {
	return &Accumulator{pool: p}
}

// Len returns the number of valid bytes.
func (a *Accumulator) Len() int { return a.length }

// ChunkSize returns the capacity of each chunk.
func (a *Accumulator) ChunkSize() int { return a.pool.Size() }

// Chunks returns the number of chunks currently held.
func (a *Accumulator) Chunks() int { return len(a.chunks) }

// AppendFrom performs exactly one read into the unused region of the tail
// chunk, allocating a new tail first when the current one is full.
//
// It returns the number of bytes appended. A peer close is reported as
// (0, io.EOF); a read that would block returns the reader's error untouched
// so callers can tell it apart with api.IsTransient.
func (a *Accumulator) AppendFrom(r Reader) (int, error) {
	size := a.pool.Size()
	if a.length == len(a.chunks)*size {
		a.chunks = append(a.chunks, a.pool.Get())
	}
	tail := a.chunks[a.length/size]
	n, err := r.Read(tail[a.length%size:])
	if n > 0 {
		a.length += n
		return n, nil
	}
	if err == nil || err == io.EOF {
		return 0, io.EOF
	}
	return 0, err
}

// Write appends p, growing the chunk list as needed. It never fails.
func (a *Accumulator) Write(p []byte) (int, error) {
	size := a.pool.Size()
	total := len(p)
	for len(p) > 0 {
		if a.length == len(a.chunks)*size {
			a.chunks = append(a.chunks, a.pool.Get())
		}
		off := a.length % size
		n := copy(a.chunks[a.length/size][off:], p)
		a.length += n
		p = p[n:]
	}
	return total, nil
}

// Contains reports whether b occurs in the valid bytes. Chunks are scanned
// newest first because a terminator almost always sits next to the most
// recently appended byte.
func (a *Accumulator) Contains(b byte) bool {
	for i := len(a.chunks) - 1; i >= 0; i-- {
		if bytes.IndexByte(a.valid(i), b) >= 0 {
			return true
		}
	}
	return false
}

// Index returns the absolute offset of the first b, or -1. Repeated calls
// with the same byte resume from where the previous unsuccessful scan ended.
func (a *Accumulator) Index(b byte) int {
	if b != a.scanByte {
		a.scanByte, a.scanned = b, 0
	}
	size := a.pool.Size()
	for a.scanned < a.length {
		ci, off := a.scanned/size, a.scanned%size
		seg := a.valid(ci)[off:]
		if j := bytes.IndexByte(seg, b); j >= 0 {
			return a.scanned + j
		}
		a.scanned += len(seg)
	}
	return -1
}

// Take hands the whole chunk sequence to the caller as a frozen Payload and
// leaves a with no content.
func (a *Accumulator) Take() Payload {
	size := a.pool.Size()
	used := (a.length + size - 1) / size
	// A trailing chunk allocated for a read that delivered nothing.
	for _, c := range a.chunks[used:] {
		a.pool.Put(c)
	}
	p := Payload{pool: a.pool, chunks: a.chunks[:used:used], length: a.length}
	a.chunks, a.length, a.scanned = nil, 0, 0
	return p
}

// TakeThrough freezes the bytes up to and including the first occurrence
// of b and keeps whatever follows buffered in a. It reports false, leaving
// a untouched, when b is absent.
func (a *Accumulator) TakeThrough(b byte) (Payload, bool) {
	idx := a.Index(b)
	if idx < 0 {
		return Payload{}, false
	}
	n := idx + 1
	if n == a.length {
		return a.Take(), true
	}

	size := a.pool.Size()
	last := idx / size
	rest := &Accumulator{pool: a.pool}
	for pos := n; pos < a.length; {
		seg := a.valid(pos / size)[pos%size:]
		rest.Write(seg)
		pos += len(seg)
	}
	for _, c := range a.chunks[last+1:] {
		a.pool.Put(c)
	}
	p := Payload{pool: a.pool, chunks: a.chunks[: last+1 : last+1], length: n}
	a.chunks, a.length = rest.chunks, rest.length
	a.scanned, a.scanByte = 0, b
	return p, true
}

// Reset drops all content and returns the chunks to the pool.
func (a *Accumulator) Reset() {
	for _, c := range a.chunks {
		a.pool.Put(c)
	}
	a.chunks, a.length, a.scanned = nil, 0, 0
}

// valid returns the valid region of chunk i.
func (a *Accumulator) valid(i int) []byte {
	size := a.pool.Size()
	end := a.length - i*size
	if end > size {
		end = size
	}
	if end < 0 {
		end = 0
	}
	return a.chunks[i][:end]
}
