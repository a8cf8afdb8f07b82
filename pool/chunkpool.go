// File: pool/chunkpool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed-size chunk recycling for inbound accumulators.

package pool

import (
	"sync"
	"sync/atomic"
)

// DefaultChunkSize is the accumulator chunk capacity used when none is configured.
const DefaultChunkSize = 512

// Stats aggregates chunk allocation/reuse counters.
type Stats struct {
	TotalAlloc int64 // chunks created from scratch
	TotalGet   int64
	TotalPut   int64
	InUse      int64
}

// ChunkPool hands out byte slices of exactly Size() bytes.
// A chunk must not be touched after Put.
type ChunkPool struct {
	size  int
	p     sync.Pool
	alloc atomic.Int64
	gets  atomic.Int64
	puts  atomic.Int64
}

// NewChunkPool creates a pool of size-byte chunks. size < 1 is treated as 1.
func NewChunkPool(size int) *ChunkPool {
	if size < 1 {
		size = 1
	}
	cp := &ChunkPool{size: size}
	cp.p.New = func() any {
		cp.alloc.Add(1)
		b := make([]byte, cp.size)
		return &b
	}
	return cp
}

// Size returns the chunk capacity.
func (cp *ChunkPool) Size() int { return cp.size }

// Get returns a chunk with len == cap == Size(). Contents are unspecified.
func (cp *ChunkPool) Get() []byte {
	cp.gets.Add(1)
	return *cp.p.Get().(*[]byte)
}

// Put returns a chunk to the pool. Foreign-sized slices are dropped.
func (cp *ChunkPool) Put(b []byte) {
	if cap(b) != cp.size {
		return
	}
	cp.puts.Add(1)
	b = b[:cp.size]
	cp.p.Put(&b)
}

// Stats returns a snapshot of the pool counters.
func (cp *ChunkPool) Stats() Stats {
	gets, puts := cp.gets.Load(), cp.puts.Load()
	return Stats{
		TotalAlloc: cp.alloc.Load(),
		TotalGet:   gets,
		TotalPut:   puts,
		InUse:      gets - puts,
	}
}
