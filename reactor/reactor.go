// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral multiplexer factory and shared helpers.

package reactor

import (
	"time"

	"github.com/momentics/linerelay/api"
)

// DefaultMaxEvents bounds how many events a single Wait returns.
const DefaultMaxEvents = 128

// New returns the platform multiplexer with the given event batch capacity.
// maxEvents <= 0 selects DefaultMaxEvents.
func New(maxEvents int) (api.Multiplexer, error) {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return newMultiplexer(maxEvents)
}

// timeoutMillis converts a wait timeout to the millisecond form the kernel
// expects. Negative means forever; positive sub-millisecond values round up
// so a short timeout never degenerates into a busy poll.
func timeoutMillis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := d / time.Millisecond
	if d%time.Millisecond != 0 {
		ms++
	}
	if ms > 1<<31-1 {
		return 1<<31 - 1
	}
	return int(ms)
}
