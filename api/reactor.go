// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Readiness multiplexer contract used by the relay dispatcher.
// Implementations wrap an OS notification facility (epoll on Linux).

package api

import "time"

// Interest is a bitmask of readiness conditions a handle is watched for.
type Interest uint32

const (
	// InterestRead asks for readable notifications.
	InterestRead Interest = 1 << iota
	// InterestWrite asks for writable notifications.
	InterestWrite
	// InterestError is only ever reported, never requested: error or hang-up.
	InterestError
)

// InterestReadWrite is the interest set of a connection with pending output.
const InterestReadWrite = InterestRead | InterestWrite

// Has reports whether every bit of o is set in i.
func (i Interest) Has(o Interest) bool { return i&o == o }

func (i Interest) String() string {
	switch {
	case i == 0:
		return "none"
	case i == InterestRead:
		return "r"
	case i == InterestWrite:
		return "w"
	case i == InterestReadWrite:
		return "rw"
	}
	s := ""
	if i.Has(InterestRead) {
		s += "r"
	}
	if i.Has(InterestWrite) {
		s += "w"
	}
	if i.Has(InterestError) {
		s += "e"
	}
	return s
}

// Event is one readiness notification returned by Multiplexer.Wait.
type Event struct {
	Ready Interest // conditions the handle is ready for
	Tag   uint64   // opaque correlation value supplied at registration
}

// WaitForever makes Wait block until at least one event is ready.
const WaitForever time.Duration = -1

// Multiplexer monitors many handles for readiness from a single thread.
type Multiplexer interface {
	// Register starts monitoring fd. Registering an fd twice fails with
	// a *RegistrationError wrapping ErrAlreadyRegistered.
	Register(fd int, interest Interest, tag uint64) error

	// Modify atomically replaces the interest set of a registered fd.
	Modify(fd int, interest Interest, tag uint64) error

	// Unregister stops monitoring fd.
	Unregister(fd int) error

	// Wait blocks until at least one handle is ready or timeout elapses and
	// returns at most the configured batch capacity of events. The returned
	// slice is reused by the next call. Interruption yields a *WaitError
	// wrapping ErrInterrupted, which callers retry.
	Wait(timeout time.Duration) ([]Event, error)

	// Close releases the underlying OS resource.
	Close() error
}
