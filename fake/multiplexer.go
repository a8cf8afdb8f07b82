// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"
	"time"

	"github.com/momentics/linerelay/api"
)

// Multiplexer records interest changes and replays pushed events.
// Wait never blocks.
type Multiplexer struct {
	mu        sync.Mutex
	interests map[int]api.Interest
	tags      map[int]uint64
	pending   []api.Event
	waitErrs  []error
	timeouts  []time.Duration
	modifies  int
	closed    bool
}

// NewMultiplexer creates an empty fake multiplexer.
func NewMultiplexer() *Multiplexer {
	return &Multiplexer{
		interests: make(map[int]api.Interest),
		tags:      make(map[int]uint64),
	}
}

// Register implements api.Multiplexer.Register.
func (m *Multiplexer) Register(fd int, interest api.Interest, tag uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.interests[fd]; ok {
		return &api.RegistrationError{Op: "register", Fd: fd, Err: api.ErrAlreadyRegistered}
	}
	m.interests[fd], m.tags[fd] = interest, tag
	return nil
}

// Modify implements api.Multiplexer.Modify.
func (m *Multiplexer) Modify(fd int, interest api.Interest, tag uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.interests[fd]; !ok {
		return &api.RegistrationError{Op: "modify", Fd: fd, Err: api.ErrNotRegistered}
	}
	m.interests[fd], m.tags[fd] = interest, tag
	m.modifies++
	return nil
}

// Unregister implements api.Multiplexer.Unregister.
func (m *Multiplexer) Unregister(fd int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.interests[fd]; !ok {
		return &api.RegistrationError{Op: "unregister", Fd: fd, Err: api.ErrNotRegistered}
	}
	delete(m.interests, fd)
	delete(m.tags, fd)
	return nil
}

// Wait implements api.Multiplexer.Wait by returning every pushed event.
func (m *Multiplexer) Wait(timeout time.Duration) ([]api.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeouts = append(m.timeouts, timeout)
	if len(m.waitErrs) > 0 {
		err := m.waitErrs[0]
		m.waitErrs = m.waitErrs[1:]
		return nil, err
	}
	evs := m.pending
	m.pending = nil
	return evs, nil
}

// Close implements api.Multiplexer.Close.
func (m *Multiplexer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Push queues an event for the next Wait.
func (m *Multiplexer) Push(ev api.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, ev)
}

// FailWait makes the next Wait return err.
func (m *Multiplexer) FailWait(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waitErrs = append(m.waitErrs, err)
}

// Interest returns the registered interest of fd.
func (m *Multiplexer) Interest(fd int) (api.Interest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.interests[fd]
	return i, ok
}

// Tag returns the registered tag of fd.
func (m *Multiplexer) Tag(fd int) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tags[fd]
	return t, ok
}

// Registered returns the number of registered descriptors.
func (m *Multiplexer) Registered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.interests)
}

// Modifies returns the number of successful Modify calls.
func (m *Multiplexer) Modifies() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modifies
}

// Timeouts returns the timeout passed to every Wait call.
func (m *Multiplexer) Timeouts() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.timeouts...)
}

// Closed reports whether Close was called.
func (m *Multiplexer) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ api.Multiplexer = (*Multiplexer)(nil)
