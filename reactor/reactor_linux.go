//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based multiplexer, level-triggered.

package reactor

import (
	"errors"
	"fmt"
	"time"

	"github.com/momentics/linerelay/api"
	"golang.org/x/sys/unix"
)

// epollMultiplexer implements api.Multiplexer using Linux epoll.
type epollMultiplexer struct {
	epfd   int
	events []unix.EpollEvent // raw kernel batch
	out    []api.Event       // translated batch handed to the caller
}

func newMultiplexer(maxEvents int) (api.Multiplexer, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &epollMultiplexer{
		epfd:   epfd,
		events: make([]unix.EpollEvent, maxEvents),
		out:    make([]api.Event, 0, maxEvents),
	}, nil
}

// Register adds fd to the epoll interest list.
func (m *epollMultiplexer) Register(fd int, interest api.Interest, tag uint64) error {
	return m.ctl("register", unix.EPOLL_CTL_ADD, fd, interest, tag)
}

// Modify replaces the interest set of fd.
func (m *epollMultiplexer) Modify(fd int, interest api.Interest, tag uint64) error {
	return m.ctl("modify", unix.EPOLL_CTL_MOD, fd, interest, tag)
}

// Unregister removes fd from the epoll interest list.
func (m *epollMultiplexer) Unregister(fd int) error {
	if err := unix.EpollCtl(m.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return &api.RegistrationError{Op: "unregister", Fd: fd, Err: translate(err)}
	}
	return nil
}

func (m *epollMultiplexer) ctl(op string, code, fd int, interest api.Interest, tag uint64) error {
	if fd < 0 {
		return &api.RegistrationError{Op: op, Fd: fd, Err: api.ErrInvalidArgument}
	}
	ev := unix.EpollEvent{Events: toEpoll(interest)}
	// The tag is split across the two 32-bit user-data words.
	ev.Fd = int32(uint32(tag))
	ev.Pad = int32(uint32(tag >> 32))
	if err := unix.EpollCtl(m.epfd, code, fd, &ev); err != nil {
		return &api.RegistrationError{Op: op, Fd: fd, Err: translate(err)}
	}
	return nil
}

// Wait blocks for readiness and returns at most len(m.events) events.
func (m *epollMultiplexer) Wait(timeout time.Duration) ([]api.Event, error) {
	n, err := unix.EpollWait(m.epfd, m.events, timeoutMillis(timeout))
	if err != nil {
		return nil, &api.WaitError{Err: translate(err)}
	}
	m.out = m.out[:0]
	for i := 0; i < n; i++ {
		ev := &m.events[i]
		m.out = append(m.out, api.Event{
			Ready: fromEpoll(ev.Events),
			Tag:   uint64(uint32(ev.Fd)) | uint64(uint32(ev.Pad))<<32,
		})
	}
	return m.out, nil
}

// Close releases the epoll file descriptor.
func (m *epollMultiplexer) Close() error {
	return unix.Close(m.epfd)
}

func toEpoll(i api.Interest) uint32 {
	var ev uint32
	if i.Has(api.InterestRead) {
		ev |= unix.EPOLLIN
	}
	if i.Has(api.InterestWrite) {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func fromEpoll(ev uint32) api.Interest {
	var i api.Interest
	if ev&unix.EPOLLIN != 0 {
		i |= api.InterestRead
	}
	if ev&unix.EPOLLOUT != 0 {
		i |= api.InterestWrite
	}
	if ev&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		i |= api.InterestError
	}
	return i
}

// translate maps errno values onto the api sentinels, keeping the errno
// reachable through errors.Is.
func translate(err error) error {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return err
	}
	switch errno {
	case unix.EINTR:
		return fmt.Errorf("%w: %w", api.ErrInterrupted, errno)
	case unix.EEXIST:
		return fmt.Errorf("%w: %w", api.ErrAlreadyRegistered, errno)
	case unix.ENOENT:
		return fmt.Errorf("%w: %w", api.ErrNotRegistered, errno)
	case unix.EBADF:
		return fmt.Errorf("%w: %w", api.ErrClosed, errno)
	}
	return errno
}
