//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"fmt"
	"net"

	"github.com/momentics/linerelay/api"
	"golang.org/x/sys/unix"
)

// DefaultBacklog is the listen(2) backlog used when none is given.
const DefaultBacklog = 128

// Listener is a bound, non-blocking TCP listening socket.
type Listener struct {
	fd   int
	addr string
}

// Listen resolves addr, binds and listens on a non-blocking socket.
func Listen(addr string, backlog int) (*Listener, error) {
	ta, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	if backlog <= 0 {
		backlog = DefaultBacklog
	}

	family, sa := unix.AF_INET, unix.Sockaddr(nil)
	if ip4 := ta.IP.To4(); ip4 != nil || ta.IP == nil {
		sa4 := &unix.SockaddrInet4{Port: ta.Port}
		copy(sa4.Addr[:], ip4)
		sa = sa4
	} else {
		family = unix.AF_INET6
		sa6 := &unix.SockaddrInet6{Port: ta.Port}
		copy(sa6.Addr[:], ta.IP.To16())
		sa = sa6
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket create: %w", err)
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	l := &Listener{fd: fd, addr: addr}
	if bound, err := unix.Getsockname(fd); err == nil {
		l.addr = sockaddrString(bound)
	}
	return l, nil
}

// Fd returns the listening descriptor.
func (l *Listener) Fd() int { return l.fd }

// Addr returns the bound address, with the kernel-chosen port filled in.
func (l *Listener) Addr() string { return l.addr }

// Accept takes one pending connection, already in non-blocking mode.
func (l *Listener) Accept() (api.Socket, error) {
	if l.fd < 0 {
		return nil, api.ErrClosed
	}
	nfd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if err == unix.ECONNABORTED {
			return nil, api.ErrWouldBlock
		}
		return nil, wrapErrno("accept", err)
	}
	_ = unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	return &Socket{fd: nfd, remote: sockaddrString(sa)}, nil
}

// Close closes the listening socket.
func (l *Listener) Close() error {
	if l.fd < 0 {
		return nil
	}
	fd := l.fd
	l.fd = -1
	return unix.Close(fd)
}

var _ api.Listener = (*Listener)(nil)
