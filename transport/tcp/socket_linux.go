//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"fmt"
	"net"
	"strconv"

	"github.com/momentics/linerelay/api"
	"golang.org/x/sys/unix"
)

// Socket is a connected, non-blocking TCP stream owned by one connection.
type Socket struct {
	fd     int
	remote string
}

// Fd returns the descriptor, or -1 once closed.
func (s *Socket) Fd() int { return s.fd }

// RemoteAddr returns the peer address in host:port form.
func (s *Socket) RemoteAddr() string { return s.remote }

// Read performs one read(2).
func (s *Socket) Read(p []byte) (int, error) {
	if s.fd < 0 {
		return 0, api.ErrClosed
	}
	n, err := unix.Read(s.fd, p)
	if err != nil {
		return 0, wrapErrno("read", err)
	}
	return n, nil
}

// Writev gathers bufs into one sendmsg(2). MSG_NOSIGNAL keeps a peer reset
// from raising SIGPIPE; the caller sees EPIPE instead.
func (s *Socket) Writev(bufs [][]byte) (int, error) {
	if s.fd < 0 {
		return 0, api.ErrClosed
	}
	n, err := unix.SendmsgBuffers(s.fd, bufs, nil, nil, unix.MSG_NOSIGNAL|unix.MSG_DONTWAIT)
	if err != nil {
		return 0, wrapErrno("sendmsg", err)
	}
	return n, nil
}

// Close closes the descriptor. Closing twice is a no-op.
func (s *Socket) Close() error {
	if s.fd < 0 {
		return nil
	}
	fd := s.fd
	s.fd = -1
	return unix.Close(fd)
}

// wrapErrno turns EAGAIN/EINTR into the api sentinels and annotates the rest.
func wrapErrno(op string, err error) error {
	switch err {
	case unix.EAGAIN:
		return api.ErrWouldBlock
	case unix.EINTR:
		return api.ErrInterrupted
	}
	return fmt.Errorf("%s: %w", op, err)
}

func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	}
	return "unknown"
}

var _ api.Socket = (*Socket)(nil)
