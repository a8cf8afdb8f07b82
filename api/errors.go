// Package api
// Author: momentics <momentics@gmail.com>
//
// Error taxonomy shared by the reactor, transport and dispatcher layers.

package api

import (
	"errors"
	"fmt"
	"syscall"
)

// Common errors used across the relay.
var (
	ErrWouldBlock        = errors.New("operation would block")
	ErrInterrupted       = errors.New("interrupted system call")
	ErrClosed            = errors.New("use of closed handle")
	ErrNotRegistered     = errors.New("handle not registered")
	ErrAlreadyRegistered = errors.New("handle already registered")
	ErrInvalidArgument   = errors.New("invalid argument")
)

// RegistrationError reports a failed register/modify/unregister call.
type RegistrationError struct {
	Op  string // "register", "modify" or "unregister"
	Fd  int
	Err error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("%s fd %d: %v", e.Op, e.Fd, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// WaitError reports a failed multiplexer wait.
type WaitError struct {
	Err error
}

func (e *WaitError) Error() string { return "wait: " + e.Err.Error() }

func (e *WaitError) Unwrap() error { return e.Err }

// IsTransient reports whether err means "retry on the next readiness
// notification" rather than a failure.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrWouldBlock), errors.Is(err, ErrInterrupted):
		return true
	case errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.EINTR):
		return true
	}
	return false
}
