//go:build !linux
// +build !linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"errors"

	"github.com/momentics/linerelay/api"
)

// DefaultBacklog is the listen(2) backlog used when none is given.
const DefaultBacklog = 128

// Listen is only implemented on Linux.
func Listen(string, int) (api.Listener, error) {
	return nil, errors.New("tcp: this platform is not supported")
}
