// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness multiplexer behind the relay's
// single-threaded event loop: level-triggered epoll on Linux.
package reactor
