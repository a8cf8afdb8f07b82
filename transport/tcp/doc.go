// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp provides the non-blocking listening socket and the connected
// stream sockets driven by the relay's readiness loop. Every call performs a
// single system call attempt and reports "would block" as api.ErrWouldBlock.
package tcp
