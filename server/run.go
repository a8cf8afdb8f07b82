// File: server/run.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Startup helpers wiring the TCP listener and the platform multiplexer
// into a Dispatcher.

package server

import (
	"context"

	"github.com/momentics/linerelay/reactor"
	"github.com/momentics/linerelay/transport/tcp"
)

// Listen binds cfg.ListenAddr and returns a dispatcher ready to Run.
// Failures here are process-fatal.
func Listen(cfg *Config, opts ...Option) (*Dispatcher, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ln, err := tcp.Listen(cfg.ListenAddr, cfg.Backlog)
	if err != nil {
		return nil, err
	}
	mux, err := reactor.New(cfg.MaxEvents)
	if err != nil {
		ln.Close()
		return nil, err
	}
	d, err := New(cfg, ln, mux, opts...)
	if err != nil {
		mux.Close()
		ln.Close()
		return nil, err
	}
	return d, nil
}

// ListenAndServe binds cfg.ListenAddr and relays until ctx is cancelled.
func ListenAndServe(ctx context.Context, cfg *Config, opts ...Option) error {
	d, err := Listen(cfg, opts...)
	if err != nil {
		return err
	}
	return d.Run(ctx)
}
