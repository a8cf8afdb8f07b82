// File: server/options.go
// Package server defines functional options for the Dispatcher.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log/slog"

	"github.com/momentics/linerelay/control"
	"golang.org/x/time/rate"
)

// Option customizes dispatcher initialization.
type Option func(*Dispatcher)

// WithLogger overrides Config.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.log = l
	}
}

// WithMetrics publishes housekeeping counters into mr.
func WithMetrics(mr *control.MetricsRegistry) Option {
	return func(d *Dispatcher) {
		d.metrics = mr
	}
}

// WithProbes registers the dispatcher's debug probes in dp.
func WithProbes(dp *control.DebugProbes) Option {
	return func(d *Dispatcher) {
		d.probes = dp
	}
}

// WithErrorLogLimit throttles per-connection error logs to r events per
// second with the given burst.
func WithErrorLogLimit(r rate.Limit, burst int) Option {
	return func(d *Dispatcher) {
		d.errLimit = rate.NewLimiter(r, burst)
	}
}
