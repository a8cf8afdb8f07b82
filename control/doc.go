// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics and debug introspection for the relay.
//
// Provides concurrent-safe state handling primitives including:
//   - a metrics registry the event loop publishes counters into
//   - named debug probes that can be dumped from any goroutine
package control
