// File: server/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/momentics/linerelay/pool"
	"github.com/momentics/linerelay/reactor"
)

// Delimiter terminates one message on the wire.
const Delimiter = '\n'

// Config holds all relay configuration parameters.
type Config struct {
	ListenAddr    string        // TCP bind address, e.g. "127.0.0.1:7878"
	Backlog       int           // listen(2) backlog
	ChunkSize     int           // accumulator chunk capacity in bytes
	MaxEvents     int           // readiness events returned per wait
	WaitTimeout   time.Duration // multiplexer wait timeout; negative blocks until an event
	StatsInterval time.Duration // housekeeping period; 0 disables stats
	SelfDelivery  bool          // deliver messages back to their sender
	PinCPU        bool          // pin the loop thread to CPU
	CPU           int           // logical CPU used when PinCPU is set
	MaxLineBytes  int           // drop peers buffering more without a delimiter; 0 = unlimited
	Labeler       Labeler       // per-connection display label policy
	Logger        *slog.Logger  // nil means slog.Default()
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:    "127.0.0.1:7878",
		Backlog:       128,
		ChunkSize:     pool.DefaultChunkSize,
		MaxEvents:     reactor.DefaultMaxEvents,
		WaitTimeout:   250 * time.Millisecond,
		StatsInterval: time.Minute,
		SelfDelivery:  true,
		MaxLineBytes:  1 << 20,
		Labeler:       AddrLabel(),
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.ChunkSize < 1:
		return fmt.Errorf("config: chunk size %d must be positive", c.ChunkSize)
	case c.MaxEvents < 1:
		return fmt.Errorf("config: max events %d must be positive", c.MaxEvents)
	case c.MaxLineBytes < 0:
		return fmt.Errorf("config: negative max line length %d", c.MaxLineBytes)
	case c.PinCPU && c.CPU < 0:
		return fmt.Errorf("config: invalid cpu %d", c.CPU)
	case c.StatsInterval < 0:
		return fmt.Errorf("config: negative stats interval %s", c.StatsInterval)
	case c.Labeler == nil:
		return fmt.Errorf("config: no label policy")
	}
	return nil
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
