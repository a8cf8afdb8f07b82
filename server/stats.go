// File: server/stats.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// counters are written by the loop thread and read from anywhere.
type counters struct {
	connections atomic.Int64
	accepted    atomic.Uint64
	removed     atomic.Uint64
	messages    atomic.Uint64
	bytesIn     atomic.Uint64
	bytesOut    atomic.Uint64
	suppressed  atomic.Uint64

	acceptPauses atomic.Uint64
}

// Stats is a point-in-time view of the dispatcher counters.
type Stats struct {
	Connections    int64
	Accepted       uint64
	Removed        uint64
	Messages       uint64
	BytesIn        uint64
	BytesOut       uint64
	SuppressedLogs uint64
	AcceptPauses   uint64
	ChunksInUse    int64
}

// Stats returns the current counters. Safe to call from any goroutine.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Connections:    d.stats.connections.Load(),
		Accepted:       d.stats.accepted.Load(),
		Removed:        d.stats.removed.Load(),
		Messages:       d.stats.messages.Load(),
		BytesIn:        d.stats.bytesIn.Load(),
		BytesOut:       d.stats.bytesOut.Load(),
		SuppressedLogs: d.stats.suppressed.Load(),
		AcceptPauses:   d.stats.acceptPauses.Load(),
		ChunksInUse:    d.chunks.Stats().InUse,
	}
}

// housekeeping publishes and logs counters every StatsInterval.
func (d *Dispatcher) housekeeping(now time.Time) {
	if d.cfg.StatsInterval <= 0 || now.Sub(d.lastStats) < d.cfg.StatsInterval {
		return
	}
	d.lastStats = now
	st := d.Stats()
	if d.metrics != nil {
		d.metrics.SetAll(map[string]any{
			"connections":     st.Connections,
			"accepted":        st.Accepted,
			"removed":         st.Removed,
			"messages":        st.Messages,
			"bytes_in":        st.BytesIn,
			"bytes_out":       st.BytesOut,
			"suppressed_logs": st.SuppressedLogs,
			"accept_pauses":   st.AcceptPauses,
			"chunks_in_use":   st.ChunksInUse,
		})
	}
	d.log.Info("relay stats",
		"connections", st.Connections,
		"messages", humanize.Comma(int64(st.Messages)),
		"in", humanize.Bytes(st.BytesIn),
		"out", humanize.Bytes(st.BytesOut),
		"ready", len(d.ready))
}

func (d *Dispatcher) registerProbes() {
	d.probes.RegisterProbe("relay.addr", func() any { return d.ln.Addr() })
	d.probes.RegisterProbe("relay.stats", func() any { return d.Stats() })
	d.probes.RegisterProbe("relay.chunk_pool", func() any { return d.chunks.Stats() })
}
