// File: server/dispatcher.go
// Package server implements the relay's single-threaded reactor: it accepts
// peers, frames their input into messages and fans every message out to all
// connected peers without blocking on slow receivers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/momentics/linerelay/affinity"
	"github.com/momentics/linerelay/api"
	"github.com/momentics/linerelay/control"
	"github.com/momentics/linerelay/pool"
	"golang.org/x/time/rate"
)

// Dispatcher owns the multiplexer, the listener and the connection table.
// Everything except Stats and the debug probes runs on the goroutine that
// calls Run (or Step).
type Dispatcher struct {
	cfg     *Config
	log     *slog.Logger
	mux     api.Multiplexer
	ln      api.Listener
	lnTag   uint64
	chunks  *pool.ChunkPool
	conns   map[int]*Conn
	gen     uint32
	ready   []*Conn
	spare   []*Conn
	stats   counters
	metrics *control.MetricsRegistry
	probes  *control.DebugProbes

	errLimit  *rate.Limiter
	lastStats time.Time
	closed    bool

	// Accept backoff: while acceptPaused the listener has no interest and
	// is re-armed at acceptResume.
	acceptPaused bool
	acceptDelay  time.Duration
	acceptResume time.Time
}

// Bounds of the accept backoff applied after accept failures such as
// EMFILE, which leave the listener readable.
const (
	acceptMinSleep = 10 * time.Millisecond
	acceptMaxSleep = time.Second
)

// New builds a dispatcher over an already bound listener and a fresh
// multiplexer, and registers the listener for readability. The dispatcher
// takes ownership of both.
func New(cfg *Config, ln api.Listener, mux api.Multiplexer, opts ...Option) (*Dispatcher, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Dispatcher{
		cfg:      cfg,
		log:      cfg.logger(),
		mux:      mux,
		ln:       ln,
		lnTag:    uint64(uint32(ln.Fd())),
		chunks:   pool.NewChunkPool(cfg.ChunkSize),
		conns:    make(map[int]*Conn),
		errLimit: rate.NewLimiter(rate.Every(time.Second), 10),
	}
	for _, o := range opts {
		o(d)
	}
	if err := mux.Register(ln.Fd(), api.InterestRead, d.lnTag); err != nil {
		return nil, err
	}
	if d.probes != nil {
		d.registerProbes()
	}
	d.lastStats = time.Now()
	return d, nil
}

// Addr returns the listening address.
func (d *Dispatcher) Addr() string { return d.ln.Addr() }

// Run drives the loop until ctx is cancelled or a process-fatal error
// occurs, then closes every connection, the listener and the multiplexer.
// Cancellation is observed between waits, so a negative WaitTimeout delays
// shutdown until the next readiness event.
func (d *Dispatcher) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if d.cfg.PinCPU {
		if err := affinity.SetAffinity(d.cfg.CPU); err != nil {
			d.log.Warn("cpu pinning failed", "cpu", d.cfg.CPU, "err", err)
		}
	}
	defer d.Close()

	d.log.Info("relay listening", "addr", d.ln.Addr(), "chunk_size", d.cfg.ChunkSize,
		"self_delivery", d.cfg.SelfDelivery)
	for {
		select {
		case <-ctx.Done():
			d.log.Info("relay stopping", "connections", len(d.conns))
			return nil
		default:
		}
		if err := d.Step(); err != nil {
			return err
		}
	}
}

// Step runs one loop turn: it serves connections holding buffered complete
// messages, waits for one batch of readiness events and dispatches them in
// the order returned. Only multiplexer failures are returned.
func (d *Dispatcher) Step() error {
	d.serveReady()

	events, err := d.mux.Wait(d.waitTimeout(time.Now()))
	if err != nil {
		if api.IsTransient(err) {
			return nil
		}
		return err
	}
	for _, ev := range events {
		d.dispatch(ev)
	}
	now := time.Now()
	d.resumeAccept(now)
	d.housekeeping(now)
	return nil
}

// waitTimeout is the configured timeout, shortened to zero while
// connections are ready and to the accept re-arm deadline while paused.
func (d *Dispatcher) waitTimeout(now time.Time) time.Duration {
	timeout := d.cfg.WaitTimeout
	if len(d.ready) > 0 {
		return 0
	}
	if d.acceptPaused {
		until := d.acceptResume.Sub(now)
		if until < 0 {
			until = 0
		}
		if timeout < 0 || until < timeout {
			timeout = until
		}
	}
	return timeout
}

func (d *Dispatcher) dispatch(ev api.Event) {
	if ev.Tag == d.lnTag {
		if !d.acceptPaused {
			d.accept()
		}
		return
	}
	c := d.lookup(ev.Tag)
	if c == nil {
		// Removed earlier in this batch.
		return
	}
	switch {
	case ev.Ready.Has(api.InterestRead):
		if !d.onReadable(c) {
			return
		}
	case !ev.Ready.Has(api.InterestWrite) && ev.Ready.Has(api.InterestError):
		d.remove(c, errHangup)
		return
	}
	if ev.Ready.Has(api.InterestWrite) {
		d.onWritable(c)
	}
}

var (
	errHangup      = errors.New("error or hang-up on socket")
	errLineTooLong = errors.New("line exceeds maximum length")
)

func (d *Dispatcher) lookup(tag uint64) *Conn {
	c := d.conns[int(uint32(tag))]
	if c == nil || c.tag != tag {
		return nil
	}
	return c
}

// accept takes exactly one pending connection.
func (d *Dispatcher) accept() {
	sock, err := d.ln.Accept()
	if err != nil {
		if !api.IsTransient(err) {
			d.logError("accept failed", "err", err)
			d.pauseAccept(time.Now())
		}
		return
	}
	d.acceptDelay = 0
	d.gen++
	if d.gen == 0 {
		d.gen = 1
	}
	tag := uint64(uint32(sock.Fd())) | uint64(d.gen)<<32
	c := newConn(tag, sock, d.chunks, d.cfg.Labeler.Label(sock.RemoteAddr()))
	if err := d.mux.Register(sock.Fd(), api.InterestRead, tag); err != nil {
		d.logError("register failed", "remote", sock.RemoteAddr(), "err", err)
		sock.Close()
		return
	}
	d.conns[sock.Fd()] = c
	d.stats.accepted.Add(1)
	d.stats.connections.Add(1)
	d.log.Debug("connection accepted", "fd", sock.Fd(), "remote", c.RemoteAddr(), "label", c.Label())
}

// pauseAccept drops the listener's interest until the backoff elapses, so
// a connection that cannot be accepted does not keep the wait returning.
func (d *Dispatcher) pauseAccept(now time.Time) {
	switch {
	case d.acceptDelay == 0:
		d.acceptDelay = acceptMinSleep
	case d.acceptDelay < acceptMaxSleep:
		d.acceptDelay = min(2*d.acceptDelay, acceptMaxSleep)
	}
	if err := d.mux.Modify(d.ln.Fd(), 0, d.lnTag); err != nil {
		d.logError("pausing accept failed", "err", err)
		return
	}
	d.acceptPaused = true
	d.acceptResume = now.Add(d.acceptDelay)
	d.stats.acceptPauses.Add(1)
}

// resumeAccept re-arms the listener once the backoff deadline has passed.
func (d *Dispatcher) resumeAccept(now time.Time) {
	if !d.acceptPaused || now.Before(d.acceptResume) {
		return
	}
	if err := d.mux.Modify(d.ln.Fd(), api.InterestRead, d.lnTag); err != nil {
		d.logError("resuming accept failed", "err", err)
		d.acceptResume = now.Add(d.acceptDelay)
		return
	}
	d.acceptPaused = false
}

// onReadable performs one read and broadcasts at most one message.
// It reports false when the connection was removed.
func (d *Dispatcher) onReadable(c *Conn) bool {
	n, err := c.Read()
	switch {
	case err == io.EOF:
		d.remove(c, nil)
		return false
	case api.IsTransient(err):
		return true
	case err != nil:
		d.remove(c, err)
		return false
	}
	d.stats.bytesIn.Add(uint64(n))
	if !c.HasMessage() {
		if limit := d.cfg.MaxLineBytes; limit > 0 && c.Buffered() > limit {
			d.remove(c, errLineTooLong)
			return false
		}
		return true
	}
	d.broadcastFrom(c)
	return !c.closed
}

// broadcastFrom freezes c's first buffered message and queues it on every
// connection in the table.
func (d *Dispatcher) broadcastFrom(c *Conn) {
	msg, ok := c.NextMessage()
	if !ok {
		return
	}
	d.stats.messages.Add(1)
	for _, peer := range d.conns {
		if peer == c && !d.cfg.SelfDelivery {
			continue
		}
		if peer.Enqueue(msg) {
			d.setInterest(peer, api.InterestReadWrite)
		}
	}
	msg.Release()

	if !c.closed && c.HasMessage() {
		d.markReady(c)
	}
}

// serveReady broadcasts one more message from each connection that still
// held a complete message after its last broadcast.
func (d *Dispatcher) serveReady() {
	if len(d.ready) == 0 {
		return
	}
	pending := d.ready
	d.ready = d.spare[:0]
	for i, c := range pending {
		pending[i] = nil
		c.ready = false
		if !c.closed {
			d.broadcastFrom(c)
		}
	}
	d.spare = pending[:0]
}

func (d *Dispatcher) markReady(c *Conn) {
	if c.ready {
		return
	}
	c.ready = true
	d.ready = append(d.ready, c)
}

// onWritable drains the queue head once and drops write interest when the
// queue is empty.
func (d *Dispatcher) onWritable(c *Conn) {
	res, n, err := c.Drain()
	if err != nil {
		d.remove(c, err)
		return
	}
	d.stats.bytesOut.Add(uint64(n))
	if res == FullyDrained && c.Pending() == 0 {
		d.setInterest(c, api.InterestRead)
	}
}

// setInterest re-registers c only when its interest actually changes.
func (d *Dispatcher) setInterest(c *Conn, want api.Interest) {
	if c.closed || c.interest == want {
		return
	}
	if err := d.mux.Modify(c.Fd(), want, c.tag); err != nil {
		d.remove(c, err)
		return
	}
	c.interest = want
}

// remove deregisters and closes c exactly once. A nil cause means the peer
// closed the stream.
func (d *Dispatcher) remove(c *Conn, cause error) {
	if c.closed {
		return
	}
	fd := c.Fd()
	if err := d.mux.Unregister(fd); err != nil {
		d.log.Debug("unregister failed", "fd", fd, "err", err)
	}
	delete(d.conns, fd)
	pending := c.Pending()
	if err := c.close(); err != nil {
		d.log.Debug("close failed", "fd", fd, "err", err)
	}
	d.stats.removed.Add(1)
	d.stats.connections.Add(-1)
	if cause != nil {
		d.logError("connection failed", "remote", c.RemoteAddr(), "dropped", pending, "err", cause)
		return
	}
	d.log.Debug("connection closed", "remote", c.RemoteAddr(), "dropped", pending)
}

// logError emits a warning unless the error budget is spent.
func (d *Dispatcher) logError(msg string, args ...any) {
	if !d.errLimit.Allow() {
		d.stats.suppressed.Add(1)
		return
	}
	d.log.Warn(msg, args...)
}

// Close removes every connection and releases the listener and the
// multiplexer. It is idempotent.
func (d *Dispatcher) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	for _, c := range d.conns {
		d.remove(c, nil)
	}
	d.ready = nil
	_ = d.mux.Unregister(d.ln.Fd())
	lnErr := d.ln.Close()
	muxErr := d.mux.Close()
	return errors.Join(lnErr, muxErr)
}

// Conns returns the number of connections in the table. Loop thread only.
func (d *Dispatcher) Conns() int { return len(d.conns) }
