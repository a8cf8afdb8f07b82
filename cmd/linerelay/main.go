// Command linerelay relays newline-terminated messages between every
// connected TCP peer from a single-threaded readiness loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/momentics/linerelay/control"
	"github.com/momentics/linerelay/internal/logging"
	"github.com/momentics/linerelay/server"
)

func main() {
	cfg := server.DefaultConfig()
	flag.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "listen address")
	flag.IntVar(&cfg.Backlog, "backlog", cfg.Backlog, "listen backlog")
	flag.IntVar(&cfg.ChunkSize, "chunk", cfg.ChunkSize, "inbound buffer chunk size in bytes")
	flag.IntVar(&cfg.MaxEvents, "max-events", cfg.MaxEvents, "readiness events handled per wait")
	flag.DurationVar(&cfg.WaitTimeout, "wait", cfg.WaitTimeout, "multiplexer wait timeout (negative blocks)")
	flag.DurationVar(&cfg.StatsInterval, "stats", cfg.StatsInterval, "stats log interval (0 disables)")
	flag.BoolVar(&cfg.SelfDelivery, "self", cfg.SelfDelivery, "echo messages back to their sender")
	flag.IntVar(&cfg.MaxLineBytes, "max-line", cfg.MaxLineBytes, "drop peers buffering a longer unterminated line (0 disables)")
	cpu := flag.Int("cpu", -1, "pin the event loop to this CPU (-1 disables)")
	label := flag.String("label", "addr", "label policy: addr, nuid or static:<text>")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "text", "log format: text or json")
	flag.Parse()
	if *cpu >= 0 {
		cfg.PinCPU, cfg.CPU = true, *cpu
	}

	log, err := logging.New(os.Stderr, *logLevel, *logFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.Logger = log
	if cfg.Labeler, err = server.ParseLabelPolicy(*label); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	metrics := control.NewMetricsRegistry()
	probes := control.NewDebugProbes()
	d, err := server.Listen(cfg, server.WithMetrics(metrics), server.WithProbes(probes))
	if err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go dumpOnSignal(ctx, probes, metrics, log)

	if err := d.Run(ctx); err != nil {
		log.Error("relay failed", "err", err)
		os.Exit(1)
	}
}
