//go:build unix

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/momentics/linerelay/control"
)

// dumpOnSignal logs every debug probe and the last published metrics on SIGUSR1.
func dumpOnSignal(ctx context.Context, probes *control.DebugProbes, metrics *control.MetricsRegistry, log *slog.Logger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	defer signal.Stop(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			log.Info("debug dump", "probes", probes.DumpState(),
				"metrics", metrics.GetSnapshot(), "metrics_at", metrics.Updated())
		}
	}
}
