//go:build !unix

package main

import (
	"context"
	"log/slog"

	"github.com/momentics/linerelay/control"
)

func dumpOnSignal(context.Context, *control.DebugProbes, *control.MetricsRegistry, *slog.Logger) {}
