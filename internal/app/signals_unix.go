//go:build unix

package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"github.com/zsprackett/now-playing/internal/events"
)

var shutdownSignals = []os.Signal{unix.SIGINT, unix.SIGTERM, unix.SIGHUP}

// watchSignals queues Quit on the first shutdown signal.
func watchSignals(ctx context.Context, sink events.Sink, logger *slog.Logger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, shutdownSignals...)
	defer signal.Stop(ch)

	select {
	case <-ctx.Done():
	case sig := <-ch:
		logger.Info("app: signal received", "signal", sig.String())
		sink.Push(events.Event{Kind: events.Quit})
	}
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, shutdownSignals...)
}
