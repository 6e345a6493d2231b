//go:build !unix

package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/zsprackett/now-playing/internal/events"
)

func watchSignals(ctx context.Context, sink events.Sink, logger *slog.Logger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	defer signal.Stop(ch)

	select {
	case <-ctx.Done():
	case sig := <-ch:
		logger.Info("app: signal received", "signal", sig.String())
		sink.Push(events.Event{Kind: events.Quit})
	}
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt)
}
