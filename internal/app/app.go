// Package app wires the notifier together and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zsprackett/now-playing/internal/applog"
	"github.com/zsprackett/now-playing/internal/config"
	"github.com/zsprackett/now-playing/internal/desktop"
	"github.com/zsprackett/now-playing/internal/events"
	"github.com/zsprackett/now-playing/internal/media"
	"github.com/zsprackett/now-playing/internal/monitor"
	"github.com/zsprackett/now-playing/internal/mpris"
	"github.com/zsprackett/now-playing/internal/notify"
	"github.com/zsprackett/now-playing/internal/registry"
	"github.com/zsprackett/now-playing/internal/retry"
	"github.com/zsprackett/now-playing/internal/syncer"
	"github.com/zsprackett/now-playing/internal/tray"
)

const connectTimeout = 5 * time.Second

// Run starts the notifier and blocks until the user exits from the tray or
// the process is signaled. It must be called from the main goroutine because
// the tray owns it. Errors are startup failures.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store := registry.NewStore(config.SourcesPath())
	reg := registry.New(LoadRegistry(store, logger))

	provider, err := mpris.Connect(mpris.NewArtFetcher(cfg.ArtworkMaxBytes, logger), logger)
	if err != nil {
		return applog.WrapError(err, "connect media sessions")
	}
	defer provider.Close()

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	presenter, err := desktop.Connect(connectCtx)
	cancel()
	if err != nil {
		return applog.WrapError(err, "connect notification server")
	}
	defer presenter.Close()
	logger.Info("app: notification server", "server", presenter.Server())

	runner, err := NewRunner(cfg, presenter)
	if err != nil {
		return applog.WrapError(err, "toast runner")
	}
	dispatcher := notify.NewDispatcher(runner, notify.DispatcherOptions{
		MaxPending: cfg.MaxPendingToasts,
		Interval:   cfg.ToastInterval.Std(),
	}, logger)
	dispatcher.Start()
	defer dispatcher.Stop()

	queue := events.NewQueue()
	requestUpdate := func() { queue.Push(events.Event{Kind: events.Update}) }
	enumerator := media.NewEnumerator(provider, media.EnumeratorOptions{
		Policy: retry.Policy{
			Attempts:       cfg.RetryAttempts,
			Delay:          cfg.RetryDelay.Std(),
			AttemptTimeout: cfg.RetryAttemptTimeout.Std(),
		},
		Settle:   cfg.SettleDelay.Std(),
		OnChange: requestUpdate,
	}, logger)
	if err := provider.SubscribeSessionListChanged(requestUpdate); err != nil {
		return applog.WrapError(err, "watch media sessions")
	}

	resync := syncer.New(queue, cfg.ResyncInterval.Std(), logger)
	resync.Start()
	defer resync.Stop()

	ui := tray.New(queue, config.AppName, logger)
	mon := monitor.New(queue, enumerator, reg, store, dispatcher, monitor.Options{
		ToastDuration:       cfg.ToastDuration.Std(),
		NotifyFirstSighting: cfg.NotifyFirstSighting,
		OnRegistryChange:    ui.Update,
	}, logger)

	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()
	var g errgroup.Group
	g.Go(func() error {
		defer ui.Quit()
		defer stopLoop()
		err := mon.Run(loopCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		watchSignals(loopCtx, queue, logger)
		return nil
	})

	logger.Info("app: started", "sources", reg.Len(), "toast_mode", cfg.ToastMode)
	ui.Run(reg.Entries(), nil)

	// The tray can also end on its own, for example when the session ends.
	queue.Push(events.Event{Kind: events.Quit})
	err = g.Wait()
	logger.Info("app: stopped")
	return err
}

// LoadRegistry reads the persisted sources. A missing or damaged file starts
// an empty registry.
func LoadRegistry(store *registry.Store, logger *slog.Logger) []registry.Entry {
	entries, err := store.Load()
	if err != nil {
		logger.Warn("app: ignoring stored sources", "path", store.Path(), "err", err)
		return nil
	}
	return entries
}

// NewRunner picks how toasts are shown according to cfg.ToastMode.
func NewRunner(cfg config.Config, presenter notify.Presenter) (notify.Runner, error) {
	switch cfg.ToastMode {
	case config.ToastModeInline:
		return notify.InlineRunner{Presenter: presenter}, nil
	case config.ToastModeProcess:
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		return notify.ProcessRunner{Executable: exe}, nil
	}
	return nil, fmt.Errorf("unknown toast mode %q", cfg.ToastMode)
}

// SendToast is the send-toast command: it shows the toast stored in the
// request file at path and returns once it is hidden. An interrupt hides the
// toast early.
func SendToast(ctx context.Context, path string, logger *slog.Logger) error {
	ctx, stop := signalContext(ctx)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	presenter, err := desktop.Connect(connectCtx)
	cancel()
	if err != nil {
		return applog.WrapError(err, "connect notification server")
	}
	defer presenter.Close()

	if err := notify.SendFromFile(ctx, presenter, path); err != nil {
		return applog.WrapError(err, "send toast")
	}
	logger.Debug("app: toast sent", "request", path)
	return nil
}
