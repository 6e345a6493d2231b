// Package monitor runs the event loop that turns media session updates into
// toasts.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/zsprackett/now-playing/internal/events"
	"github.com/zsprackett/now-playing/internal/notify"
	"github.com/zsprackett/now-playing/internal/registry"
	"github.com/zsprackett/now-playing/internal/session"
)

type Enumerator interface {
	Enumerate(ctx context.Context) ([]session.Snapshot, error)
}

type Store interface {
	Save(entries []registry.Entry) error
}

type Dispatcher interface {
	Dispatch(req notify.Request) error
}

// State is the lifecycle of a Monitor.
type State int32

const (
	Running State = iota
	Terminated
)

func (s State) String() string {
	if s == Terminated {
		return "terminated"
	}
	return "running"
}

type Options struct {
	ToastDuration time.Duration
	// NotifyFirstSighting toasts the track that introduced a new source.
	// When false a new source is only registered on that pass.
	NotifyFirstSighting bool
	// OnRegistryChange receives a copy of the registry after every event
	// that changed it. Called on the loop goroutine.
	OnRegistryChange func([]registry.Entry)
}

// Monitor consumes the event queue on a single goroutine. It is the only
// writer of the registry and of the previous observation set.
type Monitor struct {
	queue      *events.Queue
	enum       Enumerator
	reg        *registry.Registry
	store      Store
	dispatcher Dispatcher
	opts       Options
	prev       []session.Snapshot
	state      atomic.Int32
	logger     *slog.Logger
}

// New builds a monitor and queues the startup events: an Update followed by
// a ConfigChanged.
func New(queue *events.Queue, enum Enumerator, reg *registry.Registry, store Store, dispatcher Dispatcher, opts Options, logger *slog.Logger) *Monitor {
	m := &Monitor{
		queue:      queue,
		enum:       enum,
		reg:        reg,
		store:      store,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger,
	}
	queue.Push(events.Event{Kind: events.Update})
	queue.Push(events.Event{Kind: events.ConfigChanged})
	return m
}

func (m *Monitor) State() State {
	return State(m.state.Load())
}

// Previous returns the snapshot list the next Update is compared against.
func (m *Monitor) Previous() []session.Snapshot {
	return append([]session.Snapshot(nil), m.prev...)
}

// Run processes events until Quit or until ctx ends.
func (m *Monitor) Run(ctx context.Context) error {
	defer m.queue.Close()
	for {
		ev, err := m.queue.Pop(ctx)
		if err != nil {
			m.state.Store(int32(Terminated))
			return err
		}
		if stop := m.Process(ctx, ev); stop {
			return nil
		}
	}
}

// Process handles one event and reports whether the loop should stop.
func (m *Monitor) Process(ctx context.Context, ev events.Event) bool {
	if m.State() == Terminated {
		return true
	}
	m.logger.Debug("monitor: event", "event", ev.String())

	switch ev.Kind {
	case events.Update:
		m.update(ctx)
	case events.ConfigChanged:
		m.persist()
	case events.ToggleSource:
		m.toggle(ev)
	case events.ClearKnown:
		m.reg.Clear()
		m.logger.Info("monitor: cleared known sources")
	case events.Quit:
		m.state.Store(int32(Terminated))
		m.logger.Info("monitor: quit")
		return true
	default:
		m.logger.Warn("monitor: unknown event", "event", ev.String())
	}

	if m.reg.TakeDirty() {
		m.queue.Push(events.Event{Kind: events.ConfigChanged})
		if m.opts.OnRegistryChange != nil {
			m.opts.OnRegistryChange(m.reg.Entries())
		}
	}
	return false
}

func (m *Monitor) update(ctx context.Context) {
	current, err := m.enum.Enumerate(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			m.logger.Warn("monitor: enumerate failed, skipping pass", "err", err)
		}
		return
	}

	for _, s := range session.DetectNew(current, m.prev) {
		if m.reg.RegisterIfNew(s.SourceID) {
			m.logger.Info("monitor: new source", "source", s.SourceID)
			if !m.opts.NotifyFirstSighting {
				continue
			}
		}
		enabled, err := m.reg.IsEnabled(s.SourceID)
		if err != nil || !enabled {
			m.logger.Debug("monitor: source muted", "source", s.SourceID)
			continue
		}
		m.logger.Debug("monitor: now playing", "snapshot", s.String())
		if err := m.dispatcher.Dispatch(notify.NewRequest(s, m.opts.ToastDuration)); err != nil {
			m.logger.Warn("monitor: dispatch failed", "source", s.SourceID, "err", err)
		}
	}
	m.prev = current
}

func (m *Monitor) persist() {
	if err := m.store.Save(m.reg.Entries()); err != nil {
		m.logger.Error("monitor: save sources failed", "err", err)
		return
	}
	m.logger.Debug("monitor: sources saved", "count", m.reg.Len())
}

func (m *Monitor) toggle(ev events.Event) {
	var err error
	if ev.SourceID != "" {
		err = m.reg.Toggle(ev.SourceID)
	} else {
		err = m.reg.ToggleAt(ev.Index)
	}
	if err != nil {
		m.logger.Warn("monitor: toggle failed", "event", ev.String(), "err", err)
	}
}
