// Package syncer periodically asks the event loop for a fresh pass, for
// players that change tracks without emitting change signals.
package syncer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/zsprackett/now-playing/internal/events"
)

type Syncer struct {
	sink     events.Sink
	interval time.Duration
	clock    clockwork.Clock
	stop     chan struct{}
	wg       sync.WaitGroup
	logger   *slog.Logger
}

// New returns a Syncer that queues an Update every interval. A non-positive
// interval disables it.
func New(sink events.Sink, interval time.Duration, logger *slog.Logger) *Syncer {
	return NewWithClock(sink, interval, clockwork.NewRealClock(), logger)
}

// NewWithClock creates a Syncer with an injectable clock. Used in tests.
func NewWithClock(sink events.Sink, interval time.Duration, clock clockwork.Clock, logger *slog.Logger) *Syncer {
	return &Syncer{
		sink:     sink,
		interval: interval,
		clock:    clock,
		stop:     make(chan struct{}),
		logger:   logger,
	}
}

func (s *Syncer) Start() {
	if s.interval <= 0 {
		s.logger.Debug("syncer: disabled")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := s.clock.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.Chan():
				s.RunOnce()
			}
		}
	}()
}

func (s *Syncer) Stop() {
	close(s.stop)
	s.wg.Wait()
}

// RunOnce queues a single Update.
func (s *Syncer) RunOnce() {
	s.sink.Push(events.Event{Kind: events.Update})
}
