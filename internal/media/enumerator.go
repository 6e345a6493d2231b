package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"

	"github.com/zsprackett/now-playing/internal/retry"
	"github.com/zsprackett/now-playing/internal/session"
)

type Enumerator struct {
	provider Provider
	policy   retry.Policy
	settle   time.Duration
	clock    clockwork.Clock
	onChange func()
	logger   *slog.Logger

	mu         sync.Mutex
	subscribed map[string]struct{}
}

type EnumeratorOptions struct {
	// Policy governs metadata reads. Its Clock is replaced by Clock.
	Policy retry.Policy
	// Settle is waited once before a session's first metadata read.
	Settle time.Duration
	Clock  clockwork.Clock
	// OnChange is registered as the change callback of every session seen.
	OnChange func()
}

func NewEnumerator(p Provider, opts EnumeratorOptions, logger *slog.Logger) *Enumerator {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	policy := opts.Policy
	policy.Clock = clock
	return &Enumerator{
		provider:   p,
		policy:     policy,
		settle:     opts.Settle,
		clock:      clock,
		onChange:   opts.OnChange,
		logger:     logger,
		subscribed: make(map[string]struct{}),
	}
}

// Enumerate reads every current session once. Sessions whose metadata cannot
// be read within the retry policy are left out; only a failure to list
// sessions fails the pass.
func (e *Enumerator) Enumerate(ctx context.Context) ([]session.Snapshot, error) {
	handles, err := e.provider.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	e.forgetGone(handles)

	snaps := make([]session.Snapshot, 0, len(handles))
	for _, h := range handles {
		e.subscribe(h)
		if e.settle > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-e.clock.After(e.settle):
			}
		}
		snap, ok := e.read(ctx, h)
		if ok {
			snaps = append(snaps, snap)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return snaps, nil
}

func (e *Enumerator) read(ctx context.Context, h Handle) (session.Snapshot, bool) {
	var md Metadata
	res := e.policy.Do(ctx, func(ctx context.Context) error {
		m, err := e.provider.Metadata(ctx, h)
		if errors.Is(err, ErrNothingPlaying) {
			return retry.Permanent(err)
		}
		if err != nil {
			return err
		}
		md = m
		return nil
	})
	if !res.OK() {
		if res.Outcome == retry.GaveUp {
			e.logger.Debug("enumerator: dropping session",
				"session", h.ID(),
				"attempts", res.Attempts,
				"err", res.Err,
			)
		}
		return session.Snapshot{}, false
	}

	snap := session.Snapshot{
		SourceID: h.SourceID(),
		Title:    md.Title,
		Subtitle: md.Subtitle,
		Artist:   md.Artist,
		Album:    md.Album,
	}
	thumb, err := e.provider.Thumbnail(ctx, h, md)
	if err != nil {
		e.logger.Debug("enumerator: no thumbnail", "session", h.ID(), "err", err)
	} else if thumb != nil {
		e.logger.Debug("enumerator: thumbnail",
			"session", h.ID(),
			"mime", thumb.MimeType,
			"size", humanize.Bytes(uint64(len(thumb.Bytes))),
		)
		snap.Thumbnail = thumb
	}
	return snap, true
}

// subscribe registers the change callback once per session id for the
// lifetime of the enumerator.
func (e *Enumerator) subscribe(h Handle) {
	if e.onChange == nil {
		return
	}
	e.mu.Lock()
	_, done := e.subscribed[h.ID()]
	if !done {
		e.subscribed[h.ID()] = struct{}{}
	}
	e.mu.Unlock()
	if done {
		return
	}
	if err := e.provider.SubscribeChanged(h, e.onChange); err != nil {
		e.logger.Warn("enumerator: subscribe failed", "session", h.ID(), "err", err)
		e.mu.Lock()
		delete(e.subscribed, h.ID())
		e.mu.Unlock()
	}
}

// forgetGone drops subscription records of sessions that are no longer
// listed. A session that comes back is subscribed again.
func (e *Enumerator) forgetGone(handles []Handle) {
	live := make(map[string]struct{}, len(handles))
	for _, h := range handles {
		live[h.ID()] = struct{}{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for id := range e.subscribed {
		if _, ok := live[id]; !ok {
			delete(e.subscribed, id)
		}
	}
}

// Subscribed returns how many sessions currently have a change callback.
func (e *Enumerator) Subscribed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subscribed)
}
