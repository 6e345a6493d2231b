// Package retry runs flaky operations under a fixed-delay retry policy.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
)

// Outcome tags how a Do call ended.
type Outcome int

const (
	// Succeeded means an attempt returned nil.
	Succeeded Outcome = iota
	// GaveUp means every attempt failed.
	GaveUp
	// Stopped means an attempt returned a Permanent error.
	Stopped
	// Canceled means the parent context ended before an attempt succeeded.
	Canceled
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case GaveUp:
		return "gave up"
	case Stopped:
		return "stopped"
	case Canceled:
		return "canceled"
	}
	return "unknown"
}

// Result reports what happened. Err is the last attempt's error.
type Result struct {
	Outcome  Outcome
	Attempts int
	Err      error
}

func (r Result) OK() bool { return r.Outcome == Succeeded }

// Policy retries an operation up to Attempts times, waiting Delay between
// attempts. Each attempt gets its own AttemptTimeout when it is positive.
type Policy struct {
	Attempts       int
	Delay          time.Duration
	AttemptTimeout time.Duration
	Clock          clockwork.Clock
}

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Do calls fn until it succeeds, returns a Permanent error, the attempts run
// out, or ctx ends. It never panics on a zero Policy: at least one attempt is
// made.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) Result {
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	attempts := max(p.Attempts, 1)

	var res Result
	for res.Attempts < attempts {
		if err := ctx.Err(); err != nil {
			res.Outcome = Canceled
			if res.Err == nil {
				res.Err = err
			}
			return res
		}
		res.Attempts++
		res.Err = p.attempt(ctx, fn)
		if res.Err == nil {
			res.Outcome = Succeeded
			return res
		}
		if IsPermanent(res.Err) {
			res.Outcome = Stopped
			return res
		}
		if res.Attempts == attempts || p.Delay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			res.Outcome = Canceled
			return res
		case <-clock.After(p.Delay):
		}
	}
	res.Outcome = GaveUp
	return res
}

func (p Policy) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.AttemptTimeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
	defer cancel()
	return fn(ctx)
}
