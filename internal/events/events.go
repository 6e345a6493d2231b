package events

import (
	"context"
	"fmt"
	"sync"
)

// Kind is the type of work the event loop is asked to do.
type Kind int

const (
	// Update asks for a fresh enumeration pass.
	Update Kind = iota
	// ConfigChanged asks for the source registry to be persisted.
	ConfigChanged
	// Quit stops the event loop.
	Quit
	// ToggleSource flips one source's enabled flag. Sent by the tray.
	ToggleSource
	// ClearKnown forgets every known source. Sent by the tray.
	ClearKnown
)

func (k Kind) String() string {
	switch k {
	case Update:
		return "update"
	case ConfigChanged:
		return "config_changed"
	case Quit:
		return "quit"
	case ToggleSource:
		return "toggle_source"
	case ClearKnown:
		return "clear_known"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event is one unit of work for the event loop. Index and SourceID are only
// set for ToggleSource; SourceID wins when both are present.
type Event struct {
	Kind     Kind
	Index    int
	SourceID string
}

func (e Event) String() string {
	if e.Kind == ToggleSource {
		return fmt.Sprintf("%s(%d,%q)", e.Kind, e.Index, e.SourceID)
	}
	return e.Kind.String()
}

// Sink accepts events from producers on any goroutine.
// A nil Sink is not safe to use.
type Sink interface {
	Push(e Event)
}

// Queue is an unbounded FIFO of events. Push never blocks, so platform
// callbacks and the tray thread can enqueue freely; Pop is meant for a single
// consumer.
type Queue struct {
	mu     sync.Mutex
	items  []Event
	ready  chan struct{}
	closed bool
}

func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Push appends e. Pushes after Close are dropped.
func (q *Queue) Push(e Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, e)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Pop blocks until an event is available or ctx ends.
func (q *Queue) Pop(ctx context.Context) (Event, error) {
	for {
		if e, ok := q.TryPop(); ok {
			return e, nil
		}
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-q.ready:
		}
	}
}

// TryPop returns the oldest event without blocking.
func (q *Queue) TryPop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Event{}, false
	}
	e := q.items[0]
	q.items[0] = Event{}
	q.items = q.items[1:]
	return e, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close drops pending events and rejects further pushes.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
}
