// Package tray shows the notification tray icon with one mute toggle per
// known source.
package tray

import (
	_ "embed"
	"log/slog"
	"sync"

	"fyne.io/systray"

	"github.com/zsprackett/now-playing/internal/events"
	"github.com/zsprackett/now-playing/internal/registry"
)

//go:embed icon.png
var icon []byte

// Tray renders the menu and turns clicks into events. Clicks never touch the
// registry; they are pushed to the sink for the event loop to apply.
type Tray struct {
	sink   events.Sink
	title  string
	logger *slog.Logger

	// quit ends the systray loop; replaced in tests.
	quit func()

	mu       sync.Mutex
	ready    bool
	quitting bool
	latest   []registry.Entry
	stopGen  chan struct{}
}

func New(sink events.Sink, title string, logger *slog.Logger) *Tray {
	return &Tray{sink: sink, title: title, logger: logger, quit: systray.Quit}
}

// Run starts the tray UI and blocks until Quit is called. It must be called
// from the main goroutine.
func (t *Tray) Run(initial []registry.Entry, onReady func()) {
	t.mu.Lock()
	t.latest = initial
	t.mu.Unlock()

	systray.Run(func() {
		systray.SetIcon(icon)
		systray.SetTooltip(t.title)
		if !t.markReady() {
			t.logger.Debug("tray: quit before ready")
			t.quit()
			return
		}
		t.mu.Lock()
		t.render(t.latest)
		t.mu.Unlock()
		if onReady != nil {
			onReady()
		}
	}, func() {
		t.logger.Debug("tray: exited")
	})
}

// Update rebuilds the menu from entries. Safe to call from any goroutine,
// including before the tray is ready.
func (t *Tray) Update(entries []registry.Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest = entries
	if t.ready {
		t.render(entries)
	}
}

// Quit ends Run. Called before the tray is up, it takes effect as soon as
// the tray becomes ready.
func (t *Tray) Quit() {
	t.mu.Lock()
	t.quitting = true
	ready := t.ready
	t.mu.Unlock()
	if ready {
		t.quit()
	}
}

// markReady records that the systray loop is running. It returns false when
// Quit already ran, in which case the loop must be ended instead of drawn.
func (t *Tray) markReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ready = true
	return !t.quitting
}

// render replaces the whole menu. Click watchers of the previous menu are
// stopped first. Caller holds t.mu.
func (t *Tray) render(entries []registry.Entry) {
	if t.stopGen != nil {
		close(t.stopGen)
	}
	stop := make(chan struct{})
	t.stopGen = stop

	systray.ResetMenu()
	for _, it := range BuildMenu(entries) {
		var mi *systray.MenuItem
		switch it.Kind {
		case SeparatorItem:
			systray.AddSeparator()
			continue
		case SourceItem:
			mi = systray.AddMenuItemCheckbox(it.Label, "Notify for "+it.Label, it.Checked)
		default:
			mi = systray.AddMenuItem(it.Label, "")
		}
		go t.watch(mi, it, stop)
	}
	t.logger.Debug("tray: menu rebuilt", "sources", len(entries))
}

func (t *Tray) watch(mi *systray.MenuItem, it Item, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-mi.ClickedCh:
			if ev, ok := it.Event(); ok {
				t.sink.Push(ev)
			}
		}
	}
}
