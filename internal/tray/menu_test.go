package tray_test

import (
	"testing"

	"github.com/zsprackett/now-playing/internal/events"
	"github.com/zsprackett/now-playing/internal/registry"
	"github.com/zsprackett/now-playing/internal/tray"
)

func TestBuildMenu_Layout(t *testing.T) {
	items := tray.BuildMenu([]registry.Entry{
		{SourceID: "spotify", Enabled: true},
		{SourceID: "vlc", Enabled: false},
	})
	want := []struct {
		kind    tray.ItemKind
		label   string
		checked bool
	}{
		{tray.SourceItem, "spotify", true},
		{tray.SourceItem, "vlc", false},
		{tray.SeparatorItem, "", false},
		{tray.ClearKnownItem, "Clear known", false},
		{tray.ExitItem, "Exit", false},
	}
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d", len(items), len(want))
	}
	for i, w := range want {
		if items[i].Kind != w.kind || items[i].Label != w.label || items[i].Checked != w.checked {
			t.Errorf("item %d: got %+v", i, items[i])
		}
	}
}

func TestBuildMenu_Empty(t *testing.T) {
	items := tray.BuildMenu(nil)
	if len(items) != 3 || items[0].Kind != tray.SeparatorItem {
		t.Errorf("unexpected empty menu %+v", items)
	}
}

func TestItemEvent(t *testing.T) {
	items := tray.BuildMenu([]registry.Entry{{SourceID: "a", Enabled: true}, {SourceID: "b", Enabled: true}})

	ev, ok := items[1].Event()
	if !ok || ev.Kind != events.ToggleSource || ev.Index != 1 || ev.SourceID != "b" {
		t.Errorf("toggle: got %v %v", ev, ok)
	}
	if _, ok := items[2].Event(); ok {
		t.Error("separator should not emit")
	}
	if ev, _ := items[3].Event(); ev.Kind != events.ClearKnown {
		t.Errorf("clear known: got %v", ev)
	}
	if ev, _ := items[4].Event(); ev.Kind != events.Quit {
		t.Errorf("exit should map to quit, got %v", ev)
	}
}
