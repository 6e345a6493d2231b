package tray

import (
	"github.com/zsprackett/now-playing/internal/events"
	"github.com/zsprackett/now-playing/internal/registry"
)

type ItemKind int

const (
	SourceItem ItemKind = iota
	SeparatorItem
	ClearKnownItem
	ExitItem
)

// Item is one row of the tray menu.
type Item struct {
	Kind    ItemKind
	Label   string
	Checked bool
	// SourceID and Index identify the source for a SourceItem.
	SourceID string
	Index    int
}

// BuildMenu lays out the menu for the given registry state: one checkbox per
// source in registry order, then a separator, "Clear known" and "Exit".
func BuildMenu(entries []registry.Entry) []Item {
	items := make([]Item, 0, len(entries)+3)
	for i, e := range entries {
		items = append(items, Item{
			Kind:     SourceItem,
			Label:    e.SourceID,
			Checked:  e.Enabled,
			SourceID: e.SourceID,
			Index:    i,
		})
	}
	return append(items,
		Item{Kind: SeparatorItem},
		Item{Kind: ClearKnownItem, Label: "Clear known"},
		Item{Kind: ExitItem, Label: "Exit"},
	)
}

// Event is the command a click on it sends to the event loop.
func (it Item) Event() (events.Event, bool) {
	switch it.Kind {
	case SourceItem:
		return events.Event{Kind: events.ToggleSource, Index: it.Index, SourceID: it.SourceID}, true
	case ClearKnownItem:
		return events.Event{Kind: events.ClearKnown}, true
	case ExitItem:
		return events.Event{Kind: events.Quit}, true
	}
	return events.Event{}, false
}
