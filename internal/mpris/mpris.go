// Package mpris reads now-playing state from MPRIS media players on the
// session bus.
package mpris

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/zsprackett/now-playing/internal/media"
	"github.com/zsprackett/now-playing/internal/session"
)

const (
	busPrefix   = "org.mpris.MediaPlayer2."
	objectPath  = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	playerIface = "org.mpris.MediaPlayer2.Player"
	propsIface  = "org.freedesktop.DBus.Properties"
)

var instanceSuffix = regexp.MustCompile(`\.instance_?\d+$`)

// SourceID derives the stable application id from a player's bus name, so
// that "org.mpris.MediaPlayer2.vlc.instance4242" becomes "vlc".
func SourceID(busName string) string {
	id := strings.TrimPrefix(busName, busPrefix)
	return instanceSuffix.ReplaceAllString(id, "")
}

type handle struct {
	busName string
	owner   string
}

// ID is unique per player process: a restarted player gets a new owner.
func (h handle) ID() string       { return h.busName + "@" + h.owner }
func (h handle) SourceID() string { return SourceID(h.busName) }

// Provider implements media.Provider.
type Provider struct {
	conn    *dbus.Conn
	art     *ArtFetcher
	logger  *slog.Logger
	signals chan *dbus.Signal
	done    chan struct{}

	mu          sync.Mutex
	changed     map[string][]func() // by unique owner name
	listChanged []func()
}

var _ media.Provider = (*Provider)(nil)

// Connect opens the session bus and starts listening for player signals.
func Connect(art *ArtFetcher, logger *slog.Logger) (*Provider, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	p := &Provider{
		conn:    conn,
		art:     art,
		logger:  logger,
		signals: make(chan *dbus.Signal, 32),
		done:    make(chan struct{}),
		changed: make(map[string][]func()),
	}
	if err := p.watch(); err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

func (p *Provider) watch() error {
	err := p.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(objectPath),
		dbus.WithMatchInterface(propsIface),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchArg(0, playerIface),
	)
	if err != nil {
		return fmt.Errorf("match PropertiesChanged: %w", err)
	}
	err = p.conn.AddMatchSignal(
		dbus.WithMatchSender("org.freedesktop.DBus"),
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg0Namespace(strings.TrimSuffix(busPrefix, ".")),
	)
	if err != nil {
		return fmt.Errorf("match NameOwnerChanged: %w", err)
	}
	p.conn.Signal(p.signals)
	go p.route()
	return nil
}

func (p *Provider) route() {
	defer close(p.done)
	for sig := range p.signals {
		switch sig.Name {
		case propsIface + ".PropertiesChanged":
			p.mu.Lock()
			fns := append([]func(){}, p.changed[sig.Sender]...)
			p.mu.Unlock()
			for _, fn := range fns {
				fn()
			}
		case "org.freedesktop.DBus.NameOwnerChanged":
			name, oldOwner, _, ok := nameOwnerChange(sig.Body)
			if !ok || !strings.HasPrefix(name, busPrefix) {
				continue
			}
			p.mu.Lock()
			if oldOwner != "" {
				delete(p.changed, oldOwner)
			}
			fns := append([]func(){}, p.listChanged...)
			p.mu.Unlock()
			p.logger.Debug("mpris: player list changed", "name", name)
			for _, fn := range fns {
				fn()
			}
		}
	}
}

func nameOwnerChange(body []any) (name, oldOwner, newOwner string, ok bool) {
	if len(body) != 3 {
		return "", "", "", false
	}
	name, ok1 := body[0].(string)
	oldOwner, ok2 := body[1].(string)
	newOwner, ok3 := body[2].(string)
	return name, oldOwner, newOwner, ok1 && ok2 && ok3
}

// Close closes the bus connection, which also ends signal delivery.
func (p *Provider) Close() error {
	err := p.conn.Close()
	<-p.done
	return err
}

// ListSessions returns one handle per MPRIS player, ordered by bus name.
func (p *Provider) ListSessions(ctx context.Context) ([]media.Handle, error) {
	var names []string
	if err := p.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return nil, fmt.Errorf("list bus names: %w", err)
	}
	names = PlayerNames(names)

	handles := make([]media.Handle, 0, len(names))
	for _, name := range names {
		var owner string
		err := p.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.GetNameOwner", 0, name).Store(&owner)
		if err != nil {
			// Player exited between the two calls.
			p.logger.Debug("mpris: no owner", "name", name, "err", err)
			continue
		}
		handles = append(handles, handle{busName: name, owner: owner})
	}
	return handles, nil
}

// PlayerNames filters bus names down to MPRIS players, sorted.
func PlayerNames(names []string) []string {
	var out []string
	for _, n := range names {
		if strings.HasPrefix(n, busPrefix) && len(n) > len(busPrefix) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

func (p *Provider) metadata(ctx context.Context, h media.Handle) (map[string]dbus.Variant, error) {
	hd, ok := h.(handle)
	if !ok {
		return nil, fmt.Errorf("mpris: foreign handle %T", h)
	}
	var v dbus.Variant
	err := p.conn.Object(hd.owner, objectPath).
		CallWithContext(ctx, propsIface+".Get", 0, playerIface, "Metadata").
		Store(&v)
	if err != nil {
		return nil, fmt.Errorf("read metadata of %s: %w", hd.busName, err)
	}
	md, ok := v.Value().(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("metadata of %s has type %s", hd.busName, v.Signature())
	}
	return md, nil
}

func (p *Provider) Metadata(ctx context.Context, h media.Handle) (media.Metadata, error) {
	md, err := p.metadata(ctx, h)
	if err != nil {
		return media.Metadata{}, err
	}
	m := ParseMetadata(md)
	if m.Title == "" {
		return media.Metadata{}, media.ErrNothingPlaying
	}
	return m, nil
}

func (p *Provider) Thumbnail(ctx context.Context, _ media.Handle, md media.Metadata) (*session.Thumbnail, error) {
	if md.ArtURL == "" {
		return nil, nil
	}
	return p.art.Fetch(ctx, md.ArtURL)
}

func (p *Provider) SubscribeChanged(h media.Handle, fn func()) error {
	hd, ok := h.(handle)
	if !ok {
		return fmt.Errorf("mpris: foreign handle %T", h)
	}
	p.mu.Lock()
	p.changed[hd.owner] = append(p.changed[hd.owner], fn)
	p.mu.Unlock()
	return nil
}

func (p *Provider) SubscribeSessionListChanged(fn func()) error {
	p.mu.Lock()
	p.listChanged = append(p.listChanged, fn)
	p.mu.Unlock()
	return nil
}

// ParseMetadata extracts the displayed fields from an MPRIS metadata map.
// MPRIS has no subtitle field, so Subtitle is always empty.
func ParseMetadata(md map[string]dbus.Variant) media.Metadata {
	return media.Metadata{
		Title:  strings.TrimSpace(stringValue(md["xesam:title"])),
		Artist: strings.TrimSpace(stringValue(md["xesam:artist"])),
		Album:  strings.TrimSpace(stringValue(md["xesam:album"])),
		ArtURL: strings.TrimSpace(stringValue(md["mpris:artUrl"])),
	}
}

// stringValue accepts both plain strings and the string lists xesam uses for
// artists.
func stringValue(v dbus.Variant) string {
	switch val := v.Value().(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, 0, len(val))
		for _, x := range val {
			if s, ok := x.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}
