// Package desktop shows toasts through the org.freedesktop.Notifications
// service on the session bus.
package desktop

import (
	"context"
	"fmt"
	"html"
	"slices"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/mattn/go-runewidth"

	"github.com/zsprackett/now-playing/internal/notify"
)

const (
	service    = "org.freedesktop.Notifications"
	objectPath = "/org/freedesktop/Notifications"

	// MaxLineWidth is the display width each toast line is cut to.
	MaxLineWidth = 64
)

// Presenter implements notify.Presenter over D-Bus.
type Presenter struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	markup  bool
	server  string
	ownConn bool
}

var _ notify.Presenter = (*Presenter)(nil)

// Connect opens the session bus and checks that a notification server is
// running.
func Connect(ctx context.Context) (*Presenter, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	p, err := New(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.ownConn = true
	return p, nil
}

// New wraps an existing bus connection. The connection stays owned by the
// caller.
func New(ctx context.Context, conn *dbus.Conn) (*Presenter, error) {
	p := &Presenter{conn: conn, obj: conn.Object(service, objectPath)}

	var name, vendor, version, specVersion string
	err := p.obj.CallWithContext(ctx, service+".GetServerInformation", 0).
		Store(&name, &vendor, &version, &specVersion)
	if err != nil {
		return nil, fmt.Errorf("no notification server: %w", err)
	}
	p.server = name + " " + version

	var caps []string
	if err := p.obj.CallWithContext(ctx, service+".GetCapabilities", 0).Store(&caps); err == nil {
		p.markup = slices.Contains(caps, "body-markup")
	}
	return p, nil
}

// Server names the notification daemon, for logging.
func (p *Presenter) Server() string { return p.server }

func (p *Presenter) Show(ctx context.Context, lines [3]string, thumbnailPath, sourceID string) (notify.Handle, error) {
	summary, body := Compose(lines, p.markup)
	hints := map[string]dbus.Variant{
		"suppress-sound": dbus.MakeVariant(true),
		"transient":      dbus.MakeVariant(true),
		"category":       dbus.MakeVariant("x-now-playing"),
	}
	if thumbnailPath != "" {
		hints["image-path"] = dbus.MakeVariant("file://" + thumbnailPath)
	}

	var id uint32
	err := p.obj.CallWithContext(ctx, service+".Notify", 0,
		sourceID, uint32(0), "", summary, body,
		[]string{}, hints, int32(-1),
	).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("notify: %w", err)
	}
	return notify.Handle(id), nil
}

func (p *Presenter) Hide(ctx context.Context, h notify.Handle) error {
	if err := p.obj.CallWithContext(ctx, service+".CloseNotification", 0, uint32(h)).Err; err != nil {
		return fmt.Errorf("close notification %d: %w", h, err)
	}
	return nil
}

// Close releases the bus connection if Connect opened it.
func (p *Presenter) Close() error {
	if p.ownConn {
		return p.conn.Close()
	}
	return nil
}

// Compose maps the three toast lines onto a summary and a body. Empty body
// lines are dropped and every line is cut to MaxLineWidth. Body text is
// escaped when the server renders markup.
func Compose(lines [3]string, markup bool) (summary, body string) {
	summary = truncate(lines[0])
	var rest []string
	for _, l := range lines[1:] {
		if l == "" {
			continue
		}
		l = truncate(l)
		if markup {
			l = html.EscapeString(l)
		}
		rest = append(rest, l)
	}
	return summary, strings.Join(rest, "\n")
}

func truncate(s string) string {
	return runewidth.Truncate(strings.TrimSpace(s), MaxLineWidth, "…")
}
