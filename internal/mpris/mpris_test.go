package mpris_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/godbus/dbus/v5"

	"github.com/zsprackett/now-playing/internal/mpris"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestSourceID(t *testing.T) {
	cases := map[string]string{
		"org.mpris.MediaPlayer2.spotify":              "spotify",
		"org.mpris.MediaPlayer2.vlc.instance4242":     "vlc",
		"org.mpris.MediaPlayer2.firefox.instance_1_2": "firefox.instance_1_2",
		"org.mpris.MediaPlayer2.chromium.instance99":  "chromium",
		"org.mpris.MediaPlayer2.kdeconnect.mpris_x":   "kdeconnect.mpris_x",
	}
	for in, want := range cases {
		if got := mpris.SourceID(in); got != want {
			t.Errorf("SourceID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPlayerNames(t *testing.T) {
	got := mpris.PlayerNames([]string{
		"org.freedesktop.DBus",
		"org.mpris.MediaPlayer2.vlc",
		":1.42",
		"org.mpris.MediaPlayer2.",
		"org.mpris.MediaPlayer2.spotify",
	})
	want := []string{"org.mpris.MediaPlayer2.spotify", "org.mpris.MediaPlayer2.vlc"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestParseMetadata(t *testing.T) {
	md := map[string]dbus.Variant{
		"xesam:title":  dbus.MakeVariant(" Song A "),
		"xesam:artist": dbus.MakeVariant([]string{"Artist 1", "Artist 2"}),
		"xesam:album":  dbus.MakeVariant("Album"),
		"mpris:length": dbus.MakeVariant(int64(180000000)),
		"mpris:artUrl": dbus.MakeVariant("file:///tmp/cover.png"),
	}
	m := mpris.ParseMetadata(md)
	if m.ArtURL != "file:///tmp/cover.png" {
		t.Errorf("art url: got %q", m.ArtURL)
	}
	if m.Title != "Song A" || m.Artist != "Artist 1, Artist 2" || m.Album != "Album" || m.Subtitle != "" {
		t.Errorf("unexpected metadata %+v", m)
	}
}

func TestParseMetadata_MissingFields(t *testing.T) {
	m := mpris.ParseMetadata(map[string]dbus.Variant{
		"xesam:artist": dbus.MakeVariant(int32(7)),
	})
	if m.Title != "" || m.Artist != "" {
		t.Errorf("expected empty metadata, got %+v", m)
	}
}

func TestDetectMime(t *testing.T) {
	if mt, err := mpris.DetectMime(pngHeader, "text/plain"); err != nil || mt != "image/png" {
		t.Errorf("sniffed: got %q %v", mt, err)
	}
	if mt, err := mpris.DetectMime([]byte("??"), "image/webp; q=1"); err != nil || mt != "image/webp" {
		t.Errorf("declared: got %q %v", mt, err)
	}
	if _, err := mpris.DetectMime([]byte("<html>"), "text/html"); err == nil {
		t.Error("expected error for non-image")
	}
}

func TestArtFetcher_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cover")
	if err := os.WriteFile(path, pngHeader, 0o600); err != nil {
		t.Fatal(err)
	}
	f := mpris.NewArtFetcher(1<<20, discardLogger())
	thumb, err := f.Fetch(context.Background(), "file://"+path)
	if err != nil {
		t.Fatal(err)
	}
	if thumb.MimeType != "image/png" || len(thumb.Bytes) != len(pngHeader) {
		t.Errorf("unexpected thumbnail %s/%d", thumb.MimeType, len(thumb.Bytes))
	}
}

func TestArtFetcher_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngHeader)
	}))
	defer srv.Close()

	thumb, err := mpris.NewArtFetcher(1<<20, discardLogger()).Fetch(context.Background(), srv.URL+"/cover.png")
	if err != nil {
		t.Fatal(err)
	}
	if thumb.MimeType != "image/png" {
		t.Errorf("got mime %q", thumb.MimeType)
	}
}

func TestArtFetcher_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cover")
	os.WriteFile(path, append(pngHeader, make([]byte, 64)...), 0o600)

	_, err := mpris.NewArtFetcher(32, discardLogger()).Fetch(context.Background(), "file://"+path)
	if !errors.Is(err, mpris.ErrArtTooLarge) {
		t.Errorf("expected ErrArtTooLarge, got %v", err)
	}
}

func TestArtFetcher_UnsupportedScheme(t *testing.T) {
	if _, err := mpris.NewArtFetcher(1<<20, discardLogger()).Fetch(context.Background(), "data:image/png;base64,AAAA"); err == nil {
		t.Error("expected error")
	}
}
