package notify_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/zsprackett/now-playing/internal/notify"
	"github.com/zsprackett/now-playing/internal/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type shown struct {
	lines     [3]string
	thumbPath string
	thumbData []byte
	source    string
}

type fakePresenter struct {
	mu      sync.Mutex
	shown   []shown
	hidden  []notify.Handle
	showErr error
	hideErr error
	next    notify.Handle
}

func (p *fakePresenter) Show(_ context.Context, lines [3]string, thumbPath, sourceID string) (notify.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.showErr != nil {
		return 0, p.showErr
	}
	var data []byte
	if thumbPath != "" {
		data, _ = os.ReadFile(thumbPath)
	}
	p.shown = append(p.shown, shown{lines: lines, thumbPath: thumbPath, thumbData: data, source: sourceID})
	p.next++
	return p.next, nil
}

func (p *fakePresenter) Hide(_ context.Context, h notify.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hidden = append(p.hidden, h)
	return p.hideErr
}

func TestNewRequest_LineComposition(t *testing.T) {
	cases := []struct {
		title, subtitle, want string
	}{
		{"Song", "", "Song"},
		{"Song", "Live", "Song – Live"},
		{"", "", ""},
	}
	for _, tc := range cases {
		req := notify.NewRequest(session.Snapshot{SourceID: "s", Title: tc.title, Subtitle: tc.subtitle}, time.Second)
		if req.Line1 != tc.want {
			t.Errorf("title=%q subtitle=%q: got %q want %q", tc.title, tc.subtitle, req.Line1, tc.want)
		}
	}
}

func TestNewRequest_Fields(t *testing.T) {
	thumb := &session.Thumbnail{MimeType: "image/png", Bytes: pngHeader}
	req := notify.NewRequest(session.Snapshot{
		SourceID: "spotify", Title: "T", Artist: "Ar", Album: "Al", Thumbnail: thumb,
	}, 3*time.Second)

	if req.SourceID != "spotify" || req.Line2 != "Al" || req.Line3 != "Ar" {
		t.Errorf("unexpected request %+v", req)
	}
	if req.Thumbnail != thumb || req.Duration != 3*time.Second {
		t.Errorf("thumbnail or duration not carried over: %+v", req)
	}
	if req.ID == "" {
		t.Error("expected a request id")
	}
}

func TestPresent_ShowWaitHide(t *testing.T) {
	p := &fakePresenter{}
	clock := clockwork.NewFakeClock()
	req := notify.Request{ID: "1", SourceID: "spotify", Line1: "Song A", Duration: 3 * time.Second,
		Thumbnail: &session.Thumbnail{MimeType: "image/png", Bytes: pngHeader}}

	done := make(chan error, 1)
	go func() { done <- notify.Present(context.Background(), p, req, clock, t.TempDir()) }()

	clock.BlockUntil(1)
	p.mu.Lock()
	if len(p.shown) != 1 || len(p.hidden) != 0 {
		t.Errorf("expected shown and not yet hidden, got %d/%d", len(p.shown), len(p.hidden))
	}
	p.mu.Unlock()

	clock.Advance(3 * time.Second)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if len(p.hidden) != 1 || p.hidden[0] != 1 {
		t.Errorf("expected handle 1 hidden, got %v", p.hidden)
	}
	s := p.shown[0]
	if s.lines[0] != "Song A" || s.source != "spotify" {
		t.Errorf("unexpected show %+v", s)
	}
	if filepath.Ext(s.thumbPath) != ".png" || string(s.thumbData) != string(pngHeader) {
		t.Errorf("thumbnail not written as png: %q", s.thumbPath)
	}
	if _, err := os.Stat(s.thumbPath); !os.IsNotExist(err) {
		t.Error("thumbnail file should be removed after hide")
	}
}

func TestPresent_CancelHidesEarly(t *testing.T) {
	p := &fakePresenter{}
	ctx, cancel := context.WithCancel(context.Background())
	req := notify.Request{ID: "1", Line1: "x", Duration: time.Hour}

	done := make(chan error, 1)
	go func() { done <- notify.Present(ctx, p, req, clockwork.NewFakeClock(), t.TempDir()) }()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Present did not return after cancel")
	}
	if len(p.hidden) != 1 {
		t.Error("expected toast hidden after cancel")
	}
}

func TestPresent_ShowErrorSkipsHide(t *testing.T) {
	p := &fakePresenter{showErr: errors.New("no daemon")}
	err := notify.Present(context.Background(), p, notify.Request{Duration: time.Second}, clockwork.NewFakeClock(), "")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(p.hidden) != 0 {
		t.Error("hide should not be called after a failed show")
	}
}

func TestPresent_UnknownThumbnailDropped(t *testing.T) {
	p := &fakePresenter{}
	clock := clockwork.NewFakeClock()
	req := notify.Request{Duration: time.Second, Thumbnail: &session.Thumbnail{MimeType: "application/x-nope", Bytes: []byte("??")}}

	done := make(chan error, 1)
	go func() { done <- notify.Present(context.Background(), p, req, clock, t.TempDir()) }()
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if p.shown[0].thumbPath != "" {
		t.Errorf("expected no thumbnail path, got %q", p.shown[0].thumbPath)
	}
}

func TestThumbnailExtension(t *testing.T) {
	ext, err := notify.ThumbnailExtension(&session.Thumbnail{MimeType: "image/jpeg", Bytes: pngHeader})
	if err != nil || ext != ".png" {
		t.Errorf("sniffed bytes should win: got %q %v", ext, err)
	}
	ext, err = notify.ThumbnailExtension(&session.Thumbnail{MimeType: "image/png", Bytes: []byte("not an image")})
	if err != nil || ext != ".png" {
		t.Errorf("declared mime fallback: got %q %v", ext, err)
	}
	if _, err := notify.ThumbnailExtension(&session.Thumbnail{MimeType: "", Bytes: nil}); err == nil {
		t.Error("expected error for unknown thumbnail")
	}
}

func TestRequestFile_RoundTrip(t *testing.T) {
	req := notify.NewRequest(session.Snapshot{
		SourceID: "spotify", Title: "Song", Subtitle: "Live", Artist: "A", Album: "B",
		Thumbnail: &session.Thumbnail{MimeType: "image/png", Bytes: pngHeader},
	}, 3*time.Second)

	path, err := notify.WriteRequestFile(t.TempDir(), req)
	if err != nil {
		t.Fatal(err)
	}
	got, err := notify.ReadRequestFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != req.ID || got.Line1 != "Song – Live" || got.Duration != 3*time.Second {
		t.Errorf("unexpected request %+v", got)
	}
	if got.Thumbnail == nil || string(got.Thumbnail.Bytes) != string(pngHeader) {
		t.Error("thumbnail bytes lost")
	}
}
