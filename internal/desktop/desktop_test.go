package desktop_test

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"github.com/zsprackett/now-playing/internal/desktop"
)

func TestCompose(t *testing.T) {
	cases := []struct {
		name        string
		lines       [3]string
		markup      bool
		wantSummary string
		wantBody    string
	}{
		{"all lines", [3]string{"Song A", "Album", "Artist"}, false, "Song A", "Album\nArtist"},
		{"empty album skipped", [3]string{"Song A", "", "Artist"}, false, "Song A", "Artist"},
		{"title only", [3]string{"Song A", "", ""}, false, "Song A", ""},
		{"markup escaped", [3]string{"Rock & Roll", "<Live>", ""}, true, "Rock & Roll", "&lt;Live&gt;"},
		{"plain not escaped", [3]string{"x", "<Live>", ""}, false, "x", "<Live>"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			summary, body := desktop.Compose(tc.lines, tc.markup)
			if summary != tc.wantSummary {
				t.Errorf("summary: got %q want %q", summary, tc.wantSummary)
			}
			if body != tc.wantBody {
				t.Errorf("body: got %q want %q", body, tc.wantBody)
			}
		})
	}
}

func TestCompose_TruncatesWideLines(t *testing.T) {
	long := strings.Repeat("曲", desktop.MaxLineWidth)
	summary, _ := desktop.Compose([3]string{long, "", ""}, false)
	if w := runewidth.StringWidth(summary); w > desktop.MaxLineWidth {
		t.Errorf("summary width %d exceeds %d", w, desktop.MaxLineWidth)
	}
	if !strings.HasSuffix(summary, "…") {
		t.Errorf("expected ellipsis, got %q", summary)
	}
}
