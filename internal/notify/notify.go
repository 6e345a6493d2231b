// Package notify turns accepted snapshots into toasts and shows them one at a
// time.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/zsprackett/now-playing/internal/session"
)

// Request is everything needed to show one toast. It is serialized to a file
// for the send-toast child process.
type Request struct {
	ID        string             `json:"id"`
	SourceID  string             `json:"source_id"`
	Line1     string             `json:"line_1"`
	Line2     string             `json:"line_2"`
	Line3     string             `json:"line_3"`
	Thumbnail *session.Thumbnail `json:"thumbnail,omitempty"`
	Duration  time.Duration      `json:"duration"`
}

// NewRequest derives a toast from a snapshot: the first line is the title,
// joined to the subtitle with an en dash when there is one; then album, then
// artist.
func NewRequest(s session.Snapshot, duration time.Duration) Request {
	line1 := s.Title
	if s.Subtitle != "" {
		line1 = s.Title + " – " + s.Subtitle
	}
	return Request{
		ID:        uuid.NewString(),
		SourceID:  s.SourceID,
		Line1:     line1,
		Line2:     s.Album,
		Line3:     s.Artist,
		Thumbnail: s.Thumbnail,
		Duration:  duration,
	}
}

func (r Request) Lines() [3]string {
	return [3]string{r.Line1, r.Line2, r.Line3}
}

// Handle identifies a toast that is currently shown.
type Handle uint32

// Presenter is the desktop notification API.
type Presenter interface {
	Show(ctx context.Context, lines [3]string, thumbnailPath, sourceID string) (Handle, error)
	Hide(ctx context.Context, h Handle) error
}
