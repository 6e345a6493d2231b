package session

import "fmt"

// Thumbnail is the artwork attached to a snapshot. It is best effort and
// never part of a snapshot's identity.
type Thumbnail struct {
	MimeType string `json:"mime_type"`
	Bytes    []byte `json:"bytes"`
}

// Snapshot is the displayable state of one media source at one point in time.
// Snapshots are built fresh on every enumeration pass and never mutated.
type Snapshot struct {
	SourceID  string
	Title     string
	Subtitle  string
	Artist    string
	Album     string
	Thumbnail *Thumbnail
}

// Key identifies the "now playing" state of a snapshot. Two snapshots with the
// same key describe the same state even if their thumbnails differ.
type Key struct {
	SourceID string
	Title    string
	Subtitle string
	Artist   string
	Album    string
}

func (s Snapshot) Key() Key {
	return Key{
		SourceID: s.SourceID,
		Title:    s.Title,
		Subtitle: s.Subtitle,
		Artist:   s.Artist,
		Album:    s.Album,
	}
}

// SameState reports whether s and other describe the same state.
func (s Snapshot) SameState(other Snapshot) bool {
	return s.Key() == other.Key()
}

func (s Snapshot) String() string {
	return fmt.Sprintf("%s: %q by %q", s.SourceID, s.Title, s.Artist)
}
