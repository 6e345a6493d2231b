// Package media turns a platform media-session provider into snapshot lists,
// one per refresh pass.
package media

import (
	"context"
	"errors"

	"github.com/zsprackett/now-playing/internal/session"
)

// ErrNothingPlaying is returned by Provider.Metadata for a session that exists
// but has no track loaded. Enumerate skips such sessions without retrying.
var ErrNothingPlaying = errors.New("nothing playing")

// Handle is a provider's reference to one live session. ID must be stable for
// the lifetime of that session and unique across live sessions.
type Handle interface {
	ID() string
	SourceID() string
}

// Metadata is the text a provider reports for one session.
type Metadata struct {
	Title    string
	Subtitle string
	Artist   string
	Album    string
	// ArtURL locates the artwork of this exact read. It is not displayed
	// and not part of a snapshot's identity.
	ArtURL string
}

// Provider is the platform media-session API.
type Provider interface {
	ListSessions(ctx context.Context) ([]Handle, error)
	// Metadata may fail transiently while a player is still settling.
	Metadata(ctx context.Context, h Handle) (Metadata, error)
	// Thumbnail loads the artwork belonging to md, a result of Metadata.
	Thumbnail(ctx context.Context, h Handle, md Metadata) (*session.Thumbnail, error)
	// SubscribeChanged calls fn whenever h's metadata changes.
	SubscribeChanged(h Handle, fn func()) error
	// SubscribeSessionListChanged calls fn whenever sessions come or go.
	SubscribeSessionListChanged(fn func()) error
}
