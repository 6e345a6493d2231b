package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"time"

	"github.com/h2non/filetype"
	"github.com/jonboulle/clockwork"

	"github.com/zsprackett/now-playing/internal/session"
)

const hideTimeout = 5 * time.Second

// Present shows req, keeps it up for req.Duration or until ctx ends, then
// hides it. The thumbnail, if any, is written to a temp file for the life of
// the toast; failing to write it only drops the image.
func Present(ctx context.Context, p Presenter, req Request, clock clockwork.Clock, tempDir string) error {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	var thumbPath string
	if req.Thumbnail != nil {
		if path, err := writeThumbnail(tempDir, req.Thumbnail); err == nil {
			thumbPath = path
			defer os.Remove(path)
		}
	}

	h, err := p.Show(ctx, req.Lines(), thumbPath, req.SourceID)
	if err != nil {
		return fmt.Errorf("show toast: %w", err)
	}

	select {
	case <-ctx.Done():
	case <-clock.After(req.Duration):
	}

	hideCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hideTimeout)
	defer cancel()
	if err := p.Hide(hideCtx, h); err != nil {
		return fmt.Errorf("hide toast: %w", err)
	}
	return nil
}

// ThumbnailExtension picks a file extension for a thumbnail, preferring what
// the bytes look like over the declared mime type.
func ThumbnailExtension(t *session.Thumbnail) (string, error) {
	if kind, err := filetype.Image(t.Bytes); err == nil && kind != filetype.Unknown {
		return "." + kind.Extension, nil
	}
	exts, err := mime.ExtensionsByType(t.MimeType)
	if err != nil || len(exts) == 0 {
		return "", fmt.Errorf("no extension for mime type %q", t.MimeType)
	}
	return exts[0], nil
}

func writeThumbnail(dir string, t *session.Thumbnail) (string, error) {
	ext, err := ThumbnailExtension(t)
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, "now-playing-thumb-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(t.Bytes); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// WriteRequestFile serializes req to a new temp file and returns its path.
func WriteRequestFile(dir string, req Request) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, "now-playing-toast-"+req.ID+"-*.json")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func ReadRequestFile(path string) (Request, error) {
	var req Request
	data, err := os.ReadFile(path)
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("decode toast request %s: %w", path, err)
	}
	return req, nil
}

// SendFromFile is the body of the send-toast command: it presents the
// request stored at path.
func SendFromFile(ctx context.Context, p Presenter, path string) error {
	req, err := ReadRequestFile(path)
	if err != nil {
		return err
	}
	return Present(ctx, p, req, clockwork.NewRealClock(), "")
}
