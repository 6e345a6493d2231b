package mpris

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/h2non/filetype"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/zsprackett/now-playing/internal/session"
)

var ErrArtTooLarge = errors.New("artwork too large")

// ArtFetcher loads the image behind an mpris:artUrl. Local files are read
// directly and http(s) URLs are fetched with retries.
type ArtFetcher struct {
	client   *retryablehttp.Client
	maxBytes int64
	logger   *slog.Logger
}

func NewArtFetcher(maxBytes int64, logger *slog.Logger) *ArtFetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.HTTPClient.Timeout = 5 * time.Second
	client.Logger = logger
	return &ArtFetcher{client: client, maxBytes: maxBytes, logger: logger}
}

func (f *ArtFetcher) Fetch(ctx context.Context, artURL string) (*session.Thumbnail, error) {
	u, err := url.Parse(artURL)
	if err != nil {
		return nil, fmt.Errorf("parse art url: %w", err)
	}
	var (
		data     []byte
		declared string
	)
	switch u.Scheme {
	case "file":
		data, err = f.readFile(u.Path)
	case "http", "https":
		data, declared, err = f.get(ctx, artURL)
	default:
		return nil, fmt.Errorf("unsupported art url scheme %q", u.Scheme)
	}
	if err != nil {
		return nil, err
	}
	mimeType, err := DetectMime(data, declared)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", artURL, err)
	}
	f.logger.Debug("mpris: artwork loaded", "url", artURL, "mime", mimeType, "size", humanize.Bytes(uint64(len(data))))
	return &session.Thumbnail{MimeType: mimeType, Bytes: data}, nil
}

func (f *ArtFetcher) readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return f.readLimited(file)
}

func (f *ArtFetcher) get(ctx context.Context, artURL string) ([]byte, string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, artURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("GET %s: %s", artURL, resp.Status)
	}
	data, err := f.readLimited(resp.Body)
	return data, resp.Header.Get("Content-Type"), err
}

func (f *ArtFetcher) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: over %s", ErrArtTooLarge, humanize.IBytes(uint64(f.maxBytes)))
	}
	return data, nil
}

// DetectMime sniffs the image type of data, falling back to a declared
// image/* Content-Type.
func DetectMime(data []byte, declared string) (string, error) {
	if kind, err := filetype.Image(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value, nil
	}
	if mt, _, err := mime.ParseMediaType(declared); err == nil && len(mt) > 6 && mt[:6] == "image/" {
		return mt, nil
	}
	return "", errors.New("not a recognized image")
}
