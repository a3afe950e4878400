// -----------------------------------------------------------------------
// Media fetcher: downloads thumbnail images referenced by video-discovery
// results so they can be stored as Media entities. Plain net/http client,
// grounded the same way the teacher's httpclient package builds one -
// no cookie jar or auth needed here, just a bounded-timeout GET.
// -----------------------------------------------------------------------

package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
)

// Fetcher downloads a URL's body and reports enough about it to persist
// a Media record: a filename, its MIME type, and its size in bytes.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
}

// New builds a Fetcher with a simple timeout-bounded http.Client, the
// same way the teacher's NewDefaultHTTPClient does for non-authenticated
// downloads.
func New(userAgent string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (filename, mimeType string, sizeBytes int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", 0, fmt.Errorf("media fetch: build request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", "", 0, fmt.Errorf("media fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", 0, fmt.Errorf("media fetch: unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", 0, fmt.Errorf("media fetch: read body: %w", err)
	}

	mimeType = resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(body)
	}

	return filenameFor(rawURL), mimeType, int64(len(body)), nil
}

// filenameFor derives a filename from the URL's path when it has a
// recognizable base name, otherwise generates one so every thumbnail
// gets a stable, collision-free identifier.
func filenameFor(rawURL string) string {
	if parsed, err := url.Parse(rawURL); err == nil {
		if base := path.Base(parsed.Path); base != "" && base != "." && base != "/" {
			return base
		}
	}
	return uuid.NewString()
}
