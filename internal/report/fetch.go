package report

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// PhotoFetcher retrieves photo bytes for gallery embedding. Failures are
// always recovered per-photo with a placeholder; a fetcher never gets to
// abort an export.
type PhotoFetcher interface {
	Fetch(ctx context.Context, photoURL string) ([]byte, error)
}

// maxPhotoBytes caps a single downloaded image.
const maxPhotoBytes = 20 << 20

// HTTPFetcher fetches photos over HTTP with a bounded per-attempt timeout
// and a small retry budget for transient failures. When ProxyBase is set,
// requests are routed through the same-origin proxy endpoint instead of
// hitting the photo host directly.
type HTTPFetcher struct {
	Client    *http.Client
	Timeout   time.Duration
	Attempts  int
	ProxyBase string
}

func NewHTTPFetcher(timeout time.Duration, proxyBase string) *HTTPFetcher {
	return &HTTPFetcher{
		Client:    &http.Client{},
		Timeout:   timeout,
		Attempts:  2,
		ProxyBase: proxyBase,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, photoURL string) ([]byte, error) {
	target := photoURL
	if f.ProxyBase != "" {
		target = f.ProxyBase + "?url=" + url.QueryEscape(photoURL)
	}

	attempts := f.Attempts
	if attempts < 1 {
		attempts = 1
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := f.fetchOnce(ctx, target, timeout)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, target string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build photo request: %w", err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch photo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch photo: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes))
	if err != nil {
		return nil, fmt.Errorf("read photo body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("fetch photo: empty body")
	}
	return data, nil
}
