// Package visuals resolves a background image for each narration group
// through a prioritized provider chain, memoizing results per group key for
// the duration of one run.
package visuals

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider is one image backend. Attempt returns raw image bytes or a
// ProviderError; the resolver walks the chain on failure.
type Provider interface {
	Name() string
	Attempt(ctx context.Context, prompt string, width, height int) ([]byte, error)
}

// ProviderError tags a single provider's failure (non-2xx, timeout, or
// malformed payload) so the chain can fall through.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func failure(name string, err error) error {
	return &ProviderError{Provider: name, Err: err}
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}

// download fetches a URL, rejecting non-200 responses and bodies too small
// to be a real image (error pages).
func download(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; DailyShortsPipeline/1.0)")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(data) < 100 {
		return nil, fmt.Errorf("response too small (%d bytes) — likely an error page", len(data))
	}
	return data, nil
}
