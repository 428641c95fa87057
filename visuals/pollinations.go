package visuals

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/url"
)

// pollinations generates AI images via pollinations.ai (free, no key). It
// walks its own model fallback chain before reporting failure to the
// resolver.
type pollinations struct {
	models     []string
	httpClient *http.Client
}

func newPollinations(models []string) *pollinations {
	return &pollinations{models: models, httpClient: newHTTPClient()}
}

func (p *pollinations) Name() string { return "pollinations" }

func (p *pollinations) Attempt(ctx context.Context, prompt string, width, height int) ([]byte, error) {
	var lastErr error
	for _, model := range p.models {
		imageURL := fmt.Sprintf(
			"https://image.pollinations.ai/prompt/%s?width=%d&height=%d&nologo=true&model=%s&seed=%d",
			url.PathEscape(prompt), width, height, model, seedFor(prompt),
		)
		data, err := download(ctx, p.httpClient, imageURL)
		if err == nil {
			return data, nil
		}
		lastErr = fmt.Errorf("model %s: %w", model, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, failure(p.Name(), lastErr)
}

// seedFor keeps generation deterministic per prompt so a rerun with the same
// script produces the same imagery.
func seedFor(prompt string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	return h.Sum32() % 1_000_000
}
