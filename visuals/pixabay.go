package visuals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// pixabay searches stock photos. Third hop: when both AI generators fail, a
// real photo close to the keyword beats nothing.
type pixabay struct {
	apiKey     string
	httpClient *http.Client
}

func newPixabay(apiKey string) *pixabay {
	return &pixabay{apiKey: apiKey, httpClient: newHTTPClient()}
}

func (p *pixabay) Name() string { return "pixabay" }

type pixabayResponse struct {
	Hits []struct {
		LargeImageURL string `json:"largeImageURL"`
		WebformatURL  string `json:"webformatURL"`
	} `json:"hits"`
}

func (p *pixabay) Attempt(ctx context.Context, prompt string, width, height int) ([]byte, error) {
	if p.apiKey == "" {
		return nil, failure(p.Name(), fmt.Errorf("PIXABAY_API_KEY not configured"))
	}

	orientation := "vertical"
	if width > height {
		orientation = "horizontal"
	}
	searchURL := fmt.Sprintf(
		"https://pixabay.com/api/?key=%s&q=%s&image_type=photo&orientation=%s&per_page=3&safesearch=true",
		p.apiKey, url.QueryEscape(prompt), orientation,
	)

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, failure(p.Name(), err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, failure(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, failure(p.Name(), fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	var result pixabayResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, failure(p.Name(), fmt.Errorf("parse response: %w", err))
	}
	if len(result.Hits) == 0 {
		return nil, failure(p.Name(), fmt.Errorf("no results for %q", prompt))
	}

	hit := result.Hits[0]
	imageURL := hit.LargeImageURL
	if imageURL == "" {
		imageURL = hit.WebformatURL
	}
	if imageURL == "" {
		return nil, failure(p.Name(), fmt.Errorf("hit missing image URL"))
	}

	data, err := download(ctx, p.httpClient, imageURL)
	if err != nil {
		return nil, failure(p.Name(), err)
	}
	return data, nil
}
