package visuals

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// cloudflare generates images with Workers AI (FLUX). The fast low-cost
// first hop of the chain. The payload is base64 inside a JSON envelope.
type cloudflare struct {
	accountID  string
	apiKey     string
	model      string
	httpClient *http.Client
}

func newCloudflare(accountID, apiKey, model string) *cloudflare {
	return &cloudflare{
		accountID:  accountID,
		apiKey:     apiKey,
		model:      model,
		httpClient: newHTTPClient(),
	}
}

func (c *cloudflare) Name() string { return "cloudflare" }

type cloudflareResponse struct {
	Result struct {
		Image string `json:"image"`
	} `json:"result"`
	Success bool `json:"success"`
}

func (c *cloudflare) Attempt(ctx context.Context, prompt string, width, height int) ([]byte, error) {
	if c.accountID == "" || c.apiKey == "" {
		return nil, failure(c.Name(), fmt.Errorf("credentials not configured"))
	}

	url := fmt.Sprintf("https://api.cloudflare.com/client/v4/accounts/%s/ai/run/%s", c.accountID, c.model)

	// FLUX schnell renders square by default; the aspect hint biases the
	// composition toward the requested frame.
	body, err := json.Marshal(map[string]any{
		"prompt": fmt.Sprintf("%s, %s composition, high resolution, cinematic lighting, lots of details", prompt, aspectHint(width, height)),
	})
	if err != nil {
		return nil, failure(c.Name(), err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, failure(c.Name(), err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, failure(c.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, failure(c.Name(), fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure(c.Name(), err)
	}
	var result cloudflareResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, failure(c.Name(), fmt.Errorf("parse response: %w", err))
	}
	if result.Result.Image == "" {
		return nil, failure(c.Name(), fmt.Errorf("missing image payload"))
	}

	img, err := base64.StdEncoding.DecodeString(result.Result.Image)
	if err != nil {
		return nil, failure(c.Name(), fmt.Errorf("decode image: %w", err))
	}
	return img, nil
}

func aspectHint(width, height int) string {
	switch {
	case width > height:
		return "wide angle shot, centered"
	case height > width:
		return "vertical portrait"
	default:
		return "centered"
	}
}
