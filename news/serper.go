package news

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"daily-shorts-pipeline/types"
)

// serper queries the Serper search API with the last-24-hours filter.
type serper struct {
	apiKey     string
	httpClient *http.Client
}

func newSerper(apiKey string) *serper {
	return &serper{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *serper) Name() string { return "serper" }

type serperRequest struct {
	Q   string `json:"q"`
	TBS string `json:"tbs"`
	Num int    `json:"num"`
	GL  string `json:"gl"`
	HL  string `json:"hl"`
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"organic"`
}

func (s *serper) Fetch(ctx context.Context, query string, _ time.Time) ([]types.NewsItem, error) {
	// tbs=qdr:d is the "past 24 hours" filter; the time window is enforced
	// server-side, so the since argument is not re-checked here.
	body, err := json.Marshal(serperRequest{Q: query, TBS: "qdr:d", Num: 10, GL: "us", HL: "en"})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://google.serper.dev/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from Serper", resp.StatusCode)
	}

	var result serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parse serper response: %w", err)
	}

	var items []types.NewsItem
	for _, r := range result.Organic {
		if r.Title == "" {
			continue
		}
		items = append(items, types.NewsItem{
			Title:   r.Title,
			Snippet: r.Snippet,
			Link:    r.Link,
			Source:  "Serper",
		})
	}
	return items, nil
}
