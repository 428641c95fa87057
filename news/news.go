// Package news fetches recent headlines for one topic from a set of sources
// and renders them into the digest text the script generator embeds in its
// prompt.
package news

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"daily-shorts-pipeline/config"
	"daily-shorts-pipeline/types"
)

// Source is one news backend. Failing sources are skipped, not fatal; the
// adapter only errors when every source came back empty.
type Source interface {
	Name() string
	Fetch(ctx context.Context, query string, since time.Time) ([]types.NewsItem, error)
}

// Adapter aggregates all configured sources.
type Adapter struct {
	cfg     *config.Config
	sources []Source
}

// New wires the default source chain: Google News RSS, Serper search, and
// Reddit. Sources missing credentials are left out up front.
func New(cfg *config.Config) *Adapter {
	sources := []Source{newGoogleNewsRSS()}
	if cfg.Secrets.SerperAPIKey != "" {
		sources = append(sources, newSerper(cfg.Secrets.SerperAPIKey))
	}
	if len(cfg.News.Subreddits) > 0 {
		sources = append(sources, newRedditSource(cfg.News.Subreddits))
	}
	return &Adapter{cfg: cfg, sources: sources}
}

// NewWithSources is the injection point for tests.
func NewWithSources(cfg *config.Config, sources ...Source) *Adapter {
	return &Adapter{cfg: cfg, sources: sources}
}

// Run returns at most MaxItems recent items, deduplicated by title.
func (a *Adapter) Run(ctx context.Context, query string) ([]types.NewsItem, error) {
	since := time.Now().AddDate(0, 0, -a.cfg.News.LookbackDays)
	log.Printf("[news] Fetching news for %q (since %s)...", query, since.Format("2006-01-02"))

	var items []types.NewsItem
	seen := make(map[string]bool)

	for _, src := range a.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := src.Fetch(ctx, query, since)
		if err != nil {
			log.Printf("[news] %s warning: %v", src.Name(), err)
			continue
		}
		for _, item := range found {
			key := strings.ToLower(strings.TrimSpace(item.Title))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			items = append(items, item)
		}
		log.Printf("[news] %s: %d item(s)", src.Name(), len(found))
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no news found from any source")
	}
	if len(items) > a.cfg.News.MaxItems {
		items = items[:a.cfg.News.MaxItems]
	}
	log.Printf("[news] ✅ Using %d item(s)", len(items))
	return items, nil
}

// Digest renders items into the bullet format embedded in the script prompt.
func Digest(items []types.NewsItem) string {
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("- Title: " + item.Title)
		if item.Snippet != "" {
			sb.WriteString("\n- Snippet: " + item.Snippet)
		}
		sb.WriteString("\n- Link: " + item.Link)
	}
	return sb.String()
}
