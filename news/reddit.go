package news

import (
	"context"
	"fmt"
	"time"

	"github.com/vartanbeno/go-reddit/v2/reddit"

	"daily-shorts-pipeline/types"
)

// redditSource surfaces hot posts from topic subreddits as a supplementary
// news feed. Read-only access needs no credentials.
type redditSource struct {
	subreddits []string
	client     *reddit.Client
}

func newRedditSource(subreddits []string) *redditSource {
	client, err := reddit.NewReadonlyClient()
	if err != nil {
		client = nil
	}
	return &redditSource{subreddits: subreddits, client: client}
}

func (r *redditSource) Name() string { return "reddit" }

func (r *redditSource) Fetch(ctx context.Context, _ string, since time.Time) ([]types.NewsItem, error) {
	if r.client == nil {
		return nil, fmt.Errorf("reddit client unavailable")
	}

	var items []types.NewsItem
	for _, sub := range r.subreddits {
		posts, _, err := r.client.Subreddit.HotPosts(ctx, sub, &reddit.ListOptions{Limit: 10})
		if err != nil {
			return items, fmt.Errorf("r/%s: %w", sub, err)
		}
		for _, post := range posts {
			if post.Created != nil && post.Created.Before(since) {
				continue
			}
			if post.Stickied || post.Title == "" {
				continue
			}
			items = append(items, types.NewsItem{
				Title:   post.Title,
				Snippet: truncateSnippet(post.Body, 200),
				Link:    "https://www.reddit.com" + post.Permalink,
				Source:  "r/" + sub,
			})
		}
	}
	return items, nil
}

func truncateSnippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
