package source

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/SlyMarbo/rss"
	"github.com/kovalyov-valentin/intelligence-brief/internal/model"
	"github.com/samber/lo"
)

// RSSSource reads a list of generic RSS/Atom feeds such as company blogs.
type RSSSource struct {
	client *Client
	log    *slog.Logger
	feeds  []string
	// Per feed.
	limit int
}

// NewRSSSource reads plain RSS or Atom feeds.
func NewRSSSource(client *Client, log *slog.Logger, feeds []string, limit int) *RSSSource {
	return &RSSSource{
		client: client,
		log:    log.With("source", model.SourceRSS),
		feeds:  feeds,
		limit:  limit,
	}
}

func (s *RSSSource) Name() string {
	return model.SourceRSS
}

func (s *RSSSource) Fetch(ctx context.Context) ([]model.Item, error) {
	return fetchEach(ctx, s.log, s.feeds, func(ctx context.Context, url string) ([]model.Item, error) {
		feed, err := fetchFeed(ctx, s.client, url)
		if err != nil {
			return nil, err
		}

		name := strings.TrimSpace(feed.Title)
		if name == "" {
			name = hostOf(url)
		}

		return feedItems(feed, model.SourceRSS, name, url, s.limit, s.client.Now()), nil
	})
}

// SubstackSource reads newsletters by handle. A handle may be a bare name
// ("simonw"), a host ("simonw.substack.com") or a full feed URL.
type SubstackSource struct {
	client  *Client
	log     *slog.Logger
	handles []string
	limit   int
}

// NewSubstackSource reads the feed of every Substack handle.
func NewSubstackSource(client *Client, log *slog.Logger, handles []string, limit int) *SubstackSource {
	return &SubstackSource{
		client:  client,
		log:     log.With("source", model.SourceSubstack),
		handles: handles,
		limit:   limit,
	}
}

func (s *SubstackSource) Name() string {
	return model.SourceSubstack
}

func (s *SubstackSource) Fetch(ctx context.Context) ([]model.Item, error) {
	return fetchEach(ctx, s.log, s.handles, func(ctx context.Context, handle string) ([]model.Item, error) {
		url := substackFeedURL(handle)

		feed, err := fetchFeed(ctx, s.client, url)
		if err != nil {
			return nil, err
		}

		return feedItems(feed, model.SourceSubstack, handle, url, s.limit, s.client.Now()), nil
	})
}

func substackFeedURL(handle string) string {
	handle = strings.TrimSpace(handle)

	switch {
	case strings.Contains(handle, "://"):
		return handle
	case strings.Contains(handle, ".substack.com"):
		return "https://" + strings.TrimSuffix(handle, "/") + "/feed"
	default:
		return "https://" + handle + ".substack.com/feed"
	}
}

func feedItems(feed *rss.Feed, source, sourceName, feedURL string, limit int, now time.Time) []model.Item {
	entries := feed.Items
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	items := lo.Map(entries, func(entry *rss.Item, _ int) model.Item {
		return model.Item{
			ID:          entry.ID,
			Source:      source,
			SourceName:  sourceName,
			Kind:        model.KindArticle,
			Title:       cleanText(entry.Title, 0),
			URL:         entry.Link,
			PublishedAt: entry.Date,
			Excerpt:     cleanText(feedSummary(entry), excerptLimit),
			Tags:        lowerTags(entry.Categories),
			Meta:        map[string]string{"feed": feedURL},
		}
	})

	return finalize(items, now)
}
