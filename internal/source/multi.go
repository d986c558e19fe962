package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SlyMarbo/rss"
	"github.com/kovalyov-valentin/intelligence-brief/internal/model"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const subFetchLimit = 4

// fetchEach runs fetch for every key concurrently. A failing key is logged and
// skipped; the combined error is returned only when every key failed.
func fetchEach(
	ctx context.Context,
	log *slog.Logger,
	keys []string,
	fetch func(ctx context.Context, key string) ([]model.Item, error),
) ([]model.Item, error) {
	var (
		results = make([][]model.Item, len(keys))
		errs    = make([]error, len(keys))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(subFetchLimit)

	for i, key := range keys {
		g.Go(func() error {
			items, err := fetch(gctx, key)
			if err != nil {
				log.Warn("skipping feed", "feed", key, "error", err)
				errs[i] = fmt.Errorf("%s: %w", key, err)
				return nil
			}

			results[i] = items
			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := lo.CountBy(errs, func(err error) bool { return err != nil })
	if len(keys) > 0 && failed == len(keys) {
		return nil, errors.Join(errs...)
	}

	return lo.Flatten(results), nil
}

func fetchFeed(ctx context.Context, c *Client, url string) (*rss.Feed, error) {
	data, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	feed, err := rss.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", url, err)
	}

	return feed, nil
}

func feedSummary(item *rss.Item) string {
	if item.Summary != "" {
		return item.Summary
	}
	return item.Content
}
