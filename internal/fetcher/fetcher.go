package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kovalyov-valentin/intelligence-brief/internal/model"
	"github.com/samber/lo"
	"github.com/tomakado/containers/set"
	"golang.org/x/sync/errgroup"
)

// ErrNoSources is returned when no adapter is configured.
var ErrNoSources = errors.New("no sources configured")

// Source is a single adapter.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]model.Item, error)
}

type Options struct {
	// Items published before now-Lookback are dropped.
	Lookback     time.Duration
	MaxPerSource int
	MaxTotal     int
	Concurrency  int
	// Matched against lowercase titles and tags.
	ExcludeKeywords []string
}

// Report describes what happened to each adapter in one run.
type Report struct {
	SourcesChecked int
	Fetched        map[string]int
	Failed         map[string]error
	Kept           int
}

type Fetcher struct {
	sources []Source
	log     *slog.Logger
	opts    Options
	now     func() time.Time
}

// NewFetcher creates an aggregator over sources. Without a concurrency
// limit every source is fetched at once.
func NewFetcher(sources []Source, log *slog.Logger, opts Options) *Fetcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = len(sources)
	}

	opts.ExcludeKeywords = lo.Map(opts.ExcludeKeywords, func(kw string, _ int) string {
		return strings.ToLower(strings.TrimSpace(kw))
	})

	return &Fetcher{
		sources: sources,
		log:     log.With("component", "fetcher"),
		opts:    opts,
		now:     time.Now,
	}
}

// Aggregate runs every adapter concurrently and returns the combined, filtered
// and capped item list. A failing adapter contributes no items; it never fails
// the run.
func (f *Fetcher) Aggregate(ctx context.Context) ([]model.Item, Report, error) {
	report := Report{
		SourcesChecked: len(f.sources),
		Fetched:        make(map[string]int, len(f.sources)),
		Failed:         make(map[string]error),
	}

	if len(f.sources) == 0 {
		return nil, report, ErrNoSources
	}

	var (
		results = make([][]model.Item, len(f.sources))
		errs    = make([]error, len(f.sources))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Concurrency)

	for i, src := range f.sources {
		g.Go(func() error {
			started := time.Now()

			items, err := src.Fetch(gctx)
			if err != nil {
				f.log.Error("fetching items", "source", src.Name(), "error", err)
				errs[i] = err
				return nil
			}

			f.log.Info("fetched items", "source", src.Name(), "items", len(items), "took", time.Since(started))
			results[i] = items
			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, report, err
	}

	for i, src := range f.sources {
		if errs[i] != nil {
			report.Failed[src.Name()] = errs[i]
			continue
		}
		report.Fetched[src.Name()] = len(results[i])
	}

	items := f.process(lo.Flatten(results))
	report.Kept = len(items)

	return items, report, nil
}

func (f *Fetcher) process(items []model.Item) []model.Item {
	items = lo.UniqBy(items, func(item model.Item) string {
		return item.Key()
	})

	cutoff := f.now().Add(-f.opts.Lookback)

	items = lo.Filter(items, func(item model.Item, _ int) bool {
		if f.opts.Lookback > 0 && !item.PublishedAt.IsZero() && item.PublishedAt.Before(cutoff) {
			return false
		}

		return !f.itemShouldBeSkipped(item)
	})

	return f.capItems(items)
}

// itemShouldBeSkipped reports whether the title or a tag matches an excluded keyword.
func (f *Fetcher) itemShouldBeSkipped(item model.Item) bool {
	if len(f.opts.ExcludeKeywords) == 0 {
		return false
	}

	tags := set.New(lo.Map(item.Tags, func(tag string, _ int) string {
		return strings.ToLower(tag)
	})...)
	title := strings.ToLower(item.Title)

	for _, keyword := range f.opts.ExcludeKeywords {
		if keyword == "" {
			continue
		}

		if tags.Contains(keyword) || strings.Contains(title, keyword) {
			return true
		}
	}

	return false
}

// capItems keeps the newest MaxPerSource items of each source, then fills
// MaxTotal round-robin so every source is represented before any source gets
// a second slot.
func (f *Fetcher) capItems(items []model.Item) []model.Item {
	var order []string
	groups := make(map[string][]model.Item)

	for _, item := range items {
		if _, ok := groups[item.Source]; !ok {
			order = append(order, item.Source)
		}
		groups[item.Source] = append(groups[item.Source], item)
	}

	for _, name := range order {
		group := groups[name]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].PublishedAt.After(group[j].PublishedAt)
		})

		if f.opts.MaxPerSource > 0 && len(group) > f.opts.MaxPerSource {
			group = group[:f.opts.MaxPerSource]
		}
		groups[name] = group
	}

	total := f.opts.MaxTotal
	if total <= 0 {
		total = len(items)
	}

	capped := make([]model.Item, 0, min(total, len(items)))

	for round := 0; len(capped) < total; round++ {
		added := false

		for _, name := range order {
			group := groups[name]
			if round >= len(group) || len(capped) >= total {
				continue
			}

			capped = append(capped, group[round])
			added = true
		}

		if !added {
			break
		}
	}

	return capped
}
