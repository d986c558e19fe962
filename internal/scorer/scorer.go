package scorer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kovalyov-valentin/intelligence-brief/internal/model"
	"github.com/kovalyov-valentin/intelligence-brief/internal/summary"
	"github.com/samber/lo"
	"github.com/tomakado/containers/set"
	"golang.org/x/sync/errgroup"
)

const tokensPerItem = 120

type Options struct {
	PrimaryTopics   []string
	SecondaryTopics []string
	BatchSize       int
	Concurrency     int
	// Earlier sources win score ties.
	SourcePriority []string
}

// Scorer rates items for relevance with one model call per batch.
type Scorer struct {
	llm      summary.Completer
	log      *slog.Logger
	opts     Options
	isTopic  func(string) bool
	priority map[string]int
}

// New creates a scorer that rates items through llm in batches.
func New(llm summary.Completer, log *slog.Logger, opts Options) *Scorer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	allowed := lo.Map(append(append([]string{}, opts.PrimaryTopics...), opts.SecondaryTopics...), func(topic string, _ int) string {
		return strings.ToLower(strings.TrimSpace(topic))
	})

	priority := make(map[string]int, len(opts.SourcePriority))
	for i, src := range opts.SourcePriority {
		if _, ok := priority[src]; !ok {
			priority[src] = i
		}
	}

	return &Scorer{
		llm:      llm,
		log:      log.With("component", "scorer"),
		opts:     opts,
		isTopic:  set.New(allowed...).Contains,
		priority: priority,
	}
}

// Score rates every item and returns them best first. Items the model failed
// to rate keep score 0 and Scored=false; Score never fails as a whole.
func (s *Scorer) Score(ctx context.Context, items []model.Item) []model.ScoredItem {
	scored := lo.Map(items, func(item model.Item, _ int) model.ScoredItem {
		return model.ScoredItem{Item: item}
	})

	batches := lo.Chunk(lo.Range(len(items)), s.opts.BatchSize)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for n, batch := range batches {
		g.Go(func() error {
			results, err := s.scoreBatch(gctx, lo.Map(batch, func(i, _ int) model.Item { return items[i] }))
			if err != nil {
				s.log.Warn("batch left unscored", "batch", n, "items", len(batch), "error", err)
				return nil
			}

			for pos, i := range batch {
				if r, ok := results[pos]; ok {
					scored[i].Score = r.Score
					scored[i].Topics = r.Topics
					scored[i].Rationale = r.Rationale
					scored[i].Scored = true
				}
			}

			return nil
		})
	}

	_ = g.Wait()

	s.sort(scored)

	return scored
}

func (s *Scorer) scoreBatch(ctx context.Context, batch []model.Item) (map[int]rating, error) {
	text, err := s.llm.Complete(ctx, summary.Request{
		System:    systemPrompt,
		Prompt:    s.prompt(batch),
		MaxTokens: tokensPerItem * len(batch),
		JSON:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}

	results, err := parseResponse(text, len(batch), s.isTopic)
	if err != nil {
		return nil, err
	}

	if dropped := len(batch) - len(results); dropped > 0 {
		s.log.Debug("items without a valid rating", "items", dropped)
	}

	return results, nil
}

// sort orders by score, then source priority, then recency. Title and URL
// make the order total.
func (s *Scorer) sort(items []model.ScoredItem) {
	rank := func(src string) int {
		if p, ok := s.priority[src]; ok {
			return p
		}
		return len(s.priority)
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]

		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if ra, rb := rank(a.Source), rank(b.Source); ra != rb {
			return ra < rb
		}
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.URL < b.URL
	})
}
