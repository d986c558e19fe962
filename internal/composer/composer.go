package composer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kovalyov-valentin/intelligence-brief/internal/model"
	"github.com/kovalyov-valentin/intelligence-brief/internal/summary"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	catchUpStories   = 5
	contextMaxTokens = 160
	catchUpMaxTokens = 400
	takeMaxTokens    = 600
	articleTextLimit = 3000

	noStories = "Nothing cleared the relevance bar today."
)

// ArticleReader returns the readable text of a web page.
type ArticleReader interface {
	Text(ctx context.Context, url string) (string, error)
}

type Options struct {
	TopK       int
	QuickLinks int
	MinScore   float64
}

// Stats are the run counters shown in the brief footer.
type Stats struct {
	ItemsScanned   int
	SourcesChecked int
}

// Composer turns ranked items into a brief. Every generated section has a
// deterministic fallback, so Compose never fails.
type Composer struct {
	llm      summary.Completer
	articles ArticleReader
	log      *slog.Logger
	opts     Options
	now      func() time.Time
}

// New creates a composer. articles may be nil.
func New(llm summary.Completer, articles ArticleReader, log *slog.Logger, opts Options) *Composer {
	return &Composer{
		llm:      llm,
		articles: articles,
		log:      log.With("component", "composer"),
		opts:     opts,
		now:      time.Now,
	}
}

// Select splits ranked items into top stories and quick links. Only rated
// items at or above the minimum score are eligible.
func (c *Composer) Select(ranked []model.ScoredItem) ([]model.ScoredItem, []model.ScoredItem) {
	eligible := lo.Filter(ranked, func(item model.ScoredItem, _ int) bool {
		return item.Scored && item.Score >= c.opts.MinScore
	})

	top := eligible[:min(c.opts.TopK, len(eligible))]
	rest := eligible[len(top):]
	quick := rest[:min(c.opts.QuickLinks, len(rest))]

	return top, quick
}

func (c *Composer) Compose(ctx context.Context, ranked []model.ScoredItem, stats Stats) model.Brief {
	top, quick := c.Select(ranked)

	now := c.now().UTC()
	brief := model.Brief{
		Date:           now,
		GeneratedAt:    now,
		QuickLinks:     quick,
		ItemsScanned:   stats.ItemsScanned,
		SourcesChecked: stats.SourcesChecked,
		TopStories: lo.Map(top, func(item model.ScoredItem, _ int) model.Story {
			return model.Story{ScoredItem: item}
		}),
	}

	if len(top) == 0 {
		brief.CatchUp = noStories
		brief.Take = noStories
		return brief
	}

	var g errgroup.Group

	for i := range brief.TopStories {
		story := &brief.TopStories[i]
		g.Go(func() error {
			story.Context = c.storyContext(ctx, story.ScoredItem)
			return nil
		})
	}

	g.Go(func() error {
		brief.CatchUp = c.catchUp(ctx, top)
		return nil
	})

	g.Go(func() error {
		brief.Take = c.take(ctx, top)
		return nil
	})

	_ = g.Wait()

	return brief
}

func (c *Composer) storyContext(ctx context.Context, item model.ScoredItem) string {
	body := item.Excerpt
	if body == "" && c.articles != nil {
		text, err := c.articles.Text(ctx, item.URL)
		if err != nil {
			c.log.Debug("article text unavailable", "url", item.URL, "error", err)
		} else {
			body = shorten(text, articleTextLimit)
		}
	}

	prompt := fmt.Sprintf(`Write exactly two sentences of context for this story: what happened and why it matters to someone following %s.
No preamble, no markdown.

Title: %s
Source: %s
Why it was picked: %s
Content: %s`, strings.Join(item.Topics, ", "), item.Title, item.SourceName, item.Rationale, body)

	text, err := c.llm.Complete(ctx, summary.Request{
		System:    editorPrompt,
		Prompt:    prompt,
		MaxTokens: contextMaxTokens,
	})
	if err != nil {
		c.log.Warn("story context failed, using fallback", "title", item.Title, "error", err)
		return contextFallback(item)
	}

	return summary.CompleteSentences(text)
}

func (c *Composer) catchUp(ctx context.Context, top []model.ScoredItem) string {
	lead := top[:min(catchUpStories, len(top))]

	prompt := "Write a quick catch-up of 3 to 4 sentences that a busy reader can skim in thirty seconds. " +
		"Cover the most important developments below, plain prose, no markdown, no greeting.\n\n" + listItems(lead, false)

	text, err := c.llm.Complete(ctx, summary.Request{
		System:    editorPrompt,
		Prompt:    prompt,
		MaxTokens: catchUpMaxTokens,
	})
	if err != nil {
		c.log.Warn("catch-up failed, using fallback", "error", err)
		return bullets(top, false)
	}

	return summary.CompleteSentences(text)
}

func (c *Composer) take(ctx context.Context, items []model.ScoredItem) string {
	prompt := "Write a short editorial take (two short paragraphs) on today's items: name the pattern connecting them, " +
		"what is signal and what is noise, and what to watch next. Be direct and opinionated, no markdown.\n\n" + listItems(items, true)

	text, err := c.llm.Complete(ctx, summary.Request{
		System:    editorPrompt,
		Prompt:    prompt,
		MaxTokens: takeMaxTokens,
	})
	if err != nil {
		c.log.Warn("editorial take failed, using fallback", "error", err)
		return bullets(items, true)
	}

	return summary.CompleteSentences(text)
}

const editorPrompt = "You write a concise daily technology intelligence brief for an engineer. " +
	"You are accurate, specific and never invent facts that are not in the provided material."

func listItems(items []model.ScoredItem, withRationale bool) string {
	var sb strings.Builder

	for i, item := range items {
		fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1, item.Title, item.SourceName)
		if item.Excerpt != "" {
			fmt.Fprintf(&sb, "   %s\n", shorten(item.Excerpt, 300))
		}
		if withRationale && item.Rationale != "" {
			fmt.Fprintf(&sb, "   Why: %s\n", item.Rationale)
		}
	}

	return sb.String()
}

func bullets(items []model.ScoredItem, withURL bool) string {
	lines := lo.Map(items, func(item model.ScoredItem, _ int) string {
		if withURL {
			return fmt.Sprintf("- %s (%s)", item.Title, item.URL)
		}
		return "- " + item.Title
	})

	return strings.Join(lines, "\n")
}

func contextFallback(item model.ScoredItem) string {
	if item.Rationale != "" {
		return item.Rationale
	}
	return shorten(item.Excerpt, 280)
}

func shorten(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "..."
}
