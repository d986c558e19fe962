package composer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kovalyov-valentin/intelligence-brief/internal/logging"
	"github.com/kovalyov-valentin/intelligence-brief/internal/model"
	"github.com/kovalyov-valentin/intelligence-brief/internal/source"
	"github.com/kovalyov-valentin/intelligence-brief/internal/summary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)

type fakeLLM struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string) (string, error)
}

func (f *fakeLLM) Complete(_ context.Context, req summary.Request) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	f.mu.Unlock()

	return f.respond(req.Prompt)
}

func echoLLM(prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "two sentences of context"):
		return "It happened. It matters", nil
	case strings.Contains(prompt, "quick catch-up"):
		return "Lots moved today.", nil
	default:
		return "The take.", nil
	}
}

type fakeArticles struct {
	text string
	urls []string
	mu   sync.Mutex
}

func (f *fakeArticles) Text(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	return f.text, nil
}

func scored(n int, score float64) []model.ScoredItem {
	var items []model.ScoredItem
	for i := 0; i < n; i++ {
		items = append(items, model.ScoredItem{
			Item: model.Item{
				Source:     "rss",
				SourceName: "Blog",
				Title:      fmt.Sprintf("Story %d", i),
				URL:        fmt.Sprintf("https://example.com/%d", i),
				Excerpt:    "Excerpt",
			},
			Score:     score,
			Rationale: fmt.Sprintf("Reason %d", i),
			Scored:    true,
		})
	}
	return items
}

func newComposer(llm summary.Completer, articles ArticleReader, topK, quick int) *Composer {
	c := New(llm, articles, logging.Discard(), Options{TopK: topK, QuickLinks: quick, MinScore: 5})
	c.now = func() time.Time { return now }
	return c
}

func TestSelect(t *testing.T) {
	ranked := append(scored(5, 8), scored(3, 4)...)
	ranked = append(ranked, model.ScoredItem{Item: model.Item{Title: "sentinel"}})

	top, quick := newComposer(nil, nil, 3, 8).Select(ranked)

	require.Len(t, top, 3)
	require.Len(t, quick, 2)
	for _, item := range append(top, quick...) {
		assert.True(t, item.Scored)
		assert.GreaterOrEqual(t, item.Score, 5.0)
	}
}

func TestSelect_ExcludesUnscoredEvenAtZeroThreshold(t *testing.T) {
	c := New(nil, nil, logging.Discard(), Options{TopK: 5, QuickLinks: 5, MinScore: 0})

	top, quick := c.Select([]model.ScoredItem{{Item: model.Item{Title: "sentinel"}}})
	assert.Empty(t, top)
	assert.Empty(t, quick)
}

func TestCompose(t *testing.T) {
	llm := &fakeLLM{respond: echoLLM}

	brief := newComposer(llm, nil, 2, 3).Compose(context.Background(), scored(10, 7), Stats{ItemsScanned: 42, SourcesChecked: 5})

	require.Len(t, brief.TopStories, 2)
	require.Len(t, brief.QuickLinks, 3)
	assert.Equal(t, "Story 0", brief.TopStories[0].Title)
	assert.Equal(t, "Story 2", brief.QuickLinks[0].Title)
	assert.Equal(t, "It happened.", brief.TopStories[0].Context)
	assert.Equal(t, "Lots moved today.", brief.CatchUp)
	assert.Equal(t, "The take.", brief.Take)
	assert.Equal(t, 42, brief.ItemsScanned)
	assert.Equal(t, 5, brief.SourcesChecked)
	assert.Equal(t, now, brief.Date)

	// One call per story plus catch-up and take.
	assert.Len(t, llm.prompts, 4)

	for _, prompt := range llm.prompts {
		if strings.Contains(prompt, "editorial take") {
			assert.Contains(t, prompt, "Story 1")
			assert.NotContains(t, prompt, "Story 2", "quick links stay out of the take")
		}
	}
}

func TestCompose_Fallbacks(t *testing.T) {
	llm := &fakeLLM{respond: func(string) (string, error) { return "", errors.New("provider down") }}

	brief := newComposer(llm, nil, 2, 1).Compose(context.Background(), scored(3, 9), Stats{})

	assert.Equal(t, "Reason 0", brief.TopStories[0].Context)
	assert.Equal(t, "- Story 0\n- Story 1", brief.CatchUp)
	assert.Equal(t, "- Story 0 (https://example.com/0)\n- Story 1 (https://example.com/1)", brief.Take)
}

func TestCompose_NoEligibleItems(t *testing.T) {
	llm := &fakeLLM{respond: echoLLM}

	brief := newComposer(llm, nil, 8, 8).Compose(context.Background(), scored(4, 2), Stats{ItemsScanned: 4})

	assert.Empty(t, brief.TopStories)
	assert.Empty(t, brief.QuickLinks)
	assert.Equal(t, noStories, brief.CatchUp)
	assert.Empty(t, llm.prompts)

	assert.Equal(t, model.Sections, Sections(RenderText(brief)))
}

func TestCompose_FetchesArticleWhenExcerptMissing(t *testing.T) {
	llm := &fakeLLM{respond: echoLLM}
	articles := &fakeArticles{text: "Full article body about agents."}

	items := scored(2, 8)
	items[1].Excerpt = ""

	newComposer(llm, articles, 2, 0).Compose(context.Background(), items, Stats{})

	assert.Equal(t, []string{"https://example.com/1"}, articles.urls)

	joined := strings.Join(llm.prompts, "\n")
	assert.Contains(t, joined, "Full article body about agents.")
}

func TestReadability_Text(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		paragraph := "<p>Tool-using agents moved from demos to production this quarter, and the tooling caught up with them quickly. " +
			"Teams now measure agents by task completion rather than by benchmark scores, which changes what gets built.</p>\n"
		_, _ = w.Write([]byte("<html><head><title>Agents</title></head><body>\n<nav>Home | About</nav>\n" +
			"<article><h1>Agents everywhere</h1>\n" + strings.Repeat(paragraph, 5) + "</article></body></html>"))
	}))
	defer srv.Close()

	client := source.NewClient(5*time.Second, "brief-test/1.0", source.WithBackoff(time.Millisecond, time.Millisecond))

	text, err := NewReadability(client).Text(context.Background(), srv.URL+"/post")
	require.NoError(t, err)
	assert.Contains(t, text, "Tool-using agents moved from demos to production")
	assert.NotContains(t, text, "\n\n\n")
}
