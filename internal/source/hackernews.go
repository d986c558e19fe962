package source

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/kovalyov-valentin/intelligence-brief/internal/model"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultHackerNewsURL = "https://hacker-news.firebaseio.com/v0"
	hackerNewsItemPage   = "https://news.ycombinator.com/item?id="
	hackerNewsFetchLimit = 8
)

var aiTitle = regexp.MustCompile(`(?i)\b(ai|llm|llms|gpt|claude|openai|anthropic|gemini|agents?|machine learning|neural)\b`)

// HackerNewsSource reads a story list from the Firebase API.
type HackerNewsSource struct {
	client    *Client
	log       *slog.Logger
	baseURL   string
	storyType string
	limit     int
}

// NewHackerNewsSource reads the top, new or best stories list.
func NewHackerNewsSource(client *Client, log *slog.Logger, baseURL, storyType string, limit int) *HackerNewsSource {
	if storyType == "" {
		storyType = "top"
	}

	return &HackerNewsSource{
		client:    client,
		log:       log.With("source", model.SourceHackerNews),
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		storyType: storyType,
		limit:     limit,
	}
}

func (s *HackerNewsSource) Name() string {
	return model.SourceHackerNews
}

type hnItem struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Text        string `json:"text"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Dead        bool   `json:"dead"`
	Deleted     bool   `json:"deleted"`
}

func (s *HackerNewsSource) Fetch(ctx context.Context) ([]model.Item, error) {
	var ids []int64
	if err := s.client.GetJSON(ctx, fmt.Sprintf("%s/%sstories.json", s.baseURL, s.storyType), &ids); err != nil {
		return nil, err
	}

	if s.limit > 0 && len(ids) > s.limit {
		ids = ids[:s.limit]
	}

	stories := make([]*hnItem, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hackerNewsFetchLimit)

	for i, id := range ids {
		g.Go(func() error {
			var story hnItem
			if err := s.client.GetJSON(gctx, fmt.Sprintf("%s/item/%d.json", s.baseURL, id), &story); err != nil {
				s.log.Debug("skipping story", "id", id, "error", err)
				return nil
			}

			stories[i] = &story
			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stories = lo.Filter(stories, func(story *hnItem, _ int) bool {
		return story != nil && story.Type == "story" && !story.Dead && !story.Deleted
	})

	items := lo.Map(stories, func(story *hnItem, _ int) model.Item {
		discussion := fmt.Sprintf("%s%d", hackerNewsItemPage, story.ID)

		link := story.URL
		if link == "" {
			link = discussion
		}

		var published time.Time
		if story.Time > 0 {
			published = time.Unix(story.Time, 0)
		}

		return model.Item{
			ID:          fmt.Sprintf("hn_%d", story.ID),
			Source:      model.SourceHackerNews,
			SourceName:  "Hacker News",
			Kind:        model.KindDiscussion,
			Title:       story.Title,
			URL:         link,
			Author:      story.By,
			PublishedAt: published,
			Excerpt:     cleanText(story.Text, excerptLimit),
			Tags:        hackerNewsTags(story.Title),
			Engagement:  model.Engagement{Score: story.Score, Comments: story.Descendants},
			Meta:        map[string]string{"discussion": discussion},
		}
	})

	return finalize(items, s.client.Now()), nil
}

func hackerNewsTags(title string) []string {
	var tags []string

	if aiTitle.MatchString(title) {
		tags = append(tags, "ai")
	}

	lower := strings.ToLower(title)
	switch {
	case strings.HasPrefix(lower, "show hn"):
		tags = append(tags, "show-hn")
	case strings.HasPrefix(lower, "ask hn"):
		tags = append(tags, "ask-hn")
	}

	return tags
}
