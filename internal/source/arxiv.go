package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/kovalyov-valentin/intelligence-brief/internal/model"
	"github.com/mmcdole/gofeed"
	"github.com/samber/lo"
)

const (
	DefaultArxivURL   = "http://export.arxiv.org/api/query"
	arxivAbsPage      = "https://arxiv.org/abs/"
	arxivAbstractSize = 1000
	arxivMaxAuthors   = 3
)

// ArxivSource queries the arXiv export API for the newest submissions in the
// configured categories.
type ArxivSource struct {
	client     *Client
	log        *slog.Logger
	baseURL    string
	categories []string
	limit      int
}

// NewArxivSource queries the newest submissions of the categories.
func NewArxivSource(client *Client, log *slog.Logger, baseURL string, categories []string, limit int) *ArxivSource {
	return &ArxivSource{
		client:     client,
		log:        log.With("source", model.SourceArxiv),
		baseURL:    baseURL,
		categories: categories,
		limit:      limit,
	}
}

func (s *ArxivSource) Name() string {
	return model.SourceArxiv
}

func (s *ArxivSource) queryURL() string {
	terms := lo.Map(s.categories, func(category string, _ int) string {
		return "cat:" + strings.TrimSpace(category)
	})

	params := url.Values{}
	params.Set("search_query", strings.Join(terms, " OR "))
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprint(s.limit))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	return s.baseURL + "?" + params.Encode()
}

func (s *ArxivSource) Fetch(ctx context.Context) ([]model.Item, error) {
	data, err := s.client.Get(ctx, s.queryURL())
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse arxiv response: %w", err)
	}

	items := lo.Map(feed.Items, func(entry *gofeed.Item, _ int) model.Item {
		id := arxivID(entry)

		var published time.Time
		switch {
		case entry.PublishedParsed != nil:
			published = *entry.PublishedParsed
		case entry.UpdatedParsed != nil:
			published = *entry.UpdatedParsed
		}

		return model.Item{
			ID:          "arxiv_" + id,
			Source:      model.SourceArxiv,
			SourceName:  "arXiv",
			Kind:        model.KindPaper,
			Title:       cleanText(entry.Title, 0),
			URL:         arxivAbsPage + id,
			Author:      arxivAuthors(entry.Authors),
			PublishedAt: published,
			Excerpt:     cleanText(entry.Description, arxivAbstractSize),
			Tags:        lowerTags(entry.Categories),
		}
	})

	items = lo.Filter(items, func(item model.Item, _ int) bool {
		return item.ID != "arxiv_"
	})

	return finalize(items, s.client.Now()), nil
}

// arxivID extracts "2401.01234v1" from an entry id like
// "http://arxiv.org/abs/2401.01234v1".
func arxivID(entry *gofeed.Item) string {
	raw := entry.GUID
	if raw == "" {
		raw = entry.Link
	}

	if i := strings.LastIndex(raw, "/abs/"); i >= 0 {
		return raw[i+len("/abs/"):]
	}

	return ""
}

func arxivAuthors(authors []*gofeed.Person) string {
	names := lo.FilterMap(authors, func(p *gofeed.Person, _ int) (string, bool) {
		if p == nil {
			return "", false
		}
		return p.Name, p.Name != ""
	})

	if len(names) > arxivMaxAuthors {
		return strings.Join(names[:arxivMaxAuthors], ", ") + "..."
	}

	return strings.Join(names, ", ")
}
