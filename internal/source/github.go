package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kovalyov-valentin/intelligence-brief/internal/model"
)

const DefaultGitHubURL = "https://github.com"

// GitHubTrendingSource scrapes the trending repositories page.
type GitHubTrendingSource struct {
	client   *Client
	log      *slog.Logger
	baseURL  string
	language string
	since    string
	limit    int
}

// NewGitHubTrendingSource scrapes the trending page under baseURL. An empty
// language means all languages.
func NewGitHubTrendingSource(client *Client, log *slog.Logger, baseURL, language, since string, limit int) *GitHubTrendingSource {
	if since == "" {
		since = "daily"
	}

	return &GitHubTrendingSource{
		client:   client,
		log:      log.With("source", model.SourceGitHub),
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		language: language,
		since:    since,
		limit:    limit,
	}
}

func (s *GitHubTrendingSource) Name() string {
	return model.SourceGitHub
}

func (s *GitHubTrendingSource) pageURL() string {
	page := s.baseURL + "/trending"
	if s.language != "" {
		page += "/" + url.PathEscape(strings.ToLower(s.language))
	}

	return page + "?since=" + url.QueryEscape(s.since)
}

func (s *GitHubTrendingSource) Fetch(ctx context.Context) ([]model.Item, error) {
	data, err := s.client.Get(ctx, s.pageURL())
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse trending page: %w", err)
	}

	var items []model.Item

	doc.Find("article.Box-row").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if s.limit > 0 && len(items) >= s.limit {
			return false
		}

		link := row.Find("h2 a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return true
		}

		name := strings.Join(strings.Fields(link.Text()), "")
		if name == "" {
			name = strings.Trim(href, "/")
		}

		var tags []string
		language := strings.TrimSpace(row.Find(`[itemprop="programmingLanguage"]`).First().Text())
		if language != "" {
			tags = append(tags, language)
		}

		starsToday := parseCount(row.Find("span.float-sm-right").First().Text())

		items = append(items, model.Item{
			ID:         "github_" + strings.Trim(href, "/"),
			Source:     model.SourceGitHub,
			SourceName: "GitHub Trending",
			Kind:       model.KindRepository,
			Title:      name,
			URL:        DefaultGitHubURL + "/" + strings.TrimPrefix(href, "/"),
			Excerpt:    cleanText(row.Find("p").First().Text(), excerptLimit),
			Tags:       lowerTags(tags),
			Engagement: model.Engagement{
				Stars: parseCount(row.Find(`a[href$="/stargazers"]`).First().Text()),
				Score: starsToday,
			},
			Meta: map[string]string{"stars_today": strconv.Itoa(starsToday)},
		})

		return true
	})

	// Trending has no publish date; finalize stamps the fetch time.
	return finalize(items, s.client.Now()), nil
}

// parseCount reads the leading number of strings like "1,234" or "56 stars today".
func parseCount(s string) int {
	fields := strings.Fields(strings.ReplaceAll(s, ",", ""))
	if len(fields) == 0 {
		return 0
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}

	return n
}
