package source

import (
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/kovalyov-valentin/intelligence-brief/internal/model"
	"github.com/microcosm-cc/bluemonday"
	"github.com/samber/lo"
)

const excerptLimit = 500

var stripPolicy = bluemonday.StrictPolicy()

// cleanText strips markup, unescapes entities and collapses whitespace,
// then truncates to max runes. max <= 0 disables truncation.
func cleanText(s string, max int) string {
	s = strings.ReplaceAll(s, "<", " <")
	s = html.UnescapeString(stripPolicy.Sanitize(s))
	s = strings.Join(strings.Fields(s), " ")

	return truncate(s, max)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}

	return strings.TrimSpace(string(runes[:max])) + "..."
}

func lowerTags(tags []string) []string {
	tags = lo.FilterMap(tags, func(tag string, _ int) (string, bool) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		return tag, tag != ""
	})

	return lo.Uniq(tags)
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	return strings.TrimPrefix(u.Host, "www.")
}

// finalize drops items without a title or URL and fills missing timestamps.
func finalize(items []model.Item, now time.Time) []model.Item {
	return lo.FilterMap(items, func(item model.Item, _ int) (model.Item, bool) {
		item.Title = strings.TrimSpace(item.Title)
		item.URL = strings.TrimSpace(item.URL)
		if item.Title == "" || item.URL == "" {
			return item, false
		}

		if item.PublishedAt.IsZero() {
			item.PublishedAt = now
		}
		item.PublishedAt = item.PublishedAt.UTC()

		if item.ID == "" {
			item.ID = item.Source + "_" + item.URL
		}

		return item, true
	})
}
