package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/kovalyov-valentin/intelligence-brief/internal/model"
	"github.com/samber/lo"
)

const (
	DefaultRedditURL = "https://www.reddit.com"
	redditSite       = "https://www.reddit.com"
)

// RedditSource reads subreddit listings through the public JSON endpoints.
// Reddit rejects generic user agents, so the client must carry a custom one.
type RedditSource struct {
	client     *Client
	log        *slog.Logger
	baseURL    string
	subreddits []string
	sort       string
	limit      int
}

// NewRedditSource reads the JSON listing of every subreddit with the given
// sort.
func NewRedditSource(client *Client, log *slog.Logger, baseURL string, subreddits []string, sort string, limit int) *RedditSource {
	if sort == "" {
		sort = "hot"
	}

	return &RedditSource{
		client:     client,
		log:        log.With("source", model.SourceReddit),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		subreddits: subreddits,
		sort:       sort,
		limit:      limit,
	}
}

func (s *RedditSource) Name() string {
	return model.SourceReddit
}

func (s *RedditSource) Fetch(ctx context.Context) ([]model.Item, error) {
	return fetchEach(ctx, s.log, s.subreddits, s.fetchSubreddit)
}

type redditListing struct {
	Data struct {
		Children []redditChild `json:"children"`
	} `json:"data"`
}

type redditChild struct {
	Data redditPost `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	IsSelf      bool    `json:"is_self"`
	Flair       string  `json:"link_flair_text"`
	Stickied    bool    `json:"stickied"`
}

func (s *RedditSource) fetchSubreddit(ctx context.Context, subreddit string) ([]model.Item, error) {
	endpoint := fmt.Sprintf("%s/r/%s/%s.json?limit=%d",
		s.baseURL, url.PathEscape(subreddit), s.sort, s.limit)

	var listing redditListing
	if err := s.client.GetJSON(ctx, endpoint, &listing); err != nil {
		return nil, err
	}

	posts := lo.Map(listing.Data.Children, func(child redditChild, _ int) redditPost {
		return child.Data
	})
	posts = lo.Reject(posts, func(post redditPost, _ int) bool { return post.Stickied })

	items := lo.Map(posts, func(post redditPost, _ int) model.Item {
		link := post.URL
		if post.IsSelf || link == "" {
			link = redditSite + post.Permalink
		}

		var published time.Time
		if post.CreatedUTC > 0 {
			published = time.Unix(int64(post.CreatedUTC), 0)
		}

		return model.Item{
			ID:          "reddit_" + post.ID,
			Source:      model.SourceReddit,
			SourceName:  "r/" + subreddit,
			Kind:        model.KindDiscussion,
			Title:       post.Title,
			URL:         link,
			Author:      post.Author,
			PublishedAt: published,
			Excerpt:     cleanText(post.Selftext, excerptLimit),
			Tags:        lowerTags([]string{"r/" + subreddit, post.Flair}),
			Engagement:  model.Engagement{Score: post.Score, Comments: post.NumComments},
			Meta: map[string]string{
				"subreddit":  subreddit,
				"discussion": redditSite + post.Permalink,
			},
		}
	})

	return finalize(items, s.client.Now()), nil
}
