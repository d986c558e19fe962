package model

import "time"

// Source kinds. Used as Item.Source and for source priority ordering.
const (
	SourceSubstack   = "substack"
	SourceReddit     = "reddit"
	SourceHackerNews = "hackernews"
	SourceArxiv      = "arxiv"
	SourceRSS        = "rss"
	SourcePodcast    = "podcast"
	SourceGitHub     = "github"
)

// Kind is the content type of an item.
type Kind string

const (
	KindArticle    Kind = "article"
	KindPaper      Kind = "paper"
	KindDiscussion Kind = "discussion"
	KindRepository Kind = "repository"
	KindPodcast    Kind = "podcast"
)

// Item is one piece of content as fetched from a source.
// (Source, URL) identifies an item within a run.
type Item struct {
	ID         string
	Source     string
	SourceName string
	Kind       Kind
	Title      string
	URL        string
	Author     string
	// Set to fetch time when the source gives no date.
	PublishedAt time.Time
	Excerpt     string
	Tags        []string
	Engagement  Engagement
	Meta        map[string]string
}

// Engagement holds source-specific popularity counters. Zero means unknown.
type Engagement struct {
	Score    int
	Comments int
	Stars    int
}

// Key is the deduplication key of the item.
func (i Item) Key() string {
	return i.Source + "|" + i.URL
}

// ScoredItem is an item after the relevance pass.
// Scored is false for items the model did not rate; those carry Score 0.
type ScoredItem struct {
	Item
	Score     float64
	Topics    []string
	Rationale string
	Scored    bool
}

// Story is a top story with its generated context blurb.
type Story struct {
	ScoredItem
	Context string
}

// Section labels in render order.
const (
	SectionCatchUp    = "THE QUICK CATCH-UP"
	SectionTopStories = "TOP STORIES"
	SectionQuickLinks = "QUICK LINKS"
	SectionTake       = "EDITORIAL TAKE"
)

// Sections lists the brief sections in their fixed order.
var Sections = []string{SectionCatchUp, SectionTopStories, SectionQuickLinks, SectionTake}

// Brief is the composed digest of a single run.
type Brief struct {
	ID             string
	Date           time.Time
	GeneratedAt    time.Time
	CatchUp        string
	TopStories     []Story
	QuickLinks     []ScoredItem
	Take           string
	ItemsScanned   int
	SourcesChecked int
}

// ArchivedBrief is a brief as kept in the archive.
type ArchivedBrief struct {
	ID             string
	Date           time.Time
	CatchUp        string
	Take           string
	Text           string
	Stories        []ArchivedStory
	ItemsScanned   int
	SourcesChecked int
	CreatedAt      time.Time
}

// ArchivedStory is the stored subset of a top story or quick link.
type ArchivedStory struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
	Context string  `json:"context,omitempty"`
}
