package source

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/SlyMarbo/rss"
	"github.com/kovalyov-valentin/intelligence-brief/internal/model"
	"github.com/sashabaranov/go-openai"
)

const (
	maxAudioBytes   = 25 << 20
	transcriptLimit = 2000
	episodesPerFeed = 3
)

// Transcriber turns episode audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// PodcastSource reads podcast feeds and keeps recent episodes with audio.
// With a transcriber the transcript becomes the excerpt, otherwise the
// episode description does.
type PodcastSource struct {
	client      *Client
	log         *slog.Logger
	feeds       []string
	lookback    time.Duration
	transcriber Transcriber
}

// NewPodcastSource reads podcast feeds. Episodes are transcribed only when
// transcriber is not nil.
func NewPodcastSource(client *Client, log *slog.Logger, feeds []string, lookback time.Duration, transcriber Transcriber) *PodcastSource {
	return &PodcastSource{
		client:      client,
		log:         log.With("source", model.SourcePodcast),
		feeds:       feeds,
		lookback:    lookback,
		transcriber: transcriber,
	}
}

func (s *PodcastSource) Name() string {
	return model.SourcePodcast
}

func (s *PodcastSource) Fetch(ctx context.Context) ([]model.Item, error) {
	return fetchEach(ctx, s.log, s.feeds, s.fetchFeed)
}

func (s *PodcastSource) fetchFeed(ctx context.Context, feedURL string) ([]model.Item, error) {
	feed, err := fetchFeed(ctx, s.client, feedURL)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(feed.Title)
	if name == "" {
		name = hostOf(feedURL)
	}

	cutoff := s.client.Now().Add(-s.lookback)

	var items []model.Item
	for _, episode := range feed.Items {
		if len(items) >= episodesPerFeed {
			break
		}

		audio := audioURL(episode)
		if audio == "" || episode.Date.Before(cutoff) {
			continue
		}

		excerpt := cleanText(feedSummary(episode), excerptLimit)
		if transcript := s.transcribe(ctx, audio); transcript != "" {
			excerpt = truncate(transcript, transcriptLimit)
		}

		link := episode.Link
		if link == "" {
			link = audio
		}

		items = append(items, model.Item{
			ID:          episode.ID,
			Source:      model.SourcePodcast,
			SourceName:  name,
			Kind:        model.KindPodcast,
			Title:       cleanText(episode.Title, 0),
			URL:         link,
			PublishedAt: episode.Date,
			Excerpt:     excerpt,
			Tags:        lowerTags(episode.Categories),
			Meta:        map[string]string{"feed": feedURL, "audio": audio},
		})
	}

	return finalize(items, s.client.Now()), nil
}

// transcribe returns "" when transcription is disabled or fails.
func (s *PodcastSource) transcribe(ctx context.Context, audio string) string {
	if s.transcriber == nil {
		return ""
	}

	data, err := s.client.GetLimited(ctx, audio, maxAudioBytes)
	if err != nil {
		s.log.Warn("skipping transcription", "audio", audio, "error", err)
		return ""
	}

	text, err := s.transcriber.Transcribe(ctx, path.Base(audio), bytes.NewReader(data))
	if err != nil {
		s.log.Warn("transcription failed", "audio", audio, "error", err)
		return ""
	}

	return strings.Join(strings.Fields(text), " ")
}

func audioURL(item *rss.Item) string {
	for _, enclosure := range item.Enclosures {
		if enclosure == nil || enclosure.URL == "" {
			continue
		}

		if strings.HasPrefix(enclosure.Type, "audio") || strings.HasSuffix(strings.ToLower(enclosure.URL), ".mp3") {
			return enclosure.URL
		}
	}

	return ""
}

// WhisperTranscriber calls an OpenAI-compatible transcription endpoint.
type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

// NewWhisperTranscriber uses any OpenAI compatible transcription endpoint.
func NewWhisperTranscriber(apiKey, baseURL, modelName string) *WhisperTranscriber {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &WhisperTranscriber{
		client: openai.NewClientWithConfig(cfg),
		model:  modelName,
	}
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: filename,
		Reader:   audio,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", err
	}

	return resp.Text, nil
}
