package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/kovalyov-valentin/intelligence-brief/internal/composer"
	"github.com/kovalyov-valentin/intelligence-brief/internal/config"
	"github.com/kovalyov-valentin/intelligence-brief/internal/fetcher"
	"github.com/kovalyov-valentin/intelligence-brief/internal/notifier"
	"github.com/kovalyov-valentin/intelligence-brief/internal/pipeline"
	"github.com/kovalyov-valentin/intelligence-brief/internal/scorer"
	"github.com/kovalyov-valentin/intelligence-brief/internal/source"
	"github.com/kovalyov-valentin/intelligence-brief/internal/storage"
	"github.com/kovalyov-valentin/intelligence-brief/internal/summary"
	_ "github.com/lib/pq"
)

// buildSources creates an adapter for every source that has configuration.
func buildSources(cfg config.Config, client *source.Client, log *slog.Logger) []fetcher.Source {
	var sources []fetcher.Source

	limit := cfg.MaxItemsPerSource

	if len(cfg.RSSFeeds) > 0 {
		sources = append(sources, source.NewRSSSource(client, log, cfg.RSSFeeds, limit))
	}
	if len(cfg.SubstackHandles) > 0 {
		sources = append(sources, source.NewSubstackSource(client, log, cfg.SubstackHandles, limit))
	}
	if len(cfg.ArxivCategories) > 0 {
		sources = append(sources, source.NewArxivSource(client, log, source.DefaultArxivURL, cfg.ArxivCategories, limit))
	}
	if cfg.HackerNews {
		sources = append(sources, source.NewHackerNewsSource(client, log, source.DefaultHackerNewsURL, cfg.HackerNewsStoryType, limit))
	}
	if cfg.GitHubTrending {
		sources = append(sources, source.NewGitHubTrendingSource(client, log, source.DefaultGitHubURL, cfg.GitHubLanguage, cfg.GitHubSince, limit))
	}
	if len(cfg.PodcastFeeds) > 0 {
		var transcriber source.Transcriber
		if cfg.TranscriptionKey != "" {
			transcriber = source.NewWhisperTranscriber(cfg.TranscriptionKey, cfg.TranscriptionBaseURL, cfg.TranscriptionModel)
		}
		sources = append(sources, source.NewPodcastSource(client, log, cfg.PodcastFeeds, cfg.Lookback, transcriber))
	}
	if len(cfg.Subreddits) > 0 {
		sources = append(sources, source.NewRedditSource(client, log, source.DefaultRedditURL, cfg.Subreddits, cfg.RedditSort, limit))
	}

	return sources
}

func newFetcher(cfg config.Config, log *slog.Logger) *fetcher.Fetcher {
	client := source.NewClient(cfg.FetchTimeout, cfg.UserAgent)

	return fetcher.NewFetcher(buildSources(cfg, client, log), log, fetcher.Options{
		Lookback:        cfg.Lookback,
		MaxPerSource:    cfg.MaxItemsPerSource,
		MaxTotal:        cfg.MaxItemsTotal,
		Concurrency:     cfg.FetchConcurrency,
		ExcludeKeywords: cfg.ExcludeKeywords,
	})
}

// buildCompleter returns the configured LLM behind the shared concurrency and
// rate gate.
func buildCompleter(ctx context.Context, cfg config.Config) (summary.Completer, error) {
	var llm summary.Completer

	switch cfg.LLMProvider {
	case config.ProviderGemini:
		gemini, err := summary.NewGeminiCompleter(ctx, cfg.GeminiKey, cfg.GeminiBaseURL, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		llm = gemini
	default:
		llm = summary.NewOpenAICompleter(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	}

	return summary.NewGate(llm, cfg.LLMConcurrency, cfg.LLMInterval), nil
}

// buildMailer prefers Resend and falls back to SMTP. It returns nil when
// neither is configured.
func buildMailer(cfg config.Config, log *slog.Logger) pipeline.Mailer {
	switch {
	case cfg.ResendKey != "":
		return notifier.NewResendMailer(cfg.ResendKey, cfg.EmailFrom, nil, log)
	case cfg.SMTPHost != "":
		return notifier.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom, log)
	default:
		return nil
	}
}

// openArchive connects to the archive database. It returns a nil storage when
// no DSN is configured.
func openArchive(ctx context.Context, cfg config.Config) (*storage.BriefPostgresStorage, func(), error) {
	if cfg.DatabaseDSN == "" {
		return nil, func() {}, nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to archive database: %w", err)
	}

	archive := storage.NewBriefPostgresStorage(db)
	if err := archive.Init(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	return archive, func() { db.Close() }, nil
}

// buildPipeline wires every stage from configuration. The returned func
// releases the archive connection. An unreachable archive only disables
// archiving.
func (a *app) buildPipeline(ctx context.Context, out io.Writer, notify bool) (*pipeline.Pipeline, func(), error) {
	cfg := a.cfg

	llm, err := buildCompleter(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	s := scorer.New(llm, a.log, scorer.Options{
		PrimaryTopics:   cfg.PrimaryTopics,
		SecondaryTopics: cfg.SecondaryTopics,
		BatchSize:       cfg.BatchSize,
		Concurrency:     cfg.ScoreConcurrency,
		SourcePriority:  cfg.SourcePriority,
	})

	articles := composer.NewReadability(source.NewClient(cfg.FetchTimeout, cfg.UserAgent))
	c := composer.New(llm, articles, a.log, composer.Options{
		TopK:       cfg.TopK,
		QuickLinks: cfg.QuickLinks,
		MinScore:   cfg.MinScore,
	})

	p := pipeline.New(newFetcher(cfg, a.log), s, c, out, a.log)

	if mailer := buildMailer(cfg, a.log); mailer != nil {
		p.WithMailer(mailer, cfg.EmailRecipient)
	}

	if notify {
		tg, err := notifier.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, a.log)
		if err != nil {
			a.log.Warn("telegram unavailable, skipping notification", "error", err)
		} else {
			p.WithNotifier(tg)
		}
	}

	archive, closeArchive, err := openArchive(ctx, cfg)
	if err != nil {
		a.log.Warn("archive unavailable, brief will not be stored", "error", err)
		return p, func() {}, nil
	}
	if archive != nil {
		p.WithArchive(archive, cfg.RetentionDays)
	}

	return p, closeArchive, nil
}
