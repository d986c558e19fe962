package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kovalyov-valentin/intelligence-brief/internal/composer"
	"github.com/kovalyov-valentin/intelligence-brief/internal/fetcher"
	"github.com/kovalyov-valentin/intelligence-brief/internal/model"
	"github.com/kovalyov-valentin/intelligence-brief/internal/notifier"
	"github.com/samber/lo"
)

var (
	// ErrNoContent is returned when no source produced a usable item.
	ErrNoContent = errors.New("no content to brief")
	// ErrNoMailer is returned when email delivery is requested without a transport.
	ErrNoMailer = errors.New("email delivery requested but no mailer configured")
)

type Aggregator interface {
	Aggregate(ctx context.Context) ([]model.Item, fetcher.Report, error)
}

type Scorer interface {
	Score(ctx context.Context, items []model.Item) []model.ScoredItem
}

type Composer interface {
	Compose(ctx context.Context, ranked []model.ScoredItem, stats composer.Stats) model.Brief
}

type Mailer interface {
	Send(ctx context.Context, msg notifier.Message) error
}

type Notifier interface {
	Notify(ctx context.Context, subject, text string) error
}

type Archive interface {
	Store(ctx context.Context, brief model.ArchivedBrief) error
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
}

// RunOptions selects the delivery channels of a single run.
type RunOptions struct {
	Email  bool
	Notify bool
}

// Result is everything a run produced.
type Result struct {
	Brief  model.Brief
	Text   string
	HTML   string
	Report fetcher.Report
}

// Pipeline wires the stages of one brief run: aggregate, score, compose,
// render, archive and deliver.
type Pipeline struct {
	fetcher  Aggregator
	scorer   Scorer
	composer Composer
	out      io.Writer
	log      *slog.Logger

	mailer    Mailer
	recipient string

	notifier Notifier

	archive       Archive
	retentionDays int
}

// New creates a pipeline that prints every brief to out. Delivery and the
// archive are attached with the With methods.
func New(fetcher Aggregator, scorer Scorer, composer Composer, out io.Writer, log *slog.Logger) *Pipeline {
	return &Pipeline{
		fetcher:  fetcher,
		scorer:   scorer,
		composer: composer,
		out:      out,
		log:      log,
	}
}

func (p *Pipeline) WithMailer(m Mailer, recipient string) *Pipeline {
	p.mailer = m
	p.recipient = recipient
	return p
}

func (p *Pipeline) WithNotifier(n Notifier) *Pipeline {
	p.notifier = n
	return p
}

func (p *Pipeline) WithArchive(a Archive, retentionDays int) *Pipeline {
	p.archive = a
	p.retentionDays = retentionDays
	return p
}

// Run produces one brief and writes its text to the output before any
// delivery is attempted, so a failed send still leaves the brief behind.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (Result, error) {
	runID := uuid.NewString()
	log := p.log.With("run_id", runID)
	started := time.Now()

	if opts.Email && p.mailer == nil {
		return Result{}, ErrNoMailer
	}

	items, report, err := p.fetcher.Aggregate(ctx)
	if err != nil {
		return Result{Report: report}, fmt.Errorf("aggregate: %w", err)
	}

	for name, err := range report.Failed {
		log.Warn("source failed", "source", name, "error", err)
	}

	if len(items) == 0 {
		return Result{Report: report}, ErrNoContent
	}

	log.Info("scoring items", "items", len(items))
	ranked := p.scorer.Score(ctx, items)

	brief := p.composer.Compose(ctx, ranked, composer.Stats{
		ItemsScanned:   lo.Sum(lo.Values(report.Fetched)),
		SourcesChecked: report.SourcesChecked,
	})
	brief.ID = runID

	html, err := composer.RenderHTML(brief)
	if err != nil {
		return Result{Brief: brief, Report: report}, err
	}

	res := Result{
		Brief:  brief,
		Text:   composer.RenderText(brief),
		HTML:   html,
		Report: report,
	}

	if _, err := io.WriteString(p.out, res.Text); err != nil {
		return res, fmt.Errorf("write brief: %w", err)
	}

	p.store(ctx, log, res)

	if opts.Email {
		if err := p.mailer.Send(ctx, notifier.Message{
			To:      p.recipient,
			Subject: composer.Subject(brief),
			HTML:    res.HTML,
			Text:    res.Text,
		}); err != nil {
			return res, fmt.Errorf("deliver brief: %w", err)
		}
	}

	if opts.Notify {
		if p.notifier == nil {
			log.Warn("notification requested but no notifier configured")
		} else if err := p.notifier.Notify(ctx, composer.Subject(brief), res.Text); err != nil {
			log.Warn("notification failed", "error", err)
		}
	}

	log.Info(
		"brief ready",
		"top_stories", len(brief.TopStories),
		"quick_links", len(brief.QuickLinks),
		"emailed", opts.Email,
		"took", time.Since(started),
	)

	return res, nil
}

// store archives the brief and prunes old ones. Archive problems never fail
// the run.
func (p *Pipeline) store(ctx context.Context, log *slog.Logger, res Result) {
	if p.archive == nil {
		return
	}

	if err := p.archive.Store(ctx, Archived(res.Brief, res.Text)); err != nil {
		log.Error("archiving brief", "error", err)
		return
	}

	if p.retentionDays <= 0 {
		return
	}

	removed, err := p.archive.Cleanup(ctx, p.retentionDays)
	if err != nil {
		log.Error("pruning archive", "error", err)
		return
	}
	if removed > 0 {
		log.Info("pruned archived briefs", "removed", removed)
	}
}

// Archived converts a brief into its archive form. Top stories come first,
// then quick links.
func Archived(b model.Brief, text string) model.ArchivedBrief {
	stories := lo.Map(b.TopStories, func(s model.Story, _ int) model.ArchivedStory {
		return model.ArchivedStory{
			Title:   s.Title,
			URL:     s.URL,
			Source:  s.SourceName,
			Score:   s.Score,
			Context: s.Context,
		}
	})

	stories = append(stories, lo.Map(b.QuickLinks, func(s model.ScoredItem, _ int) model.ArchivedStory {
		return model.ArchivedStory{
			Title:  s.Title,
			URL:    s.URL,
			Source: s.SourceName,
			Score:  s.Score,
		}
	})...)

	return model.ArchivedBrief{
		ID:             b.ID,
		Date:           b.Date,
		CatchUp:        b.CatchUp,
		Take:           b.Take,
		Text:           text,
		Stories:        stories,
		ItemsScanned:   b.ItemsScanned,
		SourcesChecked: b.SourcesChecked,
		CreatedAt:      b.GeneratedAt,
	}
}
