package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/kovalyov-valentin/intelligence-brief/internal/fetcher"
	"github.com/kovalyov-valentin/intelligence-brief/internal/model"
	"github.com/kovalyov-valentin/intelligence-brief/internal/pipeline"
	"github.com/spf13/cobra"
)

// errAllSourcesFailed is returned by the test command when no adapter answered.
var errAllSourcesFailed = errors.New("every source failed")

func newTestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Validate configuration and probe every source",
		Long: `Print the effective configuration and fetch every enabled source once.
Nothing is scored, sent or stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			out := cmd.OutOrStdout()
			printConfig(out, a)

			_, report, err := newFetcher(a.cfg, a.log).Aggregate(ctx)
			if err != nil {
				return err
			}

			return printProbe(out, report)
		},
	}
}

func printConfig(w io.Writer, a *app) {
	cfg := a.cfg

	fmt.Fprintf(w, "LLM provider:      %s\n", cfg.LLMProvider)
	fmt.Fprintf(w, "Primary topics:    %s\n", strings.Join(cfg.PrimaryTopics, ", "))
	fmt.Fprintf(w, "Secondary topics:  %s\n", strings.Join(cfg.SecondaryTopics, ", "))
	fmt.Fprintf(w, "Lookback:          %s\n", cfg.Lookback)
	fmt.Fprintf(w, "Top stories:       %d (min score %.1f)\n", cfg.TopK, cfg.MinScore)
	fmt.Fprintf(w, "Quick links:       %d\n", cfg.QuickLinks)
	fmt.Fprintf(w, "Email recipient:   %s\n", orNone(cfg.EmailRecipient))
	fmt.Fprintf(w, "Archive:           %s\n", enabled(cfg.DatabaseDSN != ""))
	fmt.Fprintf(w, "Telegram:          %s\n", enabled(cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0))
	fmt.Fprintln(w)
}

func printProbe(w io.Writer, report fetcher.Report) error {
	names := make([]string, 0, report.SourcesChecked)
	for name := range report.Fetched {
		names = append(names, name)
	}
	for name := range report.Failed {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err, failed := report.Failed[name]; failed {
			fmt.Fprintf(w, "  FAIL  %-12s %v\n", name, err)
			continue
		}
		fmt.Fprintf(w, "  OK    %-12s %d items\n", name, report.Fetched[name])
	}

	fmt.Fprintf(w, "\n%d of %d sources answered, %d items kept\n",
		len(report.Fetched), report.SourcesChecked, report.Kept)

	if report.SourcesChecked > 0 && len(report.Failed) == report.SourcesChecked {
		return errAllSourcesFailed
	}

	return nil
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Build the brief and email it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := errors.Join(a.cfg.Validate(), a.cfg.ValidateEmail()); err != nil {
				return err
			}

			return a.runPipeline(cmd, pipeline.RunOptions{Email: true})
		},
	}
}

func newAggregateCmd(a *app) *cobra.Command {
	var opts pipeline.RunOptions

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Build the brief and print it",
		Long: `Fetch, score and compose today's brief and print it to stdout.

Examples:
  brief aggregate                  # Print only
  brief aggregate --email          # Print and email
  brief aggregate --notify         # Print and post to Telegram`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			errs := []error{a.cfg.Validate()}
			if opts.Email {
				errs = append(errs, a.cfg.ValidateEmail())
			}
			if opts.Notify {
				errs = append(errs, a.cfg.ValidateTelegram())
			}
			if err := errors.Join(errs...); err != nil {
				return err
			}

			return a.runPipeline(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Email, "email", false, "email the brief")
	cmd.Flags().BoolVar(&opts.Notify, "notify", false, "post the brief to Telegram")

	return cmd
}

func (a *app) runPipeline(cmd *cobra.Command, opts pipeline.RunOptions) error {
	ctx, cancel := a.context(cmd.Context())
	defer cancel()

	p, closeArchive, err := a.buildPipeline(ctx, cmd.OutOrStdout(), opts.Notify)
	if err != nil {
		return err
	}
	defer closeArchive()

	_, err = p.Run(ctx, opts)
	if errors.Is(err, pipeline.ErrNoContent) {
		a.log.Error("no items were collected from any source")
	}

	return err
}

func newHistoryCmd(a *app) *cobra.Command {
	var (
		days  int
		query string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived briefs",
		Long: `List briefs kept in the archive database.

Examples:
  brief history                    # Last 7 days
  brief history --days 14
  brief history --query "mcp"      # Search every archived brief`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			briefs, err := a.history(ctx, days, query, limit)
			if err != nil {
				return err
			}

			printHistory(cmd.OutOrStdout(), briefs)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "how many days back to list")
	cmd.Flags().StringVar(&query, "query", "", "only briefs containing this text")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of search results")

	return cmd
}

var errNoArchive = errors.New("database_dsn is not configured")

func (a *app) history(ctx context.Context, days int, query string, limit int) ([]model.ArchivedBrief, error) {
	archive, closeArchive, err := openArchive(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	defer closeArchive()

	if archive == nil {
		return nil, errNoArchive
	}

	if query != "" {
		return archive.Search(ctx, query, limit)
	}

	return archive.Recent(ctx, days)
}

func printHistory(w io.Writer, briefs []model.ArchivedBrief) {
	if len(briefs) == 0 {
		fmt.Fprintln(w, "No archived briefs.")
		return
	}

	for _, b := range briefs {
		fmt.Fprintf(w, "%s  %s  (%d items from %d sources)\n",
			b.Date.Format("2006-01-02"), b.ID, b.ItemsScanned, b.SourcesChecked)
		for _, s := range b.Stories {
			fmt.Fprintf(w, "    %4.1f  %s\n          %s\n", s.Score, s.Title, s.URL)
		}
		fmt.Fprintln(w)
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func enabled(ok bool) string {
	if ok {
		return "enabled"
	}
	return "disabled"
}
