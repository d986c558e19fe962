package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kovalyov-valentin/intelligence-brief/internal/config"
	"github.com/kovalyov-valentin/intelligence-brief/internal/logging"
	"github.com/spf13/cobra"
)

// app is the state shared by every subcommand once configuration is loaded.
type app struct {
	configFile string
	cfg        config.Config
	log        *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "brief",
		Short: "Daily intelligence brief from newsletters, forums and papers",
		Long: `brief collects the last day of posts from Substack, Reddit, Hacker News,
arXiv, RSS, podcasts and GitHub trending, rates them for relevance with an LLM
and composes a short brief that can be printed, emailed or sent to Telegram.

Example usage:
  brief test                   # Check configuration and probe every source
  brief aggregate              # Print today's brief
  brief aggregate --email      # Print and email it
  brief run                    # Full run, email required
  brief history --days 7       # List archived briefs`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "extra HCL config file")

	root.AddCommand(
		newTestCmd(a),
		newRunCmd(a),
		newAggregateCmd(a),
		newHistoryCmd(a),
	)

	return root
}

func (a *app) init() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	var files []string
	if a.configFile != "" {
		files = append(files, a.configFile)
	}

	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	return nil
}

// context is cancelled on SIGINT/SIGTERM and after the configured run timeout.
func (a *app) context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RunTimeout)

	return ctx, func() {
		cancel()
		stop()
	}
}
