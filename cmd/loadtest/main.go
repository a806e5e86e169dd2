package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/flashquiz/internal/loadtest"
	"github.com/okian/flashquiz/pkg/logger"
	"github.com/spf13/cobra"
)

// Default configuration constants.
const (
	defaultPlayers     = 100
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &loadtest.Config{}
	var logFormat string

	cmd := &cobra.Command{
		Use:          "loadtest",
		Short:        "Play concurrent quiz sessions against a running server and verify the results",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithFormat(logFormat), logger.WithOutput(cmd.ErrOrStderr())); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, defaultTestTimeout)
			defer cancel()

			stats, err := loadtest.Run(ctx, cfg)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ok: %d players, %d quizzes, %d submissions in %s\n",
				stats.Players, stats.QuizzesServed, stats.Submissions, stats.Duration.Round(time.Millisecond))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	f.StringVar(&cfg.Deck, "deck", "", "Deck to play (default: first non-empty deck)")
	f.IntVar(&cfg.Players, "players", defaultPlayers, "Number of concurrent players")
	f.IntVar(&cfg.Size, "size", loadtest.DefaultLeaderboardSize, "Leaderboard size the server keeps")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*defaultWorkers, "Maximum concurrent requests")
	f.StringVar(&cfg.Mode, "mode", "multiple-choice", "Quiz mode: multiple-choice or fill-blank")
	f.StringVar(&cfg.APIKey, "api-key", os.Getenv("FLASHQUIZ_LLM_API_KEY"), "Model API key sent as X-API-Key")
	f.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	f.BoolVar(&cfg.Verbose, "verbose", false, "Log every player")
	f.StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	return cmd
}
