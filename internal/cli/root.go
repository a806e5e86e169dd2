// Package cli implements the quizctl admin commands.
package cli

import (
	"context"
	"fmt"

	"github.com/okian/flashquiz/internal/adapters/repository"
	"github.com/okian/flashquiz/internal/config"
	"github.com/okian/flashquiz/internal/domain/leaderboard"
	"github.com/okian/flashquiz/pkg/logger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

type app struct {
	backend string
	file    string
	size    int
	fs      afero.Fs
}

// NewRootCmd builds the quizctl command tree. Backend defaults come from the
// same configuration the server reads.
func NewRootCmd() *cobra.Command {
	a := &app{fs: afero.NewOsFs()}
	defaults := config.New()

	rootCmd := &cobra.Command{
		Use:           "quizctl",
		Short:         "Manage flashcard decks and the quiz leaderboard",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr())); err != nil {
				return err
			}
			_ = logger.SetLevelString("warn")
			flags := cmd.Flags()
			if flags.Changed("backend") && flags.Changed("file") && flags.Changed("size") {
				return nil
			}
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			// Explicit flags win over configuration, one by one.
			if !flags.Changed("backend") {
				a.backend = cfg.LeaderboardBackend
			}
			if !flags.Changed("file") {
				a.file = cfg.LeaderboardPath
			}
			if !flags.Changed("size") {
				a.size = cfg.LeaderboardSize
			}
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.backend, "backend", defaults.LeaderboardBackend, "Leaderboard backend: file, sqlite or memory")
	pf.StringVar(&a.file, "file", defaults.LeaderboardPath, "Leaderboard JSON file or sqlite database")
	pf.IntVar(&a.size, "size", defaults.LeaderboardSize, "Leaderboard size")

	rootCmd.AddCommand(
		newDeckCmd(a),
		newLeaderboardCmd(a),
	)
	return rootCmd
}

// openStore opens the configured backend. The caller closes the returned
// closer.
func (a *app) openStore(ctx context.Context) (*leaderboard.Store, func(), error) {
	backend, err := repository.Open(ctx, a.backend, a.file, repository.WithFS(a.fs))
	if err != nil {
		return nil, nil, fmt.Errorf("open leaderboard: %w", err)
	}
	store := leaderboard.NewStore(backend, leaderboard.WithSize(a.size))
	return store, func() { _ = backend.Close() }, nil
}
