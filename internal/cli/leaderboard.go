package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/okian/flashquiz/internal/domain/leaderboard"
	"github.com/spf13/cobra"
)

func newLeaderboardCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "leaderboard",
		Aliases: []string{"lb"},
		Short:   "Show and manage the persisted leaderboard",
	}
	cmd.AddCommand(
		newLeaderboardShowCmd(a),
		newLeaderboardSubmitCmd(a),
		newLeaderboardResetCmd(a),
	)
	return cmd
}

func newLeaderboardShowCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the leaderboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeFn, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			return printTable(cmd.OutOrStdout(), store.Read(cmd.Context()), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newLeaderboardSubmitCmd(a *app) *cobra.Command {
	var name, score string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Record a score",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeFn, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			table, err := store.Submit(cmd.Context(), name, score)
			if err != nil {
				return err
			}
			return printTable(cmd.OutOrStdout(), table, false)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Player name")
	cmd.Flags().StringVar(&score, "score", "", "Score; non-numeric values count as 0")
	_ = cmd.MarkFlagRequired("score")
	return cmd
}

func newLeaderboardResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the leaderboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeFn, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			if err := store.Reset(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "leaderboard cleared")
			return nil
		},
	}
}

func printTable(w io.Writer, entries []leaderboard.Entry, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no scores yet")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tNAME\tSCORE\tDATE")
	for i, e := range entries {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%g\t%s\n", i+1, e.Name, e.Score, e.Date)
	}
	return tw.Flush()
}
