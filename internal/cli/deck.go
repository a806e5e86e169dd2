package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/okian/flashquiz/internal/domain/deck"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const deckFileMode = 0o644

func newDeckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deck",
		Short: "Inspect and edit deck files",
	}
	cmd.AddCommand(
		newDeckValidateCmd(),
		newDeckAddCmd(a),
	)
	return cmd
}

func newDeckValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>...",
		Short: "Parse deck files and report their card counts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed int
			for _, path := range args {
				p, err := deck.LoadFile(cmd.Context(), path)
				if err != nil {
					failed++
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", path, err)
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ok   %s: deck %q, %d cards\n", path, p.Name(), p.Len())
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d decks invalid", failed, len(args))
			}
			return nil
		},
	}
}

func newDeckAddCmd(a *app) *cobra.Command {
	var card deck.Card
	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Append a card to a deck file, creating it if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !deck.Supported(path) {
				return fmt.Errorf("%w: %s", deck.ErrUnsupportedType, path)
			}
			if strings.TrimSpace(card.Question) == "" {
				return fmt.Errorf("%w: question must not be empty", deck.ErrDeckMalformed)
			}

			p, err := deck.LoadFile(cmd.Context(), path)
			switch {
			case errors.Is(err, deck.ErrDeckNotFound):
				if p, err = deck.NewPool(deck.NameFromPath(path), nil); err != nil {
					return err
				}
			case err != nil:
				return err
			}

			next, err := p.Append(card)
			if err != nil {
				return err
			}
			data, err := deck.Encode(path, next)
			if err != nil {
				return err
			}
			if err := afero.WriteFile(a.fs, path, data, os.FileMode(deckFileMode)); err != nil {
				return fmt.Errorf("write deck: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deck %q now has %d cards\n", next.Name(), next.Len())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&card.Question, "question", "", "Card question")
	f.StringVar(&card.Answer, "answer", "", "Textbook answer")
	f.StringVar(&card.Source, "source", "", "Textbook location")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}
