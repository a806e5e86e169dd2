package loadtest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/flashquiz/pkg/logger"
	"github.com/sourcegraph/conc/pool"
)

// ErrNoDecks is returned when the server has nothing to play.
var ErrNoDecks = errors.New("server has no decks")

// Run plays cfg.Players full sessions concurrently, submits every score at
// once and checks the resulting leaderboard.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now(), Players: cfg.Players}
	log := logger.Get().Named("loadtest")
	size := cfg.Size
	if size <= 0 {
		size = DefaultLeaderboardSize
	}

	log.Info(ctx, "starting quiz load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("workers", cfg.Workers),
		logger.String("mode", cfg.Mode),
		logger.Duration("timeout", cfg.Timeout))

	client := NewClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Pick the deck
	deckName, cards, err := resolveDeck(ctx, client, cfg.Deck)
	if err != nil {
		return stats, err
	}
	stats.CardsPerDeck = cards

	// Step 3: Remember the starting table
	before, err := client.Leaderboard(ctx)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	base := 1.0
	for _, e := range before {
		if e.Score >= base {
			base = e.Score + 1
		}
	}

	players := make([]*Player, cfg.Players)
	for i := range players {
		players[i] = &Player{
			Name:  "lt-" + uuid.NewString()[:8],
			Score: base + float64(i),
		}
	}

	var served, retries atomic.Int64

	// Step 4: Play a full cycle per player
	play := pool.New().WithMaxGoroutines(workers(cfg)).WithContext(ctx).WithCancelOnError()
	for _, p := range players {
		play.Go(func(ctx context.Context) error {
			s, err := client.StartSession(ctx, deckName)
			if err != nil {
				return fmt.Errorf("%s: start session: %w", p.Name, err)
			}
			p.Session = s.ID
			for range s.Cards {
				var idx int
				err := withRetry(ctx, &retries, func() error {
					var err error
					idx, err = client.Next(ctx, s.ID, cfg.Mode)
					return err
				})
				if err != nil {
					return fmt.Errorf("%s: next: %w", p.Name, err)
				}
				p.Drawn = append(p.Drawn, idx)
				served.Add(1)
			}
			if err := verifyPermutation(p.Drawn, s.Cards); err != nil {
				return fmt.Errorf("%s: %w", p.Name, err)
			}
			if _, err := client.AddScore(ctx, s.ID, p.Score); err != nil {
				return fmt.Errorf("%s: score: %w", p.Name, err)
			}
			if cfg.Verbose {
				log.Info(ctx, "player finished cycle", logger.String("player", p.Name), logger.Int("cards", len(p.Drawn)))
			}
			return nil
		})
	}
	if err := play.Wait(); err != nil {
		return stats, fmt.Errorf("play phase failed: %w", err)
	}
	stats.QuizzesServed = int(served.Load())

	// Step 5: Submit every score at once
	var submitted atomic.Int64
	submit := pool.New().WithMaxGoroutines(workers(cfg)).WithContext(ctx).WithCancelOnError()
	for _, p := range players {
		submit.Go(func(ctx context.Context) error {
			key := uuid.NewString()
			err := withRetry(ctx, &retries, func() error {
				return client.SubmitSession(ctx, p.Session, p.Name, key)
			})
			if err != nil {
				return fmt.Errorf("%s: submit: %w", p.Name, err)
			}
			submitted.Add(1)
			return nil
		})
	}
	if err := submit.Wait(); err != nil {
		return stats, fmt.Errorf("submit phase failed: %w", err)
	}
	stats.Submissions = int(submitted.Load())
	stats.Retries = int(retries.Load())

	// Step 6: Verify the table
	after, err := client.Leaderboard(ctx)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.LeaderboardEntries = len(after)
	if err := verifyLeaderboard(before, players, after, size); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	// Step 7: Clean up sessions
	for _, p := range players {
		if err := client.EndSession(ctx, p.Session); err != nil {
			log.Warn(ctx, "failed to end session", logger.String("player", p.Name), logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

func resolveDeck(ctx context.Context, client *Client, name string) (string, int, error) {
	decks, err := client.Decks(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("deck listing failed: %w", err)
	}
	for _, d := range decks {
		if name == "" && d.Cards > 0 {
			return d.Name, d.Cards, nil
		}
		if d.Name == name {
			if d.Cards == 0 {
				return "", 0, fmt.Errorf("deck %q is empty", name)
			}
			return d.Name, d.Cards, nil
		}
	}
	if name != "" {
		return "", 0, fmt.Errorf("deck %q not found", name)
	}
	return "", 0, ErrNoDecks
}

func workers(cfg *Config) int {
	if cfg.Workers > 0 {
		return cfg.Workers
	}
	return 1
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var quizzesPerSecond float64
	if stats.Duration > 0 {
		quizzesPerSecond = float64(stats.QuizzesServed) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("players", stats.Players),
		logger.Int("cardsPerDeck", stats.CardsPerDeck),
		logger.Int("quizzesServed", stats.QuizzesServed),
		logger.Int("submissions", stats.Submissions),
		logger.Int("retries", stats.Retries),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Duration("duration", stats.Duration),
		logger.Float64("quizzesPerSecond", quizzesPerSecond))
}
