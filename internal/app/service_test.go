package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	service "github.com/okian/flashquiz/internal/app"
	"github.com/okian/flashquiz/internal/domain/deck"
	"github.com/okian/flashquiz/internal/domain/leaderboard"
	"github.com/okian/flashquiz/internal/domain/quiz"
	"github.com/okian/flashquiz/internal/domain/sampler"
	"github.com/okian/flashquiz/internal/domain/sessions"
	"github.com/okian/flashquiz/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init(logger.WithOutput(io.Discard))
	if err != nil {
		panic(err)
	}
}

func testCatalog(t *testing.T) *deck.Catalog {
	t.Helper()
	c := deck.NewCatalog()
	bio, err := deck.NewPool("biology", []deck.Card{
		{Question: "Powerhouse of the cell?", Answer: "Mitochondria", Source: "ch1"},
		{Question: "Protein factory?", Answer: "Ribosome", Source: "ch2"},
		{Question: "Control center?", Answer: "Nucleus", Source: "ch3"},
	})
	if err != nil {
		t.Fatal(err)
	}
	empty, _ := deck.NewPool("empty", nil)
	_ = c.Add(bio)
	_ = c.Add(empty)
	return c
}

// slowGenerator blocks until released so tests can observe lock behavior.
type slowGenerator struct {
	entered chan struct{}
	release chan struct{}
}

func (g *slowGenerator) Name() string { return "slow" }

func (g *slowGenerator) Generate(ctx context.Context, mode quiz.Mode, question, answer string) (quiz.Result, error) {
	g.entered <- struct{}{}
	<-g.release
	return quiz.Result{Mode: quiz.ModeFillBlank, Question: question, MaskedText: quiz.Blank, MissingWord: answer, FullAnswer: answer}, nil
}

type failingGenerator struct{}

func (failingGenerator) Name() string { return "failing" }

func (failingGenerator) Generate(context.Context, quiz.Mode, string, string) (quiz.Result, error) {
	return quiz.Result{}, errors.New("model offline")
}

type keyedSource struct{}

func (keyedSource) ForKey(key string) (quiz.Generator, error) {
	if key == "" {
		return nil, quiz.ErrMissingAPIKey
	}
	return quiz.NewOffline(), nil
}

func newStarted(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	base := []service.Option{
		service.WithCatalog(testCatalog(t)),
		service.WithPersister(leaderboard.NewMemory()),
		service.WithSessionIdleTimeout(0),
	}
	svc := service.New(append(base, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithCatalog(testCatalog(t)), service.WithPersister(leaderboard.NewMemory()))
		defer svc.Stop()

		Convey("Then operations fail before Start", func() {
			_, err := svc.StartSession(ctx, "biology")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.ListDecks(ctx), ShouldBeEmpty)
			So(svc.Leaderboard(ctx), ShouldBeEmpty)
			So(svc.GetStats()["started"], ShouldBeFalse)
		})

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then stats reflect the running components", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldBeTrue)
				So(stats["decks"], ShouldEqual, 2)
				So(stats["activeSessions"], ShouldEqual, 0)
				So(stats["generator"], ShouldEqual, quiz.OfflineName)
			})

			Convey("Then stopping twice is safe", func() {
				svc.Stop()
				svc.Stop()
				So(svc.GetStats()["started"], ShouldBeFalse)
			})
		})
	})

	Convey("Given a deck directory and file backend", t, func() {
		dir := t.TempDir()
		decks := filepath.Join(dir, "decks")
		So(os.Mkdir(decks, 0o755), ShouldBeNil)
		So(os.WriteFile(filepath.Join(decks, "geo.json"), []byte(`{"flashcards":[{"question":"Capital of France?","textbook_answer":"Paris"}]}`), 0o644), ShouldBeNil)

		svc := service.New(
			service.WithDeckDir(decks),
			service.WithWatchDecks(true),
			service.WithLeaderboardBackend("file", filepath.Join(dir, "board.json")),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then decks load and scores land in the file", func() {
			So(svc.ListDecks(ctx), ShouldResemble, []deck.Summary{{Name: "geo", Cards: 1}})
			_, err := svc.SubmitScore(ctx, "Ann", 3)
			So(err, ShouldBeNil)
			_, err = os.Stat(filepath.Join(dir, "board.json"))
			So(err, ShouldBeNil)
		})
	})

	Convey("Given a missing deck directory", t, func() {
		svc := service.New(service.WithDeckDir(filepath.Join(t.TempDir(), "none")), service.WithPersister(leaderboard.NewMemory()))
		So(errors.Is(svc.Start(context.Background()), deck.ErrDeckNotFound), ShouldBeTrue)
	})

	Convey("Given an unknown backend", t, func() {
		svc := service.New(service.WithCatalog(testCatalog(t)), service.WithLeaderboardBackend("redis", "x"))
		So(svc.Start(context.Background()), ShouldNotBeNil)
	})
}

func TestService_Sessions(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newStarted(t)
		defer svc.Stop()

		Convey("When a session is started on a deck", func() {
			info, err := svc.StartSession(ctx, "biology")
			So(err, ShouldBeNil)
			So(info.ID, ShouldNotBeEmpty)
			So(info.Cards, ShouldEqual, 3)
			So(info.Remaining, ShouldEqual, 3)

			Convey("Then three quizzes cover every card once", func() {
				seen := map[int]bool{}
				for i := 0; i < 3; i++ {
					q, err := svc.NextQuiz(ctx, info.ID, quiz.ModeMultipleChoice, "")
					So(err, ShouldBeNil)
					So(len(q.Options), ShouldEqual, 4)
					So(q.Source, ShouldStartWith, "ch")
					seen[q.Index] = true
				}
				So(len(seen), ShouldEqual, 3)

				q, err := svc.NextQuiz(ctx, info.ID, quiz.ModeFillBlank, "")
				So(err, ShouldBeNil)
				So(q.Cycle, ShouldEqual, 1)
				So(q.Remaining, ShouldEqual, 2)
			})

			Convey("Then a correct answer scores a point", func() {
				q, err := svc.NextQuiz(ctx, info.ID, quiz.ModeFillBlank, "")
				So(err, ShouldBeNil)

				res, err := svc.Answer(ctx, info.ID, q.MissingWord)
				So(err, ShouldBeNil)
				So(res.Correct, ShouldBeTrue)
				So(res.Score, ShouldEqual, float64(1))

				_, err = svc.Answer(ctx, info.ID, q.MissingWord)
				So(errors.Is(err, service.ErrNoPendingQuiz), ShouldBeTrue)

				got, err := svc.SessionInfo(ctx, info.ID)
				So(err, ShouldBeNil)
				So(got.Answered, ShouldEqual, 1)
				So(got.Correct, ShouldEqual, 1)
				So(got.Pending, ShouldBeFalse)
			})

			Convey("Then a wrong answer keeps the score and reveals the answer", func() {
				q, err := svc.NextQuiz(ctx, info.ID, quiz.ModeMultipleChoice, "")
				So(err, ShouldBeNil)
				res, err := svc.Answer(ctx, info.ID, "definitely wrong")
				So(err, ShouldBeNil)
				So(res.Correct, ShouldBeFalse)
				So(res.Expected, ShouldEqual, q.CorrectAnswer)
				So(res.Score, ShouldEqual, float64(0))
			})

			Convey("Then scores can be adjusted and submitted", func() {
				score, err := svc.RecordScore(ctx, info.ID, 2.5)
				So(err, ShouldBeNil)
				So(score, ShouldEqual, 2.5)

				table, err := svc.SubmitSession(ctx, info.ID, "Ann")
				So(err, ShouldBeNil)
				So(table, ShouldHaveLength, 1)
				So(table[0].Score, ShouldEqual, 2.5)
				So(svc.Leaderboard(ctx), ShouldResemble, table)
			})

			Convey("Then ending it makes it unknown", func() {
				So(svc.EndSession(ctx, info.ID), ShouldBeNil)
				_, err := svc.SessionInfo(ctx, info.ID)
				So(errors.Is(err, sessions.ErrSessionNotFound), ShouldBeTrue)
				So(errors.Is(svc.EndSession(ctx, info.ID), sessions.ErrSessionNotFound), ShouldBeTrue)
			})
		})

		Convey("When a session is started on an empty deck", func() {
			info, err := svc.StartSession(ctx, "empty")
			So(err, ShouldBeNil)
			_, err = svc.NextQuiz(ctx, info.ID, quiz.ModeMultipleChoice, "")
			So(errors.Is(err, sampler.ErrEmptyPool), ShouldBeTrue)
		})

		Convey("When the deck does not exist", func() {
			_, err := svc.StartSession(ctx, "physics")
			So(errors.Is(err, deck.ErrDeckNotFound), ShouldBeTrue)
		})

		Convey("When scores are submitted directly", func() {
			_, err := svc.SubmitScore(ctx, "<b>Bob</b>", "7")
			So(err, ShouldBeNil)
			table := svc.Leaderboard(ctx)
			So(table[0].Name, ShouldEqual, "Bob")
			So(table[0].Score, ShouldEqual, float64(7))
		})
	})
}

func TestService_Generation(t *testing.T) {
	Convey("Given a generator that blocks", t, func() {
		ctx := context.Background()
		gen := &slowGenerator{entered: make(chan struct{}, 1), release: make(chan struct{})}
		svc := newStarted(t, service.WithGenerator(quiz.Static{Generator: gen}))
		defer svc.Stop()

		info, err := svc.StartSession(ctx, "biology")
		So(err, ShouldBeNil)

		done := make(chan error, 1)
		go func() {
			_, err := svc.NextQuiz(ctx, info.ID, quiz.ModeFillBlank, "")
			done <- err
		}()
		<-gen.entered

		Convey("Then the session is usable while the generator runs", func() {
			got, err := svc.SessionInfo(ctx, info.ID)
			So(err, ShouldBeNil)
			So(got.Served, ShouldEqual, 1)

			close(gen.release)
			So(<-done, ShouldBeNil)
			got, _ = svc.SessionInfo(ctx, info.ID)
			So(got.Pending, ShouldBeTrue)
		})
	})

	Convey("Given a generator that fails", t, func() {
		svc := newStarted(t, service.WithGenerator(quiz.Static{Generator: failingGenerator{}}))
		defer svc.Stop()
		info, _ := svc.StartSession(context.Background(), "biology")

		_, err := svc.NextQuiz(context.Background(), info.ID, quiz.ModeMultipleChoice, "")
		So(errors.Is(err, quiz.ErrGeneration), ShouldBeTrue)
		So(svc.GetStats()["generator"], ShouldEqual, "failing")
	})

	Convey("Given a source that needs a key", t, func() {
		svc := newStarted(t, service.WithGenerator(keyedSource{}))
		defer svc.Stop()
		info, _ := svc.StartSession(context.Background(), "biology")

		Convey("Then no card is consumed without a key", func() {
			_, err := svc.NextQuiz(context.Background(), info.ID, quiz.ModeMultipleChoice, "")
			So(errors.Is(err, quiz.ErrMissingAPIKey), ShouldBeTrue)
			got, _ := svc.SessionInfo(context.Background(), info.ID)
			So(got.Served, ShouldEqual, 0)

			_, err = svc.NextQuiz(context.Background(), info.ID, quiz.ModeMultipleChoice, "k")
			So(err, ShouldBeNil)
		})
	})
}

func TestService_ConcurrentUsers(t *testing.T) {
	Convey("Given many users playing and submitting at once", t, func() {
		ctx := context.Background()
		svc := newStarted(t, service.WithLockTimeout(0))
		defer svc.Stop()

		const users = 30
		var wg sync.WaitGroup
		errs := make(chan error, users)
		for u := 0; u < users; u++ {
			wg.Add(1)
			go func(u int) {
				defer wg.Done()
				info, err := svc.StartSession(ctx, "biology")
				if err != nil {
					errs <- err
					return
				}
				seen := map[int]bool{}
				for i := 0; i < info.Cards; i++ {
					q, err := svc.NextQuiz(ctx, info.ID, quiz.ModeFillBlank, "")
					if err != nil {
						errs <- err
						return
					}
					if seen[q.Index] {
						errs <- fmt.Errorf("user %d saw card %d twice", u, q.Index)
						return
					}
					seen[q.Index] = true
				}
				if _, err := svc.RecordScore(ctx, info.ID, float64(u)); err != nil {
					errs <- err
					return
				}
				if _, err := svc.SubmitSession(ctx, info.ID, fmt.Sprintf("user%02d", u)); err != nil {
					errs <- err
				}
			}(u)
		}
		wg.Wait()
		close(errs)

		Convey("Then nobody saw a repeat and the table holds the best ten", func() {
			for err := range errs {
				So(err, ShouldBeNil)
			}
			table := svc.Leaderboard(ctx)
			So(table, ShouldHaveLength, 10)
			for i, e := range table {
				So(e.Score, ShouldEqual, float64(users-1-i))
			}
			So(svc.GetStats()["activeSessions"], ShouldEqual, users)
		})
	})

	Convey("Given a short idle timeout", t, func() {
		svc := newStarted(t, service.WithSessionIdleTimeout(10*time.Millisecond), service.WithSessionSweepInterval(5*time.Millisecond))
		defer svc.Stop()
		info, err := svc.StartSession(context.Background(), "biology")
		So(err, ShouldBeNil)

		Convey("Then the session expires", func() {
			deadline := time.Now().Add(5 * time.Second)
			var err error
			for time.Now().Before(deadline) {
				if _, err = svc.SessionInfo(context.Background(), info.ID); err != nil {
					break
				}
				time.Sleep(5 * time.Millisecond)
			}
			So(errors.Is(err, sessions.ErrSessionNotFound), ShouldBeTrue)
		})
	})
}
