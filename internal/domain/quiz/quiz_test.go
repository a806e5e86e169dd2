package quiz

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParseMode(t *testing.T) {
	Convey("Given mode strings", t, func() {
		for in, want := range map[string]Mode{
			"":                ModeMultipleChoice,
			"MC":              ModeMultipleChoice,
			"multiple-choice": ModeMultipleChoice,
			" fitb ":          ModeFillBlank,
			"FITB":            ModeFillBlank,
			"fill-blank":      ModeFillBlank,
		} {
			got, err := ParseMode(in)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}

		_, err := ParseMode("essay")
		So(errors.Is(err, ErrUnknownMode), ShouldBeTrue)
	})
}

func TestAssemble(t *testing.T) {
	Convey("Given generated content", t, func() {
		rng := rand.New(rand.NewSource(1))

		Convey("When building a multiple choice quiz", func() {
			r, err := Assemble(ModeMultipleChoice, "Capital of France?", "Paris",
				Content{Distractors: []string{"Lyon", "paris", "", "Nice", "Lyon", "Lille", "Metz"}}, rng)

			Convey("Then options hold three unique distractors and the answer", func() {
				So(err, ShouldBeNil)
				So(len(r.Options), ShouldEqual, 4)
				So(r.Options, ShouldContain, "Paris")
				So(r.Options, ShouldContain, "Lyon")
				So(r.Options, ShouldContain, "Nice")
				So(r.Options, ShouldContain, "Lille")
				So(r.CorrectAnswer, ShouldEqual, "Paris")
				So(r.Expected(), ShouldEqual, "Paris")
			})
		})

		Convey("When no distractor is usable", func() {
			_, err := Assemble(ModeMultipleChoice, "Q", "A", Content{Distractors: []string{"a", " "}}, rng)
			So(errors.Is(err, ErrInvalidContent), ShouldBeTrue)
		})

		Convey("When building a fill-blank quiz", func() {
			r, err := Assemble(ModeFillBlank, "Q", "The capital is Paris.",
				Content{MaskedText: "The capital is ______.", MissingWord: " Paris "}, rng)

			Convey("Then the masked text and word are kept", func() {
				So(err, ShouldBeNil)
				So(r.MaskedText, ShouldEqual, "The capital is ______.")
				So(r.MissingWord, ShouldEqual, "Paris")
				So(r.FullAnswer, ShouldEqual, "The capital is Paris.")
				So(r.Redacted().MissingWord, ShouldBeEmpty)
				So(r.Redacted().MaskedText, ShouldEqual, r.MaskedText)
			})
		})

		Convey("When fill-blank content is incomplete", func() {
			_, err := Assemble(ModeFillBlank, "Q", "A", Content{MaskedText: "x ______"}, rng)
			So(errors.Is(err, ErrInvalidContent), ShouldBeTrue)
		})

		Convey("When the mode is unknown", func() {
			_, err := Assemble(Mode("essay"), "Q", "A", Content{}, rng)
			So(errors.Is(err, ErrUnknownMode), ShouldBeTrue)
		})
	})
}

func TestCheck(t *testing.T) {
	Convey("Given a multiple choice quiz", t, func() {
		r := Result{Mode: ModeMultipleChoice, Options: []string{"Lyon", "Paris", "Nice", "Lille"}, CorrectAnswer: "Paris"}

		So(Check(r, "B"), ShouldBeTrue)
		So(Check(r, "b"), ShouldBeTrue)
		So(Check(r, "A"), ShouldBeFalse)
		So(Check(r, " paris "), ShouldBeTrue)
		So(Check(r, "Nice"), ShouldBeFalse)
		So(Check(r, ""), ShouldBeFalse)
		So(Check(r, "Z"), ShouldBeFalse)
	})

	Convey("Given a fill-blank quiz", t, func() {
		r := Result{Mode: ModeFillBlank, MaskedText: "______ is red", MissingWord: "Mars"}

		So(Check(r, "mars"), ShouldBeTrue)
		So(Check(r, " MARS"), ShouldBeTrue)
		So(Check(r, "Venus"), ShouldBeFalse)
	})
}

func TestExtractJSON(t *testing.T) {
	Convey("Given model output", t, func() {
		Convey("Then fenced JSON is unwrapped", func() {
			out := "Sure!\n```json\n{\"distractors\": [\"a\",\"b\"]}\n```\nDone."
			So(ExtractJSON(out), ShouldEqual, `{"distractors": ["a","b"]}`)
		})

		Convey("Then a fence without a language tag works", func() {
			So(ExtractJSON("```\n{\"a\":1}\n```"), ShouldEqual, `{"a":1}`)
		})

		Convey("Then JSON surrounded by prose is found", func() {
			So(ExtractJSON(`Here you go: {"masked_text":"x"} hope it helps`), ShouldEqual, `{"masked_text":"x"}`)
		})

		Convey("Then plain JSON is returned unchanged", func() {
			So(ExtractJSON(` {"a":1} `), ShouldEqual, `{"a":1}`)
		})

		Convey("Then ParseContent decodes or rejects", func() {
			c, err := ParseContent("```json\n{\"masked_text\":\"The ______\",\"missing_word\":\"cat\"}\n```")
			So(err, ShouldBeNil)
			So(c.MissingWord, ShouldEqual, "cat")

			_, err = ParseContent("no json here")
			So(errors.Is(err, ErrInvalidContent), ShouldBeTrue)
		})
	})
}

func TestPrompt(t *testing.T) {
	Convey("Given a card", t, func() {
		mc, err := Prompt(ModeMultipleChoice, "Q?", "A!")
		So(err, ShouldBeNil)
		So(mc, ShouldContainSubstring, "Correct Answer: A!")
		So(mc, ShouldContainSubstring, `"distractors"`)

		fb, err := Prompt(ModeFillBlank, "Q?", "A!")
		So(err, ShouldBeNil)
		So(fb, ShouldContainSubstring, "Full Answer: A!")
		So(fb, ShouldContainSubstring, Blank)

		_, err = Prompt("x", "Q", "A")
		So(errors.Is(err, ErrUnknownMode), ShouldBeTrue)
	})
}

func TestOffline(t *testing.T) {
	Convey("Given an offline generator with a corpus", t, func() {
		ctx := context.Background()
		g := NewOffline(WithSeed(3), WithCorpus("Mitochondria", "Ribosome", "Nucleus", "Golgi apparatus", ""))
		So(g.Name(), ShouldEqual, OfflineName)

		Convey("When generating multiple choice", func() {
			r, err := g.Generate(ctx, ModeMultipleChoice, "Powerhouse of the cell?", "mitochondria")

			Convey("Then the answer is not reused as a distractor", func() {
				So(err, ShouldBeNil)
				So(len(r.Options), ShouldEqual, 4)
				So(r.Options, ShouldNotContain, "Mitochondria")
				So(Check(r, "mitochondria"), ShouldBeTrue)
			})
		})

		Convey("When generating fill-blank", func() {
			r, err := g.Generate(ctx, ModeFillBlank, "Q", "Plants use chlorophyll, mostly.")

			Convey("Then the longest word is blanked", func() {
				So(err, ShouldBeNil)
				So(r.MissingWord, ShouldEqual, "chlorophyll")
				So(r.MaskedText, ShouldEqual, "Plants use ______, mostly.")
			})
		})

		Convey("When the mode is unknown", func() {
			_, err := g.Generate(ctx, Mode("essay"), "Q", "A")
			So(errors.Is(err, ErrUnknownMode), ShouldBeTrue)
		})
	})

	Convey("Given an offline generator without a corpus", t, func() {
		g := NewOffline(WithSeed(1))
		r, err := g.Generate(context.Background(), ModeMultipleChoice, "Q", "A")

		Convey("Then fallback distractors fill the options", func() {
			So(err, ShouldBeNil)
			So(len(r.Options), ShouldEqual, 4)
			So(r.Options, ShouldContain, "None of the above")
		})

		Convey("Then answers added later become distractors", func() {
			g.AddCorpus("B", "C", "D")
			r, err := g.Generate(context.Background(), ModeMultipleChoice, "Q", "A")
			So(err, ShouldBeNil)
			So(r.Options, ShouldNotContain, "None of the above")
		})
	})

	Convey("Given simulated latency and a cancelled context", t, func() {
		g := NewOffline(WithLatencyRange(time.Second, 2*time.Second))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := g.Generate(ctx, ModeFillBlank, "Q", "Answer")
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})

	Convey("Given answers with no letters", t, func() {
		masked, word := maskLongestWord("?? !!")
		So(masked, ShouldEqual, Blank)
		So(word, ShouldEqual, "?? !!")
	})

	Convey("Given Static wrapping a generator", t, func() {
		g, err := Static{Generator: NewOffline()}.ForKey("ignored")
		So(err, ShouldBeNil)
		So(g.Name(), ShouldEqual, OfflineName)
	})
}
