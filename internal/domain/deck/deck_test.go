package deck

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/flashquiz/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.WithOutput(io.Discard))
	os.Exit(m.Run())
}

func writeDeck(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseJSON(t *testing.T) {
	Convey("Given JSON deck documents", t, func() {
		Convey("When the document wraps cards in a flashcards list", func() {
			cards, err := ParseJSON([]byte(`{"flashcards":[
				{"question":"Q1","textbook_answer":"A1","textbook_location":"ch1"},
				{"question":"Q2","textbook_answer":"A2"}
			]}`))

			Convey("Then every card is decoded in order", func() {
				So(err, ShouldBeNil)
				So(len(cards), ShouldEqual, 2)
				So(cards[0], ShouldResemble, Card{Question: "Q1", Answer: "A1", Source: "ch1"})
				So(cards[1].Question, ShouldEqual, "Q2")
			})
		})

		Convey("When the document is a bare array mixing strings and objects", func() {
			cards, err := ParseJSON([]byte(`["What is ATP?", {"question":"Q2","textbook_answer":"A2"}]`))

			Convey("Then string entries become questions", func() {
				So(err, ShouldBeNil)
				So(len(cards), ShouldEqual, 2)
				So(cards[0].Question, ShouldEqual, "What is ATP?")
				So(cards[0].Answer, ShouldEqual, "")
			})
		})

		Convey("When the document is a single card object", func() {
			cards, err := ParseJSON([]byte(`{"question":"Solo","textbook_answer":"yes"}`))
			So(err, ShouldBeNil)
			So(len(cards), ShouldEqual, 1)
			So(cards[0].Answer, ShouldEqual, "yes")
		})

		Convey("When the object has no flashcards key", func() {
			cards, err := ParseJSON([]byte(`{"title":"empty"}`))
			So(err, ShouldBeNil)
			So(cards, ShouldBeEmpty)
		})

		Convey("When the document is not JSON", func() {
			_, err := ParseJSON([]byte(`{"flashcards": [`))
			So(errors.Is(err, ErrDeckMalformed), ShouldBeTrue)

			_, err = ParseJSON([]byte("   "))
			So(errors.Is(err, ErrDeckMalformed), ShouldBeTrue)
		})
	})
}

func TestParseTOML(t *testing.T) {
	Convey("Given a TOML deck", t, func() {
		cards, err := ParseTOML([]byte(`
[[flashcards]]
question = "Q1"
textbook_answer = "A1"
textbook_location = "p. 12"

[[flashcards]]
question = "Q2"
textbook_answer = "A2"
`))

		Convey("Then the array of tables is decoded", func() {
			So(err, ShouldBeNil)
			So(len(cards), ShouldEqual, 2)
			So(cards[0].Source, ShouldEqual, "p. 12")
			So(cards[1].Answer, ShouldEqual, "A2")
		})

		Convey("Then broken TOML is reported as malformed", func() {
			_, err := ParseTOML([]byte("[[flashcards]\nquestion = "))
			So(errors.Is(err, ErrDeckMalformed), ShouldBeTrue)
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a pool built from cards", t, func() {
		p, err := NewPool("bio", []Card{{Question: " Q1 ", Answer: "A1"}, {Question: "Q2"}})
		So(err, ShouldBeNil)

		Convey("Then cards are trimmed and missing fields are filled", func() {
			So(p.Name(), ShouldEqual, "bio")
			So(p.Len(), ShouldEqual, 2)
			c, ok := p.Card(0)
			So(ok, ShouldBeTrue)
			So(c.Question, ShouldEqual, "Q1")
			So(c.Source, ShouldEqual, "Unknown")
			c, _ = p.Card(1)
			So(c.Answer, ShouldEqual, "Unknown")
		})

		Convey("Then out of range lookups fail", func() {
			_, ok := p.Card(-1)
			So(ok, ShouldBeFalse)
			_, ok = p.Card(2)
			So(ok, ShouldBeFalse)
		})

		Convey("Then Cards returns a copy", func() {
			cs := p.Cards()
			cs[0].Question = "mutated"
			c, _ := p.Card(0)
			So(c.Question, ShouldEqual, "Q1")
		})

		Convey("Then Append leaves the original untouched", func() {
			p2, err := p.Append(Card{Question: "Q3", Answer: "A3"})
			So(err, ShouldBeNil)
			So(p2.Len(), ShouldEqual, 3)
			So(p.Len(), ShouldEqual, 2)
		})

		Convey("Then a card without a question is rejected", func() {
			_, err := NewPool("bad", []Card{{Answer: "orphan"}})
			So(errors.Is(err, ErrDeckMalformed), ShouldBeTrue)
		})

		Convey("Then a nil pool behaves as empty", func() {
			var nilPool *Pool
			So(nilPool.Len(), ShouldEqual, 0)
			So(nilPool.Cards(), ShouldBeNil)
		})
	})
}

func TestLoadFileAndEncode(t *testing.T) {
	Convey("Given deck files on disk", t, func() {
		dir := t.TempDir()
		ctx := context.Background()

		Convey("When loading a JSON deck", func() {
			path := writeDeck(t, dir, "biology.json", `{"flashcards":[{"question":"Q","textbook_answer":"A"}]}`)
			p, err := LoadFile(ctx, path)

			Convey("Then the deck is named after the file", func() {
				So(err, ShouldBeNil)
				So(p.Name(), ShouldEqual, "biology")
				So(p.Len(), ShouldEqual, 1)
			})

			Convey("Then it round trips through TOML", func() {
				out, err := Encode("biology.toml", p)
				So(err, ShouldBeNil)
				back, err := ParseTOML(out)
				So(err, ShouldBeNil)
				So(back, ShouldResemble, p.Cards())
			})
		})

		Convey("When the file does not exist", func() {
			_, err := LoadFile(ctx, filepath.Join(dir, "missing.json"))
			So(errors.Is(err, ErrDeckNotFound), ShouldBeTrue)
		})

		Convey("When the extension is not supported", func() {
			_, err := LoadFile(ctx, writeDeck(t, dir, "deck.csv", "q,a"))
			So(errors.Is(err, ErrUnsupportedType), ShouldBeTrue)
			_, err = Encode("deck.csv", &Pool{})
			So(errors.Is(err, ErrUnsupportedType), ShouldBeTrue)
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := LoadFile(cctx, filepath.Join(dir, "any.json"))
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestCatalog(t *testing.T) {
	Convey("Given a directory with decks", t, func() {
		dir := t.TempDir()
		ctx := context.Background()
		writeDeck(t, dir, "chem.toml", "[[flashcards]]\nquestion = \"Q\"\ntextbook_answer = \"A\"\n")
		writeDeck(t, dir, "bio.json", `[{"question":"Q1"},{"question":"Q2"}]`)
		writeDeck(t, dir, "notes.txt", "ignored")
		So(os.Mkdir(filepath.Join(dir, "nested"), 0o700), ShouldBeNil)

		c := NewCatalog()

		Convey("When the directory is loaded", func() {
			So(c.LoadDir(ctx, dir), ShouldBeNil)

			Convey("Then decks are listed by name", func() {
				So(c.Len(), ShouldEqual, 2)
				So(c.List(), ShouldResemble, []Summary{{Name: "bio", Cards: 2}, {Name: "chem", Cards: 1}})
			})

			Convey("Then lookups resolve by name", func() {
				p, err := c.Get("chem")
				So(err, ShouldBeNil)
				So(p.Len(), ShouldEqual, 1)

				_, err = c.Get("physics")
				So(errors.Is(err, ErrDeckNotFound), ShouldBeTrue)
			})
		})

		Convey("When one deck is broken", func() {
			writeDeck(t, dir, "zzz.json", `{"flashcards": oops}`)
			err := c.LoadDir(ctx, dir)

			Convey("Then loading fails and nothing is registered", func() {
				So(errors.Is(err, ErrDeckMalformed), ShouldBeTrue)
				So(c.Len(), ShouldEqual, 0)
			})
		})

		Convey("When two files share a deck name", func() {
			writeDeck(t, dir, "bio.toml", "[[flashcards]]\nquestion = \"Q\"\n")
			err := c.LoadDir(ctx, dir)
			So(errors.Is(err, ErrDeckMalformed), ShouldBeTrue)
		})

		Convey("When the directory does not exist", func() {
			err := c.LoadDir(ctx, filepath.Join(dir, "absent"))
			So(errors.Is(err, ErrDeckNotFound), ShouldBeTrue)
		})

		Convey("When a pool is added directly", func() {
			p, _ := NewPool("manual", []Card{{Question: "Q"}})
			So(c.Add(p), ShouldBeNil)
			So(c.Add(nil), ShouldEqual, ErrInvalidDeckName)
			_, err := c.Get("manual")
			So(err, ShouldBeNil)
		})
	})
}
