package deck

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestWatcher(t *testing.T) {
	Convey("Given a watched deck directory", t, func() {
		dir := t.TempDir()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		writeDeck(t, dir, "bio.json", `[{"question":"Q1"}]`)
		cat := NewCatalog()
		So(cat.LoadDir(ctx, dir), ShouldBeNil)

		reloaded := make(chan int, 8)
		w, err := NewWatcher(cat, dir,
			WithDebounce(20*time.Millisecond),
			OnReload(func(_ context.Context, c *Catalog) { reloaded <- c.Len() }))
		So(err, ShouldBeNil)
		go w.Run(ctx)
		defer func() { _ = w.Close() }()

		Convey("When a new deck file appears", func() {
			writeDeck(t, dir, "chem.toml", "[[flashcards]]\nquestion = \"Q\"\n")

			Convey("Then the catalog is reloaded with it", func() {
				var n int
				select {
				case n = <-reloaded:
				case <-time.After(5 * time.Second):
				}
				So(n, ShouldEqual, 2)
				_, err := cat.Get("chem")
				So(err, ShouldBeNil)
			})
		})

		Convey("When a broken deck is written", func() {
			writeDeck(t, dir, "bad.json", `{"flashcards": nope`)
			time.Sleep(200 * time.Millisecond)

			Convey("Then the previous decks stay loaded", func() {
				So(cat.Len(), ShouldEqual, 1)
				So(len(reloaded), ShouldEqual, 0)
			})
		})

		Convey("When closed", func() {
			So(w.Close(), ShouldBeNil)
			select {
			case <-w.Done():
			case <-time.After(5 * time.Second):
			}
			So(w.Close(), ShouldBeNil)
		})
	})

	Convey("Given a directory that does not exist", t, func() {
		_, err := NewWatcher(NewCatalog(), filepath.Join(t.TempDir(), "absent"))
		So(err, ShouldNotBeNil)
	})
}
