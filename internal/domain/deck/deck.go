// Package deck holds flashcard pools and loads them from JSON or TOML files.
//
// A Pool is immutable once built; it is shared by every session drawing
// from it without synchronization.
package deck

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Placeholder used when a card omits its answer or source.
const unknownField = "Unknown"

// Card is one question/answer record.
type Card struct {
	Question string `json:"question" toml:"question"`
	Answer   string `json:"textbook_answer" toml:"textbook_answer"`
	Source   string `json:"textbook_location,omitempty" toml:"textbook_location"`
}

// UnmarshalJSON accepts either a card object or a bare question string.
func (c *Card) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var q string
		if err := json.Unmarshal(data, &q); err != nil {
			return err
		}
		*c = Card{Question: q}
		return nil
	}

	type plain Card
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = Card(p)
	return nil
}

func (c Card) normalized() Card {
	c.Question = strings.TrimSpace(c.Question)
	c.Answer = strings.TrimSpace(c.Answer)
	c.Source = strings.TrimSpace(c.Source)
	if c.Answer == "" {
		c.Answer = unknownField
	}
	if c.Source == "" {
		c.Source = unknownField
	}
	return c
}

// Pool is an immutable ordered set of cards.
type Pool struct {
	name  string
	cards []Card
}

// NewPool copies cards into a new pool. Cards without a question are rejected.
func NewPool(name string, cards []Card) (*Pool, error) {
	out := make([]Card, len(cards))
	for i, c := range cards {
		c = c.normalized()
		if c.Question == "" {
			return nil, fmt.Errorf("%w: card %d has no question", ErrDeckMalformed, i)
		}
		out[i] = c
	}
	return &Pool{name: name, cards: out}, nil
}

// Name returns the deck name.
func (p *Pool) Name() string { return p.name }

// Len returns the number of cards. A nil pool is empty.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.cards)
}

// Card returns the card at index i.
func (p *Pool) Card(i int) (Card, bool) {
	if p == nil || i < 0 || i >= len(p.cards) {
		return Card{}, false
	}
	return p.cards[i], true
}

// Cards returns a copy of every card in order.
func (p *Pool) Cards() []Card {
	if p == nil {
		return nil
	}
	out := make([]Card, len(p.cards))
	copy(out, p.cards)
	return out
}

// Append returns a new pool with extra cards after the existing ones.
func (p *Pool) Append(cards ...Card) (*Pool, error) {
	all := append(p.Cards(), cards...)
	return NewPool(p.Name(), all)
}

// MarshalJSON writes the {"flashcards": [...]} document form.
func (p *Pool) MarshalJSON() ([]byte, error) {
	doc := jsonDocument{Flashcards: p.Cards()}
	if doc.Flashcards == nil {
		doc.Flashcards = []Card{}
	}
	return json.Marshal(doc)
}

type jsonDocument struct {
	Flashcards []Card `json:"flashcards" toml:"flashcards"`
}
