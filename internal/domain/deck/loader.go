package deck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Supported deck file extensions.
const (
	extJSON = ".json"
	extTOML = ".toml"
)

// Supported reports whether path has a deck file extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case extJSON, extTOML:
		return true
	}
	return false
}

// NameFromPath derives the deck name from its file name.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadFile reads and parses a deck file.
func LoadFile(ctx context.Context, path string) (*Pool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDeckNotFound, path)
		}
		return nil, fmt.Errorf("read deck %s: %w", path, err)
	}

	var cards []Card
	switch strings.ToLower(filepath.Ext(path)) {
	case extTOML:
		cards, err = ParseTOML(data)
	default:
		cards, err = ParseJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewPool(NameFromPath(path), cards)
}

// ParseJSON decodes either {"flashcards": [...]} or a bare array of cards.
// A single card object is also accepted.
func ParseJSON(data []byte) ([]Card, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrDeckMalformed)
	}

	if data[0] == '[' {
		var cards []Card
		if err := json.Unmarshal(data, &cards); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDeckMalformed, err)
		}
		return cards, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeckMalformed, err)
	}
	if _, ok := probe["flashcards"]; !ok {
		if _, single := probe["question"]; single {
			var c Card
			if err := json.Unmarshal(data, &c); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrDeckMalformed, err)
			}
			return []Card{c}, nil
		}
		// Missing list means an empty deck.
		return []Card{}, nil
	}

	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeckMalformed, err)
	}
	if doc.Flashcards == nil {
		doc.Flashcards = []Card{}
	}
	return doc.Flashcards, nil
}

// ParseTOML decodes a document of [[flashcards]] tables.
func ParseTOML(data []byte) ([]Card, error) {
	var doc jsonDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeckMalformed, err)
	}
	if doc.Flashcards == nil {
		doc.Flashcards = []Card{}
	}
	return doc.Flashcards, nil
}

// Encode renders a pool in the format implied by path.
func Encode(path string, p *Pool) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case extTOML:
		return toml.Marshal(jsonDocument{Flashcards: p.Cards()})
	case extJSON:
		return json.MarshalIndent(p, "", "    ")
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, path)
}
