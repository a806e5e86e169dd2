// Package quiz turns a flashcard into a multiple-choice or fill-in-the-blank
// question and checks answers against it.
package quiz

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
)

// Blank is the placeholder used in fill-in-the-blank text.
const Blank = "______"

// Mode selects the kind of quiz built from a card.
type Mode string

// Supported modes.
const (
	ModeMultipleChoice Mode = "multiple-choice"
	ModeFillBlank      Mode = "fill-blank"
)

// ParseMode accepts the long names and the short aliases mc and fitb.
// An empty string selects multiple choice.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mc", string(ModeMultipleChoice):
		return ModeMultipleChoice, nil
	case "fitb", string(ModeFillBlank):
		return ModeFillBlank, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Result is a generated quiz ready to show a user.
type Result struct {
	Mode          Mode     `json:"mode"`
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	MaskedText    string   `json:"masked_text,omitempty"`
	MissingWord   string   `json:"missing_word,omitempty"`
	FullAnswer    string   `json:"full_answer,omitempty"`
	Source        string   `json:"source,omitempty"`
}

// Expected returns the answer a user has to give.
func (r Result) Expected() string {
	if r.Mode == ModeFillBlank {
		return r.MissingWord
	}
	return r.CorrectAnswer
}

// Redacted returns a copy without the solution fields.
func (r Result) Redacted() Result {
	r.CorrectAnswer = ""
	r.MissingWord = ""
	r.FullAnswer = ""
	return r
}

// Content is what a generator produces before the quiz is assembled.
type Content struct {
	Distractors []string `json:"distractors,omitempty"`
	MaskedText  string   `json:"masked_text,omitempty"`
	MissingWord string   `json:"missing_word,omitempty"`
}

// Generator builds a quiz for one card.
type Generator interface {
	Name() string
	Generate(ctx context.Context, mode Mode, question, answer string) (Result, error)
}

// Source hands out a generator bound to a caller's credential.
type Source interface {
	ForKey(apiKey string) (Generator, error)
}

// Static is a Source that ignores credentials.
type Static struct {
	Generator
}

// ForKey returns the wrapped generator.
func (s Static) ForKey(string) (Generator, error) { return s.Generator, nil }

// Assemble validates content and builds the Result. For multiple choice the
// options are the distractors plus the correct answer, shuffled with rng.
func Assemble(mode Mode, question, answer string, c Content, rng *rand.Rand) (Result, error) {
	switch mode {
	case ModeMultipleChoice:
		options := make([]string, 0, len(c.Distractors)+1)
		seen := map[string]bool{strings.ToLower(answer): true}
		for _, d := range c.Distractors {
			d = strings.TrimSpace(d)
			key := strings.ToLower(d)
			if d == "" || seen[key] {
				continue
			}
			seen[key] = true
			options = append(options, d)
			if len(options) == 3 {
				break
			}
		}
		if len(options) == 0 {
			return Result{}, fmt.Errorf("%w: no usable distractors", ErrInvalidContent)
		}
		options = append(options, answer)
		if rng != nil {
			rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
		}
		return Result{
			Mode:          mode,
			Question:      question,
			Options:       options,
			CorrectAnswer: answer,
		}, nil

	case ModeFillBlank:
		masked := strings.TrimSpace(c.MaskedText)
		missing := strings.TrimSpace(c.MissingWord)
		if masked == "" || missing == "" {
			return Result{}, fmt.Errorf("%w: masked_text and missing_word are required", ErrInvalidContent)
		}
		return Result{
			Mode:        mode,
			Question:    question,
			MaskedText:  masked,
			MissingWord: missing,
			FullAnswer:  answer,
		}, nil
	}
	return Result{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

// Check reports whether answer solves r. Multiple choice accepts an option
// letter (A, B, ...) or the option text; fill-blank compares the missing word.
// Both ignore case and surrounding space.
func Check(r Result, answer string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return false
	}
	if r.Mode == ModeMultipleChoice && len(answer) == 1 {
		idx := int(strings.ToUpper(answer)[0]) - 'A'
		if idx >= 0 && idx < len(r.Options) {
			answer = r.Options[idx]
		}
	}
	return strings.EqualFold(answer, strings.TrimSpace(r.Expected()))
}
