package quiz

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode"
)

// OfflineName identifies the offline generator in logs and metrics.
const OfflineName = "offline"

// Used when the corpus has no other answers to borrow.
var fallbackDistractors = []string{
	"None of the above",
	"All of the above",
	"Not covered in the text",
}

// OfflineOption applies a configuration option to the Offline generator.
type OfflineOption func(*Offline)

// WithLatencyRange simulates a remote model taking between min and max.
func WithLatencyRange(minLatency, maxLatency time.Duration) OfflineOption {
	return func(o *Offline) {
		if minLatency > 0 && maxLatency > minLatency {
			o.minLatency = minLatency
			o.maxLatency = maxLatency
		}
	}
}

// WithSeed makes option order and distractor picks reproducible.
func WithSeed(seed int64) OfflineOption {
	return func(o *Offline) {
		o.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic seed for reproducible testing
	}
}

// WithCorpus adds answers that may be used as distractors.
func WithCorpus(answers ...string) OfflineOption {
	return func(o *Offline) {
		o.addCorpus(answers)
	}
}

// Offline builds quizzes without a network call. Distractors are borrowed
// from other cards' answers and the blank is the longest word of the answer.
type Offline struct {
	mu     sync.Mutex // guards rng and corpus
	rng    *rand.Rand
	corpus []string
	known  map[string]bool

	minLatency time.Duration
	maxLatency time.Duration
}

// NewOffline creates an offline generator.
func NewOffline(opts ...OfflineOption) *Offline {
	o := &Offline{
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // not security sensitive
		known: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Offline) addCorpus(answers []string) {
	if o.known == nil {
		o.known = make(map[string]bool)
	}
	for _, a := range answers {
		a = strings.TrimSpace(a)
		key := strings.ToLower(a)
		if a == "" || o.known[key] {
			continue
		}
		o.known[key] = true
		o.corpus = append(o.corpus, a)
	}
}

// AddCorpus registers more candidate distractors.
func (o *Offline) AddCorpus(answers ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.addCorpus(answers)
}

// Name implements Generator.
func (o *Offline) Name() string { return OfflineName }

// Generate implements Generator.
func (o *Offline) Generate(ctx context.Context, mode Mode, question, answer string) (Result, error) {
	o.mu.Lock()
	var latency time.Duration
	if o.maxLatency > 0 {
		latency = o.minLatency + time.Duration(o.rng.Int63n(int64(o.maxLatency-o.minLatency)))
	}
	o.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{}, fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	var c Content
	switch mode {
	case ModeMultipleChoice:
		c.Distractors = o.pickDistractors(answer, 3)
	case ModeFillBlank:
		c.MaskedText, c.MissingWord = maskLongestWord(answer)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return Assemble(mode, question, answer, c, o.rng)
}

func (o *Offline) pickDistractors(answer string, n int) []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	skip := strings.ToLower(strings.TrimSpace(answer))
	out := make([]string, 0, n)
	for _, i := range o.rng.Perm(len(o.corpus)) {
		if len(out) == n {
			break
		}
		if strings.ToLower(o.corpus[i]) == skip {
			continue
		}
		out = append(out, o.corpus[i])
	}
	for _, f := range fallbackDistractors {
		if len(out) == n {
			break
		}
		out = append(out, f)
	}
	return out
}

// maskLongestWord blanks the longest word of text. Punctuation around the
// word stays in place.
func maskLongestWord(text string) (masked, word string) {
	fields := strings.Fields(text)
	best := -1
	for i, f := range fields {
		w := strings.TrimFunc(f, isWordEdge)
		if best < 0 || len([]rune(w)) > len([]rune(word)) {
			best, word = i, w
		}
	}
	if best < 0 || word == "" {
		return Blank, strings.TrimSpace(text)
	}
	fields[best] = strings.Replace(fields[best], word, Blank, 1)
	return strings.Join(fields, " "), word
}

func isWordEdge(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
