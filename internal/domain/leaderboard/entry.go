package leaderboard

import (
	"html"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/spf13/cast"
	"golang.org/x/text/unicode/norm"
)

// Table limits.
const (
	DefaultSize   = 10
	MaxNameRunes  = 20
	AnonymousName = "Anonymous"
	DateLayout    = "2006-01-02"
)

// Entry is one leaderboard row.
type Entry struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	Date  string  `json:"date"`
}

var tagPattern = regexp.MustCompile(`(?s)<[^>]*>`)

// SanitizeName makes a display name safe to render. Markup is stripped,
// HTML metacharacters and control characters are dropped, and the result is
// trimmed to MaxNameRunes. An empty result becomes AnonymousName.
func SanitizeName(name string) string {
	name = html.UnescapeString(name)
	name = tagPattern.ReplaceAllString(name, "")
	name = norm.NFC.String(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case strings.ContainsRune(`<>&"'`, r):
			continue
		case unicode.IsControl(r):
			continue
		}
		b.WriteRune(r)
	}

	clean := strings.TrimSpace(b.String())
	if runes := []rune(clean); len(runes) > MaxNameRunes {
		clean = strings.TrimSpace(string(runes[:MaxNameRunes]))
	}
	if clean == "" {
		return AnonymousName
	}
	return clean
}

// CoerceScore converts a submitted score to a finite number. Numbers and
// numeric strings are accepted; anything else, NaN and infinities become 0.
func CoerceScore(v any) float64 {
	switch t := v.(type) {
	case nil, bool:
		return 0
	case string:
		v = strings.TrimSpace(t)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Rank sorts entries by score descending, keeping insertion order for ties,
// and truncates to size.
func Rank(entries []Entry, size int) []Entry {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	if size > 0 && len(entries) > size {
		entries = entries[:size]
	}
	return entries
}
