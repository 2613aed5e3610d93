package oracle

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
)

// Lexical is a deterministic, offline oracle built on token overlap. It is
// used when no Gemini key is configured.
type Lexical struct{}

func NewLexical() *Lexical {
	return &Lexical{}
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true, "in": true,
	"on": true, "at": true, "with": true, "my": true, "is": true, "it": true, "was": true,
	"near": true, "to": true, "for": true, "has": true, "some": true, "its": true,
}

var colors = map[string]bool{
	"black": true, "white": true, "red": true, "blue": true, "green": true, "yellow": true,
	"orange": true, "purple": true, "pink": true, "brown": true, "grey": true, "silver": true,
	"gold": true, "maroon": true, "beige": true,
}

var synonyms = map[string]string{
	"gray": "grey",
	"navy": "blue",
}

func tokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if stopwords[f] {
			continue
		}
		if canonical, ok := synonyms[f]; ok {
			f = canonical
		}
		out = append(out, f)
	}
	return out
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range tokens(s) {
		set[t] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for t := range a {
		if b[t] {
			shared++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}

func (l *Lexical) Score(_ context.Context, a, b *models.Report) (int, error) {
	score := 0.0
	if strings.EqualFold(strings.TrimSpace(a.Category), strings.TrimSpace(b.Category)) {
		score += 30
	}

	itemA, itemB := tokenSet(a.ItemName), tokenSet(b.ItemName)
	textA, textB := tokenSet(a.ItemName+" "+a.Description), tokenSet(b.ItemName+" "+b.Description)
	score += 25*jaccard(itemA, itemB) + 25*jaccard(textA, textB)

	locA, locB := tokenSet(a.Location), tokenSet(b.Location)
	if overlap := jaccard(locA, locB); overlap == 1 {
		score += 20
	} else if overlap > 0 {
		score += 10
	}

	if !a.OccurredAt.IsZero() && !b.OccurredAt.IsZero() {
		gap := a.OccurredAt.Sub(b.OccurredAt)
		if gap < 0 {
			gap = -gap
		}
		if gap > 48*time.Hour {
			score /= 2
		}
	}
	return clampScore(int(score + 0.5)), nil
}

func (l *Lexical) GenerateVerificationQuestion(_ context.Context, found *models.Report) (Question, error) {
	words := tokens(found.Description + " " + found.ItemName)
	for _, w := range words {
		if !colors[w] {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(found.ItemName))
		if name == "" {
			name = "item"
		}
		return Question{Question: "What color is the " + name + "?", Answer: w}, nil
	}
	return FallbackQuestion, nil
}

func (l *Lexical) ValidateAnswer(_ context.Context, candidate, expected string) (bool, error) {
	want := tokens(expected)
	if len(want) == 0 {
		return false, nil
	}
	got := tokens(candidate)
	for _, w := range want {
		if !containsFuzzy(got, w) {
			return false, nil
		}
	}
	return true, nil
}

// containsFuzzy reports whether words holds w, allowing one edit for words
// of five letters or more.
func containsFuzzy(words []string, w string) bool {
	for _, candidate := range words {
		if candidate == w {
			return true
		}
		if len(w) >= 5 && levenshtein(candidate, w) <= 1 {
			return true
		}
	}
	return false
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
