// Package oracle is the boundary to the similarity / question / answer
// judgment service. Implementations may be slow and may fail; callers wrap
// them in Resilient to get bounded latency and safe defaults.
package oracle

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
)

// Question is a verification challenge generated for a found item.
type Question struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FallbackQuestion is used when question generation fails.
var FallbackQuestion = Question{
	Question: "What is the main color of the item?",
	Answer:   "Detail",
}

type Oracle interface {
	// Score returns a 0-100 compatibility score for two reports.
	Score(ctx context.Context, a, b *models.Report) (int, error)
	// GenerateVerificationQuestion derives a question only the owner can answer.
	GenerateVerificationQuestion(ctx context.Context, found *models.Report) (Question, error)
	// ValidateAnswer judges a candidate answer leniently against the expected one.
	ValidateAnswer(ctx context.Context, candidate, expected string) (bool, error)
}

// Funcs adapts plain functions to Oracle. Nil functions yield zero values.
type Funcs struct {
	ScoreFn    func(ctx context.Context, a, b *models.Report) (int, error)
	QuestionFn func(ctx context.Context, found *models.Report) (Question, error)
	ValidateFn func(ctx context.Context, candidate, expected string) (bool, error)
}

func (f Funcs) Score(ctx context.Context, a, b *models.Report) (int, error) {
	if f.ScoreFn == nil {
		return 0, nil
	}
	return f.ScoreFn(ctx, a, b)
}

func (f Funcs) GenerateVerificationQuestion(ctx context.Context, found *models.Report) (Question, error) {
	if f.QuestionFn == nil {
		return FallbackQuestion, nil
	}
	return f.QuestionFn(ctx, found)
}

func (f Funcs) ValidateAnswer(ctx context.Context, candidate, expected string) (bool, error) {
	if f.ValidateFn == nil {
		return false, nil
	}
	return f.ValidateFn(ctx, candidate, expected)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
