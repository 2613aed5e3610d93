package oracle

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
)

// Resilient bounds every call with a timeout and replaces failures with the
// safe defaults: score 0, FallbackQuestion, and a rejected answer. Its
// methods never return an error.
type Resilient struct {
	inner   Oracle
	timeout time.Duration
}

func NewResilient(inner Oracle, timeout time.Duration) *Resilient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Resilient{inner: inner, timeout: timeout}
}

func (r *Resilient) Score(ctx context.Context, a, b *models.Report) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	score, err := r.inner.Score(ctx, a, b)
	if err != nil {
		slog.Warn("similarity score failed, treating as no match",
			"report_id", a.ID, "candidate_id", b.ID, "error", err)
		return 0, nil
	}
	return clampScore(score), nil
}

func (r *Resilient) GenerateVerificationQuestion(ctx context.Context, found *models.Report) (Question, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	q, err := r.inner.GenerateVerificationQuestion(ctx, found)
	if err != nil {
		slog.Warn("verification question generation failed, using fallback",
			"report_id", found.ID, "error", err)
		return FallbackQuestion, nil
	}
	q.Question = strings.TrimSpace(q.Question)
	q.Answer = strings.TrimSpace(q.Answer)
	if q.Question == "" || q.Answer == "" {
		return FallbackQuestion, nil
	}
	return q, nil
}

func (r *Resilient) ValidateAnswer(ctx context.Context, candidate, expected string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ok, err := r.inner.ValidateAnswer(ctx, candidate, expected)
	if err != nil {
		slog.Warn("answer validation failed, rejecting answer", "error", err)
		return false, nil
	}
	return ok, nil
}
