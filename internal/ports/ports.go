package ports

import (
	"context"
	"time"

	"mygovpulse/internal/domain"
)

// CommentSource pulls the full deduplicated raw comment set for one
// consultation page, walking its pagination until exhaustion.
type CommentSource interface {
	Scrape(ctx context.Context, sourceURL string) ([]domain.RawComment, error)
}

// CommentAnalyzer resolves language, sentiment and summary for a
// cleaned comment body. It always produces a result; tiers that cannot
// contribute fall through to the heuristic floor.
type CommentAnalyzer interface {
	Analyze(ctx context.Context, text string) domain.Analysis
}

// ModelClient is the optional external-model tier. A (nil, nil) return
// means "no opinion"; any error is treated the same way by callers.
type ModelClient interface {
	Analyze(ctx context.Context, text string) (*domain.Analysis, error)
}

// CorpusStore persists one comment corpus per source as delimited rows.
type CorpusStore interface {
	Load(filename string) []domain.Comment
	Save(filename string, rows []domain.Comment) error
}

// Scheduler controls when periodic refresh triggers fire.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
