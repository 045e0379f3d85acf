package analyze

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mygovpulse/internal/domain"
)

func TestShortSummary(t *testing.T) {
	t.Parallel()

	short := strings.Repeat("a", 100)
	if got := ShortSummary(short); got != short {
		t.Fatalf("short text must pass through unchanged")
	}

	long := strings.TrimSpace(strings.Repeat("word ", 60))
	got := ShortSummary(long)
	if len([]rune(got)) > 220 {
		t.Fatalf("summary exceeds bound: %d runes", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncated summary must end with ellipsis: %q", got)
	}
	if strings.HasSuffix(strings.TrimSuffix(got, "..."), "wor") {
		t.Fatalf("truncation must back off to a word boundary: %q", got)
	}
}

type stubModel struct {
	result *domain.Analysis
	err    error
	calls  int
}

func (m *stubModel) Analyze(ctx context.Context, text string) (*domain.Analysis, error) {
	m.calls++
	return m.result, m.err
}

func TestAnalyzeLocalOnly(t *testing.T) {
	t.Parallel()

	a := New(nil, nil)
	got := a.Analyze(context.Background(), "This is great, thank you!")
	if got.Sentiment != domain.SentimentPositive {
		t.Fatalf("expected positive, got %s", got.Sentiment)
	}
	if got.Lang != "English" {
		t.Fatalf("expected English, got %s", got.Lang)
	}
	if got.Summary == "" {
		t.Fatalf("summary must not be empty")
	}
}

func TestAnalyzeEmptyText(t *testing.T) {
	t.Parallel()

	a := New(nil, nil)
	got := a.Analyze(context.Background(), "   ")
	if got.Sentiment != domain.SentimentUnknown || got.SentimentScore != 0.0 {
		t.Fatalf("empty text must classify unknown/0.0, got %s/%v", got.Sentiment, got.SentimentScore)
	}
}

func TestAnalyzeModelOverride(t *testing.T) {
	t.Parallel()

	model := &stubModel{result: &domain.Analysis{
		Sentiment:      domain.SentimentNegative,
		SentimentScore: 0.91,
		Lang:           "Hindi",
		Summary:        "model summary",
	}}

	a := New(model, nil)
	got := a.Analyze(context.Background(), "This is great, thank you!")
	if got.Sentiment != domain.SentimentNegative || got.Lang != "Hindi" {
		t.Fatalf("model result must replace every field, got %+v", got)
	}
}

func TestAnalyzeModelErrorFallsBack(t *testing.T) {
	t.Parallel()

	model := &stubModel{err: errors.New("quota exceeded")}
	a := New(model, nil)

	got := a.Analyze(context.Background(), "This is great, thank you!")
	if got.Sentiment != domain.SentimentPositive {
		t.Fatalf("model failure must fall back to the local result, got %s", got.Sentiment)
	}
}

func TestAnalyzeCaches(t *testing.T) {
	t.Parallel()

	model := &stubModel{result: &domain.Analysis{
		Sentiment:      domain.SentimentNeutral,
		SentimentScore: 0.5,
		Lang:           "English",
		Summary:        "cached",
	}}

	a := New(model, nil)
	a.Analyze(context.Background(), "same body")
	a.Analyze(context.Background(), "same body")
	if model.calls != 1 {
		t.Fatalf("expected one model call for a repeated body, got %d", model.calls)
	}
}
