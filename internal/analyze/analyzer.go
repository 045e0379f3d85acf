package analyze

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"sync"

	"mygovpulse/internal/domain"
	"mygovpulse/internal/ports"
	"mygovpulse/internal/textnorm"
)

const summaryMaxChars = 220

// ShortSummary returns the text verbatim when it fits the bound,
// otherwise a truncation backed off to the last word boundary with an
// ellipsis appended.
func ShortSummary(text string) string {
	cleaned := textnorm.Whitespace(text)
	runes := []rune(cleaned)
	if len(runes) <= summaryMaxChars {
		return cleaned
	}
	cut := string(runes[:summaryMaxChars-3])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}

// Analyzer is the tiered comment classifier: local heuristics and the
// statistical language detector form the floor, an optional external
// model overrides the whole result when it succeeds. Results are
// cached per unique text body for the process lifetime.
type Analyzer struct {
	model  ports.ModelClient
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]domain.Analysis
}

var _ ports.CommentAnalyzer = (*Analyzer)(nil)

// New builds an analyzer; model may be nil to disable the external tier.
func New(model ports.ModelClient, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		model:  model,
		logger: logger,
		cache:  make(map[string]domain.Analysis),
	}
}

// Analyze classifies one comment body. It never fails: external-tier
// errors fall back silently to the local result. The cache lock is
// held only around map access, never across the model call, so a race
// costs at worst one duplicate computation.
func (a *Analyzer) Analyze(ctx context.Context, text string) domain.Analysis {
	cleaned := textnorm.RepairMojibake(text)
	if cleaned == "" {
		return domain.Analysis{
			Sentiment:      domain.SentimentUnknown,
			SentimentScore: domain.DefaultSentimentScore(domain.SentimentUnknown),
			Lang:           "Unknown",
		}
	}

	key := contentHash(cleaned)

	a.mu.Lock()
	cached, ok := a.cache[key]
	a.mu.Unlock()
	if ok {
		return cached
	}

	sentiment, score := HeuristicSentiment(cleaned)
	result := domain.Analysis{
		Sentiment:      sentiment,
		SentimentScore: score,
		Lang:           DetectLanguage(cleaned),
		Summary:        ShortSummary(cleaned),
	}

	if a.model != nil {
		if external, err := a.model.Analyze(ctx, cleaned); err != nil {
			a.debug("external model unavailable", "error", err)
		} else if external != nil {
			// All-or-nothing: the external result replaces every field.
			result = *external
		}
	}

	a.mu.Lock()
	a.cache[key] = result
	a.mu.Unlock()

	return result
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (a *Analyzer) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
