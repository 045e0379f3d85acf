package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"mygovpulse/internal/textnorm"
)

// Comment is the core entity: one public comment scraped from a
// consultation page, with its analysis fields.
type Comment struct {
	Author         string  `json:"author"`
	Timestamp      string  `json:"timestamp"`
	Text           string  `json:"text"`
	Lang           string  `json:"lang"`
	Sentiment      string  `json:"sentiment"`
	SentimentScore float64 `json:"sentiment_score"`
	Summary        string  `json:"summary"`
}

// Sentiment labels. Score semantics: confidence for positive/negative,
// fixed placeholders for neutral/unknown.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentUnknown  = "unknown"
)

// Key returns the comment identity hash: sha256 over the
// case-insensitive, whitespace-normalized (author, text) pair. It is
// the sole deduplication and merge key; timestamps and analysis fields
// never participate.
func Key(author, text string) string {
	a := strings.ToLower(textnorm.Whitespace(author))
	t := strings.ToLower(textnorm.Whitespace(text))
	sum := sha256.Sum256([]byte(a + "|" + t))
	return hex.EncodeToString(sum[:])
}

// Key returns the identity hash of the comment itself.
func (c Comment) Key() string {
	return Key(c.Author, c.Text)
}

// Merge combines a fresh scrape result with the persisted corpus.
// It keeps the first occurrence per identity, iterating fresh rows
// before existing ones, so a re-scraped comment carries its newest
// analysis fields while already-seen identities never duplicate.
func Merge(fresh, existing []Comment) []Comment {
	merged := make([]Comment, 0, len(fresh)+len(existing))
	seen := make(map[string]struct{}, len(fresh)+len(existing))

	for _, row := range fresh {
		key := row.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, row)
	}
	for _, row := range existing {
		key := row.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, row)
	}

	return merged
}

// RawComment is what the extractor produces before analysis.
type RawComment struct {
	Author    string
	Timestamp string
	Text      string
}

// Key returns the identity hash of the raw record.
func (r RawComment) Key() string {
	return Key(r.Author, r.Text)
}
