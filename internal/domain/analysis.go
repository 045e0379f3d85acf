package domain

// Analysis is the classifier output for one comment body.
type Analysis struct {
	Sentiment      string
	SentimentScore float64
	Lang           string
	Summary        string
}

// DefaultSentimentScore maps a sentiment label to its score when no
// confidence is available: fixed placeholders for neutral/unknown and
// a conservative default for the polar labels.
func DefaultSentimentScore(sentiment string) float64 {
	switch sentiment {
	case SentimentPositive, SentimentNegative:
		return 0.62
	case SentimentNeutral:
		return 0.50
	default:
		return 0.00
	}
}
