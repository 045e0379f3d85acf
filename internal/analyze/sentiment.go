package analyze

import (
	"math"
	"regexp"
	"strings"

	"github.com/forPelevin/gomoji"

	"mygovpulse/internal/domain"
	"mygovpulse/internal/textnorm"
)

var positiveWords = map[string]struct{}{
	"good": {}, "great": {}, "excellent": {}, "awesome": {}, "amazing": {},
	"helpful": {}, "best": {}, "love": {}, "support": {}, "thank": {},
	"thanks": {}, "semma": {}, "vera": {}, "level": {}, "verithanam": {},
	"super": {}, "nice": {}, "improve": {}, "improved": {}, "useful": {},
}

var negativeWords = map[string]struct{}{
	"bad": {}, "worst": {}, "poor": {}, "waste": {}, "useless": {},
	"issue": {}, "problem": {}, "bug": {}, "hate": {}, "slow": {},
	"broken": {}, "mokkai": {}, "not": {}, "spam": {}, "fake": {},
	"difficult": {}, "error": {}, "dislike": {}, "delay": {},
}

var positiveEmojis = []string{"😀", "😄", "😊", "👍", "❤️", "❤", "🔥", "👏", "🙏"}
var negativeEmojis = []string{"😡", "😞", "👎", "💔", "😢", "😭"}

const emojiWeight = 0.5

var (
	wordExpr         = regexp.MustCompile(`[a-zA-Z']+`)
	negatedPositive  = regexp.MustCompile(`\b(not|no|never)\s+(good|great|excellent|super|nice)\b`)
	negatedNegative  = regexp.MustCompile(`\b(not|no|never)\s+(bad|poor|waste|worst)\b`)
	alphabeticScript = regexp.MustCompile(`[a-zA-Z\x{0900}-\x{0D7F}]`)
)

const sentimentThreshold = 0.35

// sentimentAliases normalizes labels returned by external models.
var sentimentAliases = map[string]string{
	"pos":     domain.SentimentPositive,
	"neg":     domain.SentimentNegative,
	"neu":     domain.SentimentNeutral,
	"label_0": domain.SentimentNegative,
	"label_1": domain.SentimentNeutral,
	"label_2": domain.SentimentPositive,
}

// NormalizeSentiment resolves a raw sentiment label to one of the four
// canonical values, via the alias table and substring fallback.
func NormalizeSentiment(raw string) string {
	label := strings.ToLower(textnorm.Whitespace(raw))
	switch label {
	case domain.SentimentPositive, domain.SentimentNegative, domain.SentimentNeutral, domain.SentimentUnknown:
		return label
	}
	if mapped, ok := sentimentAliases[label]; ok {
		return mapped
	}
	switch {
	case strings.Contains(label, "pos"):
		return domain.SentimentPositive
	case strings.Contains(label, "neg"):
		return domain.SentimentNegative
	case strings.Contains(label, "neu"):
		return domain.SentimentNeutral
	}
	return domain.SentimentUnknown
}

// HeuristicSentiment classifies the text with the lexicon + emoji
// counter and the two negation-flip rules. It is the floor tier and
// always produces a label.
func HeuristicSentiment(text string) (string, float64) {
	cleaned := textnorm.Whitespace(text)
	if cleaned == "" {
		return domain.SentimentUnknown, domain.DefaultSentimentScore(domain.SentimentUnknown)
	}

	lowered := strings.ToLower(cleaned)
	if len([]rune(lowered)) <= 3 {
		return domain.SentimentUnknown, domain.DefaultSentimentScore(domain.SentimentUnknown)
	}

	// Negated phrases flip polarity: their words must not also count
	// through the lexicon, so they are excised before tokenizing.
	flippedNeg := float64(len(negatedPositive.FindAllString(lowered, -1)))
	flippedPos := float64(len(negatedNegative.FindAllString(lowered, -1)))
	tokenSource := negatedPositive.ReplaceAllString(lowered, " ")
	tokenSource = negatedNegative.ReplaceAllString(tokenSource, " ")

	pos := flippedPos
	neg := flippedNeg
	for _, token := range wordExpr.FindAllString(tokenSource, -1) {
		if _, ok := positiveWords[token]; ok {
			pos++
		}
		if _, ok := negativeWords[token]; ok {
			neg++
		}
	}

	if gomoji.ContainsEmoji(lowered) {
		for _, e := range positiveEmojis {
			pos += float64(strings.Count(lowered, e)) * emojiWeight
		}
		for _, e := range negativeEmojis {
			neg += float64(strings.Count(lowered, e)) * emojiWeight
		}
	}

	delta := pos - neg

	var sentiment string
	switch {
	case delta > sentimentThreshold:
		sentiment = domain.SentimentPositive
	case delta < -sentimentThreshold:
		sentiment = domain.SentimentNegative
	case alphabeticScript.MatchString(lowered):
		sentiment = domain.SentimentNeutral
	default:
		sentiment = domain.SentimentUnknown
	}

	var score float64
	if sentiment == domain.SentimentPositive || sentiment == domain.SentimentNegative {
		score = math.Min(0.99, 0.55+math.Min(math.Abs(delta), 5.0)*0.08)
	} else {
		score = domain.DefaultSentimentScore(sentiment)
	}

	return sentiment, math.Round(score*10000) / 10000
}
