package analyze

import (
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mygovpulse/internal/textnorm"
)

var titleCaser = cases.Title(language.Und)

// scriptRange maps a Unicode block to the language it identifies on
// MyGov consultation pages. Ordered; the first block with a hit wins.
type scriptRange struct {
	lo, hi   rune
	language string
}

var scriptRanges = []scriptRange{
	{0x0900, 0x097F, "Hindi"},
	{0x0980, 0x09FF, "Bengali"},
	{0x0A00, 0x0A7F, "Punjabi"},
	{0x0A80, 0x0AFF, "Gujarati"},
	{0x0B00, 0x0B7F, "Odia"},
	{0x0B80, 0x0BFF, "Tamil"},
	{0x0C00, 0x0C7F, "Telugu"},
	{0x0C80, 0x0CFF, "Kannada"},
	{0x0D00, 0x0D7F, "Malayalam"},
	{0x0600, 0x06FF, "Urdu"},
}

// languageNames maps ISO 639-1 codes from the statistical detector to
// the display names the dashboard shows.
var languageNames = map[string]string{
	"en": "English",
	"hi": "Hindi",
	"ta": "Tamil",
	"te": "Telugu",
	"ml": "Malayalam",
	"kn": "Kannada",
	"mr": "Marathi",
	"gu": "Gujarati",
	"bn": "Bengali",
	"pa": "Punjabi",
	"or": "Odia",
	"ur": "Urdu",
}

func languageFromScript(text string) string {
	for _, sr := range scriptRanges {
		for _, r := range text {
			if r >= sr.lo && r <= sr.hi {
				return sr.language
			}
		}
	}
	for _, r := range text {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			return "English"
		}
	}
	return "Unknown"
}

// NormalizeLanguageName resolves a code or free-form value to a
// canonical display name, passing unrecognized values through.
func NormalizeLanguageName(raw string) string {
	value := textnorm.Whitespace(raw)
	if value == "" {
		return "Unknown"
	}
	if name, ok := languageNames[strings.ToLower(value)]; ok {
		return name
	}
	titled := titleCaser.String(strings.ToLower(value))
	for _, name := range languageNames {
		if name == titled {
			return titled
		}
	}
	return value
}

// DetectLanguage resolves the display name for the comment's language:
// script-block heuristic first, overridden by the statistical detector
// when it returns a recognized code with enough confidence.
func DetectLanguage(text string) string {
	cleaned := textnorm.Whitespace(text)
	if cleaned == "" {
		return "Unknown"
	}

	scriptGuess := languageFromScript(cleaned)

	info := whatlanggo.Detect(cleaned)
	if info.IsReliable() {
		code := whatlanggo.LangToStringShort(info.Lang)
		if name, ok := languageNames[code]; ok {
			return name
		}
	}

	return NormalizeLanguageName(scriptGuess)
}
