// Package tts turns raw article text into speech-ready text and
// estimates narration duration. Everything here is pure and
// deterministic: no I/O, no clock, safe to re-run on its own output.
package tts

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultWordsPerMinute is the average narration rate used when the
// caller does not override it.
const DefaultWordsPerMinute = 150

// pauseBuffer compensates for natural pauses the word count misses.
const pauseBuffer = 1.2

var (
	markupRe     = regexp.MustCompile(`<[^>]*>`)
	urlRe        = regexp.MustCompile(`https?://\S+`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	smartSingleRe = regexp.MustCompile("[‘’]")
	smartDoubleRe = regexp.MustCompile("[“”]")
	dashRe        = regexp.MustCompile("[–—]")
	ellipsisRe    = regexp.MustCompile("…")

	dateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	timeRe = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)

	frGroupedNumberRe = regexp.MustCompile(`\b\d{1,3}(?: \d{3})+\b`)
	enGroupedNumberRe = regexp.MustCompile(`\b\d{1,3}(?:,\d{3})+\b`)
	frPercentRe       = regexp.MustCompile(`(\d+(?:,\d+)?)\s*%`)
	enPercentRe       = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
)

// rule is one abbreviation/acronym expansion. Patterns anchor on word
// boundaries against the original vocabulary only, so re-normalizing
// already-expanded text never double-expands ("Docteur" does not match
// the rule targeting "Dr.").
type rule struct {
	re          *regexp.Regexp
	replacement string
}

var frRules = []rule{
	{regexp.MustCompile(`\bM\.`), "Monsieur"},
	{regexp.MustCompile(`\bMme\.?`), "Madame"},
	{regexp.MustCompile(`\bMlle\.?`), "Mademoiselle"},
	{regexp.MustCompile(`\bDr\.`), "Docteur"},
	{regexp.MustCompile(`\bPr\.`), "Professeur"},
	{regexp.MustCompile(`\betc\.`), "et cetera"},
	{regexp.MustCompile(`\bc\.à\.d\.`), "c'est-à-dire"},
	{regexp.MustCompile(`\bUE\b`), "Union Européenne"},
	{regexp.MustCompile(`\bONU\b`), "Organisation des Nations Unies"},
	{regexp.MustCompile(`\bOMS\b`), "Organisation Mondiale de la Santé"},
	{regexp.MustCompile(`\bPIB\b`), "Produit Intérieur Brut"},
	{regexp.MustCompile(`\bTVA\b`), "Taxe sur la Valeur Ajoutée"},
	{regexp.MustCompile(`\bUSA\b`), "États-Unis"},
}

var enRules = []rule{
	{regexp.MustCompile(`\bMr\.`), "Mister"},
	{regexp.MustCompile(`\bMrs\.`), "Misses"},
	{regexp.MustCompile(`\bDr\.`), "Doctor"},
	{regexp.MustCompile(`\bProf\.`), "Professor"},
	{regexp.MustCompile(`\betc\.`), "et cetera"},
	{regexp.MustCompile(`\bvs\.`), "versus"},
	{regexp.MustCompile(`\bEU\b`), "European Union"},
	{regexp.MustCompile(`\bUN\b`), "United Nations"},
	{regexp.MustCompile(`\bWHO\b`), "World Health Organization"},
	{regexp.MustCompile(`\bGDP\b`), "gross domestic product"},
}

var rulesByLanguage = map[string][]rule{
	"fr": frRules,
	"en": enRules,
}

var frMonths = []string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

var enMonths = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// pauses maps clause punctuation to the break hint a TTS engine reads.
var pauses = []struct {
	punct string
	tag   string
}{
	{". ", `. <break time="0.5s"/> `},
	{", ", `, <break time="0.2s"/> `},
	{"; ", `; <break time="0.3s"/> `},
	{": ", `: <break time="0.3s"/> `},
}

// Normalize rewrites raw article text into speech-ready text: markup and
// URLs removed, smart punctuation flattened, abbreviations and acronyms
// expanded for the given language, grouped numbers, percentages, dates
// and times spelled out, and pause markup inserted after sentence and
// clause punctuation. Running Normalize on its own output returns the
// same text.
func Normalize(text, language string) string {
	out := markupRe.ReplaceAllString(text, " ")
	out = urlRe.ReplaceAllString(out, "")

	out = smartSingleRe.ReplaceAllString(out, "'")
	out = smartDoubleRe.ReplaceAllString(out, `"`)
	out = dashRe.ReplaceAllString(out, "-")
	out = ellipsisRe.ReplaceAllString(out, "...")

	for _, r := range rulesByLanguage[language] {
		out = r.re.ReplaceAllString(out, r.replacement)
	}

	out = spellNumbersAndDates(out, language)

	for _, p := range pauses {
		out = strings.ReplaceAll(out, p.punct, p.tag)
	}

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(out, " "))
}

// EstimateDuration returns the estimated narration length in seconds for
// already-normalized text. Pause markup is stripped before counting so
// it never inflates the estimate: ceil(words/wpm * 60 * 1.2).
func EstimateDuration(formattedText string, wordsPerMinute int) int {
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}

	clean := markupRe.ReplaceAllString(formattedText, " ")

	words := len(strings.Fields(clean))
	if words == 0 {
		return 0
	}

	return int(math.Ceil(float64(words) / float64(wordsPerMinute) * 60 * pauseBuffer))
}

func spellNumbersAndDates(text, language string) string {
	switch language {
	case "fr":
		text = frGroupedNumberRe.ReplaceAllStringFunc(text, func(match string) string {
			n, err := strconv.ParseInt(strings.ReplaceAll(match, " ", ""), 10, 64)
			if err != nil {
				return match
			}

			return frenchNumberWords(n)
		})
		text = frPercentRe.ReplaceAllString(text, "$1 pour cent")
		text = dateRe.ReplaceAllStringFunc(text, func(match string) string {
			return speakDate(match, frMonths)
		})
		text = timeRe.ReplaceAllString(text, "$1 heures $2")
		text = regexp.MustCompile(`\b(\d{1,2}) heures 00\b`).ReplaceAllString(text, "$1 heures")
	case "en":
		text = enGroupedNumberRe.ReplaceAllStringFunc(text, func(match string) string {
			n, err := strconv.ParseInt(strings.ReplaceAll(match, ",", ""), 10, 64)
			if err != nil {
				return match
			}

			return englishNumberWords(n)
		})
		text = enPercentRe.ReplaceAllString(text, "$1 percent")
		text = dateRe.ReplaceAllStringFunc(text, func(match string) string {
			return speakDate(match, enMonths)
		})
	}

	return text
}

func speakDate(match string, months []string) string {
	parts := dateRe.FindStringSubmatch(match)

	month, err := strconv.Atoi(parts[2])
	if err != nil || month < 1 || month > 12 {
		return match
	}

	return fmt.Sprintf("%s %s %s", parts[1], months[month-1], parts[3])
}

// frenchNumberWords spells the magnitude words of a grouped number; the
// sub-thousand remainder stays numeric, matching natural newsreading
// ("2 340 000" -> "2 millions 340 mille").
func frenchNumberWords(n int64) string {
	if n < 1_000 {
		return strconv.FormatInt(n, 10)
	}

	if n < 1_000_000 {
		thousands := n / 1_000
		remainder := n % 1_000

		if remainder == 0 {
			return fmt.Sprintf("%d mille", thousands)
		}

		return fmt.Sprintf("%d mille %d", thousands, remainder)
	}

	if n < 1_000_000_000 {
		millions := n / 1_000_000
		remainder := n % 1_000_000
		unit := "millions"

		if millions == 1 {
			unit = "million"
		}

		if remainder == 0 {
			return fmt.Sprintf("%d %s", millions, unit)
		}

		return fmt.Sprintf("%d %s %s", millions, unit, frenchNumberWords(remainder))
	}

	return strconv.FormatInt(n, 10)
}

func englishNumberWords(n int64) string {
	if n < 1_000 {
		return strconv.FormatInt(n, 10)
	}

	if n < 1_000_000 {
		thousands := n / 1_000
		remainder := n % 1_000

		if remainder == 0 {
			return fmt.Sprintf("%d thousand", thousands)
		}

		return fmt.Sprintf("%d thousand %d", thousands, remainder)
	}

	if n < 1_000_000_000 {
		millions := n / 1_000_000
		remainder := n % 1_000_000

		if remainder == 0 {
			return fmt.Sprintf("%d million", millions)
		}

		return fmt.Sprintf("%d million %s", millions, englishNumberWords(remainder))
	}

	return strconv.FormatInt(n, 10)
}
