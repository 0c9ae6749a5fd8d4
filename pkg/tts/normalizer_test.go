package tts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFrenchAbbreviations(t *testing.T) {
	got := Normalize("M. Dupont rencontre Mme. Martin et le Dr. Leroy.", "fr")

	assert.Contains(t, got, "Monsieur Dupont")
	assert.Contains(t, got, "Madame Martin")
	assert.Contains(t, got, "Docteur Leroy")
}

func TestNormalizeFrenchAcronyms(t *testing.T) {
	got := Normalize("L'UE et l'ONU discutent du PIB.", "fr")

	assert.Contains(t, got, "Union Européenne")
	assert.Contains(t, got, "Organisation des Nations Unies")
	assert.Contains(t, got, "Produit Intérieur Brut")
}

func TestNormalizeStripsMarkupAndURLs(t *testing.T) {
	got := Normalize(`<p>Voir <a href="https://example.com/a">https://example.com/a</a> ici</p>`, "fr")

	assert.NotContains(t, got, "<p>")
	assert.NotContains(t, got, "https://")
	assert.Contains(t, got, "Voir")
	assert.Contains(t, got, "ici")
}

func TestNormalizeSmartPunctuation(t *testing.T) {
	got := Normalize("Il a dit “bonjour” – l’ami…", "fr")

	assert.Contains(t, got, `"bonjour"`)
	assert.Contains(t, got, "l'ami")
	assert.NotContains(t, got, "–")
	assert.NotContains(t, got, "…")
}

func TestNormalizeGroupedNumbersFrench(t *testing.T) {
	assert.Contains(t, Normalize("Budget de 1 234 euros", "fr"), "1 mille 234 euros")
	assert.Contains(t, Normalize("Soit 2 000 000 au total", "fr"), "2 millions au total")
	assert.Contains(t, Normalize("Environ 2 340 000 habitants", "fr"), "2 millions 340 mille habitants")
}

func TestNormalizePercentagesFrench(t *testing.T) {
	got := Normalize("Une hausse de 3,5 % puis 12%", "fr")

	assert.Contains(t, got, "3,5 pour cent")
	assert.Contains(t, got, "12 pour cent")
	assert.NotContains(t, got, "%")
}

func TestNormalizeDatesAndTimesFrench(t *testing.T) {
	got := Normalize("Le 15/01/2026 à 14:30 puis à 09:00", "fr")

	assert.Contains(t, got, "15 janvier 2026")
	assert.Contains(t, got, "14 heures 30")
	assert.Contains(t, got, "9 heures")
	assert.NotContains(t, got, "heures 00")
}

func TestNormalizeInsertsPauseMarkup(t *testing.T) {
	got := Normalize("Première phrase. Deuxième, avec virgule; et fin: voilà.", "fr")

	assert.Contains(t, got, `. <break time="0.5s"/> `)
	assert.Contains(t, got, `, <break time="0.2s"/> `)
	assert.Contains(t, got, `; <break time="0.3s"/> `)
	assert.Contains(t, got, `: <break time="0.3s"/> `)
}

func TestNormalizeEnglish(t *testing.T) {
	got := Normalize("Dr. Smith said GDP grew 2.5% on 04/07/2026, vs. 1,200,000 jobs.", "en")

	assert.Contains(t, got, "Doctor Smith")
	assert.Contains(t, got, "gross domestic product")
	assert.Contains(t, got, "2.5 percent")
	assert.Contains(t, got, "4 July 2026")
	assert.Contains(t, got, "versus")
	assert.Contains(t, got, "1 million 200 thousand jobs")
}

func TestNormalizeUnknownLanguageStillCleans(t *testing.T) {
	got := Normalize("<b>Olá.  Mundo</b>", "pt")

	assert.NotContains(t, got, "<b>")
	assert.Contains(t, got, `. <break time="0.5s"/> `)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"M. Dupont annonce 1 234 567 euros, soit 12 % de plus. Rendez-vous le 15/01/2026 à 14:30.",
		"L'UE, l'ONU et l'OMS; le Dr. Leroy: etc.",
		"<p>Texte “riche” – avec https://example.com et 2 000 000 d'habitants.</p>",
	}

	for _, input := range inputs {
		once := Normalize(input, "fr")
		twice := Normalize(once, "fr")

		require.Equal(t, once, twice, "input: %s", input)
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	input := "M. Dupont et Mme. Martin discutent de la TVA, du PIB; etc. Le 01/02/2026 à 18:00."

	first := Normalize(input, "fr")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Normalize(input, "fr"))
	}
}

func TestEstimateDuration(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("mot ", 300))

	// 300 words at 150 wpm is 120s of speech, 144s with the pause buffer.
	assert.Equal(t, 144, EstimateDuration(text, 150))
}

func TestEstimateDurationIgnoresPauseMarkup(t *testing.T) {
	plain := "un deux trois quatre cinq"
	marked := `un deux trois, <break time="0.2s"/> quatre cinq`

	assert.Equal(t, EstimateDuration(plain, 150), EstimateDuration(marked, 150))
}

func TestEstimateDurationDefaultsRate(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("mot ", 150))

	assert.Equal(t, 72, EstimateDuration(text, 0))
}

func TestEstimateDurationEmptyText(t *testing.T) {
	assert.Equal(t, 0, EstimateDuration("", 150))
	assert.Equal(t, 0, EstimateDuration("   ", 150))
}
