// Package text holds the orthography-folding helpers the pipeline applies
// between OCR output and passage tokenization. Normalization strips
// diacritics and tatweel, folds alef/ya/waw hamza variants and ta marbuta,
// and collapses whitespace so downstream matching is insensitive to
// vocalization and typographic stretching.
package text

import "strings"

var letterFold = map[rune]rune{
	'إ': 'ا',
	'أ': 'ا',
	'آ': 'ا',
	'ٱ': 'ا',
	'ى': 'ي',
	'ؤ': 'و',
	'ئ': 'ي',
	'ة': 'ه',
}

const tatweel = 'ـ'

func isDiacritic(r rune) bool {
	switch {
	case r >= 0x0610 && r <= 0x061A:
		return true
	case r >= 0x064B && r <= 0x065F:
		return true
	case r == 0x0670:
		return true
	case r >= 0x06D6 && r <= 0x06ED:
		return true
	}
	return false
}

// NormalizeArabic folds an Arabic string to its searchable form.
func NormalizeArabic(input string) string {
	var b strings.Builder
	b.Grow(len(input))

	for _, r := range input {
		if isDiacritic(r) || r == tatweel {
			continue
		}
		if folded, ok := letterFold[r]; ok {
			r = folded
		}
		b.WriteRune(r)
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// TokenizeSurface splits a string into normalized surface tokens.
func TokenizeSurface(input string) []string {
	normalized := NormalizeArabic(input)
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, " ")
}
