// Package nlp provides text normalization and shallow linguistic checks
// for free-text transaction input.
package nlp

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// stopWords are prepositions, conjunctions and filler words that carry no
// signal for classification or category matching.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {},
	"for": {}, "on": {}, "in": {}, "at": {}, "to": {}, "of": {},
	"with": {}, "from": {}, "by": {}, "about": {}, "as": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"my": {}, "me": {}, "we": {}, "our": {}, "it": {}, "this": {}, "that": {},
}

// diacriticFolder maps locale-specific letter variants to their base form so
// user input matches regardless of how it was typed.
var diacriticFolder = strings.NewReplacer(
	"ё", "е",
	"á", "a", "à", "a", "â", "a", "ã", "a", "ä", "a", "å", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"í", "i", "ì", "i", "î", "i", "ï", "i",
	"ó", "o", "ò", "o", "ô", "o", "õ", "o", "ö", "o",
	"ú", "u", "ù", "u", "û", "u", "ü", "u",
	"ç", "c", "ñ", "n",
)

// Normalize lowercases the input, folds diacritics, strips everything that is
// not a letter, digit or space, splits on whitespace and drops stop words and
// single-character tokens. Empty input yields an empty slice.
func Normalize(text string) []string {
	lowered := diacriticFolder.Replace(strings.ToLower(text))

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) <= 1 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// IsNumericToken reports whether the token consists solely of digits,
// optionally with a single decimal separator.
func IsNumericToken(token string) bool {
	if token == "" {
		return false
	}
	seps := 0
	for _, r := range token {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' || r == ',':
			seps++
			if seps > 1 {
				return false
			}
		default:
			return false
		}
	}
	return seps == 0 || len(token) > 1
}
