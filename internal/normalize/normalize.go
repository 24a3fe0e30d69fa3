package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// parenthesizedYear matches release years like "(1986)" so they can be
// removed before tokenization. Bare four-digit tokens are kept: a title can
// legitimately be "1984".
var parenthesizedYear = regexp.MustCompile(`\(\s*\d{4}\s*\)`)

// Tokens canonicalizes text into a comparable token set.
//
// Steps, in order: Unicode canonical composition, lowercasing, folding the
// Cyrillic "ё" to "е", removal of parenthesized four-digit years, splitting
// on whitespace/punctuation/separators, and dropping stopwords,
// bibliographic filler, file-extension tokens, and tokens of length one.
func Tokens(text string) TokenSet {
	if strings.TrimSpace(text) == "" {
		return TokenSet{}
	}

	canonical := norm.NFC.String(text)
	canonical = strings.ToLower(canonical)
	canonical = strings.ReplaceAll(canonical, "ё", "е")
	canonical = parenthesizedYear.ReplaceAllString(canonical, " ")

	set := make(TokenSet)
	for _, token := range strings.FieldsFunc(canonical, isSeparator) {
		if utf8.RuneCountInString(token) <= 1 {
			continue
		}
		if isDroppedToken(token) {
			continue
		}
		set[token] = struct{}{}
	}
	return set
}

func isSeparator(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return false
	}
	return true
}
