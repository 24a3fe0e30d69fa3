package relevance

import (
	"path/filepath"
	"strings"
	"unicode"

	"shelfsync/internal/normalize"
)

// segmentBonus attempts to split the filename into an author-like prefix and
// a title-like suffix at every delimiter boundary (underscore runs, dash
// runs, whitespace). If some split puts the prefix fully inside the book's
// author tokens and the suffix fully inside the title tokens, the full bonus
// applies; if the best split satisfies only one side, the partial bonus
// applies. Filenames with explicit structure get the boost that pure token
// overlap cannot provide.
func (s *Scorer) segmentBonus(fileName string, candidate Candidate) int {
	words := splitCandidateWords(fileName)
	if len(words) < 2 {
		return 0
	}
	if candidate.AuthorTokens.Len() == 0 || candidate.TitleTokens.Len() == 0 {
		return 0
	}

	bestSides := 0
	for i := 1; i < len(words); i++ {
		prefix := normalize.Tokens(strings.Join(words[:i], " "))
		suffix := normalize.Tokens(strings.Join(words[i:], " "))

		sides := 0
		if prefix.SubsetOf(candidate.AuthorTokens) {
			sides++
		}
		if suffix.SubsetOf(candidate.TitleTokens) {
			sides++
		}
		if sides > bestSides {
			bestSides = sides
			if bestSides == 2 {
				break
			}
		}
	}

	switch bestSides {
	case 2:
		return s.weights.SegmentedFullBonus
	case 1:
		return s.weights.SegmentedPartialBonus
	default:
		return 0
	}
}

// splitCandidateWords breaks a filename (extension stripped) into words at
// delimiter runs while preserving order.
func splitCandidateWords(fileName string) []string {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	return strings.FieldsFunc(base, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
