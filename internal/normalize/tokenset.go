package normalize

import "sort"

// TokenSet is a normalized, de-duplicated set of words derived from a string.
// It is an ephemeral value object; order is irrelevant.
type TokenSet map[string]struct{}

// NewTokenSet builds a set from pre-normalized words.
func NewTokenSet(words ...string) TokenSet {
	set := make(TokenSet, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}

// Has reports whether the set contains word.
func (s TokenSet) Has(word string) bool {
	_, ok := s[word]
	return ok
}

// Len returns the number of distinct tokens.
func (s TokenSet) Len() int {
	return len(s)
}

// Words returns the tokens in sorted order for deterministic output.
func (s TokenSet) Words() []string {
	words := make([]string, 0, len(s))
	for word := range s {
		words = append(words, word)
	}
	sort.Strings(words)
	return words
}

// Intersect returns the tokens present in both sets.
func (s TokenSet) Intersect(other TokenSet) TokenSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(TokenSet)
	for word := range small {
		if large.Has(word) {
			out[word] = struct{}{}
		}
	}
	return out
}

// SubsetOf reports whether every token in s is present in other.
// The empty set is not considered a subset: an empty author or title
// segment must never count as a full match.
func (s TokenSet) SubsetOf(other TokenSet) bool {
	if len(s) == 0 {
		return false
	}
	for word := range s {
		if !other.Has(word) {
			return false
		}
	}
	return true
}

// Union returns a set containing the tokens of both sets.
func (s TokenSet) Union(other TokenSet) TokenSet {
	out := make(TokenSet, len(s)+len(other))
	for word := range s {
		out[word] = struct{}{}
	}
	for word := range other {
		out[word] = struct{}{}
	}
	return out
}
