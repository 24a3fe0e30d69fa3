package relevance

import (
	"sort"

	"shelfsync/internal/normalize"
)

// Match is one scored (file, book) pairing produced by a ranking pass.
type Match struct {
	Candidate    Candidate
	Score        int
	MatchedWords normalize.TokenSet
}

// Matcher applies a scorer across candidate sets with threshold and
// tie-break policy. Results are reproducible across runs: ties keep catalog
// insertion order (first seen wins).
type Matcher struct {
	scorer *Scorer
}

// NewMatcher constructs a matcher over the given weights.
func NewMatcher(weights Weights) *Matcher {
	return &Matcher{scorer: NewScorer(weights)}
}

// Scorer exposes the underlying scorer for callers that need raw scores.
func (m *Matcher) Scorer() *Scorer {
	return m.scorer
}

// Rank scores fileName against every candidate, drops candidates below
// minScore, and returns the remainder ordered by descending score. The sort
// is stable so equal scores preserve candidate order. When limit is
// positive, at most limit results are returned.
func (m *Matcher) Rank(fileName string, candidates []Candidate, minScore, limit int) []Match {
	matches := make([]Match, 0, len(candidates))
	for _, candidate := range candidates {
		score, matchedWords := m.scorer.ScoreCandidate(fileName, candidate)
		if score < minScore {
			continue
		}
		matches = append(matches, Match{
			Candidate:    candidate,
			Score:        score,
			MatchedWords: matchedWords,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// BestMatch returns the single top-scoring candidate at or above minScore,
// or nil when no candidate qualifies.
func (m *Matcher) BestMatch(fileName string, candidates []Candidate, minScore int) *Match {
	ranked := m.Rank(fileName, candidates, minScore, 1)
	if len(ranked) == 0 {
		return nil
	}
	return &ranked[0]
}
