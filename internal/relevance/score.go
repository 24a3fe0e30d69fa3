package relevance

import (
	"shelfsync/internal/normalize"
)

// Candidate is a catalog book prepared for scoring. Tokenization happens
// once at construction so bulk ranking passes do not re-normalize per file.
type Candidate struct {
	ID           int64
	Title        string
	Author       string
	TitleTokens  normalize.TokenSet
	AuthorTokens normalize.TokenSet
}

// NewCandidate tokenizes a book's title and author.
func NewCandidate(id int64, title, author string) Candidate {
	return Candidate{
		ID:           id,
		Title:        title,
		Author:       author,
		TitleTokens:  normalize.Tokens(title),
		AuthorTokens: normalize.Tokens(author),
	}
}

// bookTokens is the combined comparison set for overlap scoring.
func (c Candidate) bookTokens() normalize.TokenSet {
	return c.TitleTokens.Union(c.AuthorTokens)
}

// Scorer computes relevance scores under a fixed set of weights.
type Scorer struct {
	weights Weights
}

// NewScorer constructs a scorer; zero-valued weight fields fall back to the
// historical defaults.
func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights.normalized()}
}

// Score computes the token-overlap score between a file's tokens and a
// book's combined title+author tokens. Empty sets on either side score 0.
//
// Base score is WordMatchValue per exact match. Unmatched file tokens are
// penalized twice (primary and secondary penalty, computed independently)
// to suppress filenames carrying unrelated extra content; the result is
// clamped at zero. A match-ratio bonus rewards filenames whose tokens are
// almost entirely accounted for by the book.
func (s *Scorer) Score(fileTokens, bookTokens normalize.TokenSet) int {
	if fileTokens.Len() == 0 || bookTokens.Len() == 0 {
		return 0
	}

	matched := fileTokens.Intersect(bookTokens).Len()
	unmatched := fileTokens.Len() - matched

	score := s.weights.WordMatchValue * matched
	score -= s.weights.UnmatchedPenalty * unmatched
	score -= s.weights.SecondaryPenalty * unmatched
	if score < 0 {
		score = 0
	}

	ratio := float64(matched) / float64(fileTokens.Len())
	if ratio >= s.weights.RatioBonusThreshold {
		score += int(float64(s.weights.WordMatchValue) * ratio * 4)
	}

	return score
}

// ScoreCandidate scores a raw filename against a candidate, combining the
// token-overlap score with the segmented author/title bonus. It returns the
// final score and the set of matched words.
func (s *Scorer) ScoreCandidate(fileName string, candidate Candidate) (int, normalize.TokenSet) {
	fileTokens := normalize.Tokens(fileName)
	book := candidate.bookTokens()

	score := s.Score(fileTokens, book)
	score += s.segmentBonus(fileName, candidate)

	return score, fileTokens.Intersect(book)
}
